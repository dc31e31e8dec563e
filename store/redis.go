package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/connector"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

// incrScript 窗口计数的原子自增脚本
//
// KEYS[1]: 计数键
// ARGV[1]: 阈值 limit
// ARGV[2]: 首次创建时的过期时间（毫秒，0 表示不过期）
//
// 自增始终保留（超限的尝试同样计入窗口），返回 {自增后计数, 是否在阈值内}。
const incrScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 and tonumber(ARGV[2]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
local allowed = 0
if count <= tonumber(ARGV[1]) then
  allowed = 1
end
return {count, allowed}
`

// casScript 状态记录的原子比较替换脚本
//
// KEYS[1]: 状态键
// ARGV[1]: 期望的当前值（空串表示"键必须不存在"）
// ARGV[2]: 新值
// ARGV[3]: 新值过期时间（毫秒，0 表示不过期）
const casScript = `
local current = redis.call("GET", KEYS[1])
if ARGV[1] == "" then
  if current then
    return 0
  end
elseif current ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
  redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`

// redisStore 基于 Redis 的存储实现（非导出）
type redisStore struct {
	client *redis.Client
	prefix string
	logger clog.Logger

	incr *redis.Script
	cas  *redis.Script
}

func newRedis(cfg *Config, conn connector.RedisConnector, logger clog.Logger) Store {
	return &redisStore{
		client: conn.GetClient(),
		prefix: cfg.Prefix,
		logger: logger,
		incr:   redis.NewScript(incrScript),
		cas:    redis.NewScript(casScript),
	}
}

func (s *redisStore) fullKey(key string) string {
	return s.prefix + key
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrKeyEmpty
	}

	data, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if err != nil {
		if xerrors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, xerrors.Wrap(err, "store: get")
	}
	return data, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.fullKey(key), value, ttl).Err(); err != nil {
		return xerrors.Wrap(err, "store: set")
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if err := s.client.Del(ctx, s.fullKey(key)).Err(); err != nil {
		return xerrors.Wrap(err, "store: delete")
	}
	return nil
}

func (s *redisStore) IncrementIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	if key == "" {
		return 0, false, ErrKeyEmpty
	}

	result, err := s.incr.Run(ctx, s.client, []string{s.fullKey(key)}, limit, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, false, xerrors.Wrap(err, "store: increment script")
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return 0, false, xerrors.New("store: unexpected increment script result")
	}
	count, _ := values[0].(int64)
	allowed, _ := values[1].(int64)
	return count, allowed == 1, nil
}

func (s *redisStore) CompareAndSet(ctx context.Context, key string, expected, newValue []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}

	result, err := s.cas.Run(ctx, s.client,
		[]string{s.fullKey(key)},
		string(expected), string(newValue), ttl.Milliseconds(),
	).Result()
	if err != nil {
		return false, xerrors.Wrap(err, "store: cas script")
	}

	swapped, _ := result.(int64)
	return swapped == 1, nil
}

func (s *redisStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, ErrKeyEmpty
	}

	var (
		cursor  uint64
		deleted int64
		match   = s.fullKey(prefix) + "*"
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 512).Result()
		if err != nil {
			return deleted, xerrors.Wrap(err, "store: scan")
		}

		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, xerrors.Wrap(err, "store: delete batch")
			}
			deleted += n
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if deleted > 0 {
		s.logger.Debug("deleted keys by prefix",
			clog.String("prefix", prefix),
			clog.Int64("count", deleted))
	}
	return deleted, nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return xerrors.Wrap(err, "store: ping")
	}
	return nil
}
