package store

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
)

// memoryStore 进程内存储实现（非导出）
//
// 互斥锁保证 IncrementIfBelow / CompareAndSet 对并发调用方的原子性，
// 与 Redis 驱动的 Lua 脚本语义一致。过期键在读取路径上惰性回收。
type memoryStore struct {
	prefix string
	logger clog.Logger

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // 零值表示不过期
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func newMemory(cfg *Config, logger clog.Logger) Store {
	return &memoryStore{
		prefix:  cfg.Prefix,
		logger:  logger,
		entries: make(map[string]memoryEntry),
	}
}

func (s *memoryStore) fullKey(key string) string {
	return s.prefix + key
}

// get 返回未过期的条目；过期条目顺带删除。调用方必须持有锁。
func (s *memoryStore) get(key string, now time.Time) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(now) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrKeyEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.get(s.fullKey(key), time.Now())
	if !ok {
		return nil, false, nil
	}
	// 返回副本，避免调用方修改内部状态
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrKeyEmpty
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.fullKey(key)] = entry
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, s.fullKey(key))
	return nil
}

func (s *memoryStore) IncrementIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	if key == "" {
		return 0, false, ErrKeyEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	fullKey := s.fullKey(key)

	var count int64
	entry, ok := s.get(fullKey, now)
	if ok {
		count, _ = strconv.ParseInt(string(entry.value), 10, 64)
	}
	count++

	next := memoryEntry{value: []byte(strconv.FormatInt(count, 10))}
	if ok {
		// 保留已有过期时间（窗口边界不随后续请求滑动）
		next.expiresAt = entry.expiresAt
	} else if ttl > 0 {
		next.expiresAt = now.Add(ttl)
	}
	s.entries[fullKey] = next

	return count, count <= limit, nil
}

func (s *memoryStore) CompareAndSet(ctx context.Context, key string, expected, newValue []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	fullKey := s.fullKey(key)

	entry, ok := s.get(fullKey, now)
	if len(expected) == 0 {
		if ok {
			return false, nil
		}
	} else {
		if !ok || !bytes.Equal(entry.value, expected) {
			return false, nil
		}
	}

	stored := make([]byte, len(newValue))
	copy(stored, newValue)

	next := memoryEntry{value: stored}
	if ttl > 0 {
		next.expiresAt = now.Add(ttl)
	}
	s.entries[fullKey] = next
	return true, nil
}

func (s *memoryStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, ErrKeyEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fullPrefix := s.fullKey(prefix)
	var deleted int64
	for key := range s.entries {
		if strings.HasPrefix(key, fullPrefix) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return nil
}
