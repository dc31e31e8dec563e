package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

func newTestLimiter(t *testing.T) (*fixedWindow, *time.Time) {
	t.Helper()

	st, err := store.New(&store.Config{Driver: store.DriverMemory})
	require.NoError(t, err)

	limiter, err := New(DefaultConfig(), WithStore(st))
	require.NoError(t, err)

	// 可控时钟，窗口推进不依赖真实等待
	l := limiter.(*fixedWindow)
	now := time.Now().Truncate(time.Minute)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestNew(t *testing.T) {
	t.Run("RequiresStore", func(t *testing.T) {
		_, err := New(DefaultConfig())
		assert.ErrorIs(t, err, ErrStoreNil)
	})

	t.Run("NilConfigUsesDefaults", func(t *testing.T) {
		st, err := store.New(&store.Config{Driver: store.DriverMemory})
		require.NoError(t, err)

		limiter, err := New(nil, WithStore(st))
		require.NoError(t, err)
		assert.NotNil(t, limiter)
	})
}

func TestAllowWithinLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	policy := Policy{Limit: 3, Window: time.Minute, Class: "api"}

	for i := int64(1); i <= 3; i++ {
		decision, err := l.Allow(ctx, "user:1", policy)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, i, decision.Count)
		assert.Equal(t, 3-i, decision.Remaining)
	}
}

func TestDenyBeyondLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	policy := Policy{Limit: 2, Window: time.Minute, Class: "api"}

	for i := 0; i < 2; i++ {
		decision, err := l.Allow(ctx, "user:1", policy)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}

	decision, err := l.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, int64(3), decision.Count, "拒绝的请求同样计入窗口")
	assert.Equal(t, int64(0), decision.Remaining)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, decision.RetryAfter, time.Minute)

	// 后续拒绝继续累计
	decision, err = l.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, int64(4), decision.Count)
}

func TestNextWindowResets(t *testing.T) {
	ctx := context.Background()
	l, now := newTestLimiter(t)

	policy := Policy{Limit: 1, Window: time.Minute, Class: "api"}

	decision, err := l.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = l.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	// 推进到下一个窗口
	*now = now.Add(time.Minute)

	decision, err = l.Allow(ctx, "user:1", policy)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(1), decision.Count)
}

func TestIdentityAndClassIsolation(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	api := Policy{Limit: 1, Window: time.Minute, Class: "api"}
	auth := Policy{Limit: 1, Window: time.Minute, Class: "auth"}

	decision, err := l.Allow(ctx, "user:1", api)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	// 同身份不同类别独立计数
	decision, err = l.Allow(ctx, "user:1", auth)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// 同类别不同身份独立计数
	decision, err = l.Allow(ctx, "user:2", api)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = l.Allow(ctx, "user:1", api)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestInvalidPolicy(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	_, err := l.Allow(ctx, "user:1", Policy{Limit: 0, Window: time.Minute})
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = l.Allow(ctx, "user:1", Policy{Limit: 10, Window: 0})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

// downStore 所有操作都失败的存储，用于验证降级放行。
type downStore struct{}

var errDown = xerrors.New("store down")

func (downStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errDown
}

func (downStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errDown
}

func (downStore) Delete(ctx context.Context, key string) error { return errDown }

func (downStore) IncrementIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	return 0, false, errDown
}

func (downStore) CompareAndSet(ctx context.Context, key string, expected, newValue []byte, ttl time.Duration) (bool, error) {
	return false, errDown
}

func (downStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	return 0, errDown
}

func (downStore) Ping(ctx context.Context) error { return errDown }

func TestFailOpenOnStoreError(t *testing.T) {
	ctx := context.Background()

	limiter, err := New(DefaultConfig(), WithStore(downStore{}))
	require.NoError(t, err)

	decision, err := limiter.Allow(ctx, "user:1",
		Policy{Limit: 1, Window: time.Minute, Class: "api"})
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "存储故障时放行")
}

func TestPolicyFor(t *testing.T) {
	cfg := &Config{
		Default: Policy{Limit: 1000, Window: time.Hour, Class: "default"},
		Classes: map[string]Policy{
			"auth": {Limit: 10, Window: time.Minute},
		},
	}
	cfg.setDefaults()

	p := cfg.PolicyFor("auth")
	assert.Equal(t, int64(10), p.Limit)
	assert.Equal(t, "auth", p.Class, "类别名回填")

	p = cfg.PolicyFor("unknown")
	assert.Equal(t, int64(1000), p.Limit)
}
