package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

func newTestBreaker(t *testing.T, cfg *Config) (*storeBreaker, *time.Time) {
	t.Helper()

	st, err := store.New(&store.Config{Driver: store.DriverMemory})
	require.NoError(t, err)

	brk, err := New(cfg, WithStore(st))
	require.NoError(t, err)

	// 可控时钟，避免测试真实等待冷却期
	b := brk.(*storeBreaker)
	now := time.Now()
	b.now = func() time.Time { return now }
	return b, &now
}

func TestNew(t *testing.T) {
	t.Run("RequiresStore", func(t *testing.T) {
		_, err := New(DefaultConfig())
		assert.ErrorIs(t, err, ErrStoreNil)
	})

	t.Run("NilConfigUsesDefaults", func(t *testing.T) {
		st, err := store.New(&store.Config{Driver: store.DriverMemory})
		require.NoError(t, err)

		brk, err := New(nil, WithStore(st))
		require.NoError(t, err)
		assert.NotNil(t, brk)
	})
}

func TestClosedByDefault(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(t, DefaultConfig())

	allowed, err := b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	assert.True(t, allowed)

	state, err := b.Snapshot(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, state.Status)
	assert.Equal(t, "openai", state.DependencyID)
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Default: Policy{FailureThreshold: 3, ResetTimeout: time.Minute}}
	b, _ := newTestBreaker(t, cfg)

	for i := 0; i < 2; i++ {
		require.NoError(t, b.RecordFailure(ctx, "openai"))
	}

	state, err := b.Snapshot(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, state.Status)
	assert.Equal(t, 2, state.ConsecutiveFailures)

	require.NoError(t, b.RecordFailure(ctx, "openai"))

	state, err = b.Snapshot(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, state.Status)

	allowed, err := b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Default: Policy{FailureThreshold: 3, ResetTimeout: time.Minute}}
	b, _ := newTestBreaker(t, cfg)

	require.NoError(t, b.RecordFailure(ctx, "openai"))
	require.NoError(t, b.RecordFailure(ctx, "openai"))
	require.NoError(t, b.RecordSuccess(ctx, "openai"))

	// 成功清零计数，之前的失败不再累积
	require.NoError(t, b.RecordFailure(ctx, "openai"))
	require.NoError(t, b.RecordFailure(ctx, "openai"))

	state, err := b.Snapshot(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, state.Status)
	assert.Equal(t, 2, state.ConsecutiveFailures)
}

func TestHalfOpenSingleProbe(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Default: Policy{FailureThreshold: 1, ResetTimeout: time.Minute}}
	b, now := newTestBreaker(t, cfg)

	require.NoError(t, b.RecordFailure(ctx, "openai"))

	allowed, err := b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	assert.False(t, allowed, "冷却期内拒绝")

	*now = now.Add(61 * time.Second)

	// 冷却期结束：第一个调用方拿到探测权
	allowed, err = b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	assert.True(t, allowed)

	state, err := b.Snapshot(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, StatusHalfOpen, state.Status)
	assert.True(t, state.ProbeInFlight)

	// 探测未收尾前其余调用方继续被拒绝
	allowed, err = b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Default: Policy{FailureThreshold: 1, ResetTimeout: time.Minute}}
	b, now := newTestBreaker(t, cfg)

	require.NoError(t, b.RecordFailure(ctx, "openai"))
	*now = now.Add(61 * time.Second)

	allowed, err := b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, b.RecordSuccess(ctx, "openai"))

	state, err := b.Snapshot(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, state.Status)
	assert.Equal(t, 0, state.ConsecutiveFailures)
	assert.False(t, state.ProbeInFlight)

	allowed, err = b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Default: Policy{FailureThreshold: 1, ResetTimeout: time.Minute}}
	b, now := newTestBreaker(t, cfg)

	require.NoError(t, b.RecordFailure(ctx, "openai"))
	*now = now.Add(61 * time.Second)

	allowed, err := b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, b.RecordFailure(ctx, "openai"))

	state, err := b.Snapshot(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, state.Status)
	assert.False(t, state.ProbeInFlight)

	// opened_at 已刷新，新冷却期内继续拒绝
	allowed, err = b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	assert.False(t, allowed)

	// 冷却期再次结束后允许再探测（open 状态永远可恢复）
	*now = now.Add(61 * time.Second)
	allowed, err = b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Default: Policy{FailureThreshold: 1, ResetTimeout: time.Minute}}
	b, _ := newTestBreaker(t, cfg)

	require.NoError(t, b.RecordFailure(ctx, "openai"))

	allowed, err := b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, b.Reset(ctx, "openai"))

	state, err := b.Snapshot(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, state.Status)

	allowed, err = b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestPerDependencyPolicy(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Default: Policy{FailureThreshold: 5, ResetTimeout: time.Minute},
		Dependencies: map[string]Policy{
			"database": {FailureThreshold: 3, ResetTimeout: 30 * time.Second},
		},
	}
	b, _ := newTestBreaker(t, cfg)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.RecordFailure(ctx, "database"))
		require.NoError(t, b.RecordFailure(ctx, "openai"))
	}

	dbState, err := b.Snapshot(ctx, "database")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, dbState.Status, "database 阈值 3 已触发")

	aiState, err := b.Snapshot(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, aiState.Status, "openai 阈值 5 未触发")
}

func TestStateChangeListener(t *testing.T) {
	ctx := context.Background()

	st, err := store.New(&store.Config{Driver: store.DriverMemory})
	require.NoError(t, err)

	type transition struct {
		dep      string
		from, to Status
	}
	var seen []transition

	brk, err := New(
		&Config{Default: Policy{FailureThreshold: 1, ResetTimeout: time.Minute}},
		WithStore(st),
		WithStateChangeListener(func(dep string, from, to Status) {
			seen = append(seen, transition{dep, from, to})
		}),
	)
	require.NoError(t, err)

	b := brk.(*storeBreaker)
	now := time.Now()
	b.now = func() time.Time { return now }

	require.NoError(t, b.RecordFailure(ctx, "openai"))

	now = now.Add(61 * time.Second)
	allowed, err := b.AllowCall(ctx, "openai")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, b.RecordSuccess(ctx, "openai"))

	require.Len(t, seen, 3)
	assert.Equal(t, transition{"openai", StatusClosed, StatusOpen}, seen[0])
	assert.Equal(t, transition{"openai", StatusOpen, StatusHalfOpen}, seen[1])
	assert.Equal(t, transition{"openai", StatusHalfOpen, StatusClosed}, seen[2])
}

// brokenStore 所有操作都失败的存储，用于验证降级放行。
type brokenStore struct{}

var errStoreDown = xerrors.New("store down")

func (brokenStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errStoreDown
}

func (brokenStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errStoreDown
}

func (brokenStore) Delete(ctx context.Context, key string) error { return errStoreDown }

func (brokenStore) IncrementIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	return 0, false, errStoreDown
}

func (brokenStore) CompareAndSet(ctx context.Context, key string, expected, newValue []byte, ttl time.Duration) (bool, error) {
	return false, errStoreDown
}

func (brokenStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	return 0, errStoreDown
}

func (brokenStore) Ping(ctx context.Context) error { return errStoreDown }

func TestAllowCallFailsOpenOnStoreError(t *testing.T) {
	ctx := context.Background()

	brk, err := New(DefaultConfig(), WithStore(brokenStore{}))
	require.NoError(t, err)

	allowed, err := brk.AllowCall(ctx, "openai")
	assert.True(t, allowed, "存储故障时放行")
	assert.ErrorIs(t, err, errStoreDown)
}
