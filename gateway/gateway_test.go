package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/breaker"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/cache"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/ratelimit"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/transport"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

var errUpstream = xerrors.New("upstream down")

func okTransport(calls *int) transport.Transport {
	return transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if calls != nil {
			*calls++
		}
		return &transport.Response{Status: http.StatusOK, Body: []byte("ok")}, nil
	})
}

func failTransport() transport.Transport {
	return transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return nil, errUpstream
	})
}

type testRig struct {
	dispatcher *Dispatcher
	breaker    breaker.Breaker
	store      store.Store
}

func newRig(t *testing.T, cfg *Config, opts ...Option) *testRig {
	t.Helper()

	st, err := store.New(&store.Config{Driver: store.DriverMemory})
	require.NoError(t, err)

	brk, err := breaker.New(
		&breaker.Config{Default: breaker.Policy{FailureThreshold: 2, ResetTimeout: time.Minute}},
		breaker.WithStore(st))
	require.NoError(t, err)

	opts = append([]Option{WithBreaker(brk)}, opts...)
	d, err := New(cfg, opts...)
	require.NoError(t, err)

	return &testRig{dispatcher: d, breaker: brk, store: st}
}

func chatOp() *Operation {
	return &Operation{
		Name: "chat_completion",
		Request: &transport.Request{
			Method: http.MethodPost,
			Path:   "/v1/chat",
			Body:   []byte(`{"prompt":"hi"}`),
		},
	}
}

func TestDispatchPrimarySucceeds(t *testing.T) {
	rig := newRig(t, nil)

	calls := 0
	providers := []Provider{
		{ID: "openai", Priority: 0, Transport: okTransport(&calls)},
		{ID: "anthropic", Priority: 1, Transport: okTransport(nil)},
	}

	result := rig.dispatcher.Dispatch(context.Background(), chatOp(), providers, "user:1")
	require.True(t, result.Success)
	assert.Equal(t, "openai", result.ProviderID)
	assert.False(t, result.Degraded)
	assert.False(t, result.FromCache)
	assert.Equal(t, 1, calls)

	require.Len(t, result.Attempts, 1)
	assert.Equal(t, AttemptSucceeded, result.Attempts[0].Status)
}

func TestDispatchFallbackTrail(t *testing.T) {
	ctx := context.Background()
	rig := newRig(t, nil)

	// A 的熔断器预先打开
	require.NoError(t, rig.breaker.RecordFailure(ctx, "a"))
	require.NoError(t, rig.breaker.RecordFailure(ctx, "a"))

	providers := []Provider{
		{ID: "a", Priority: 0, Transport: okTransport(nil)},
		{ID: "b", Priority: 1, Transport: failTransport()},
		{ID: "c", Priority: 2, Transport: okTransport(nil)},
	}

	result := rig.dispatcher.Dispatch(ctx, chatOp(), providers, "user:1")
	require.True(t, result.Success)
	assert.Equal(t, "c", result.ProviderID)
	assert.True(t, result.Degraded)

	require.Len(t, result.Attempts, 3)
	assert.Equal(t, Attempt{ProviderID: "a", Status: AttemptSkipped, Detail: "circuit open"}, result.Attempts[0])
	assert.Equal(t, AttemptFailed, result.Attempts[1].Status)
	assert.Contains(t, result.Attempts[1].Detail, "upstream down")
	assert.Equal(t, AttemptSucceeded, result.Attempts[2].Status)
}

func TestDispatchAllProvidersFailed(t *testing.T) {
	rig := newRig(t, nil)

	providers := []Provider{
		{ID: "a", Priority: 0, Transport: failTransport()},
		{ID: "b", Priority: 1, Transport: failTransport()},
		{ID: "c", Priority: 2, Transport: failTransport()},
	}

	result := rig.dispatcher.Dispatch(context.Background(), chatOp(), providers, "user:1")
	require.False(t, result.Success)
	assert.Equal(t, KindAllProvidersFailed, result.ErrorKind)
	assert.ErrorIs(t, result.Err, ErrAllProvidersFailed)

	// 每个提供方恰好一条轨迹
	require.Len(t, result.Attempts, len(providers))
	for _, attempt := range result.Attempts {
		assert.Equal(t, AttemptFailed, attempt.Status)
	}
}

func TestDispatchFailuresFeedBreaker(t *testing.T) {
	ctx := context.Background()
	rig := newRig(t, nil)

	providers := []Provider{{ID: "a", Priority: 0, Transport: failTransport()}}

	// 阈值 2：两轮失败后熔断器打开
	for i := 0; i < 2; i++ {
		result := rig.dispatcher.Dispatch(ctx, chatOp(), providers, "user:1")
		require.False(t, result.Success)
		require.Equal(t, AttemptFailed, result.Attempts[0].Status)
	}

	state, err := rig.breaker.Snapshot(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusOpen, state.Status)

	result := rig.dispatcher.Dispatch(ctx, chatOp(), providers, "user:1")
	require.False(t, result.Success)
	assert.Equal(t, AttemptSkipped, result.Attempts[0].Status)
}

func TestDispatchRateLimited(t *testing.T) {
	st, err := store.New(&store.Config{Driver: store.DriverMemory})
	require.NoError(t, err)

	limiter, err := ratelimit.New(nil, ratelimit.WithStore(st))
	require.NoError(t, err)

	rig := newRig(t,
		&Config{RateLimit: ratelimit.Policy{Limit: 1, Window: time.Minute, Class: "api"}},
		WithLimiter(limiter))

	providers := []Provider{{ID: "a", Priority: 0, Transport: okTransport(nil)}}

	result := rig.dispatcher.Dispatch(context.Background(), chatOp(), providers, "user:1")
	require.True(t, result.Success)

	result = rig.dispatcher.Dispatch(context.Background(), chatOp(), providers, "user:1")
	require.False(t, result.Success)
	assert.Equal(t, KindRateLimited, result.ErrorKind)
	assert.ErrorIs(t, result.Err, ratelimit.ErrRateLimited)
	assert.Empty(t, result.Attempts, "限流拒绝不消耗提供方")
}

func TestDispatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rig := newRig(t, nil)

	cancelling := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		cancel()
		return nil, ctx.Err()
	})

	providers := []Provider{
		{ID: "a", Priority: 0, Transport: cancelling},
		{ID: "b", Priority: 1, Transport: okTransport(nil)},
	}

	result := rig.dispatcher.Dispatch(ctx, chatOp(), providers, "user:1")
	require.False(t, result.Success)
	assert.Equal(t, KindCancelled, result.ErrorKind)

	// 派发在取消处终止，不再尝试后续提供方
	require.Len(t, result.Attempts, 1)
	assert.Equal(t, AttemptCancelled, result.Attempts[0].Status)

	// 取消不计入熔断统计
	state, err := rig.breaker.Snapshot(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 0, state.ConsecutiveFailures)
}

func TestDispatchCacheable(t *testing.T) {
	exec, err := cache.New(&cache.Config{Driver: cache.DriverStandalone})
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Close() })

	rig := newRig(t, nil, WithCache(exec))

	calls := 0
	providers := []Provider{{ID: "a", Priority: 0, Transport: okTransport(&calls)}}

	op := chatOp()
	op.Cacheable = true
	op.CacheTTL = time.Minute

	result := rig.dispatcher.Dispatch(context.Background(), op, providers, "user:1")
	require.True(t, result.Success)
	assert.False(t, result.FromCache)
	assert.Equal(t, 1, calls)

	result = rig.dispatcher.Dispatch(context.Background(), op, providers, "user:1")
	require.True(t, result.Success)
	assert.True(t, result.FromCache)
	assert.Empty(t, result.ProviderID)
	assert.Equal(t, []byte("ok"), result.Response.Body)
	assert.Equal(t, 1, calls, "命中时不接触提供方")
}

func TestDispatchCacheNeverStoresFailures(t *testing.T) {
	exec, err := cache.New(&cache.Config{Driver: cache.DriverStandalone})
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Close() })

	rig := newRig(t, nil, WithCache(exec))

	failures := 0
	flaky := transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		failures++
		return nil, errUpstream
	})
	providers := []Provider{{ID: "a", Priority: 0, Transport: flaky}}

	op := chatOp()
	op.Cacheable = true

	result := rig.dispatcher.Dispatch(context.Background(), op, providers, "user:1")
	require.False(t, result.Success)
	require.Len(t, result.Attempts, 1)

	// 失败未被缓存，下一次仍然回源
	result = rig.dispatcher.Dispatch(context.Background(), op, providers, "user:1")
	require.False(t, result.Success)
	assert.Equal(t, 2, failures)
}

func TestProviderOrdering(t *testing.T) {
	rig := newRig(t, nil)

	var order []string
	record := func(id string) transport.Transport {
		return transport.Func(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			order = append(order, id)
			return nil, errUpstream
		})
	}

	// 乱序传入 + 并列优先级
	providers := []Provider{
		{ID: "c", Priority: 5, Transport: record("c")},
		{ID: "a", Priority: 1, Transport: record("a")},
		{ID: "b1", Priority: 3, Transport: record("b1")},
		{ID: "b2", Priority: 3, Transport: record("b2")},
	}

	rig.dispatcher.Dispatch(context.Background(), chatOp(), providers, "user:1")
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, order, "并列优先级保持传入顺序")
}

func TestDispatchValidation(t *testing.T) {
	rig := newRig(t, nil)

	result := rig.dispatcher.Dispatch(context.Background(), nil, nil, "user:1")
	assert.ErrorIs(t, result.Err, ErrOperationNil)

	result = rig.dispatcher.Dispatch(context.Background(), chatOp(), nil, "user:1")
	assert.ErrorIs(t, result.Err, ErrNoProviders)
}
