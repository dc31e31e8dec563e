package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/metrics"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
)

// fixedWindow 固定窗口限流实现（非导出）
type fixedWindow struct {
	cfg    *Config
	store  store.Store
	logger clog.Logger

	allowedTotal metrics.Counter
	deniedTotal  metrics.Counter
	degradations metrics.Counter

	now func() time.Time
}

func newFixedWindow(cfg *Config, opt options) *fixedWindow {
	logger := opt.logger.WithNamespace("ratelimit")

	allowed, _ := opt.meter.Counter("ratelimit_allowed_total",
		"Requests allowed by the rate limiter", "class")
	denied, _ := opt.meter.Counter("ratelimit_denied_total",
		"Requests denied by the rate limiter", "class")
	degradations, _ := opt.meter.Counter("ratelimit_degradations_total",
		"Fail-open decisions due to store errors", "class")

	return &fixedWindow{
		cfg:          cfg,
		store:        opt.store,
		logger:       logger,
		allowedTotal: allowed,
		deniedTotal:  denied,
		degradations: degradations,
		now:          time.Now,
	}
}

// windowKey 计数键："ratelimit:{class}:{identity}:{window_start_unix}"
func windowKey(policy Policy, identity string, windowStart time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", policy.Class, identity, windowStart.Unix())
}

func (l *fixedWindow) Allow(ctx context.Context, identity string, policy Policy) (Decision, error) {
	if !policy.valid() {
		return Decision{}, ErrInvalidPolicy
	}

	now := l.now()
	windowStart := now.Truncate(policy.Window)
	key := windowKey(policy, identity, windowStart)

	count, allowed, err := l.store.IncrementIfBelow(ctx, key, policy.Limit, policy.Window)
	if err != nil {
		// 降级放行：限流器故障不能放大为业务故障
		l.logger.Warn("store unavailable, failing open",
			clog.String("class", policy.Class),
			clog.String("identity", identity),
			clog.Error(err))
		l.degradations.Inc(metrics.L("class", policy.Class))
		return Decision{Allowed: true}, nil
	}

	decision := Decision{
		Allowed: allowed,
		Count:   count,
	}
	if remaining := policy.Limit - count; remaining > 0 {
		decision.Remaining = remaining
	}
	if !allowed {
		decision.RetryAfter = windowStart.Add(policy.Window).Sub(now)
		l.deniedTotal.Inc(metrics.L("class", policy.Class))
		l.logger.Debug("request denied",
			clog.String("class", policy.Class),
			clog.String("identity", identity),
			clog.Int64("count", count),
			clog.Int64("limit", policy.Limit))
		return decision, nil
	}

	l.allowedTotal.Inc(metrics.L("class", policy.Class))
	return decision, nil
}
