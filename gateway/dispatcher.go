package gateway

import (
	"context"
	"sort"
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/cache"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/ratelimit"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/transport"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

// Dispatch 执行一次带降级的提供方派发。
//
// 流程：限流 → （可选）缓存 → 按优先级逐个尝试提供方。
// 返回值永远非 nil，失败细节在 Result.ErrorKind 与 Result.Attempts 中。
func (d *Dispatcher) Dispatch(ctx context.Context, op *Operation, providers []Provider, identity string) *Result {
	if op == nil || op.Request == nil {
		return &Result{ErrorKind: KindAllProvidersFailed, Err: ErrOperationNil}
	}
	if len(providers) == 0 {
		return d.observe("", &Result{ErrorKind: KindAllProvidersFailed, Err: ErrNoProviders})
	}

	// 限流最先发生：被拒绝的请求不消耗任何提供方资源
	if d.dep.limiter != nil && d.cfg.RateLimit.Limit > 0 {
		decision, err := d.dep.limiter.Allow(ctx, identity, d.cfg.RateLimit)
		if err == nil && !decision.Allowed {
			d.dep.logger.Info("dispatch rate limited",
				clog.String("operation", op.Name),
				clog.String("identity", identity))
			return d.observe(op.Name, &Result{
				ErrorKind: KindRateLimited,
				Err:       ratelimit.ErrRateLimited,
			})
		}
	}

	ordered := orderProviders(providers)

	if op.Cacheable && d.dep.cache != nil {
		return d.observe(op.Name, d.dispatchCached(ctx, op, ordered))
	}
	return d.observe(op.Name, d.dispatchProviders(ctx, op, ordered))
}

// orderProviders 按优先级稳定排序，数值小者先试，相同优先级保持传入顺序。
func orderProviders(providers []Provider) []Provider {
	ordered := make([]Provider, len(providers))
	copy(ordered, providers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}

// dispatchCached 将派发包进 cache-aside 执行器：命中直接返回缓存副本，
// 未命中时回源到提供方派发，失败结果不会被缓存。
func (d *Dispatcher) dispatchCached(ctx context.Context, op *Operation, providers []Provider) *Result {
	key := cache.QueryKey(op.Name,
		op.Request.Method, op.Request.Path, string(op.Request.Body))

	var (
		cached transport.Response
		inner  *Result
	)
	hit, err := d.dep.cache.GetOrCompute(ctx, key, op.CacheTTL, &cached,
		func(ctx context.Context) (any, error) {
			inner = d.dispatchProviders(ctx, op, providers)
			if !inner.Success {
				return nil, inner.Err
			}
			return inner.Response, nil
		})

	if hit {
		return &Result{
			Success:   true,
			FromCache: true,
			Response:  &cached,
		}
	}
	if inner != nil {
		// 回源路径：把派发结果原样向上，轨迹完整保留
		return inner
	}
	// 回源未执行（参数校验等缓存层错误）
	return &Result{
		ErrorKind: KindAllProvidersFailed,
		Err:       xerrors.Wrap(err, "gateway: cache executor"),
	}
}

// dispatchProviders 按序尝试提供方，累积尝试轨迹。
func (d *Dispatcher) dispatchProviders(ctx context.Context, op *Operation, providers []Provider) *Result {
	attempts := make([]Attempt, 0, len(providers))

	for _, p := range providers {
		if ctxCancelled(ctx) {
			attempts = append(attempts, Attempt{
				ProviderID: p.ID,
				Status:     AttemptCancelled,
				Detail:     ctx.Err().Error(),
			})
			return &Result{
				ErrorKind: KindCancelled,
				Err:       ctx.Err(),
				Attempts:  attempts,
			}
		}

		if d.dep.breaker != nil {
			allowed, _ := d.dep.breaker.AllowCall(ctx, p.ID)
			if !allowed {
				attempts = append(attempts, Attempt{
					ProviderID: p.ID,
					Status:     AttemptSkipped,
					Detail:     "circuit open",
				})
				continue
			}
		}

		start := time.Now()
		resp, err := p.Transport.Call(ctx, op.Request)
		elapsed := time.Since(start)

		if err != nil {
			if ctxCancelled(ctx) {
				// 调用方取消不是提供方故障，熔断统计不更新
				attempts = append(attempts, Attempt{
					ProviderID: p.ID,
					Status:     AttemptCancelled,
					Detail:     ctx.Err().Error(),
					Duration:   elapsed,
				})
				return &Result{
					ErrorKind: KindCancelled,
					Err:       ctx.Err(),
					Attempts:  attempts,
				}
			}

			if d.dep.breaker != nil {
				if recErr := d.dep.breaker.RecordFailure(ctx, p.ID); recErr != nil {
					d.dep.logger.Warn("failure not recorded",
						clog.String("provider", p.ID), clog.Error(recErr))
				}
			}
			attempts = append(attempts, Attempt{
				ProviderID: p.ID,
				Status:     AttemptFailed,
				Detail:     err.Error(),
				Duration:   elapsed,
			})
			d.dep.logger.Warn("provider call failed",
				clog.String("operation", op.Name),
				clog.String("provider", p.ID),
				clog.Duration("elapsed", elapsed),
				clog.Error(err))
			continue
		}

		if d.dep.breaker != nil {
			if recErr := d.dep.breaker.RecordSuccess(ctx, p.ID); recErr != nil {
				d.dep.logger.Warn("success not recorded",
					clog.String("provider", p.ID), clog.Error(recErr))
			}
		}
		attempts = append(attempts, Attempt{
			ProviderID: p.ID,
			Status:     AttemptSucceeded,
			Duration:   elapsed,
		})

		degraded := len(attempts) > 1
		if degraded {
			d.dep.logger.Info("served by fallback provider",
				clog.String("operation", op.Name),
				clog.String("provider", p.ID),
				clog.Int("attempt", len(attempts)))
		}
		return &Result{
			Success:    true,
			ProviderID: p.ID,
			Response:   resp,
			Degraded:   degraded,
			Attempts:   attempts,
		}
	}

	d.dep.logger.Error("all providers failed",
		clog.String("operation", op.Name),
		clog.Int("providers", len(providers)))
	return &Result{
		ErrorKind: KindAllProvidersFailed,
		Err:       ErrAllProvidersFailed,
		Attempts:  attempts,
	}
}
