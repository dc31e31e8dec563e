package breaker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/GaryOcean428/biped-infrastructure-enhancement/clog"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/metrics"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/store"
	"github.com/GaryOcean428/biped-infrastructure-enhancement/xerrors"
)

const (
	keyPrefix = "breaker:"

	// casRetries RecordSuccess / RecordFailure 在 CAS 冲突时的重试次数。
	// 冲突意味着另一个进程刚完成了迁移，重读后通常一次就能收敛。
	casRetries = 3
)

// storeBreaker 基于共享存储的熔断器实现（非导出）
type storeBreaker struct {
	cfg      *Config
	store    store.Store
	logger   clog.Logger
	listener StateChangeListener

	transitions metrics.Counter
	rejections  metrics.Counter

	now func() time.Time
}

func newStoreBreaker(cfg *Config, opt options) *storeBreaker {
	logger := opt.logger.WithNamespace("breaker")

	transitions, _ := opt.meter.Counter("breaker_transitions_total",
		"Circuit breaker state transitions", "dependency", "from", "to")
	rejections, _ := opt.meter.Counter("breaker_rejections_total",
		"Calls rejected by an open circuit", "dependency")

	return &storeBreaker{
		cfg:         cfg,
		store:       opt.store,
		logger:      logger,
		listener:    opt.listener,
		transitions: transitions,
		rejections:  rejections,
		now:         time.Now,
	}
}

func stateKey(dependencyID string) string {
	return keyPrefix + dependencyID
}

// load 读取依赖的状态记录。raw 保留原始字节，作为后续 CAS 的期望值。
func (b *storeBreaker) load(ctx context.Context, dependencyID string) (state State, raw []byte, found bool, err error) {
	raw, found, err = b.store.Get(ctx, stateKey(dependencyID))
	if err != nil {
		return State{}, nil, false, xerrors.Wrap(err, "breaker: load state")
	}
	if !found {
		return State{}, nil, false, nil
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, nil, false, xerrors.Wrap(err, "breaker: decode state")
	}
	return state, raw, true, nil
}

// swap 以 CAS 方式写入新状态。raw 为空表示仅当记录不存在时创建。
func (b *storeBreaker) swap(ctx context.Context, dependencyID string, raw []byte, next State) (bool, error) {
	next.DependencyID = dependencyID
	next.UpdatedAt = b.now()

	data, err := json.Marshal(next)
	if err != nil {
		return false, xerrors.Wrap(err, "breaker: encode state")
	}

	ok, err := b.store.CompareAndSet(ctx, stateKey(dependencyID), raw, data, 0)
	if err != nil {
		return false, xerrors.Wrap(err, "breaker: swap state")
	}
	return ok, nil
}

// notify 状态迁移成功写入后记录日志、指标并触发回调。
func (b *storeBreaker) notify(dependencyID string, from, to Status) {
	b.logger.Warn("circuit state changed",
		clog.String("dependency", dependencyID),
		clog.String("from", string(from)),
		clog.String("to", string(to)))

	b.transitions.Inc(
		metrics.L("dependency", dependencyID),
		metrics.L("from", string(from)),
		metrics.L("to", string(to)))

	if b.listener != nil {
		b.listener(dependencyID, from, to)
	}
}

// failOpen 存储故障时的降级处理：放行调用并返回底层错误。
func (b *storeBreaker) failOpen(dependencyID string, err error) (bool, error) {
	b.logger.Warn("state store unavailable, failing open",
		clog.String("dependency", dependencyID),
		clog.Error(err))
	return true, err
}

func (b *storeBreaker) AllowCall(ctx context.Context, dependencyID string) (bool, error) {
	state, raw, found, err := b.load(ctx, dependencyID)
	if err != nil {
		return b.failOpen(dependencyID, err)
	}
	if !found {
		// 无记录等价于 closed
		return true, nil
	}

	policy := b.cfg.policyFor(dependencyID)
	now := b.now()

	switch state.Status {
	case StatusClosed:
		return true, nil

	case StatusOpen:
		if now.Sub(state.OpenedAt) < policy.ResetTimeout {
			b.rejections.Inc(metrics.L("dependency", dependencyID))
			return false, nil
		}
		// 冷却期结束，通过 CAS 抢占唯一的探测权
		next := state
		next.Status = StatusHalfOpen
		next.ProbeInFlight = true
		won, err := b.swap(ctx, dependencyID, raw, next)
		if err != nil {
			return b.failOpen(dependencyID, err)
		}
		if !won {
			// 另一个调用方抢到了探测权
			b.rejections.Inc(metrics.L("dependency", dependencyID))
			return false, nil
		}
		b.notify(dependencyID, StatusOpen, StatusHalfOpen)
		return true, nil

	case StatusHalfOpen:
		// 正常情况下探测由 RecordSuccess / RecordFailure 收尾。
		// 探测方在调用完成前被取消时不会回写结果，预约会滞留；
		// 超过冷却期未收尾的预约视为失效，允许重新抢占。
		if state.ProbeInFlight && now.Sub(state.UpdatedAt) < policy.ResetTimeout {
			b.rejections.Inc(metrics.L("dependency", dependencyID))
			return false, nil
		}
		next := state
		next.ProbeInFlight = true
		won, err := b.swap(ctx, dependencyID, raw, next)
		if err != nil {
			return b.failOpen(dependencyID, err)
		}
		if !won {
			b.rejections.Inc(metrics.L("dependency", dependencyID))
			return false, nil
		}
		return true, nil

	default:
		// 未知状态按 closed 处理，避免坏数据永久阻断调用
		b.logger.Error("unknown circuit state, treating as closed",
			clog.String("dependency", dependencyID),
			clog.String("status", string(state.Status)))
		return true, nil
	}
}

func (b *storeBreaker) RecordSuccess(ctx context.Context, dependencyID string) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		state, raw, found, err := b.load(ctx, dependencyID)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}

		switch state.Status {
		case StatusClosed:
			if state.ConsecutiveFailures == 0 {
				return nil
			}
			next := state
			next.ConsecutiveFailures = 0
			ok, err := b.swap(ctx, dependencyID, raw, next)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}

		case StatusHalfOpen:
			next := state
			next.Status = StatusClosed
			next.ConsecutiveFailures = 0
			next.ProbeInFlight = false
			next.OpenedAt = time.Time{}
			ok, err := b.swap(ctx, dependencyID, raw, next)
			if err != nil {
				return err
			}
			if ok {
				b.notify(dependencyID, StatusHalfOpen, StatusClosed)
				return nil
			}

		case StatusOpen:
			// 打开期间的迟到成功（fail-open 放行的调用）不闭合熔断器，
			// 恢复只能经由 half_open 探测
			return nil

		default:
			return nil
		}
	}
	return nil
}

func (b *storeBreaker) RecordFailure(ctx context.Context, dependencyID string) error {
	policy := b.cfg.policyFor(dependencyID)

	for attempt := 0; attempt < casRetries; attempt++ {
		state, raw, found, err := b.load(ctx, dependencyID)
		if err != nil {
			return err
		}

		var (
			from Status
			next State
		)
		if !found {
			from = StatusClosed
			next = State{Status: StatusClosed, ConsecutiveFailures: 1}
		} else {
			from = state.Status
			next = state
			next.ConsecutiveFailures++
		}

		switch from {
		case StatusHalfOpen:
			// 探测失败，重新打开并刷新冷却起点
			next.Status = StatusOpen
			next.OpenedAt = b.now()
			next.ProbeInFlight = false

		case StatusClosed:
			if next.ConsecutiveFailures >= policy.FailureThreshold {
				next.Status = StatusOpen
				next.OpenedAt = b.now()
			}

		case StatusOpen:
			// 打开期间 fail-open 放行的调用失败：仅累计，不重置冷却起点
		}

		ok, err := b.swap(ctx, dependencyID, raw, next)
		if err != nil {
			return err
		}
		if ok {
			if next.Status != from {
				b.notify(dependencyID, from, next.Status)
			}
			return nil
		}
	}
	return nil
}

func (b *storeBreaker) Snapshot(ctx context.Context, dependencyID string) (State, error) {
	state, _, found, err := b.load(ctx, dependencyID)
	if err != nil {
		return State{}, err
	}
	if !found {
		return State{DependencyID: dependencyID, Status: StatusClosed}, nil
	}
	return state, nil
}

func (b *storeBreaker) Reset(ctx context.Context, dependencyID string) error {
	prev, err := b.Snapshot(ctx, dependencyID)
	if err != nil {
		return err
	}

	next := State{
		DependencyID: dependencyID,
		Status:       StatusClosed,
		UpdatedAt:    b.now(),
	}
	data, err := json.Marshal(next)
	if err != nil {
		return xerrors.Wrap(err, "breaker: encode state")
	}

	// 管理操作无条件覆盖，不走 CAS
	if err := b.store.Set(ctx, stateKey(dependencyID), data, 0); err != nil {
		return xerrors.Wrap(err, "breaker: reset state")
	}

	if prev.Status != StatusClosed {
		b.notify(dependencyID, prev.Status, StatusClosed)
	}
	return nil
}
