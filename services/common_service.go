package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/log/level"
	"github.com/quresis/go-quresis-server/eventlog"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/locker"
	"github.com/quresis/go-quresis-server/metrics"
	"github.com/quresis/go-quresis-server/types"
)

const storageTimeout = time.Second * 10

func identityLockKey(owner types.PublicKey) string {
	return "identity:" + owner.String()
}

func hookLockKey(asset types.PublicKey) string {
	return "hook:" + asset.String()
}

// lockRecord takes the per-record lock, bounded by the configured lock timeout
func lockRecord(ctx context.Context, l locker.Locker, key string, timeout time.Duration) (func(), error) {
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	unlock, err := l.Lock(lctx, key)
	if err != nil {
		if errors.Is(err, locker.ErrLockTimeout) {
			return nil, types.ErrConflict
		}
		return nil, err
	}
	return unlock, nil
}

// emitEvent publishes an event after its state change was committed.
// Delivery failures are logged and never fail the operation.
func emitEvent(ctx context.Context, sink eventlog.Sink, event *types.Event) {
	if sink == nil || event == nil {
		return
	}
	if err := sink.Emit(ctx, event); err != nil {
		metrics.EventEmitFailuresTotal.Inc()
		level.Error(global.Logger).Log("msg", "failed to emit event", "kind", event.Kind, "id", event.ID, "err", err)
	}
}

func observeIdentityOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = types.ErrorKind(err)
	}
	metrics.IdentityOperationsTotal.WithLabelValues(operation, outcome).Inc()
}
