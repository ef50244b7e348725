package eventlog

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/quresis/go-quresis-server/types"
)

// LogSink writes every event as a logfmt line
type LogSink struct {
	logger log.Logger
}

func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{logger: log.With(logger, "component", "eventlog")}
}

func (l *LogSink) Emit(ctx context.Context, e *types.Event) error {
	keyvals := []interface{}{"msg", "event", "id", e.ID, "kind", e.Kind, "slot", e.Slot}
	if e.Authority != "" {
		keyvals = append(keyvals, "authority", e.Authority)
	}
	if e.Asset != "" {
		keyvals = append(keyvals, "asset", e.Asset, "sender", e.Sender)
	}
	switch e.Kind {
	case types.EventHighValueTransferDetected:
		keyvals = append(keyvals, "amount", e.Amount, "threshold", e.Threshold, "mode", e.Mode)
	case types.EventKeyRotated:
		keyvals = append(keyvals, "oldVersion", e.OldVersion, "newVersion", e.NewVersion, "newKeySize", e.NewKeySize)
	case types.EventEnforcementModeUpdated:
		keyvals = append(keyvals, "oldMode", e.OldMode, "newMode", e.NewMode, "updatedBy", e.UpdatedBy)
	case types.EventThresholdUpdated:
		keyvals = append(keyvals, "oldThreshold", e.OldThreshold, "newThreshold", e.NewThreshold)
	}
	return level.Info(l.logger).Log(keyvals...)
}
