package eventlog

import (
	"context"
	"errors"

	"github.com/quresis/go-quresis-server/types"
)

// Sink receives events after the state change they describe has been committed
type Sink interface {
	Emit(ctx context.Context, event *types.Event) error
}

// MultiSink fans an event out to every sink. All sinks are tried, errors are joined.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event *types.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(context.Context, *types.Event) error { return nil }
