package eventlog

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/hibiken/asynq"
	"github.com/quresis/go-quresis-server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Emit(context.Context, *types.Event) error { return errors.New("down") }

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "x"}, nil
}

func testEvent() *types.Event {
	var asset, sender types.PublicKey
	asset[0], sender[0] = 1, 2
	return types.NewHighValueTransferDetectedEvent(asset, sender, 500, 100, types.SoftEnforce, 42, time.Unix(1700000000, 0))
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	e := testEvent()
	require.NoError(t, sink.Emit(context.Background(), e))
	assert.Len(t, sink.Events(), 1)
	assert.Len(t, sink.ByKind(types.EventHighValueTransferDetected), 1)
	assert.Empty(t, sink.ByKind(types.EventKeyRotated))
	sink.Reset()
	assert.Empty(t, sink.Events())
}

func TestMultiSinkTriesAll(t *testing.T) {
	mem := NewMemorySink()
	multi := MultiSink{failingSink{}, mem}
	err := multi.Emit(context.Background(), testEvent())
	assert.Error(t, err)
	assert.Len(t, mem.Events(), 1)
	assert.NoError(t, Discard.Emit(context.Background(), testEvent()))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(log.NewLogfmtLogger(&buf))
	require.NoError(t, sink.Emit(context.Background(), testEvent()))
	out := buf.String()
	assert.Contains(t, out, "kind=HighValueTransferDetected")
	assert.Contains(t, out, "amount=500")
	assert.Contains(t, out, "mode=SoftEnforce")
}

func TestQueueSinkEncodesCbor(t *testing.T) {
	enq := &recordingEnqueuer{}
	sink := NewQueueSink(enq)
	e := testEvent()
	require.NoError(t, sink.Emit(context.Background(), e))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, types.QueueTypeEventPublish, enq.tasks[0].Type())

	decoded, err := types.DecodeEventPayload(enq.tasks[0].Payload())
	require.NoError(t, err)
	assert.Equal(t, e, decoded)

	enq.err = errors.New("redis down")
	assert.Error(t, sink.Emit(context.Background(), e))
}
