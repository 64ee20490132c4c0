package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripledger/internal/amqp"
	"tripledger/internal/sheets/memory"
)

type flakyLog struct {
	fails int
	rows  int
}

func (f *flakyLog) Append(context.Context, amqp.ChangeEvent) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("quota exceeded")
	}
	f.rows++
	return nil
}

func TestHandleSkipsRedelivery(t *testing.T) {
	log := memory.New()
	w := NewExportWorker(log)
	ctx := context.Background()

	ev := amqp.NewChangeEvent(amqp.ExpenseCreated, "u", "e")
	require.NoError(t, w.Handle(ctx, ev))
	require.NoError(t, w.Handle(ctx, ev))

	later := ev
	later.Timestamp = ev.Timestamp.Add(time.Second)
	require.NoError(t, w.Handle(ctx, later))

	assert.Len(t, log.Rows(), 2)
}

func TestHandleFailureAllowsRetry(t *testing.T) {
	log := &flakyLog{fails: 1}
	w := NewExportWorker(log)
	ctx := context.Background()
	ev := amqp.NewChangeEvent(amqp.TripDeleted, "u", "t")

	assert.ErrorContains(t, w.Handle(ctx, ev), "quota exceeded")
	require.NoError(t, w.Handle(ctx, ev))
	assert.Equal(t, 1, log.rows)
}
