package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewDispatcher(nil)

	var got []byte
	d.Register("greeting", func(ctx context.Context, payload []byte) error {
		got = payload
		return nil
	})

	err := d.ProcessTask(context.Background(), asynq.NewTask("greeting", []byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestDispatcherUnknownTypeAcknowledged(t *testing.T) {
	d := NewDispatcher(nil)

	// Returning nil acknowledges the job so the queue never retries it.
	err := d.ProcessTask(context.Background(), asynq.NewTask("task:unheard_of", nil))
	assert.NoError(t, err)
}

func TestDispatcherHandlerErrorPropagates(t *testing.T) {
	d := NewDispatcher(nil)

	boom := errors.New("delivery failed")
	d.Register("greeting", func(ctx context.Context, payload []byte) error {
		return boom
	})

	err := d.ProcessTask(context.Background(), asynq.NewTask("greeting", nil))
	assert.ErrorIs(t, err, boom)
}

func TestDispatcherDuplicateRegistrationPanics(t *testing.T) {
	d := NewDispatcher(nil)

	noop := func(ctx context.Context, payload []byte) error { return nil }
	d.Register("greeting", noop)

	assert.Panics(t, func() { d.Register("greeting", noop) })
}

func TestNotificationHandlersStatusChanged(t *testing.T) {
	h := NewNotificationHandlers(nil)

	payload, err := json.Marshal(StatusChangedPayload{
		TaskID:    uuid.New(),
		UserID:    uuid.New(),
		OldStatus: "pending",
		NewStatus: "completed",
	})
	require.NoError(t, err)

	assert.NoError(t, h.HandleStatusChanged(context.Background(), payload))
	assert.Error(t, h.HandleStatusChanged(context.Background(), []byte("{broken")))
}

func TestNotificationHandlersOverdueNotice(t *testing.T) {
	h := NewNotificationHandlers(nil)

	payload, err := json.Marshal(OverdueNoticePayload{
		TaskID:  uuid.New(),
		UserID:  uuid.New(),
		DueDate: time.Now().Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	assert.NoError(t, h.HandleOverdueNotice(context.Background(), payload))
	assert.Error(t, h.HandleOverdueNotice(context.Background(), []byte("{broken")))
}

func TestRegisterAllCoversKnownTypes(t *testing.T) {
	d := NewDispatcher(nil)
	NewNotificationHandlers(nil).RegisterAll(d)

	payload, err := json.Marshal(StatusChangedPayload{TaskID: uuid.New(), UserID: uuid.New()})
	require.NoError(t, err)

	assert.NoError(t, d.ProcessTask(context.Background(), asynq.NewTask(TypeStatusChanged, payload)))
}
