package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-collaboration-studio/internal/tasks"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func TestMemberOfflineTask_RoundTrip(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	task, err := tasks.NewMemberOfflineTask("room-1", "u1", at)
	require.NoError(t, err)
	assert.Equal(t, tasks.TypeMemberOffline, task.Type())

	payload, err := tasks.ParseMemberOfflinePayload(task)
	require.NoError(t, err)
	assert.Equal(t, "room-1", payload.RoomID)
	assert.Equal(t, "u1", payload.UserID)
	assert.True(t, at.Equal(payload.At))
}

func TestParseMemberOfflinePayload_RejectsIncomplete(t *testing.T) {
	_, err := tasks.ParseMemberOfflinePayload(asynq.NewTask(tasks.TypeMemberOffline, []byte(`{"room_id":"r"}`)))
	assert.Error(t, err)
	_, err = tasks.ParseMemberOfflinePayload(asynq.NewTask(tasks.TypeMemberOffline, []byte(`nope`)))
	assert.Error(t, err)
}

func TestOfflineScheduler(t *testing.T) {
	enq := &recordingEnqueuer{}
	scheduler := tasks.NewOfflineScheduler(enq)

	require.NoError(t, scheduler.ScheduleMemberOffline(context.Background(), "room-1", "u1"))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, tasks.TypeMemberOffline, enq.tasks[0].Type())

	enq.err = errors.New("redis down")
	assert.Error(t, scheduler.ScheduleMemberOffline(context.Background(), "room-1", "u1"))
}
