package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const repairMaxRetry = 10

// ErrRepairRunning is returned when the pair's repair is already executing
// and may have read the stores before the latest write.
var ErrRepairRunning = errors.New("repair for this pair is already running")

// Queue hands repair tasks to asynq.
type Queue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewQueue(client *asynq.Client, inspector *asynq.Inspector) *Queue {
	return &Queue{client: client, inspector: inspector}
}

// EnqueueRepair schedules a repair of (eventID, userID). A repair still
// waiting for the same pair counts as queued; an archived one is revived.
func (q *Queue) EnqueueRepair(ctx context.Context, op, eventID, userID string) error {
	p := RepairPayload{Op: op, EventID: eventID, UserID: userID}
	task, err := NewRepairTask(p)
	if err != nil {
		return err
	}
	id := repairTaskID(p)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.TaskID(id),
		asynq.MaxRetry(repairMaxRetry),
		asynq.Timeout(30*time.Second),
	)
	if err == nil {
		return nil
	}
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue repair: %w", err)
	}
	return q.resolveConflict(id)
}

// resolveConflict decides whether the task already holding id will still run.
func (q *Queue) resolveConflict(id string) error {
	if q.inspector == nil {
		return fmt.Errorf("enqueue repair %s: %w", id, asynq.ErrTaskIDConflict)
	}
	info, err := q.inspector.GetTaskInfo(QueueName, id)
	if err != nil {
		return fmt.Errorf("inspect repair %s: %w", id, err)
	}
	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateRetry:
		return nil
	case asynq.TaskStateArchived:
		if err := q.inspector.RunTask(QueueName, id); err != nil {
			return fmt.Errorf("revive repair %s: %w", id, err)
		}
		return nil
	case asynq.TaskStateActive:
		return ErrRepairRunning
	default:
		return fmt.Errorf("enqueue repair %s: task in state %s: %w", id, info.State, asynq.ErrTaskIDConflict)
	}
}
