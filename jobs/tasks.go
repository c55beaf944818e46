// Package jobs runs registration repairs in the background on asynq.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TypeRepair = "registration:repair"
	TypeScan   = "registration:scan"

	// QueueName is the asynq queue shared by producers and the worker.
	QueueName = "reconcile"
)

// RepairPayload names the pair whose user side needs to catch up.
type RepairPayload struct {
	Op      string `json:"op"`
	EventID string `json:"eventId"`
	UserID  string `json:"userId"`
}

func NewRepairTask(p RepairPayload) (*asynq.Task, error) {
	if p.EventID == "" || p.UserID == "" {
		return nil, errors.New("repair task needs event and user ids")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRepair, b), nil
}

func NewScanTask() *asynq.Task {
	return asynq.NewTask(TypeScan, nil)
}

func parseRepairPayload(t *asynq.Task) (RepairPayload, error) {
	var p RepairPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %v: %w", TypeRepair, err, asynq.SkipRetry)
	}
	if p.EventID == "" || p.UserID == "" {
		return p, fmt.Errorf("%s payload missing ids: %w", TypeRepair, asynq.SkipRetry)
	}
	return p, nil
}

// repairTaskID collapses repeated failures of the same pair into one task.
func repairTaskID(p RepairPayload) string {
	return "repair:" + p.EventID + ":" + p.UserID
}
