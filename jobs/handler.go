package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"eventhub/logger"
	"eventhub/services"
)

type Handler struct {
	recon *services.Reconciler
}

func NewHandler(recon *services.Reconciler) *Handler {
	return &Handler{recon: recon}
}

// Mux routes both task types to h.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRepair, h.ProcessRepair)
	mux.HandleFunc(TypeScan, h.ProcessScan)
	return mux
}

func (h *Handler) ProcessRepair(ctx context.Context, t *asynq.Task) error {
	p, err := parseRepairPayload(t)
	if err != nil {
		return err
	}
	action, err := h.recon.RepairPair(ctx, p.EventID, p.UserID)
	if err != nil {
		return fmt.Errorf("repair %s/%s: %w", p.EventID, p.UserID, err)
	}
	logger.Info("registration repaired", "op", p.Op, "event_id", p.EventID, "user_id", p.UserID, "action", string(action))
	return nil
}

func (h *Handler) ProcessScan(ctx context.Context, _ *asynq.Task) error {
	rep, err := h.recon.Scan(ctx)
	if err != nil {
		return fmt.Errorf("reconcile scan: %w", err)
	}
	logger.Info("reconcile scan finished",
		"events", rep.Events, "users", rep.Users, "divergent", rep.Divergent,
		"added", rep.Added, "removed", rep.Removed, "failed", rep.Failed)
	return nil
}
