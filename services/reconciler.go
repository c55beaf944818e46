package services

import (
	"context"
	"errors"
	"fmt"

	"eventhub/logger"
	"eventhub/models"
)

type RepairAction string

const (
	RepairNone    RepairAction = "none"
	RepairAdded   RepairAction = "added"
	RepairRemoved RepairAction = "removed"
)

// Report summarises one reconciliation scan.
type Report struct {
	Events    int `json:"events"`
	Users     int `json:"users"`
	Divergent int `json:"divergent"`
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Failed    int `json:"failed"`
}

// Reconciler brings user registration sets back in line with event attendee
// sets. The event side always wins.
type Reconciler struct {
	events models.EventRepository
	users  models.UserRepository
}

func NewReconciler(events models.EventRepository, users models.UserRepository) *Reconciler {
	return &Reconciler{events: events, users: users}
}

// RepairPair re-reads both sides of (eventID, userID) and fixes the user side.
// A missing event drops the dangling reference; a missing user is left alone.
func (r *Reconciler) RepairPair(ctx context.Context, eventID, userID string) (RepairAction, error) {
	attending := false
	ev, err := r.events.GetByID(ctx, eventID)
	switch {
	case err == nil:
		attending = ev.HasAttendee(userID)
	case !errors.Is(err, models.ErrNotFound):
		return RepairNone, fmt.Errorf("load event %s: %w", eventID, err)
	}

	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return RepairNone, nil
		}
		return RepairNone, fmt.Errorf("load user %s: %w", userID, err)
	}
	registered := u.IsRegisteredFor(eventID)

	switch {
	case attending && !registered:
		if err := r.users.AddRegisteredEvent(ctx, userID, eventID); err != nil {
			return RepairNone, fmt.Errorf("add registration: %w", err)
		}
		return RepairAdded, nil
	case !attending && registered:
		if err := r.users.RemoveRegisteredEvent(ctx, userID, eventID); err != nil {
			return RepairNone, fmt.Errorf("remove registration: %w", err)
		}
		return RepairRemoved, nil
	}
	return RepairNone, nil
}

type pair struct{ eventID, userID string }

// Scan compares every attendee reference with every registration reference
// and repairs each pair that appears on one side only.
func (r *Reconciler) Scan(ctx context.Context) (Report, error) {
	var rep Report

	attendees := map[pair]struct{}{}
	err := r.events.ScanAttendees(ctx, func(eventID string, ids []string) error {
		rep.Events++
		for _, uid := range ids {
			attendees[pair{eventID, uid}] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("scan attendees: %w", err)
	}

	registrations := map[pair]struct{}{}
	err = r.users.ScanRegistrations(ctx, func(userID string, ids []string) error {
		rep.Users++
		for _, eid := range ids {
			registrations[pair{eid, userID}] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("scan registrations: %w", err)
	}

	var divergent []pair
	for p := range attendees {
		if _, ok := registrations[p]; !ok {
			divergent = append(divergent, p)
		}
	}
	for p := range registrations {
		if _, ok := attendees[p]; !ok {
			divergent = append(divergent, p)
		}
	}
	rep.Divergent = len(divergent)

	for _, p := range divergent {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		action, err := r.RepairPair(ctx, p.eventID, p.userID)
		if err != nil {
			rep.Failed++
			logger.Warn("repair failed", "event_id", p.eventID, "user_id", p.userID, "err", err)
			continue
		}
		switch action {
		case RepairAdded:
			rep.Added++
		case RepairRemoved:
			rep.Removed++
		}
	}
	return rep, nil
}
