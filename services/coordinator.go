// Package services holds the registration protocol and the read paths built on
// top of the event and user stores.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"eventhub/apperr"
	"eventhub/logger"
	"eventhub/models"
	"eventhub/utils"
)

// Operations recorded on partial failures and repair tasks.
const (
	OpRegister = "register"
	OpCancel   = "cancel"
)

// RepairQueue accepts follow-up work for a pair whose user side lags behind
// the event side.
type RepairQueue interface {
	EnqueueRepair(ctx context.Context, op, eventID, userID string) error
}

type CreateEventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// Coordinator keeps event attendee sets and user registration sets in step.
// The event write is the commit point of every operation.
type Coordinator struct {
	events models.EventRepository
	users  models.UserRepository
	clock  utils.Clock
	queue  RepairQueue
}

// NewCoordinator wires the stores. clock defaults to the system clock; queue
// may be nil, in which case partial failures are left for the periodic scan.
func NewCoordinator(events models.EventRepository, users models.UserRepository, clock utils.Clock, queue RepairQueue) *Coordinator {
	if clock == nil {
		clock = utils.SystemClock()
	}
	return &Coordinator{events: events, users: users, clock: clock, queue: queue}
}

func (c *Coordinator) CreateEvent(ctx context.Context, in CreateEventInput, creatorID string) (models.Event, error) {
	if creatorID == "" {
		return models.Event{}, apperr.Unauthenticated("Not authorized.")
	}
	e, err := models.NewEvent(in.Title, in.Description, in.Date, creatorID, c.clock.Now())
	if err != nil {
		return models.Event{}, apperr.Validation(validationMessage(err))
	}
	if err := c.events.Create(ctx, &e); err != nil {
		return models.Event{}, apperr.Internal("create event", err)
	}
	return e, nil
}

// Register adds the caller to the event. On a user-side failure the committed
// event is returned together with a *apperr.PartialFailureError.
func (c *Coordinator) Register(ctx context.Context, eventID, callerID string) (models.Event, error) {
	if callerID == "" {
		return models.Event{}, apperr.Unauthenticated("Not authorized.")
	}
	ev, err := c.events.GetByID(ctx, eventID)
	if err != nil {
		return models.Event{}, eventLookupErr(err)
	}
	if !ev.Date.After(c.clock.Now()) {
		return models.Event{}, apperr.Temporal("Registration is closed because the event has already started.")
	}
	if ev.HasAttendee(callerID) {
		return models.Event{}, apperr.Conflict("You are already registered for this event.")
	}

	updated, added, err := c.events.AddAttendee(ctx, eventID, callerID)
	if err != nil {
		return models.Event{}, eventLookupErr(err)
	}
	if !added {
		// a concurrent request registered the same caller first
		return models.Event{}, apperr.Conflict("You are already registered for this event.")
	}

	if err := c.users.AddRegisteredEvent(ctx, callerID, eventID); err != nil {
		return updated, c.partialFailure(ctx, OpRegister, eventID, callerID, err)
	}
	return updated, nil
}

// Cancel removes targetUserID from the event. Only the target may cancel.
func (c *Coordinator) Cancel(ctx context.Context, eventID, targetUserID, callerID string) (models.Event, error) {
	if callerID == "" {
		return models.Event{}, apperr.Unauthenticated("Not authorized.")
	}
	if callerID != targetUserID {
		return models.Event{}, apperr.Forbidden("You can only cancel your own registration.")
	}
	ev, err := c.events.GetByID(ctx, eventID)
	if err != nil {
		return models.Event{}, eventLookupErr(err)
	}
	if !ev.HasAttendee(targetUserID) {
		return models.Event{}, apperr.Conflict("You are not registered for this event.")
	}

	updated, removed, err := c.events.RemoveAttendee(ctx, eventID, targetUserID)
	if err != nil {
		return models.Event{}, eventLookupErr(err)
	}
	if !removed {
		return models.Event{}, apperr.Conflict("You are not registered for this event.")
	}

	if err := c.users.RemoveRegisteredEvent(ctx, targetUserID, eventID); err != nil {
		return updated, c.partialFailure(ctx, OpCancel, eventID, targetUserID, err)
	}
	return updated, nil
}

func (c *Coordinator) partialFailure(ctx context.Context, op, eventID, userID string, cause error) error {
	pf := &apperr.PartialFailureError{Op: op, EventID: eventID, UserID: userID, Err: cause}
	if c.queue != nil {
		if err := c.queue.EnqueueRepair(ctx, op, eventID, userID); err != nil {
			logger.Error("enqueue repair failed", "op", op, "event_id", eventID, "user_id", userID, "err", err)
		} else {
			pf.Queued = true
		}
	}
	logger.Warn("registration partially applied",
		"op", op, "event_id", eventID, "user_id", userID, "queued", pf.Queued, "err", cause)
	return pf
}

func eventLookupErr(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return apperr.NotFound("Event not found.")
	}
	return apperr.Internal("event store", err)
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), models.ErrInvalidEvent.Error()+": ")
	if msg == "" {
		return "Invalid event."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
