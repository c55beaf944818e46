package models

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by stores when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidEvent wraps every reason NewEvent rejects its input.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrEmailTaken is returned when signing up with an email already in use.
	ErrEmailTaken = errors.New("email already registered")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Event is stored in the events collection. Date is written once at creation.
type Event struct {
	ID          string    `bson:"_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Date        time.Time `bson:"date" json:"date"`
	CreatorID   string    `bson:"creator_id" json:"creatorId"`
	Attendees   []string  `bson:"attendees" json:"attendees"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// NewEvent validates the creation input against now and returns an event
// with a fresh id and an empty attendee set.
func NewEvent(title, description string, date time.Time, creatorID string, now time.Time) (Event, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	switch {
	case title == "":
		return Event{}, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	case description == "":
		return Event{}, fmt.Errorf("%w: description is required", ErrInvalidEvent)
	case date.IsZero():
		return Event{}, fmt.Errorf("%w: date is required", ErrInvalidEvent)
	case !date.After(now):
		return Event{}, fmt.Errorf("%w: event date must be in the future", ErrInvalidEvent)
	case creatorID == "":
		return Event{}, fmt.Errorf("%w: creator is required", ErrInvalidEvent)
	}
	return Event{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Date:        date.UTC(),
		CreatorID:   creatorID,
		Attendees:   []string{},
		CreatedAt:   now.UTC(),
	}, nil
}

func (e Event) HasAttendee(userID string) bool {
	return slices.Contains(e.Attendees, userID)
}

// User is the registration-relevant view of an account.
type User struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Email            string    `db:"email" json:"email"`
	Password         string    `db:"password" json:"-"`
	RegisteredEvents []string  `db:"-" json:"registeredEvents"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
}

func (u User) IsRegisteredFor(eventID string) bool {
	return slices.Contains(u.RegisteredEvents, eventID)
}

// CreatorSummary is the public face of an event's creator.
type CreatorSummary struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// EventWithCreator is an event annotated with its creator's summary.
type EventWithCreator struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Date        time.Time      `json:"date"`
	Creator     CreatorSummary `json:"creator"`
	Attendees   []string       `json:"attendees"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func WithCreator(e Event, creator CreatorSummary) EventWithCreator {
	attendees := e.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return EventWithCreator{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		Creator:     creator,
		Attendees:   attendees,
		CreatedAt:   e.CreatedAt,
	}
}

// RegisteredEvent is the reduced projection listed on a user's own page.
type RegisteredEvent struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Date        time.Time      `json:"date"`
	Creator     CreatorSummary `json:"creator"`
}

// ===== Events =====

// EventRepository is the event store. Attendee mutations are single-document
// set primitives; callers never write back a whole attendee list.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (Event, error)
	// ListFuture returns events with date > now, ordered by date ascending.
	ListFuture(ctx context.Context, now time.Time) ([]Event, error)
	// ListByIDs returns the subset of ids with date > now, ordered by date ascending.
	ListByIDs(ctx context.Context, ids []string, now time.Time) ([]Event, error)
	// AddAttendee inserts userID into the attendee set. The bool reports
	// whether the set changed.
	AddAttendee(ctx context.Context, id, userID string) (Event, bool, error)
	// RemoveAttendee removes userID from the attendee set. The bool reports
	// whether the set changed.
	RemoveAttendee(ctx context.Context, id, userID string) (Event, bool, error)
	ScanAttendees(ctx context.Context, fn func(eventID string, attendees []string) error) error
}

// ===== Users =====

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	ValidateCredentials(ctx context.Context, email, plain string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetSummaries(ctx context.Context, ids []string) (map[string]CreatorSummary, error)
	// AddRegisteredEvent and RemoveRegisteredEvent are idempotent set primitives.
	// Neither re-reads the user: a nil error means the write committed.
	AddRegisteredEvent(ctx context.Context, id, eventID string) error
	RemoveRegisteredEvent(ctx context.Context, id, eventID string) error
	ScanRegistrations(ctx context.Context, fn func(userID string, eventIDs []string) error) error
}
