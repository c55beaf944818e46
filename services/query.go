package services

import (
	"context"
	"errors"
	"time"

	"eventhub/apperr"
	"eventhub/models"
	"eventhub/utils"
)

// QueryService serves the read side. Past events are filtered at query time
// and never deleted.
type QueryService struct {
	events models.EventRepository
	users  models.UserRepository
	clock  utils.Clock
}

func NewQueryService(events models.EventRepository, users models.UserRepository, clock utils.Clock) *QueryService {
	if clock == nil {
		clock = utils.SystemClock()
	}
	return &QueryService{events: events, users: users, clock: clock}
}

// ListFutureEvents returns upcoming events by date ascending, each with its
// creator's summary.
func (q *QueryService) ListFutureEvents(ctx context.Context) ([]models.EventWithCreator, error) {
	events, err := q.events.ListFuture(ctx, q.clock.Now())
	if err != nil {
		return nil, apperr.Internal("list events", err)
	}
	creators, err := q.creators(ctx, events)
	if err != nil {
		return nil, err
	}

	out := make([]models.EventWithCreator, 0, len(events))
	for _, e := range events {
		out = append(out, models.WithCreator(e, creators(e.CreatorID)))
	}
	return out, nil
}

// UntilFirstStarts reports how long a listing from ListFutureEvents stays
// accurate by date alone. ok is false for an empty listing.
func (q *QueryService) UntilFirstStarts(events []models.EventWithCreator) (d time.Duration, ok bool) {
	if len(events) == 0 {
		return 0, false
	}
	first := events[0].Date
	for _, e := range events[1:] {
		if e.Date.Before(first) {
			first = e.Date
		}
	}
	return first.Sub(q.clock.Now()), true
}

// ListUserFutureEvents returns the upcoming events userID is registered for.
// Only the user may read their own list.
func (q *QueryService) ListUserFutureEvents(ctx context.Context, userID, callerID string) ([]models.RegisteredEvent, error) {
	if callerID == "" {
		return nil, apperr.Unauthenticated("Not authorized.")
	}
	if userID != callerID {
		return nil, apperr.Forbidden("You can only view your own registrations.")
	}
	u, err := q.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, apperr.NotFound("User not found.")
		}
		return nil, apperr.Internal("load user", err)
	}

	events, err := q.events.ListByIDs(ctx, u.RegisteredEvents, q.clock.Now())
	if err != nil {
		return nil, apperr.Internal("list registered events", err)
	}
	creators, err := q.creators(ctx, events)
	if err != nil {
		return nil, err
	}

	out := make([]models.RegisteredEvent, 0, len(events))
	for _, e := range events {
		out = append(out, models.RegisteredEvent{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Date:        e.Date,
			Creator:     creators(e.CreatorID),
		})
	}
	return out, nil
}

// GetEvent returns a single event regardless of its date.
func (q *QueryService) GetEvent(ctx context.Context, id string) (models.EventWithCreator, error) {
	e, err := q.events.GetByID(ctx, id)
	if err != nil {
		return models.EventWithCreator{}, eventLookupErr(err)
	}
	creators, err := q.creators(ctx, []models.Event{e})
	if err != nil {
		return models.EventWithCreator{}, err
	}
	return models.WithCreator(e, creators(e.CreatorID)), nil
}

// creators batches the creator lookup. A creator that no longer exists is
// represented by its id alone.
func (q *QueryService) creators(ctx context.Context, events []models.Event) (func(id string) models.CreatorSummary, error) {
	seen := map[string]struct{}{}
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if _, ok := seen[e.CreatorID]; ok {
			continue
		}
		seen[e.CreatorID] = struct{}{}
		ids = append(ids, e.CreatorID)
	}

	summaries, err := q.users.GetSummaries(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("load creators", err)
	}
	return func(id string) models.CreatorSummary {
		if s, ok := summaries[id]; ok {
			return s
		}
		return models.CreatorSummary{ID: id}
	}, nil
}
