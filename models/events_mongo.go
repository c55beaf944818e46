package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultStoreTimeout = 5 * time.Second

type mongoEventRepo struct {
	col     *mongo.Collection
	timeout time.Duration
}

// NewMongoEventRepository stores events in col. Every call is bounded by timeout.
func NewMongoEventRepository(col *mongo.Collection, timeout time.Duration) EventRepository {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &mongoEventRepo{col: col, timeout: timeout}
}

var byDateAsc = bson.D{{Key: "date", Value: 1}}

func (r *mongoEventRepo) Create(ctx context.Context, e *Event) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *mongoEventRepo) GetByID(ctx context.Context, id string) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var e Event
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Event{}, ErrNotFound
		}
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *mongoEventRepo) ListFuture(ctx context.Context, now time.Time) ([]Event, error) {
	return r.find(ctx, bson.M{"date": bson.M{"$gt": now}})
}

func (r *mongoEventRepo) ListByIDs(ctx context.Context, ids []string, now time.Time) ([]Event, error) {
	if len(ids) == 0 {
		return []Event{}, nil
	}
	return r.find(ctx, bson.M{
		"_id":  bson.M{"$in": ids},
		"date": bson.M{"$gt": now},
	})
}

func (r *mongoEventRepo) find(ctx context.Context, filter bson.M) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(byDateAsc))
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cur.Close(ctx)

	out := []Event{}
	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

// AddAttendee is a guarded $addToSet: the filter only matches while userID is
// absent, so a miss means the event is gone or the user is already attending.
func (r *mongoEventRepo) AddAttendee(ctx context.Context, id, userID string) (Event, bool, error) {
	return r.mutateAttendees(ctx, id,
		bson.M{"_id": id, "attendees": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"attendees": userID}},
	)
}

func (r *mongoEventRepo) RemoveAttendee(ctx context.Context, id, userID string) (Event, bool, error) {
	return r.mutateAttendees(ctx, id,
		bson.M{"_id": id, "attendees": userID},
		bson.M{"$pull": bson.M{"attendees": userID}},
	)
}

func (r *mongoEventRepo) mutateAttendees(ctx context.Context, id string, filter, update bson.M) (Event, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var e Event
	err := r.col.FindOneAndUpdate(opCtx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return Event{}, false, fmt.Errorf("update attendees: %w", err)
	}

	// nothing matched: tell "no such event" apart from "set already in that state"
	e, err = r.GetByID(ctx, id)
	if err != nil {
		return Event{}, false, err
	}
	return e, false, nil
}

func (r *mongoEventRepo) ScanAttendees(ctx context.Context, fn func(eventID string, attendees []string) error) error {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"attendees": 1}))
	if err != nil {
		return fmt.Errorf("scan events: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc struct {
			ID        string   `bson:"_id"`
			Attendees []string `bson:"attendees"`
		}
		if err := cur.Decode(&doc); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := fn(doc.ID, doc.Attendees); err != nil {
			return err
		}
	}
	return cur.Err()
}

// EnsureEventIndexes creates the index backing the future-events listing.
func EnsureEventIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: byDateAsc, Options: options.Index().SetName("date_asc")},
		{Keys: bson.D{{Key: "attendees", Value: 1}}, Options: options.Index().SetName("attendees")},
	})
	if err != nil {
		return fmt.Errorf("create event indexes: %w", err)
	}
	return nil
}
