package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const ns = "app.events"

func eventDoc(id string, date time.Time, attendees ...string) bson.D {
	if attendees == nil {
		attendees = []string{}
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: "t-" + id},
		{Key: "description", Value: "d"},
		{Key: "date", Value: date},
		{Key: "creator_id", Value: "creator"},
		{Key: "attendees", Value: attendees},
		{Key: "created_at", Value: now},
	}
}

func TestMongoEventRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create", func(mt *mtest.T) {
		repo := NewMongoEventRepository(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		e := Event{ID: "e-1", Title: "t", Description: "d", Date: now.Add(time.Hour), CreatorID: "u"}
		if err := repo.Create(ctx, &e); err != nil {
			mt.Fatalf("create: %v", err)
		}
		if e.Attendees == nil {
			mt.Fatalf("attendees should be initialised to an empty set")
		}
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoEventRepository(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, eventDoc("e-1", now.Add(time.Hour), "u-1")))

		e, err := repo.GetByID(ctx, "e-1")
		if err != nil {
			mt.Fatalf("get: %v", err)
		}
		if e.ID != "e-1" || !e.HasAttendee("u-1") || !e.Date.Equal(now.Add(time.Hour)) {
			mt.Fatalf("unexpected event: %+v", e)
		}
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := NewMongoEventRepository(mt.Coll, time.Second)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		if _, err := repo.GetByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			mt.Fatalf("want ErrNotFound, got %v", err)
		}
	})

	mt.Run("list future", func(mt *mtest.T) {
		repo := NewMongoEventRepository(mt.Coll, time.Second)
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			eventDoc("e-1", now.Add(time.Hour)),
			eventDoc("e-2", now.Add(2*time.Hour)),
		)
		killCursors := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, killCursors)

		events, err := repo.ListFuture(ctx, now)
		if err != nil {
			mt.Fatalf("list: %v", err)
		}
		if len(events) != 2 || events[0].ID != "e-1" || events[1].ID != "e-2" {
			mt.Fatalf("unexpected events: %+v", events)
		}
	})

	mt.Run("list by ids short-circuits on empty input", func(mt *mtest.T) {
		repo := NewMongoEventRepository(mt.Coll, time.Second)
		events, err := repo.ListByIDs(ctx, nil, now)
		if err != nil || len(events) != 0 {
			mt.Fatalf("got %v, %v", events, err)
		}
	})

	mt.Run("add attendee changes set", func(mt *mtest.T) {
		repo := NewMongoEventRepository(mt.Coll, time.Second)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: eventDoc("e-1", now.Add(time.Hour), "u-1")},
		})

		e, added, err := repo.AddAttendee(ctx, "e-1", "u-1")
		if err != nil {
			mt.Fatalf("add: %v", err)
		}
		if !added || !e.HasAttendee("u-1") {
			mt.Fatalf("expected attendee added, got added=%v event=%+v", added, e)
		}
	})

	mt.Run("add attendee already present", func(mt *mtest.T) {
		repo := NewMongoEventRepository(mt.Coll, time.Second)
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, eventDoc("e-1", now.Add(time.Hour), "u-1")),
		)

		e, added, err := repo.AddAttendee(ctx, "e-1", "u-1")
		if err != nil {
			mt.Fatalf("add: %v", err)
		}
		if added || len(e.Attendees) != 1 {
			mt.Fatalf("expected unchanged set, got added=%v attendees=%v", added, e.Attendees)
		}
	})

	mt.Run("remove attendee on missing event", func(mt *mtest.T) {
		repo := NewMongoEventRepository(mt.Coll, time.Second)
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		if _, _, err := repo.RemoveAttendee(ctx, "gone", "u-1"); !errors.Is(err, ErrNotFound) {
			mt.Fatalf("want ErrNotFound, got %v", err)
		}
	})

	mt.Run("scan attendees across batches", func(mt *mtest.T) {
		repo := NewMongoEventRepository(mt.Coll, time.Second)
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "e-1"}, {Key: "attendees", Value: bson.A{"u-1", "u-2"}}},
			bson.D{{Key: "_id", Value: "e-2"}, {Key: "attendees", Value: bson.A{}}},
		)
		next := mtest.CreateCursorResponse(0, ns, mtest.NextBatch,
			bson.D{{Key: "_id", Value: "e-3"}, {Key: "attendees", Value: bson.A{"u-3"}}},
		)
		mt.AddMockResponses(first, next)

		got := map[string][]string{}
		err := repo.ScanAttendees(ctx, func(eventID string, attendees []string) error {
			got[eventID] = attendees
			return nil
		})
		if err != nil {
			mt.Fatalf("scan: %v", err)
		}
		if len(got) != 3 || len(got["e-1"]) != 2 || len(got["e-2"]) != 0 || got["e-3"][0] != "u-3" {
			mt.Fatalf("unexpected scan result: %v", got)
		}
	})

	mt.Run("scan attendees stops on callback error", func(mt *mtest.T) {
		repo := NewMongoEventRepository(mt.Coll, time.Second)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "e-1"}, {Key: "attendees", Value: bson.A{"u-1"}}},
				bson.D{{Key: "_id", Value: "e-2"}, {Key: "attendees", Value: bson.A{"u-2"}}},
			),
			mtest.CreateSuccessResponse(),
		)

		stop := errors.New("stop")
		calls := 0
		err := repo.ScanAttendees(ctx, func(string, []string) error {
			calls++
			return stop
		})
		if !errors.Is(err, stop) || calls != 1 {
			mt.Fatalf("want stop after one call, got calls=%d err=%v", calls, err)
		}
	})
}
