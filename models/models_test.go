package models

import (
	"errors"
	"testing"
	"time"
)

var now = time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)

func TestNewEvent_OK(t *testing.T) {
	e, err := NewEvent("  GoConf ", " talks ", now.Add(time.Hour), "u-1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == "" {
		t.Fatalf("expected generated id")
	}
	if e.Title != "GoConf" || e.Description != "talks" {
		t.Fatalf("fields not trimmed: %+v", e)
	}
	if e.Attendees == nil || len(e.Attendees) != 0 {
		t.Fatalf("expected empty attendee set, got %v", e.Attendees)
	}
	if !e.CreatedAt.Equal(now) {
		t.Fatalf("createdAt = %v", e.CreatedAt)
	}
	// the creator is not registered implicitly
	if e.HasAttendee("u-1") {
		t.Fatalf("creator must not be auto-registered")
	}
}

func TestNewEvent_Invalid(t *testing.T) {
	cases := map[string]struct {
		title, desc string
		date        time.Time
		creator     string
	}{
		"missing title":     {"", "d", now.Add(time.Hour), "u"},
		"blank description": {"t", "   ", now.Add(time.Hour), "u"},
		"missing date":      {"t", "d", time.Time{}, "u"},
		"date equals now":   {"t", "d", now, "u"},
		"date in the past":  {"t", "d", now.Add(-time.Minute), "u"},
		"missing creator":   {"t", "d", now.Add(time.Hour), ""},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewEvent(c.title, c.desc, c.date, c.creator, now)
			if !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("want ErrInvalidEvent, got %v", err)
			}
		})
	}
}

func TestWithCreator_NeverNilAttendees(t *testing.T) {
	v := WithCreator(Event{ID: "e"}, CreatorSummary{ID: "u"})
	if v.Attendees == nil {
		t.Fatalf("attendees must serialise as []")
	}
}
