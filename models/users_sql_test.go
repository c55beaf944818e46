package models

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func newSQLUserRepo(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewSQLUserRepository(sqlx.NewDb(db, "postgres"), time.Second), mock
}

// The write alone decides the outcome; a follow-up read would be an
// unexpected query and fail the test.
func TestSQLUserRepo_AddRegisteredEventOnlyWrites(t *testing.T) {
	repo, mock := newSQLUserRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_registered_events")).
		WithArgs("u-1", "e-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.AddRegisteredEvent(context.Background(), "u-1", "e-1"); err != nil {
		t.Fatalf("add: %v", err)
	}
}

func TestSQLUserRepo_AddRegisteredEventUnknownUser(t *testing.T) {
	repo, mock := newSQLUserRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_registered_events")).
		WithArgs("ghost", "e-1").
		WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	if err := repo.AddRegisteredEvent(context.Background(), "ghost", "e-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSQLUserRepo_RemoveRegisteredEventOnlyWrites(t *testing.T) {
	repo, mock := newSQLUserRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_registered_events")).
		WithArgs("u-1", "e-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.RemoveRegisteredEvent(context.Background(), "u-1", "e-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
}

func TestSQLUserRepo_ScanRegistrationsGroupsByUser(t *testing.T) {
	repo, mock := newSQLUserRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, event_id FROM user_registered_events")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "event_id"}).
			AddRow("u-1", "e-1").
			AddRow("u-1", "e-2").
			AddRow("u-2", "e-1").
			AddRow("u-3", "e-3"))

	var users []string
	got := map[string][]string{}
	err := repo.ScanRegistrations(context.Background(), func(userID string, eventIDs []string) error {
		users = append(users, userID)
		got[userID] = eventIDs
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !reflect.DeepEqual(users, []string{"u-1", "u-2", "u-3"}) {
		t.Fatalf("callback order %v", users)
	}
	want := map[string][]string{"u-1": {"e-1", "e-2"}, "u-2": {"e-1"}, "u-3": {"e-3"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("batches %v, want %v", got, want)
	}
}

func TestSQLUserRepo_ScanRegistrationsEmptyAndCallbackError(t *testing.T) {
	repo, mock := newSQLUserRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, event_id FROM user_registered_events")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "event_id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, event_id FROM user_registered_events")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "event_id"}).
			AddRow("u-1", "e-1").
			AddRow("u-2", "e-1"))

	calls := 0
	if err := repo.ScanRegistrations(context.Background(), func(string, []string) error {
		calls++
		return nil
	}); err != nil || calls != 0 {
		t.Fatalf("empty scan: calls=%d err=%v", calls, err)
	}

	stop := errors.New("stop")
	err := repo.ScanRegistrations(context.Background(), func(string, []string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("callback error not propagated: calls=%d err=%v", calls, err)
	}
}
