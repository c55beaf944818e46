// Package mocks holds in-memory repositories for tests. They honour the same
// set semantics as the real stores and can be told to fail specific calls.
package mocks

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventhub/models"
)

// ErrInjected is the default failure returned by a tripped fault.
var ErrInjected = errors.New("injected store failure")

// Faults lets a test fail named operations, e.g. "AddRegisteredEvent".
type Faults struct {
	mu  sync.Mutex
	ops map[string]error
}

func (f *Faults) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ops == nil {
		f.ops = map[string]error{}
	}
	if err == nil {
		err = ErrInjected
	}
	f.ops[op] = err
}

func (f *Faults) Clear(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ops, op)
}

func (f *Faults) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ops[op]
}

type MockEventRepo struct {
	Faults
	mu    sync.Mutex
	Items map[string]models.Event
}

func NewMockEventRepo() *MockEventRepo {
	return &MockEventRepo{Items: map[string]models.Event{}}
}

// Put seeds an event directly, bypassing validation.
func (m *MockEventRepo) Put(e models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	m.Items[e.ID] = clone(e)
}

// Get reads an event directly, bypassing faults.
func (m *MockEventRepo) Get(id string) (models.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	return clone(e), ok
}

func (m *MockEventRepo) Create(_ context.Context, e *models.Event) error {
	if err := m.check("Create"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Items[e.ID]; ok {
		return errors.New("duplicate id")
	}
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	m.Items[e.ID] = clone(*e)
	return nil
}

func (m *MockEventRepo) GetByID(_ context.Context, id string) (models.Event, error) {
	if err := m.check("GetByID"); err != nil {
		return models.Event{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.Event{}, models.ErrNotFound
	}
	return clone(e), nil
}

func (m *MockEventRepo) ListFuture(_ context.Context, now time.Time) ([]models.Event, error) {
	if err := m.check("ListFuture"); err != nil {
		return nil, err
	}
	return m.filter(func(e models.Event) bool { return e.Date.After(now) }), nil
}

func (m *MockEventRepo) ListByIDs(_ context.Context, ids []string, now time.Time) ([]models.Event, error) {
	if err := m.check("ListByIDs"); err != nil {
		return nil, err
	}
	return m.filter(func(e models.Event) bool {
		return e.Date.After(now) && slices.Contains(ids, e.ID)
	}), nil
}

func (m *MockEventRepo) filter(keep func(models.Event) bool) []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Event{}
	for _, e := range m.Items {
		if keep(e) {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (m *MockEventRepo) AddAttendee(_ context.Context, id, userID string) (models.Event, bool, error) {
	if err := m.check("AddAttendee"); err != nil {
		return models.Event{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.Event{}, false, models.ErrNotFound
	}
	if slices.Contains(e.Attendees, userID) {
		return clone(e), false, nil
	}
	e.Attendees = append(slices.Clone(e.Attendees), userID)
	m.Items[id] = e
	return clone(e), true, nil
}

func (m *MockEventRepo) RemoveAttendee(_ context.Context, id, userID string) (models.Event, bool, error) {
	if err := m.check("RemoveAttendee"); err != nil {
		return models.Event{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.Event{}, false, models.ErrNotFound
	}
	i := slices.Index(e.Attendees, userID)
	if i < 0 {
		return clone(e), false, nil
	}
	e.Attendees = slices.Delete(slices.Clone(e.Attendees), i, i+1)
	m.Items[id] = e
	return clone(e), true, nil
}

func (m *MockEventRepo) ScanAttendees(_ context.Context, fn func(eventID string, attendees []string) error) error {
	if err := m.check("ScanAttendees"); err != nil {
		return err
	}
	m.mu.Lock()
	snapshot := make([]models.Event, 0, len(m.Items))
	for _, e := range m.Items {
		snapshot = append(snapshot, clone(e))
	}
	m.mu.Unlock()

	for _, e := range snapshot {
		if err := fn(e.ID, e.Attendees); err != nil {
			return err
		}
	}
	return nil
}

func clone(e models.Event) models.Event {
	e.Attendees = slices.Clone(e.Attendees)
	return e
}

type MockUserRepo struct {
	Faults
	mu    sync.Mutex
	Users map[string]models.User // keyed by id
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{Users: map[string]models.User{}}
}

// Put seeds a user directly. Passwords are stored as given.
func (m *MockUserRepo) Put(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.RegisteredEvents == nil {
		u.RegisteredEvents = []string{}
	}
	m.Users[u.ID] = cloneUser(u)
}

// Get reads a user directly, bypassing faults.
func (m *MockUserRepo) Get(id string) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	return cloneUser(u), ok
}

func (m *MockUserRepo) Create(_ context.Context, u *models.User) error {
	if err := m.check("Create"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.Users {
		if existing.Email == u.Email {
			return models.ErrEmailTaken
		}
	}
	u.ID = uuid.NewString()
	u.RegisteredEvents = []string{}
	u.CreatedAt = time.Now().UTC()
	m.Users[u.ID] = cloneUser(*u)
	return nil
}

// ValidateCredentials compares plain text; hashing is covered by the SQL store.
func (m *MockUserRepo) ValidateCredentials(_ context.Context, email, plain string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.Users {
		if u.Email == email && u.Password == plain {
			return cloneUser(u), nil
		}
	}
	return models.User{}, models.ErrInvalidCredentials
}

func (m *MockUserRepo) GetByID(_ context.Context, id string) (models.User, error) {
	if err := m.check("GetByID"); err != nil {
		return models.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *MockUserRepo) GetSummaries(_ context.Context, ids []string) (map[string]models.CreatorSummary, error) {
	if err := m.check("GetSummaries"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]models.CreatorSummary{}
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			out[id] = models.CreatorSummary{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	return out, nil
}

func (m *MockUserRepo) AddRegisteredEvent(_ context.Context, id, eventID string) error {
	if err := m.check("AddRegisteredEvent"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return models.ErrNotFound
	}
	if !slices.Contains(u.RegisteredEvents, eventID) {
		u.RegisteredEvents = append(slices.Clone(u.RegisteredEvents), eventID)
		m.Users[id] = u
	}
	return nil
}

func (m *MockUserRepo) RemoveRegisteredEvent(_ context.Context, id, eventID string) error {
	if err := m.check("RemoveRegisteredEvent"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil
	}
	if i := slices.Index(u.RegisteredEvents, eventID); i >= 0 {
		u.RegisteredEvents = slices.Delete(slices.Clone(u.RegisteredEvents), i, i+1)
		m.Users[id] = u
	}
	return nil
}

func (m *MockUserRepo) ScanRegistrations(_ context.Context, fn func(userID string, eventIDs []string) error) error {
	if err := m.check("ScanRegistrations"); err != nil {
		return err
	}
	m.mu.Lock()
	snapshot := make([]models.User, 0, len(m.Users))
	for _, u := range m.Users {
		if len(u.RegisteredEvents) > 0 {
			snapshot = append(snapshot, cloneUser(u))
		}
	}
	m.mu.Unlock()

	for _, u := range snapshot {
		if err := fn(u.ID, u.RegisteredEvents); err != nil {
			return err
		}
	}
	return nil
}

func cloneUser(u models.User) models.User {
	u.RegisteredEvents = slices.Clone(u.RegisteredEvents)
	return u
}
