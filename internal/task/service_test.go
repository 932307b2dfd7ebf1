package task

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

// memStore はテスト用のインメモリ Store 実装です。
// 本物と同様に (id, userID) の組でしか行に届きません。
type memStore struct {
	seq   int64
	tasks map[int64]*Task
}

func newMemStore() *memStore {
	return &memStore{tasks: make(map[int64]*Task)}
}

func (m *memStore) List(_ context.Context, userID int64) ([]Task, error) {
	out := []Task{}
	for _, t := range m.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) Get(_ context.Context, id, userID int64) (*Task, error) {
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *memStore) Create(_ context.Context, userID int64, fields CreateFields) (*Task, error) {
	m.seq++
	now := time.Now()
	t := &Task{
		ID:          m.seq,
		Title:       fields.Title,
		Description: fields.Description,
		Status:      fields.Status,
		DueDate:     fields.DueDate,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.tasks[t.ID] = t
	copied := *t
	return &copied, nil
}

func (m *memStore) Update(_ context.Context, id, userID int64, fields UpdateFields) (*Task, error) {
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	if fields.Title != nil {
		t.Title = *fields.Title
	}
	if fields.Description != nil {
		t.Description = *fields.Description
	}
	if fields.Status != nil {
		t.Status = *fields.Status
	}
	if fields.DueDateSet {
		t.DueDate = fields.DueDate
	}
	t.UpdatedAt = time.Now()
	copied := *t
	return &copied, nil
}

func (m *memStore) Delete(_ context.Context, id, userID int64) error {
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

type stubScheduler struct {
	scheduled []int64
	cancelled []int64
}

func (s *stubScheduler) ScheduleDueReminder(_ context.Context, t *Task) error {
	s.scheduled = append(s.scheduled, t.ID)
	return nil
}

func (s *stubScheduler) CancelDueReminder(_ context.Context, taskID, _ int64) error {
	s.cancelled = append(s.cancelled, taskID)
	return nil
}

func futureTime() *time.Time {
	t := time.Now().Add(48 * time.Hour)
	return &t
}

func TestServiceCreateRejectsPastDueDate(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)

	past := time.Now().Add(-time.Hour)
	_, err := svc.Create(context.Background(), 1, CreateFields{
		Title:   "Review the deployment plan",
		Status:  StatusTodo,
		DueDate: &past,
	})

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "INVALID_INPUT" {
		t.Fatalf("Create(past due date) = %v, want INVALID_INPUT", err)
	}
}

func TestServiceCreateRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)

	_, err := svc.Create(context.Background(), 1, CreateFields{
		Title:  "Review the deployment plan",
		Status: Status("BLOCKED"),
	})

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "INVALID_INPUT" {
		t.Fatalf("Create(unknown status) = %v, want INVALID_INPUT", err)
	}
}

func TestServiceCreateSchedulesReminder(t *testing.T) {
	scheduler := &stubScheduler{}
	svc := NewService(newMemStore(), scheduler, nil)

	created, err := svc.Create(context.Background(), 1, CreateFields{
		Title:   "Prepare the quarterly report",
		Status:  StatusTodo,
		DueDate: futureTime(),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(scheduler.scheduled) != 1 || scheduler.scheduled[0] != created.ID {
		t.Fatalf("scheduled = %v, want [%d]", scheduler.scheduled, created.ID)
	}
}

func TestServiceCreateWithoutDueDateSchedulesNothing(t *testing.T) {
	scheduler := &stubScheduler{}
	svc := NewService(newMemStore(), scheduler, nil)

	if _, err := svc.Create(context.Background(), 1, CreateFields{
		Title:  "Prepare the quarterly report",
		Status: StatusTodo,
	}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(scheduler.scheduled) != 0 {
		t.Fatalf("scheduled = %v, want empty", scheduler.scheduled)
	}
}

func TestServiceUpdateRejectsEmptyFields(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)

	_, err := svc.Update(context.Background(), 1, 1, UpdateFields{})

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "INVALID_INPUT" {
		t.Fatalf("Update(empty) = %v, want INVALID_INPUT", err)
	}
}

func TestServiceUpdateToDoneCancelsReminder(t *testing.T) {
	store := newMemStore()
	scheduler := &stubScheduler{}
	svc := NewService(store, scheduler, nil)

	created, err := svc.Create(context.Background(), 1, CreateFields{
		Title:   "Prepare the quarterly report",
		Status:  StatusTodo,
		DueDate: futureTime(),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	done := StatusDone
	if _, err := svc.Update(context.Background(), created.ID, 1, UpdateFields{Status: &done}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if len(scheduler.cancelled) != 1 || scheduler.cancelled[0] != created.ID {
		t.Fatalf("cancelled = %v, want [%d]", scheduler.cancelled, created.ID)
	}
}

func TestServiceUpdateClearingDueDateCancelsReminder(t *testing.T) {
	store := newMemStore()
	scheduler := &stubScheduler{}
	svc := NewService(store, scheduler, nil)

	created, err := svc.Create(context.Background(), 1, CreateFields{
		Title:   "Prepare the quarterly report",
		Status:  StatusTodo,
		DueDate: futureTime(),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := svc.Update(context.Background(), created.ID, 1, UpdateFields{DueDateSet: true}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if len(scheduler.cancelled) != 1 {
		t.Fatalf("cancelled = %v, want one entry", scheduler.cancelled)
	}
}

func TestServiceDeleteCancelsReminder(t *testing.T) {
	store := newMemStore()
	scheduler := &stubScheduler{}
	svc := NewService(store, scheduler, nil)

	created, err := svc.Create(context.Background(), 1, CreateFields{
		Title:   "Prepare the quarterly report",
		Status:  StatusTodo,
		DueDate: futureTime(),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID, 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(scheduler.cancelled) != 1 {
		t.Fatalf("cancelled = %v, want one entry", scheduler.cancelled)
	}
}

func TestServiceOwnershipIsolation(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil)

	created, err := svc.Create(context.Background(), 1, CreateFields{
		Title:  "User A's private task",
		Status: StatusTodo,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// 別ユーザーからは存在しない扱いになる
	if _, err := svc.Get(context.Background(), created.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(foreign) = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(context.Background(), created.ID, 2, UpdateFields{Status: ptrStatus(StatusDone)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update(foreign) = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), created.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(foreign) = %v, want ErrNotFound", err)
	}

	// 本人からは引き続き見える
	if _, err := svc.Get(context.Background(), created.ID, 1); err != nil {
		t.Fatalf("Get(owner) returned error: %v", err)
	}
}

func ptrStatus(s Status) *Status {
	return &s
}
