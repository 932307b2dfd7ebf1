package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Felmeta-M/task-management-system/internal/task"
)

type stubTaskSource struct {
	tasks map[int64]*task.Task
}

func (s *stubTaskSource) Get(_ context.Context, id, userID int64) (*task.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, task.ErrNotFound
	}
	return t, nil
}

// newTestManager は Redis に繋がず照合ロジックだけを動かす Manager を組み立てます。
// store.Put に到達しない（通知を書かない）ケースのみ検証できます。
func newTestManager(tasks map[int64]*task.Task) *Manager {
	return &Manager{
		store: NewStore(nil, 0),
		tasks: &stubTaskSource{tasks: tasks},
		lead:  24 * time.Hour,
	}
}

func dueReminderJob(t *testing.T, p Payload) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return asynq.NewTask(taskTypeDueReminder, body)
}

func TestHandleDueReminderSkipsDeletedTask(t *testing.T) {
	m := newTestManager(nil)

	job := dueReminderJob(t, Payload{TaskID: 7, UserID: 1, DueDate: time.Now().UTC()})
	if err := m.handleDueReminder(context.Background(), job); err != nil {
		t.Fatalf("handleDueReminder(deleted task) = %v, want nil", err)
	}
}

func TestHandleDueReminderSkipsDoneTask(t *testing.T) {
	due := time.Now().Add(time.Hour).UTC()
	m := newTestManager(map[int64]*task.Task{
		7: {ID: 7, UserID: 1, Status: task.StatusDone, DueDate: &due},
	})

	job := dueReminderJob(t, Payload{TaskID: 7, UserID: 1, DueDate: due})
	if err := m.handleDueReminder(context.Background(), job); err != nil {
		t.Fatalf("handleDueReminder(done task) = %v, want nil", err)
	}
}

func TestHandleDueReminderSkipsStaleDueDate(t *testing.T) {
	// 予約後に期限が変わった場合、古い予約は空振りさせる
	newDue := time.Now().Add(72 * time.Hour).UTC()
	m := newTestManager(map[int64]*task.Task{
		7: {ID: 7, UserID: 1, Status: task.StatusTodo, DueDate: &newDue},
	})

	oldDue := newDue.Add(-48 * time.Hour)
	job := dueReminderJob(t, Payload{TaskID: 7, UserID: 1, DueDate: oldDue})
	if err := m.handleDueReminder(context.Background(), job); err != nil {
		t.Fatalf("handleDueReminder(stale due date) = %v, want nil", err)
	}
}

func TestHandleDueReminderRejectsBrokenPayload(t *testing.T) {
	m := newTestManager(nil)

	for name, body := range map[string][]byte{
		"not json":   []byte("garbage"),
		"missing id": []byte(`{"userId":1}`),
	} {
		job := asynq.NewTask(taskTypeDueReminder, body)
		if err := m.handleDueReminder(context.Background(), job); err == nil {
			t.Errorf("handleDueReminder(%s) succeeded, want error", name)
		}
	}
}

func TestReminderKeyFormat(t *testing.T) {
	if got := reminderKey(42, 7); got != "reminder:42:7" {
		t.Errorf("reminderKey(42, 7) = %q, want reminder:42:7", got)
	}
}
