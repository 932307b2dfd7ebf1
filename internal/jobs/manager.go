// Package jobs はタスク期限リマインダーの非同期処理を提供します。
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/Felmeta-M/task-management-system/internal/task"
)

const (
	taskTypeDueReminder = "task:due_reminder"
	queueReminders      = "reminders"
)

// TaskSource はワーカーがタスクの最新状態を読み直すための窓口です。
type TaskSource interface {
	Get(ctx context.Context, id, userID int64) (*task.Task, error)
}

// Manager はリマインダーの予約と実行を担います。task.ReminderScheduler を実装します。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  *Store
	tasks  TaskSource
	lead   time.Duration
	logger *log.Logger
}

// Payload は期限リマインダージョブのペイロードです。
// DueDate は予約時点の期限で、実行時に現在の期限と照合して古い予約を無効化します。
type Payload struct {
	TaskID  int64     `json:"taskId"`
	UserID  int64     `json:"userId"`
	DueDate time.Time `json:"dueDate"`
}

// NewManager は Manager を初期化します。
// lead は期限の何時間前に通知するかです。
func NewManager(redisURL string, store *Store, tasks TaskSource, lead time.Duration, logger *log.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if tasks == nil {
		return nil, errors.New("tasks is nil")
	}
	if logger == nil {
		logger = log.Default()
	}

	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				queueReminders: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: client,
		server: server,
		mux:    mux,
		store:  store,
		tasks:  tasks,
		lead:   lead,
		logger: logger,
	}
	mux.HandleFunc(taskTypeDueReminder, manager.handleDueReminder)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			m.logger.Printf("asynq server stopped with error: %v", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	return m.client.Close()
}

// ScheduleDueReminder は期限の lead 前に実行されるジョブを予約します。
// 既に lead を切っている場合は即時実行します。
func (m *Manager) ScheduleDueReminder(ctx context.Context, t *task.Task) error {
	if t.DueDate == nil {
		return errors.New("task has no due date")
	}

	body, err := json.Marshal(Payload{
		TaskID:  t.ID,
		UserID:  t.UserID,
		DueDate: t.DueDate.UTC(),
	})
	if err != nil {
		return err
	}

	processAt := t.DueDate.Add(-m.lead)
	if processAt.Before(time.Now()) {
		processAt = time.Now()
	}

	job := asynq.NewTask(taskTypeDueReminder, body, asynq.Queue(queueReminders))
	_, err = m.client.EnqueueContext(ctx, job, asynq.ProcessAt(processAt), asynq.MaxRetry(2))
	if err != nil {
		return fmt.Errorf("enqueue due reminder: %w", err)
	}
	return nil
}

// CancelDueReminder は通知済みリマインダーを取り下げます。
// 予約済みジョブ自体は触らず、実行時の照合で空振りさせます。
func (m *Manager) CancelDueReminder(ctx context.Context, taskID, userID int64) error {
	return m.store.Delete(ctx, userID, taskID)
}

// GetReminders は指定ユーザーの未消化リマインダーを返します。
func (m *Manager) GetReminders(ctx context.Context, userID int64) ([]Reminder, error) {
	return m.store.ListByUser(ctx, userID)
}

// handleDueReminder は予約時点の状態が今も有効かを確認してから通知を書き込みます。
// タスクの削除・完了・期限変更があった古い予約はここで無効になります。
func (m *Manager) handleDueReminder(ctx context.Context, job *asynq.Task) error {
	var payload Payload
	if err := json.Unmarshal(job.Payload(), &payload); err != nil {
		return err
	}
	if payload.TaskID == 0 || payload.UserID == 0 {
		return fmt.Errorf("missing taskId or userId in payload")
	}

	current, err := m.tasks.Get(ctx, payload.TaskID, payload.UserID)
	if errors.Is(err, task.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if current.Status == task.StatusDone || current.DueDate == nil {
		return nil
	}
	if !current.DueDate.UTC().Equal(payload.DueDate) {
		// 期限が変更されている。新しい予約側に任せる
		return nil
	}

	return m.store.Put(ctx, &Reminder{
		ID:      uuid.NewString(),
		TaskID:  current.ID,
		UserID:  current.UserID,
		Title:   current.Title,
		DueDate: *current.DueDate,
	})
}
