package task

import (
	"context"
	"log"
	"time"
)

// ReminderScheduler は期限リマインダーの投入と取り消しを提供します。
// 実装は internal/jobs にあります。
type ReminderScheduler interface {
	ScheduleDueReminder(ctx context.Context, t *Task) error
	CancelDueReminder(ctx context.Context, taskID, userID int64) error
}

// Service はタスク操作のビジネスロジックを担います。
// 所有者チェックはここではなく、Store の userID 必須引数として強制されます。
type Service struct {
	store     Store
	reminders ReminderScheduler
	logger    *log.Logger
}

// NewService は Service を作成します。reminders は nil でも動作します。
func NewService(store Store, reminders ReminderScheduler, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:     store,
		reminders: reminders,
		logger:    logger,
	}
}

// List は所有タスクを作成日時の降順で返します。
func (s *Service) List(ctx context.Context, userID int64) ([]Task, error) {
	return s.store.List(ctx, userID)
}

// Get は1件取得します。所有者不一致は ErrNotFound です。
func (s *Service) Get(ctx context.Context, id, userID int64) (*Task, error) {
	return s.store.Get(ctx, id, userID)
}

// Create はタスクを作成します。期限が設定されていればリマインダーも予約します。
func (s *Service) Create(ctx context.Context, userID int64, fields CreateFields) (*Task, error) {
	if !fields.Status.Valid() {
		return nil, newInputError("status は TODO / IN_PROGRESS / DONE のいずれかを指定してください")
	}
	if fields.DueDate != nil && !fields.DueDate.After(time.Now()) {
		return nil, newInputError("dueDate は未来の日時を指定してください")
	}

	created, err := s.store.Create(ctx, userID, fields)
	if err != nil {
		return nil, err
	}

	s.scheduleReminder(ctx, created)
	return created, nil
}

// Update は部分更新します。更新後の期限に合わせてリマインダーを組み直します。
func (s *Service) Update(ctx context.Context, id, userID int64, fields UpdateFields) (*Task, error) {
	if fields.Empty() {
		return nil, newInputError("更新するフィールドを1つ以上指定してください")
	}
	if fields.Status != nil && !fields.Status.Valid() {
		return nil, newInputError("status は TODO / IN_PROGRESS / DONE のいずれかを指定してください")
	}
	if fields.DueDateSet && fields.DueDate != nil && !fields.DueDate.After(time.Now()) {
		return nil, newInputError("dueDate は未来の日時を指定してください")
	}

	updated, err := s.store.Update(ctx, id, userID, fields)
	if err != nil {
		return nil, err
	}

	switch {
	case updated.Status == StatusDone || (fields.DueDateSet && updated.DueDate == nil):
		s.cancelReminder(ctx, updated.ID, updated.UserID)
	case fields.DueDateSet || fields.Status != nil:
		s.scheduleReminder(ctx, updated)
	}
	return updated, nil
}

// Delete はタスクを削除し、残っているリマインダーを取り消します。
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	if err := s.store.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.cancelReminder(ctx, id, userID)
	return nil
}

// scheduleReminder は予約失敗をタスク操作の失敗に昇格させません。
// リマインダーは通知の補助であり、本体のCRUDを巻き込まないためです。
func (s *Service) scheduleReminder(ctx context.Context, t *Task) {
	if s.reminders == nil || t.DueDate == nil || t.Status == StatusDone {
		return
	}
	if err := s.reminders.ScheduleDueReminder(ctx, t); err != nil {
		s.logger.Printf("failed to schedule due reminder task=%d: %v", t.ID, err)
	}
}

func (s *Service) cancelReminder(ctx context.Context, taskID, userID int64) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.CancelDueReminder(ctx, taskID, userID); err != nil {
		s.logger.Printf("failed to cancel due reminder task=%d: %v", taskID, err)
	}
}
