package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/Felmeta-M/task-management-system/internal/task"
)

var taskColumns = []string{
	"id", "title", "description", "status", "due_date", "user_id", "created_at", "updated_at",
}

// TaskStore はタスクの永続化を提供します。task.Store を実装します。
// すべてのクエリが user_id で絞り込まれるため、呼び出し側が
// 所有者フィルタを書き忘れる余地はありません。
type TaskStore struct {
	db *sqlx.DB
}

// NewTaskStore は TaskStore を作成します。
func NewTaskStore(db *sqlx.DB) *TaskStore {
	return &TaskStore{db: db}
}

// List は所有タスクを作成日時の降順で返します。
func (s *TaskStore) List(ctx context.Context, userID int64) ([]task.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task list query: %w", err)
	}

	tasks := []task.Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Get は (id, user_id) で1件取得します。他人の行は存在しない扱いになります。
func (s *TaskStore) Get(ctx context.Context, id, userID int64) (*task.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task get query: %w", err)
	}

	var t task.Task
	if err := s.db.GetContext(ctx, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, task.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create はタスクを作成し、採番済みの行を返します。
func (s *TaskStore) Create(ctx context.Context, userID int64, fields task.CreateFields) (*task.Task, error) {
	query, args, err := psql.
		Insert("tasks").
		Columns("title", "description", "status", "due_date", "user_id").
		Values(fields.Title, fields.Description, string(fields.Status), fields.DueDate, userID).
		Suffix("RETURNING " + joinColumns(taskColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task insert: %w", err)
	}

	var t task.Task
	if err := s.db.GetContext(ctx, &t, query, args...); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update は指定フィールドだけを更新します。最後に書いた値が勝ちます
// （楽観ロックのバージョン列は持ちません）。
func (s *TaskStore) Update(ctx context.Context, id, userID int64, fields task.UpdateFields) (*task.Task, error) {
	builder := psql.Update("tasks").Set("updated_at", sq.Expr("NOW()"))
	if fields.Title != nil {
		builder = builder.Set("title", *fields.Title)
	}
	if fields.Description != nil {
		builder = builder.Set("description", *fields.Description)
	}
	if fields.Status != nil {
		builder = builder.Set("status", string(*fields.Status))
	}
	if fields.DueDateSet {
		builder = builder.Set("due_date", fields.DueDate)
	}

	query, args, err := builder.
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + joinColumns(taskColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task update: %w", err)
	}

	var t task.Task
	if err := s.db.GetContext(ctx, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, task.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Delete は (id, user_id) で1件削除します。
func (s *TaskStore) Delete(ctx context.Context, id, userID int64) error {
	query, args, err := psql.
		Delete("tasks").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build task delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return task.ErrNotFound
	}
	return nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
