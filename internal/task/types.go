// Package task はタスクのドメインモデルとCRUD機能を提供します。
package task

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status はタスクの進行状態を表します。
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Valid は既知の状態値かを返します。
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// Task は1件のタスクを表します。所有者（UserID）以外からは一切見えません。
type Task struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Status      Status     `json:"status" db:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty" db:"due_date"`
	UserID      int64      `json:"userId" db:"user_id"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// ErrNotFound は、指定の所有者にとってタスクが存在しないことを表します。
// 「他人のタスク」も同じエラーになり、存在自体を漏らしません。
var ErrNotFound = errors.New("task not found")

// CreateFields はタスク作成時の入力です。
type CreateFields struct {
	Title       string
	Description string
	Status      Status
	DueDate     *time.Time
}

// UpdateFields は部分更新の入力です。nil のフィールドは変更されません。
// DueDate だけは「null で消去」があり得るため DueDateSet で区別します。
type UpdateFields struct {
	Title       *string
	Description *string
	Status      *Status
	DueDate     *time.Time
	DueDateSet  bool
}

// Empty は更新対象のフィールドが1つも無いかを返します。
func (f UpdateFields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Status == nil && !f.DueDateSet
}

// Store はタスクの永続化層です。
// すべてのメソッドが userID を必須で受け取り、実装はその所有者の行しか触れません。
type Store interface {
	List(ctx context.Context, userID int64) ([]Task, error)
	Get(ctx context.Context, id, userID int64) (*Task, error)
	Create(ctx context.Context, userID int64, fields CreateFields) (*Task, error)
	Update(ctx context.Context, id, userID int64, fields UpdateFields) (*Task, error)
	Delete(ctx context.Context, id, userID int64) error
}

// Error はAPIに返すコード付きエラーです。
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newInputError(message string) *Error {
	return &Error{Code: "INVALID_INPUT", Message: message}
}
