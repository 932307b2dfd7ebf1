package task

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Felmeta-M/task-management-system/internal/auth"
)

// API はHTTPハンドラーが必要とするタスク操作です。Service が実装します。
type API interface {
	List(ctx context.Context, userID int64) ([]Task, error)
	Get(ctx context.Context, id, userID int64) (*Task, error)
	Create(ctx context.Context, userID int64, fields CreateFields) (*Task, error)
	Update(ctx context.Context, id, userID int64, fields UpdateFields) (*Task, error)
	Delete(ctx context.Context, id, userID int64) error
}

// ListHandler は GET /api/tasks のハンドラーを返します。
func ListHandler(svc API) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			respondUnauthorized(c)
			return
		}

		tasks, err := svc.List(c.Request.Context(), userID)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	}
}

// GetHandler は GET /api/tasks/:id のハンドラーを返します。
func GetHandler(svc API) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			respondUnauthorized(c)
			return
		}

		id, err := parseTaskID(c)
		if err != nil {
			respondWithError(c, err)
			return
		}

		t, err := svc.Get(c.Request.Context(), id, userID)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required,min=5,max=50"`
	Description string     `json:"description" binding:"omitempty,max=1000"`
	Status      Status     `json:"status" binding:"required,oneof=TODO IN_PROGRESS DONE"`
	DueDate     *time.Time `json:"dueDate"`
}

// CreateHandler は POST /api/tasks のハンドラーを返します。
func CreateHandler(svc API) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			respondUnauthorized(c)
			return
		}

		var req createTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "タスクの入力内容が不正です: " + err.Error(),
			})
			return
		}

		created, err := svc.Create(c.Request.Context(), userID, CreateFields{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			DueDate:     req.DueDate,
		})
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

type updateTaskRequest struct {
	Title       *string         `json:"title" binding:"omitempty,min=5,max=50"`
	Description *string         `json:"description" binding:"omitempty,max=1000"`
	Status      *Status         `json:"status" binding:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	DueDate     json.RawMessage `json:"dueDate"`
}

// UpdateHandler は PUT /api/tasks/:id のハンドラーを返します。
// dueDate は省略（変更なし）と null（消去）を区別します。
func UpdateHandler(svc API) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			respondUnauthorized(c)
			return
		}

		id, err := parseTaskID(c)
		if err != nil {
			respondWithError(c, err)
			return
		}

		var req updateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "タスクの入力内容が不正です: " + err.Error(),
			})
			return
		}

		fields := UpdateFields{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
		}
		if len(req.DueDate) > 0 {
			fields.DueDateSet = true
			if string(req.DueDate) != "null" {
				var due time.Time
				if err := json.Unmarshal(req.DueDate, &due); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{
						"code":    "INVALID_INPUT",
						"message": "dueDate は RFC3339 形式の日時または null を指定してください",
					})
					return
				}
				fields.DueDate = &due
			}
		}

		updated, err := svc.Update(c.Request.Context(), id, userID, fields)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteHandler は DELETE /api/tasks/:id のハンドラーを返します。
func DeleteHandler(svc API) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			respondUnauthorized(c)
			return
		}

		id, err := parseTaskID(c)
		if err != nil {
			respondWithError(c, err)
			return
		}

		if err := svc.Delete(c.Request.Context(), id, userID); err != nil {
			respondWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func parseTaskID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, newInputError("タスクIDが不正です")
	}
	return id, nil
}

func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    "UNAUTHORIZED",
		"message": "ログインが必要です",
	})
}

// respondWithError はドメインエラーをHTTPレスポンスへ変換します。
// 「存在しない」と「他人のもの」は同じ TASK_NOT_FOUND になります。
func respondWithError(c *gin.Context, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		c.JSON(statusForCode(apiErr.Code), gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
		return
	}
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "TASK_NOT_FOUND",
			"message": "指定されたタスクは存在しません",
		})
		return
	}

	log.Printf("task handler error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "サーバー内部でエラーが発生しました",
	})
}

func statusForCode(code string) int {
	switch code {
	case "INVALID_INPUT":
		return http.StatusBadRequest
	case "TASK_NOT_FOUND":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
