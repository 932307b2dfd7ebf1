package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/Felmeta-M/task-management-system/internal/auth"
	"github.com/Felmeta-M/task-management-system/internal/config"
	"github.com/Felmeta-M/task-management-system/internal/jobs"
)

// reminderSource はリマインダー一覧取得に必要な最小の窓口です。
type reminderSource interface {
	GetReminders(ctx context.Context, userID int64) ([]jobs.Reminder, error)
}

func setupReminders(cfg *config.Config, tasks jobs.TaskSource) (*jobs.Manager, error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opt)

	expireHours := cfg.ReminderExpireHours
	if expireHours <= 0 {
		expireHours = 48
	}
	leadHours := cfg.ReminderLeadHours
	if leadHours <= 0 {
		leadHours = 24
	}

	store := jobs.NewStore(redisClient, time.Duration(expireHours)*time.Hour)
	manager, err := jobs.NewManager(
		cfg.QueueRedisURL,
		store,
		tasks,
		time.Duration(leadHours)*time.Hour,
		log.Default(),
	)
	if err != nil {
		return nil, err
	}
	return manager, nil
}

// remindersHandler は GET /api/reminders のハンドラーを返します。
func remindersHandler(source reminderSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "ログインが必要です",
			})
			return
		}

		reminders, err := source.GetReminders(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "リマインダーの取得に失敗しました",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"reminders": reminders})
	}
}
