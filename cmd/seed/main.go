// Package main は開発用のシードデータを投入するツールです。
package main

import (
	"context"
	"log"
	"time"

	"github.com/Felmeta-M/task-management-system/internal/auth"
	"github.com/Felmeta-M/task-management-system/internal/config"
	"github.com/Felmeta-M/task-management-system/internal/storage"
	"github.com/Felmeta-M/task-management-system/internal/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := storage.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to run migration: %v", err)
	}

	hash, err := auth.HashPassword("password123")
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	users := storage.NewUserStore(db)
	user, err := users.Upsert(ctx, "admin1", hash)
	if err != nil {
		log.Fatalf("Failed to seed user: %v", err)
	}

	in7Days := time.Now().Add(7 * 24 * time.Hour)
	ago2Days := time.Now().Add(-2 * 24 * time.Hour)

	samples := []task.CreateFields{
		{
			Title:       "Complete project assignment",
			Description: "Finish the task management system",
			Status:      task.StatusInProgress,
			DueDate:     &in7Days,
		},
		{
			Title:       "Review PRs",
			Description: "Review team pull requests",
			Status:      task.StatusTodo,
		},
		{
			Title:       "Deploy to production",
			Description: "Deploy the latest version",
			Status:      task.StatusDone,
			DueDate:     &ago2Days,
		},
	}

	tasks := storage.NewTaskStore(db)
	for _, fields := range samples {
		if _, err := tasks.Create(ctx, user.ID, fields); err != nil {
			log.Fatalf("Failed to seed task %q: %v", fields.Title, err)
		}
	}

	log.Printf("Database seeded successfully (user=%s id=%d)", user.Username, user.ID)
}
