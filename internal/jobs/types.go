package jobs

import "time"

// Reminder は期限が近いタスクに対する通知1件を表します。
// Redis 上で TTL 付きで保持され、期限を過ぎると自然に消えます。
type Reminder struct {
	ID        string    `json:"id"`
	TaskID    int64     `json:"taskId"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	DueDate   time.Time `json:"dueDate"`
	CreatedAt time.Time `json:"createdAt"`
}
