package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const reminderKeyPrefix = "reminder:"

// Store はリマインダー通知を Redis に保存します。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
	}
}

// Put はリマインダーを保存します。同じタスクの既存通知は上書きされます。
func (s *Store) Put(ctx context.Context, r *Reminder) error {
	if r == nil {
		return fmt.Errorf("reminder is nil")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, reminderKey(r.UserID, r.TaskID), payload, s.ttl).Err()
}

// ListByUser は指定ユーザーの未消化リマインダーをすべて返します。
func (s *Store) ListByUser(ctx context.Context, userID int64) ([]Reminder, error) {
	pattern := fmt.Sprintf("%s%d:*", reminderKeyPrefix, userID)

	reminders := []Reminder{}
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if err == redis.Nil {
				// SCAN と GET の間に失効した。スキップでよい
				continue
			}
			return nil, err
		}
		var r Reminder
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return reminders, nil
}

// Delete は指定タスクのリマインダーを削除します。存在しなくてもエラーにしません。
func (s *Store) Delete(ctx context.Context, userID, taskID int64) error {
	return s.rdb.Del(ctx, reminderKey(userID, taskID)).Err()
}

func reminderKey(userID, taskID int64) string {
	return fmt.Sprintf("%s%d:%d", reminderKeyPrefix, userID, taskID)
}
