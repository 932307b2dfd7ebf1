package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/Felmeta-M/task-management-system/internal/auth"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type userRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
}

// UserStore はユーザーの検索と作成を提供します。auth.UserStore を実装します。
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore は UserStore を作成します。
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByUsername はユーザー名で検索します。存在しない場合は (nil, nil) です。
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	return s.findOne(ctx, sq.Eq{"username": username})
}

// FindByID はIDで検索します。存在しない場合は (nil, nil) です。
func (s *UserStore) FindByID(ctx context.Context, id int64) (*auth.Credential, error) {
	return s.findOne(ctx, sq.Eq{"id": id})
}

func (s *UserStore) findOne(ctx context.Context, where sq.Eq) (*auth.Credential, error) {
	query, args, err := psql.
		Select("id", "username", "password_hash").
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}

	var row userRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &auth.Credential{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
	}, nil
}

// Upsert はユーザーを作成し、既に存在する場合は既存のIDを返します。
// シードツールから利用されます。パスワードハッシュは上書きしません。
func (s *UserStore) Upsert(ctx context.Context, username, passwordHash string) (*auth.Credential, error) {
	query, args, err := psql.
		Insert("users").
		Columns("username", "password_hash").
		Values(username, passwordHash).
		Suffix("ON CONFLICT (username) DO UPDATE SET updated_at = NOW() RETURNING id, username, password_hash").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user upsert: %w", err)
	}

	var row userRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, err
	}

	return &auth.Credential{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
	}, nil
}
