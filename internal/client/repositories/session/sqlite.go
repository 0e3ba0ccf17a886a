package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/migrations"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/pressly/goose/v3"
)

const (
	keyUserID       = "user_id"
	keyUsername     = "username"
	keyRefreshToken = "refresh_token"
	keyAccessToken  = "access_token"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Open opens the database at dsn with the pure-Go sqlite driver and applies
// the embedded migrations. The caller registers the driver.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func get(ctx context.Context, db dbx.DBTX, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session[%s]: %w", key, err)
	}
	return value, nil
}

func set(ctx context.Context, db dbx.DBTX, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO session (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set session[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (*models.Session, error) {
	s := &models.Session{}
	fields := []struct {
		key string
		dst *string
	}{
		{keyUserID, &s.UserID},
		{keyUsername, &s.Username},
		{keyRefreshToken, &s.RefreshToken},
		{keyAccessToken, &s.AccessToken},
	}
	for _, f := range fields {
		v, err := get(ctx, r.db, f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return s, nil
}

// Save replaces the stored session as a whole.
func (r *SQLiteRepository) Save(ctx context.Context, s *models.Session) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session`); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		for key, value := range map[string]string{
			keyUserID:       s.UserID,
			keyUsername:     s.Username,
			keyRefreshToken: s.RefreshToken,
			keyAccessToken:  s.AccessToken,
		} {
			if value == "" {
				continue
			}
			if err := set(ctx, tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) SetAccessToken(ctx context.Context, token string) error {
	if token == "" {
		_, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, keyAccessToken)
		if err != nil {
			return fmt.Errorf("failed to delete session[%s]: %w", keyAccessToken, err)
		}
		return nil
	}
	return set(ctx, r.db, keyAccessToken, token)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

var _ Repository = (*SQLiteRepository)(nil)
