package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const selectColumns = `u.id, u.username, u.did, u.role, u.provider, u.provider_id,
		u.password_hash, u.password_salt, u.password_version, u.version, u.created_at, u.updated_at`

// PostgresRepository keeps the account row in users and its refresh token
// ids in user_refresh_tokens. Reads and writes of both run in one transaction.
type PostgresRepository struct {
	db     *sql.DB
	tokens func(dbx.DBTX) refreshtokens.Repository
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		tokens: func(tx dbx.DBTX) refreshtokens.Repository {
			return refreshtokens.NewPostgresRepository(tx)
		},
	}
}

var readTxOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

func (r *PostgresRepository) FindOne(ctx context.Context, q Query) (*models.UserCredential, error) {
	if q.Empty() {
		return nil, ErrEmptyQuery
	}
	cond, args := q.where()
	query := `SELECT ` + selectColumns + `
		FROM users u
		WHERE ` + cond + `
		LIMIT 1`

	var user *models.UserCredential
	err := dbx.WithTx(ctx, r.db, readTxOptions, func(ctx context.Context, tx dbx.DBTX) error {
		u := &models.UserCredential{}
		var role, version string
		err := tx.QueryRowContext(ctx, query, args...).Scan(
			&u.ID, &u.Username, &u.DID, &role, &u.Provider, &u.ProviderID,
			&u.PasswordHash, &u.PasswordSalt, &version, &u.Version, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}
		u.Role = models.Role(role)
		u.PasswordVersion = models.PasswordVersion(version)

		if u.RefreshTokenIDs, err = r.tokens(tx).List(ctx, u.ID); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresRepository) Count(ctx context.Context, q Query) (int, error) {
	if q.Empty() {
		return 0, ErrEmptyQuery
	}
	cond, args := q.where()

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u WHERE `+cond, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Save(ctx context.Context, user *models.UserCredential) (*models.UserCredential, error) {
	saved := user.Clone()
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if saved.ID == "" {
			err = r.insert(ctx, tx, saved)
		} else {
			err = r.update(ctx, tx, saved)
		}
		if err != nil {
			return err
		}
		return r.tokens(tx).Replace(ctx, saved.ID, saved.RefreshTokenIDs)
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *PostgresRepository) insert(ctx context.Context, tx dbx.DBTX, u *models.UserCredential) error {
	query := `
		INSERT INTO users (username, did, role, provider, provider_id, password_hash, password_salt, password_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, version, created_at, updated_at
	`
	err := tx.QueryRowContext(ctx, query,
		u.Username, u.DID, string(u.Role), u.Provider, u.ProviderID,
		u.PasswordHash, u.PasswordSalt, string(u.PasswordVersion),
	).Scan(&u.ID, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *PostgresRepository) update(ctx context.Context, tx dbx.DBTX, u *models.UserCredential) error {
	query := `
		UPDATE users SET
			username = $2, did = $3, role = $4, provider = $5, provider_id = $6,
			password_hash = $7, password_salt = $8, password_version = $9,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $10
		RETURNING version, updated_at
	`
	err := tx.QueryRowContext(ctx, query,
		u.ID, u.Username, u.DID, string(u.Role), u.Provider, u.ProviderID,
		u.PasswordHash, u.PasswordSalt, string(u.PasswordVersion), u.Version,
	).Scan(&u.Version, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrVersionConflict
		}
		return mapWriteError(err)
	}
	return nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}
