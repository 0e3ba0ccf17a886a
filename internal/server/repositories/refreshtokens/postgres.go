package refreshtokens

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
)

// PostgresRepository works over dbx.DBTX, so Replace is only atomic when the
// caller hands it a *sql.Tx.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT token_id
		FROM user_refresh_tokens
		WHERE user_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}

// Replace brings the stored list in line with ids. The common changes (ids
// appended at the tail, ids dropped anywhere) touch only the affected rows;
// any other reordering rewrites the list.
func (r *PostgresRepository) Replace(ctx context.Context, userID string, ids []string) error {
	current, err := r.List(ctx, userID)
	if err != nil {
		return err
	}

	kept, removed := splitKept(current, ids)
	if len(kept) > len(ids) || !slices.Equal(ids[:len(kept)], kept) || hasAny(ids[len(kept):], current) {
		return r.rewrite(ctx, userID, ids)
	}

	for _, id := range removed {
		if _, err := r.db.ExecContext(ctx,
			`DELETE FROM user_refresh_tokens WHERE user_id = $1 AND token_id = $2`, userID, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	query := `
		INSERT INTO user_refresh_tokens (user_id, token_id, position)
		SELECT $1, $2, COALESCE(MAX(position) + 1, 0)
		FROM user_refresh_tokens
		WHERE user_id = $1
	`
	for _, id := range ids[len(kept):] {
		if _, err := r.db.ExecContext(ctx, query, userID, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// rewrite replaces the whole list with one delete and one batched insert.
func (r *PostgresRepository) rewrite(ctx context.Context, userID string, ids []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO user_refresh_tokens (user_id, token_id, position) VALUES `)
	args := []any{userID}
	for pos, id := range ids {
		if pos > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($1, $%d, $%d)", len(args)+1, len(args)+2)
		args = append(args, id, pos)
	}
	if _, err := r.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// splitKept partitions current into the ids still wanted and the ones to drop.
func splitKept(current, wanted []string) (kept, removed []string) {
	for _, id := range current {
		if slices.Contains(wanted, id) {
			kept = append(kept, id)
		} else {
			removed = append(removed, id)
		}
	}
	return kept, removed
}

func hasAny(ids, in []string) bool {
	return slices.ContainsFunc(ids, func(id string) bool { return slices.Contains(in, id) })
}
