// Package users is the credential store. It looks records up by a Query and
// persists them with optimistic concurrency on UserCredential.Version.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// FindOne returns the first credential matching q, or common.ErrorNotFound.
	// The result is a private copy.
	FindOne(ctx context.Context, q Query) (*models.UserCredential, error)

	// Save inserts user when its ID is empty and updates it otherwise. Updates
	// only succeed when user.Version equals the stored version; a stale record
	// yields common.ErrVersionConflict. A taken username yields
	// common.ErrAlreadyExists. The returned copy carries the new ID and Version.
	Save(ctx context.Context, user *models.UserCredential) (*models.UserCredential, error)

	// Count returns the number of credentials matching q.
	Count(ctx context.Context, q Query) (int, error)
}
