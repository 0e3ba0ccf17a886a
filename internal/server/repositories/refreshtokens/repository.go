// Package refreshtokens stores the ordered list of refresh token ids that are
// still honoured for each account.
package refreshtokens

import "context"

// Repository keeps a per-user ordered list of live refresh token ids.
type Repository interface {
	// List returns the ids for userID, oldest first. An unknown user yields
	// an empty list.
	List(ctx context.Context, userID string) ([]string, error)

	// Replace overwrites the list for userID with ids, keeping their order.
	Replace(ctx context.Context, userID string, ids []string) error
}
