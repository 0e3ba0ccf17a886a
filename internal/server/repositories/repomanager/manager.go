// Package repomanager owns the storage backend selected by configuration and
// vends repositories bound to it.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Close() error
}

// New returns the manager for cfg.StoreDriver.
func New(cfg *config.Config) (RepositoryManager, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		return NewPostgresRepositoryManager(cfg.DatabaseDSN)
	case config.StoreDriverMemory:
		return NewMemoryRepositoryManager(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
