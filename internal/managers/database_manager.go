// Package managers holds the long-lived collaborators of the application: the database pool,
// the session token signer, the single-use token issuer and the mail dispatchers.
package managers

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/torao/kazzla/internal/interfaces"
)

// DatabaseMgr defines the interface for database management.
// It provides methods for interacting with the database connection pool.
type DatabaseMgr interface {
	GetPool() interfaces.PgxPoolIface
	Healthy(ctx context.Context) error
}

// DatabaseManager is responsible for managing the database connection pool.
type DatabaseManager struct {
	Pool interfaces.PgxPoolIface
}

// GetPool returns the database connection pool managed by the DatabaseManager.
func (dbMgr *DatabaseManager) GetPool() interfaces.PgxPoolIface {
	return dbMgr.Pool
}

// Healthy pings the database with a short deadline.
func (dbMgr *DatabaseManager) Healthy(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return dbMgr.Pool.Ping(pingCtx)
}

// NewDatabaseManager creates and initializes a new instance of DatabaseManager with the provided database connection pool.
func NewDatabaseManager(pool interfaces.PgxPoolIface) DatabaseMgr {
	log.Info("Initializing database manager")
	return &DatabaseManager{Pool: pool}
}
