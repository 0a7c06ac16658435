package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/order/*.sql migrations/inventory/*.sql migrations/invoice/*.sql
var migrationsFS embed.FS

// Migration sets, one per aggregate store.
const (
	MigrationsOrder     = "order"
	MigrationsInventory = "inventory"
	MigrationsInvoice   = "invoice"
)

// RunMigrations applies the named migration set against dsn.
func RunMigrations(dsn, set string, logger *zap.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations/"+set)
	if err != nil {
		return fmt.Errorf("load %s migrations: %w", set, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migrations up to date", zap.String("set", set))
			return nil
		}
		return fmt.Errorf("apply %s migrations: %w", set, err)
	}

	logger.Info("migrations applied", zap.String("set", set))
	return nil
}
