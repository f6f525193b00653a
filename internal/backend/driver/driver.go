// Package driver selects the order gateway implementation from configuration.
package driver

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/menumate/internal/backend"
	"github.com/Additional-Code/menumate/internal/backend/memory"
	"github.com/Additional-Code/menumate/internal/config"
	"github.com/Additional-Code/menumate/internal/database"
	orderrepo "github.com/Additional-Code/menumate/internal/repository/order"
)

// Module provides backend.Gateway to Fx.
var Module = fx.Provide(New)

// New returns the SQL repository or the in-memory backend, depending on
// BACKEND_DRIVER.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (backend.Gateway, error) {
	switch cfg.Backend.Driver {
	case "sql":
		if !conns.Enabled() {
			return nil, fmt.Errorf("sql backend selected but no database connection is configured")
		}
		logger.Info("order backend ready", zap.String("driver", "sql"), zap.String("database", cfg.Database.Driver))
		return orderrepo.NewRepository(conns), nil
	case "memory":
		logger.Info("order backend ready",
			zap.String("driver", "memory"),
			zap.String("atomic_mode", cfg.Backend.AtomicMode),
			zap.Bool("hide_own_writes", cfg.Backend.HideOwnWrites),
		)
		return memory.New(memory.Options{
			AtomicMode:    memory.AtomicMode(cfg.Backend.AtomicMode),
			HideOwnWrites: cfg.Backend.HideOwnWrites,
			Latency:       cfg.Backend.Latency,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported backend driver: %s", cfg.Backend.Driver)
	}
}
