package persistence

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campusdesk/officehours/internal/config"
)

// SeedDatabase is a single short-lived connection used to import the faculty
// directory at startup. The store never writes back, so no pool is kept.
type SeedDatabase struct {
	Conn         *pgx.Conn
	QueryTimeout time.Duration
}

// OpenSeedDatabase connects when a DSN is configured and returns nil otherwise.
func OpenSeedDatabase(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*SeedDatabase, error) {
	if cfg.DSN == "" {
		logger.Debug("POSTGRES_DSN not provided; skipping database seed source")
		return nil, nil
	}

	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if timeout := cfg.ConnectTimeout(); timeout > 0 {
		connCfg.ConnectTimeout = timeout
	}
	connCfg.RuntimeParams["application_name"] = "officehours-seed"
	connCfg.RuntimeParams["default_transaction_read_only"] = "on"

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, err
	}

	logger.Info("connected to postgres seed source",
		zap.String("host", connCfg.Host),
		zap.String("database", connCfg.Database))
	return &SeedDatabase{Conn: conn, QueryTimeout: cfg.QueryTimeout()}, nil
}

// Close ends the connection.
func (d *SeedDatabase) Close(ctx context.Context) {
	if d != nil && d.Conn != nil {
		_ = d.Conn.Close(ctx)
	}
}

// Handle returns the connection, or nil when no database is configured.
func (d *SeedDatabase) Handle() *pgx.Conn {
	if d == nil {
		return nil
	}
	return d.Conn
}

// WithQueryTimeout derives the context the import runs under.
func (d *SeedDatabase) WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d == nil || d.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.QueryTimeout)
}
