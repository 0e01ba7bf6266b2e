package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"telcosync/internal/logging"
	"telcosync/internal/services"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Options tune the connection pool.
type Options struct {
	ConnectTimeout time.Duration
	MaxConns       int32
}

// Connect opens a pgx pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "warehouse", "connect", "no database DSN (set DATABASE_URL or database.dsn)", nil)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "warehouse", "connect", "parse DSN", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.ConnConfig.ConnectTimeout = timeout

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrDatabaseUnavailable, "warehouse", "connect", "", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, services.Wrap(services.ErrDatabaseUnavailable, "warehouse", "ping", "", err)
	}
	return pool, nil
}

// Store is the warehouse data access layer.
type Store struct {
	db     DB
	logger *slog.Logger

	mu          sync.Mutex
	providerIDs map[string]int32
}

// New wraps db. The store takes ownership and closes it in Close.
func New(db DB, logger *slog.Logger) *Store {
	return &Store{
		db:          db,
		logger:      logging.NewComponentLogger(logger, "warehouse"),
		providerIDs: make(map[string]int32),
	}
}

// Open connects and wraps the pool in a Store.
func Open(ctx context.Context, dsn string, opts Options, logger *slog.Logger) (*Store, error) {
	pool, err := Connect(ctx, dsn, opts)
	if err != nil {
		return nil, err
	}
	return New(pool, logger), nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// ProviderID resolves a provider name to telco.providers.id.
func (s *Store) ProviderID(ctx context.Context, name string) (int32, error) {
	s.mu.Lock()
	id, ok := s.providerIDs[name]
	s.mu.Unlock()
	if ok {
		return id, nil
	}
	if err := s.db.QueryRow(ctx, `SELECT id FROM telco.providers WHERE name = $1`, name).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, services.Wrap(services.ErrSchema, "warehouse", "provider id", fmt.Sprintf("provider %q is not seeded", name), nil)
		}
		return 0, fmt.Errorf("lookup provider %s: %w", name, err)
	}
	s.mu.Lock()
	s.providerIDs[name] = id
	s.mu.Unlock()
	return id, nil
}
