package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// pq error code for unique_violation.
const pqUniqueViolation = "23505"

// PostgresOptions configures the connection pool.
type PostgresOptions struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// PostgresStore keeps each tenant's catalog in the jsonb column
// tenants.api_catalog.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenPostgres opens a pooled connection and verifies it with a ping.
func OpenPostgres(ctx context.Context, opts PostgresOptions, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return NewPostgresStore(db, logger), nil
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (p *PostgresStore) GetCatalog(ctx context.Context, tenantID string) (Catalog, error) {
	var doc []byte
	row := p.db.QueryRowContext(ctx, `
        select api_catalog from tenants where tenant_id = $1
    `, tenantID)
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return decodeCatalog(doc, tenantID, p.logger), nil
}

func (p *PostgresStore) PutCatalog(ctx context.Context, tenantID string, c Catalog) error {
	doc, err := encodeCatalog(c)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `
        update tenants set api_catalog = $2::jsonb, updated_at = now() where tenant_id = $1
    `, tenantID, string(doc))
	if err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) CreateTenant(ctx context.Context, t Tenant) error {
	_, err := p.db.ExecContext(ctx, `
        insert into tenants (tenant_id, name, api_catalog) values ($1, $2, '{}'::jsonb)
    `, t.ID, t.Name)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrTenantExists
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

func (p *PostgresStore) DeleteTenant(ctx context.Context, tenantID string) error {
	res, err := p.db.ExecContext(ctx, `delete from tenants where tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// DB exposes the pool for schema setup.
func (p *PostgresStore) DB() *sql.DB { return p.db }

var _ Backend = (*PostgresStore)(nil)
