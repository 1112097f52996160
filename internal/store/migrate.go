package store

import (
	"context"
	"database/sql"
)

// Schema is the minimal tenants table the catalog is attached to. Tenant
// metadata beyond id and name is owned elsewhere.
const Schema = `
create table if not exists tenants (
    tenant_id   text primary key,
    name        text not null default '',
    api_catalog jsonb,
    created_at  timestamptz not null default now(),
    updated_at  timestamptz not null default now()
);
`

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
