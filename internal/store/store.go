package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the tenant record does not exist.
	ErrNotFound = errors.New("tenant not found")
	// ErrTenantExists is returned by CreateTenant for an existing id.
	ErrTenantExists = errors.New("tenant already exists")
)

type Tenant struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}

// Entry is one catalogued backend endpoint.
type Entry struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

// Section groups entries by API name.
type Section map[string]Entry

// Catalog is the per-tenant document: section -> apiName -> entry.
type Catalog map[string]Section

// Clone returns a deep copy of c. The result is never nil.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for name, sec := range c {
		cp := make(Section, len(sec))
		for api, e := range sec {
			cp[api] = e
		}
		out[name] = cp
	}
	return out
}

// Lookup returns the entry at (section, apiName).
func (c Catalog) Lookup(section, apiName string) (Entry, bool) {
	sec, ok := c[section]
	if !ok {
		return Entry{}, false
	}
	e, ok := sec[apiName]
	return e, ok
}

// Store is the catalog persistence boundary. Each tenant owns exactly one
// catalog document that is read and written as a whole.
type Store interface {
	GetCatalog(ctx context.Context, tenantID string) (Catalog, error)
	PutCatalog(ctx context.Context, tenantID string, c Catalog) error
}

// TenantStore manages the tenant records catalogs are attached to.
type TenantStore interface {
	CreateTenant(ctx context.Context, t Tenant) error
	DeleteTenant(ctx context.Context, tenantID string) error
}

// Backend is a complete store implementation as wired by cmd/gateway.
type Backend interface {
	Store
	TenantStore
	Ping(ctx context.Context) error
	Close() error
}
