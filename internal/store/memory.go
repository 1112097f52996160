package store

import (
	"context"
	"sync"
)

type tenantRecord struct {
	tenant  Tenant
	catalog Catalog
}

// MemoryStore keeps tenant catalogs in process. Documents are deep-copied on
// every read and write so callers never share maps with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]*tenantRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[string]*tenantRecord)}
}

func (s *MemoryStore) CreateTenant(_ context.Context, t Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; ok {
		return ErrTenantExists
	}
	s.tenants[t.ID] = &tenantRecord{tenant: t}
	return nil
}

func (s *MemoryStore) DeleteTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenantID]; !ok {
		return ErrNotFound
	}
	delete(s.tenants, tenantID)
	return nil
}

func (s *MemoryStore) GetCatalog(_ context.Context, tenantID string) (Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tenants[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.catalog.Clone(), nil
}

func (s *MemoryStore) PutCatalog(_ context.Context, tenantID string, c Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tenants[tenantID]
	if !ok {
		return ErrNotFound
	}
	rec.catalog = c.Clone()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

var _ Backend = (*MemoryStore)(nil)
