// Package catalog manages the per-tenant API catalog: the mapping from
// (section, apiName) to a backend URL template and HTTP method.
package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ragulnathMB/tenant-api-gateway/internal/apierrors"
	"github.com/ragulnathMB/tenant-api-gateway/internal/metrics"
	"github.com/ragulnathMB/tenant-api-gateway/internal/store"
)

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// AddRequest describes a new catalog entry.
type AddRequest struct {
	Section string `json:"section"`
	APIName string `json:"apiName"`
	URL     string `json:"url"`
	Method  string `json:"method"`
}

// UpdateRequest carries the fields to change; nil fields are left as is.
type UpdateRequest struct {
	URL        *string `json:"url,omitempty"`
	Method     *string `json:"method,omitempty"`
	NewAPIName *string `json:"newApiName,omitempty"`
}

type Options struct {
	// SerializeWrites runs read-modify-write cycles for one tenant one at a
	// time within this process.
	SerializeWrites bool
}

// Manager is a stateless service over a catalog store. Every call reads the
// tenant's document afresh; mutations write the whole document back.
type Manager struct {
	store   store.Store
	locks   *lockSet
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewManager(s store.Store, logger *zap.Logger, m *metrics.Metrics, opts Options) *Manager {
	mgr := &Manager{store: s, logger: logger, metrics: m}
	if opts.SerializeWrites {
		mgr.locks = newLockSet()
	}
	return mgr
}

// List returns the tenant's full catalog.
func (m *Manager) List(ctx context.Context, tenantID string) (store.Catalog, error) {
	c, err := m.load(ctx, tenantID)
	m.metrics.ObserveCatalogOp("list", err)
	return c, err
}

// Lookup resolves one entry for forwarding.
func (m *Manager) Lookup(ctx context.Context, tenantID, section, apiName string) (store.Entry, error) {
	c, err := m.load(ctx, tenantID)
	if err != nil {
		m.metrics.ObserveCatalogOp("lookup", err)
		return store.Entry{}, err
	}
	e, ok := c.Lookup(section, apiName)
	if !ok || e.URL == "" || e.Method == "" {
		err = apierrors.EntryNotFound(tenantID, section, apiName)
		m.metrics.ObserveCatalogOp("lookup", err)
		return store.Entry{}, err
	}
	m.metrics.ObserveCatalogOp("lookup", nil)
	return e, nil
}

// Add inserts a new entry, creating its section if needed.
func (m *Manager) Add(ctx context.Context, tenantID string, req AddRequest) (store.Entry, error) {
	section := strings.TrimSpace(req.Section)
	apiName := strings.TrimSpace(req.APIName)
	if section == "" {
		return store.Entry{}, m.fail("add", apierrors.Validation("section is required"))
	}
	if apiName == "" {
		return store.Entry{}, m.fail("add", apierrors.Validation("apiName is required"))
	}
	urlTemplate, err := normalizeURL(req.URL)
	if err != nil {
		return store.Entry{}, m.fail("add", err)
	}
	method, err := normalizeMethod(req.Method)
	if err != nil {
		return store.Entry{}, m.fail("add", err)
	}
	entry := store.Entry{URL: urlTemplate, Method: method}

	err = m.mutate(ctx, tenantID, func(c store.Catalog) error {
		if _, exists := c.Lookup(section, apiName); exists {
			return apierrors.DuplicateEntry(section, apiName)
		}
		sec, ok := c[section]
		if !ok {
			sec = store.Section{}
			c[section] = sec
		}
		sec[apiName] = entry
		return nil
	})
	m.metrics.ObserveCatalogOp("add", err)
	if err != nil {
		return store.Entry{}, err
	}
	m.logger.Info("catalog entry added",
		zap.String("tenant_id", tenantID),
		zap.String("section", section),
		zap.String("api_name", apiName),
		zap.String("method", method),
	)
	return entry, nil
}

// Update changes an entry's url and/or method and optionally renames it
// within its section. Renaming onto an existing name fails.
func (m *Manager) Update(ctx context.Context, tenantID, section, apiName string, req UpdateRequest) (store.Entry, error) {
	if req.URL == nil && req.Method == nil && req.NewAPIName == nil {
		return store.Entry{}, m.fail("update", apierrors.Validation("at least one of url, method or newApiName is required"))
	}
	var (
		newURL, newMethod string
		target            = apiName
		err               error
	)
	if req.URL != nil {
		if newURL, err = normalizeURL(*req.URL); err != nil {
			return store.Entry{}, m.fail("update", err)
		}
	}
	if req.Method != nil {
		if newMethod, err = normalizeMethod(*req.Method); err != nil {
			return store.Entry{}, m.fail("update", err)
		}
	}
	if req.NewAPIName != nil {
		target = strings.TrimSpace(*req.NewAPIName)
		if target == "" {
			return store.Entry{}, m.fail("update", apierrors.Validation("newApiName must not be empty"))
		}
	}

	var updated store.Entry
	err = m.mutate(ctx, tenantID, func(c store.Catalog) error {
		entry, ok := c.Lookup(section, apiName)
		if !ok {
			return apierrors.EntryNotFound(tenantID, section, apiName)
		}
		if newURL != "" {
			entry.URL = newURL
		}
		if newMethod != "" {
			entry.Method = newMethod
		}
		sec := c[section]
		if target != apiName {
			if _, exists := sec[target]; exists {
				return apierrors.DuplicateEntry(section, target)
			}
			delete(sec, apiName)
		}
		sec[target] = entry
		updated = entry
		return nil
	})
	m.metrics.ObserveCatalogOp("update", err)
	if err != nil {
		return store.Entry{}, err
	}
	m.logger.Info("catalog entry updated",
		zap.String("tenant_id", tenantID),
		zap.String("section", section),
		zap.String("api_name", apiName),
		zap.String("new_api_name", target),
	)
	return updated, nil
}

// Delete removes an entry and drops its section once empty.
func (m *Manager) Delete(ctx context.Context, tenantID, section, apiName string) error {
	err := m.mutate(ctx, tenantID, func(c store.Catalog) error {
		if _, ok := c.Lookup(section, apiName); !ok {
			return apierrors.EntryNotFound(tenantID, section, apiName)
		}
		delete(c[section], apiName)
		if len(c[section]) == 0 {
			delete(c, section)
		}
		return nil
	})
	m.metrics.ObserveCatalogOp("delete", err)
	if err != nil {
		return err
	}
	m.logger.Info("catalog entry deleted",
		zap.String("tenant_id", tenantID),
		zap.String("section", section),
		zap.String("api_name", apiName),
	)
	return nil
}

func (m *Manager) mutate(ctx context.Context, tenantID string, fn func(store.Catalog) error) error {
	if m.locks != nil {
		unlock := m.locks.Lock(tenantID)
		defer unlock()
	}
	c, err := m.load(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	if err := m.store.PutCatalog(ctx, tenantID, c); err != nil {
		return m.storeError(tenantID, err)
	}
	return nil
}

func (m *Manager) load(ctx context.Context, tenantID string) (store.Catalog, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, apierrors.Validation("tenantId is required")
	}
	c, err := m.store.GetCatalog(ctx, tenantID)
	if err != nil {
		return nil, m.storeError(tenantID, err)
	}
	if c == nil {
		c = store.Catalog{}
	}
	return c, nil
}

func (m *Manager) storeError(tenantID string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apierrors.TenantNotFound(tenantID)
	}
	return apierrors.Internal(err, "catalog store failure for tenant %q", tenantID)
}

func (m *Manager) fail(op string, err error) error {
	m.metrics.ObserveCatalogOp(op, err)
	return err
}

func normalizeMethod(method string) (string, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return "", apierrors.Validation("method is required")
	}
	if !allowedMethods[method] {
		return "", apierrors.Validation("unsupported http method %q", method)
	}
	return method, nil
}

// normalizeURL accepts absolute http(s) templates and host-relative paths.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apierrors.Validation("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", apierrors.Validation("invalid url %q: %v", raw, err)
	}
	switch {
	case u.Scheme == "" && u.Host == "":
		if !strings.HasPrefix(u.Path, "/") {
			return "", apierrors.Validation("url %q must be absolute or start with /", raw)
		}
	case u.Scheme != "http" && u.Scheme != "https":
		return "", apierrors.Validation("url %q must use http or https", raw)
	case u.Host == "":
		return "", apierrors.Validation("url %q has no host", raw)
	}
	return raw, nil
}
