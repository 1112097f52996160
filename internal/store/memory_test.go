package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_TenantLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetCatalog(ctx, "T1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateTenant(ctx, Tenant{ID: "T1", Name: "Tenant One"}))
	assert.ErrorIs(t, s.CreateTenant(ctx, Tenant{ID: "T1"}), ErrTenantExists)

	c, err := s.GetCatalog(ctx, "T1")
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Empty(t, c)

	require.NoError(t, s.DeleteTenant(ctx, "T1"))
	assert.ErrorIs(t, s.DeleteTenant(ctx, "T1"), ErrNotFound)
	assert.ErrorIs(t, s.PutCatalog(ctx, "T1", Catalog{}), ErrNotFound)
}

func TestMemoryStore_CopiesDocuments(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateTenant(ctx, Tenant{ID: "T1"}))

	doc := Catalog{"orders": Section{"get-order": {URL: "/api/orders/:id", Method: "GET"}}}
	require.NoError(t, s.PutCatalog(ctx, "T1", doc))

	// mutating the caller's map must not leak into the store
	doc["orders"]["get-order"] = Entry{URL: "changed", Method: "POST"}

	read, err := s.GetCatalog(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, Entry{URL: "/api/orders/:id", Method: "GET"}, read["orders"]["get-order"])

	// nor may mutating a read copy
	read["orders"]["get-order"] = Entry{URL: "other", Method: "PUT"}
	again, err := s.GetCatalog(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "GET", again["orders"]["get-order"].Method)
}

func TestCatalog_Lookup(t *testing.T) {
	c := Catalog{"orders": Section{"get-order": {URL: "/a", Method: "GET"}}}

	e, ok := c.Lookup("orders", "get-order")
	assert.True(t, ok)
	assert.Equal(t, "/a", e.URL)

	_, ok = c.Lookup("orders", "missing")
	assert.False(t, ok)
	_, ok = c.Lookup("billing", "get-order")
	assert.False(t, ok)
}

func TestDecodeCatalog(t *testing.T) {
	logger := testLogger()
	tests := []struct {
		name string
		doc  string
		want Catalog
	}{
		{"empty", "", Catalog{}},
		{"null", "null", Catalog{}},
		{"malformed", "{not json", Catalog{}},
		{"empty section dropped", `{"orders":{}}`, Catalog{}},
		{
			name: "valid",
			doc:  `{"orders":{"get-order":{"url":"/api/orders/:id","method":"GET"}}}`,
			want: Catalog{"orders": Section{"get-order": {URL: "/api/orders/:id", Method: "GET"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeCatalog([]byte(tt.doc), "T1", logger))
		})
	}
}
