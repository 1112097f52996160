package store

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// decodeCatalog turns a stored document into a Catalog. Absent, null and
// malformed documents decode to an empty catalog.
func decodeCatalog(b []byte, tenantID string, logger *zap.Logger) Catalog {
	c := Catalog{}
	if len(b) == 0 || string(b) == "null" {
		return c
	}
	if err := json.Unmarshal(b, &c); err != nil {
		logger.Warn("malformed catalog document, treating as empty",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return Catalog{}
	}
	if c == nil {
		return Catalog{}
	}
	// drop sections that were persisted empty
	for name, sec := range c {
		if len(sec) == 0 {
			delete(c, name)
		}
	}
	return c
}

func encodeCatalog(c Catalog) ([]byte, error) {
	if c == nil {
		c = Catalog{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return b, nil
}
