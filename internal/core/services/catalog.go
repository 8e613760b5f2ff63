package services

import (
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogService = (*CatalogService)(nil)

// CatalogService merges the template catalog with custom document types.
type CatalogService struct {
	templates driven.TemplateStore
}

// NewCatalogService creates a catalog service.
func NewCatalogService(templates driven.TemplateStore) *CatalogService {
	return &CatalogService{templates: templates}
}

// DocTypes returns the catalog followed by custom types found in sessionDocs.
func (c *CatalogService) DocTypes(sessionDocs map[string]string) []domain.DocType {
	known := c.templates.List()
	seen := make(map[string]bool, len(known))
	for _, dt := range known {
		seen[dt.Key] = true
	}
	for _, key := range domain.SortedKeys(sessionDocs) {
		if !seen[key] {
			known = append(known, domain.DocType{Key: key})
		}
	}
	return known
}

// DocType resolves one key.
func (c *CatalogService) DocType(key string) domain.DocType {
	return c.templates.Get(key)
}
