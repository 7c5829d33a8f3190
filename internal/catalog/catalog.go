// Package catalog serves the read-only product data bundled with the binary.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"storefront/internal/models"
)

//go:embed products.json
var productsJSON []byte

// VariantAll selects every product in ListByVariant.
const VariantAll = "all"

type Catalog struct {
	products []models.Product
	byID     map[string]int
}

// Load parses the embedded product data.
func Load() (*Catalog, error) {
	return New(productsJSON)
}

// New builds a catalog from a JSON array of products.
func New(data []byte) (*Catalog, error) {
	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	byID := make(map[string]int, len(products))
	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", p.ID)
		}
		byID[p.ID] = i
	}

	return &Catalog{products: products, byID: byID}, nil
}

// List returns every product in catalog order.
func (c *Catalog) List() []models.Product {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

// ListByVariant filters by variant; empty or "all" returns everything.
func (c *Catalog) ListByVariant(variant string) []models.Product {
	if variant == "" || variant == VariantAll {
		return c.List()
	}
	out := make([]models.Product, 0, len(c.products))
	for _, p := range c.products {
		if p.Variant == variant {
			out = append(out, p)
		}
	}
	return out
}

// Get looks a product up by id.
func (c *Catalog) Get(id string) (models.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Product{}, false
	}
	return c.products[i], true
}
