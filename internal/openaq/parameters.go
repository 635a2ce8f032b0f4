package openaq

import (
	"context"
	"log"
	"sort"
	"strings"
)

// ParameterMeta is what the catalog knows about a parameter id.
type ParameterMeta struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Units       string `json:"units,omitempty"`
	DisplayName string `json:"displayName"`
}

// Catalog is the read-only parameter lookup built once at startup. A nil or
// empty catalog is valid: every lookup simply misses.
type Catalog struct {
	byID map[int64]ParameterMeta
}

// NewCatalog builds a catalog from a parameters listing.
func NewCatalog(params []Parameter) *Catalog {
	byID := make(map[int64]ParameterMeta, len(params))
	for _, p := range params {
		display := p.DisplayName
		if display == "" {
			display = strings.ToUpper(p.Name)
		}
		byID[p.ID] = ParameterMeta{
			ID:          p.ID,
			Name:        p.Name,
			Units:       p.Units,
			DisplayName: display,
		}
	}
	return &Catalog{byID: byID}
}

// LoadCatalog fetches the parameters listing. On failure it logs and returns
// an empty catalog.
func LoadCatalog(ctx context.Context, c *Client) *Catalog {
	log.Println("INFO: loading parameter catalog")
	params, err := c.Parameters(ctx, nil)
	if err != nil {
		log.Printf("ERROR: parameter catalog unavailable: %v", err)
		return NewCatalog(nil)
	}
	cat := NewCatalog(params)
	log.Printf("INFO: parameter catalog loaded: %d entries", cat.Len())
	return cat
}

// Lookup returns the metadata for id.
func (c *Catalog) Lookup(id int64) (ParameterMeta, bool) {
	if c == nil {
		return ParameterMeta{}, false
	}
	m, ok := c.byID[id]
	return m, ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byID)
}

// All returns the entries ordered by id.
func (c *Catalog) All() []ParameterMeta {
	if c == nil {
		return nil
	}
	out := make([]ParameterMeta, 0, len(c.byID))
	for _, m := range c.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
