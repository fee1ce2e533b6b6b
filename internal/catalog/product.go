package catalog

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Product is one sellable catalog entry as priced by the CRM.
type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Frequency        string          `json:"frequency"`
	ExcludeFromTotal bool            `json:"excludeFromTotal"`
}

// Snapshot is an immutable view of the catalog taken at one refresh. Pricing
// computations receive a snapshot by value; the store may swap in a newer one
// underneath without affecting computations already in flight.
type Snapshot struct {
	products  map[string]Product
	fetchedAt time.Time
}

// NewSnapshot builds a snapshot from the provided products.
func NewSnapshot(products []Product, fetchedAt time.Time) Snapshot {
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		byID[p.ID] = p
	}
	return Snapshot{products: byID, fetchedAt: fetchedAt}
}

// Lookup returns the product for the given id. A missing id reports ok=false
// with a zero product; callers price unknown ids at zero rather than failing.
func (s Snapshot) Lookup(id string) (Product, bool) {
	p, ok := s.products[id]
	return p, ok
}

// Products returns all snapshot entries ordered by id.
func (s Snapshot) Products() []Product {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of products held.
func (s Snapshot) Len() int { return len(s.products) }

// FetchedAt reports when the snapshot was taken. Zero for an empty snapshot.
func (s Snapshot) FetchedAt() time.Time { return s.fetchedAt }
