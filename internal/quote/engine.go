// Package quote turns a deal configuration and a catalog snapshot into an
// ordered list of priced line items. Compute is pure: identical inputs yield
// an identical ordered list, which downstream reconciliation depends on.
package quote

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-quotes/internal/catalog"
)

// Compute evaluates the selected bundles against the catalog snapshot.
// Known bundles evaluate in canonical order; unknown bundle names fall back
// to the generic expansion and evaluate after all known bundles, sorted by
// name so output stays deterministic.
func Compute(cfg Config, snap catalog.Snapshot) []LineItem {
	selected := make(map[string]bool, len(cfg.Bundles))
	for _, name := range cfg.Bundles {
		if name != "" {
			selected[name] = true
		}
	}

	items := make([]LineItem, 0, 16)
	for _, bundle := range canonicalOrder {
		if !selected[string(bundle)] {
			continue
		}
		delete(selected, string(bundle))
		for _, r := range bundleRules[bundle] {
			if item, ok := evaluate(r, cfg, snap); ok {
				items = append(items, item)
			}
		}
	}

	if len(selected) > 0 {
		unknown := make([]string, 0, len(selected))
		for name := range selected {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		for _, name := range unknown {
			items = append(items, expandFallback(name, snap)...)
		}
	}

	return items
}

// evaluate interprets one product rule against the configuration. The catalog
// price is never mutated; transforms and floors apply to the computed copy.
func evaluate(r rule, cfg Config, snap catalog.Snapshot) (LineItem, bool) {
	if r.when != nil && !r.when(cfg) {
		return LineItem{}, false
	}

	quantity := 1
	if r.qty != nil {
		quantity = r.qty(cfg)
		if quantity < 0 {
			quantity = 0
		}
	}

	item := LineItem{
		Name:      r.label,
		Quantity:  quantity,
		Frequency: r.freq,
	}
	if r.labelf != nil {
		item.Name = r.labelf(cfg)
	}

	if r.product == "" {
		item.UnitCost = decimal.RequireFromString(r.fixed)
	} else {
		id := productIDs[r.product]
		item.ProductID = id
		product, ok := snap.Lookup(id)
		if ok {
			item.UnitCost = product.Price
			item.ExcludeFromTotal = product.ExcludeFromTotal
		} else {
			// unknown catalog entry prices at zero as a one-time item
			item.UnitCost = decimal.Zero
			item.Frequency = FrequencyOneTime
		}
	}

	if r.transform != nil {
		item.UnitCost = r.transform(cfg, item.UnitCost)
	}
	if r.floor != "" {
		floor := decimal.RequireFromString(r.floor)
		if item.UnitCost.LessThan(floor) {
			item.UnitCost = floor
		}
	}

	item.Amount = item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return item, true
}

// expandFallback prices an unmapped bundle via the static product-name list:
// every mapped product becomes a quantity-1 item. Ids absent from the snapshot
// price at zero as one-time items, the same rule the per-bundle path applies.
func expandFallback(name string, snap catalog.Snapshot) []LineItem {
	var items []LineItem
	for _, productName := range fallbackProducts[name] {
		id, ok := productIDs[productName]
		if !ok {
			continue
		}
		item := LineItem{
			ProductID: id,
			Name:      productName,
			Quantity:  1,
			UnitCost:  decimal.Zero,
			Frequency: FrequencyOneTime,
		}
		if product, found := snap.Lookup(id); found {
			item.Name = product.Name
			item.UnitCost = product.Price
			item.Frequency = product.Frequency
			item.ExcludeFromTotal = product.ExcludeFromTotal
		}
		item.Amount = item.UnitCost
		items = append(items, item)
	}
	return items
}
