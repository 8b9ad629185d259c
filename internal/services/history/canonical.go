package history

import (
	"strings"

	"StockCast/internal/domain/models"
)

var familyVariants = map[string][]string{
	"Classic": {
		"Classic Combo", "Classic Burger", "Classic Meal Deal",
		"Classic Burger Combo", "Classic Burger Combo 1", "Classic Burger Combo 2",
	},
	"Jazz":        {"Jazz Combo", "Jazz Burger", "Jazz Burger Combo", "Jazz Meal Deal"},
	"Country":     {"Country Combo", "Country Burger", "Country Burger Combo", "Country Meal Deal"},
	"Rock":        {"Rock Combo", "Rock Burger", "Rock Burger Combo", "Rock Meal Deal"},
	"Family Meal": {"Family Meal", "Family Meal 2.0", "Family Meal Deal"},
}

// Canonicalizer collapses raw menu spellings into one name per product family.
// Lookups ignore case and surrounding whitespace; unknown names pass through
// trimmed but otherwise unchanged.
type Canonicalizer struct {
	table map[string]string
}

// NewCanonicalizer builds the built-in table and layers extra raw->canonical
// entries on top of it.
func NewCanonicalizer(extra map[string]string) *Canonicalizer {
	c := &Canonicalizer{table: make(map[string]string)}
	for canonical, variants := range familyVariants {
		for _, v := range variants {
			c.table[key(v)] = canonical
		}
	}
	for raw, canonical := range extra {
		if strings.TrimSpace(raw) == "" || strings.TrimSpace(canonical) == "" {
			continue
		}
		c.table[key(raw)] = strings.TrimSpace(canonical)
	}
	c.close()
	return c
}

// close rewrites targets so that a canonical name that is itself a mapped
// spelling resolves in one step, keeping Canonical idempotent.
func (c *Canonicalizer) close() {
	for raw, target := range c.table {
		seen := map[string]bool{raw: true}
		for {
			next, ok := c.table[key(target)]
			if !ok || next == target || seen[key(target)] {
				break
			}
			seen[key(target)] = true
			target = next
		}
		c.table[raw] = target
	}
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Canonical returns the canonical spelling of name.
func (c *Canonicalizer) Canonical(name string) string {
	if v, ok := c.table[key(name)]; ok {
		return v
	}
	return strings.TrimSpace(name)
}

// Apply returns a copy of records with canonical item names.
func (c *Canonicalizer) Apply(records []models.SalesRecord) []models.SalesRecord {
	out := make([]models.SalesRecord, len(records))
	for i, r := range records {
		r.ItemName = c.Canonical(r.ItemName)
		out[i] = r
	}
	return out
}
