package types

import "github.com/shopspring/decimal"

// BoxItemEntry is one item inside a box selection's serialized item document.
type BoxItemEntry struct {
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// BoxItemMap maps item keys to their quantity and unit price. It is stored on
// the box selection row as a JSON document rather than as child rows.
type BoxItemMap map[string]BoxItemEntry

// Merge returns a copy of m with entries from other added for keys m does not
// already contain. Existing entries are never overwritten.
func (m BoxItemMap) Merge(other BoxItemMap) BoxItemMap {
	merged := make(BoxItemMap, len(m)+len(other))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range other {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return merged
}

// Total returns the summed quantity×price across all entries.
func (m BoxItemMap) Total() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range m {
		total = total.Add(entry.Price.Mul(decimal.NewFromInt(int64(entry.Quantity))))
	}
	return total
}
