package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mealrounds/mealrounds-backend/pkg/db/models"
)

// fallbackItemName replaces blank catalog names so the name-keyed merge always
// has a usable key.
const fallbackItemName = "Item"

// EffectiveItem is one line of a client's effective catalog for a date, after
// default and override scopes are merged.
type EffectiveItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	SortOrder int             `json:"sort_order"`
}

// NormalizeName trims the item name and substitutes the fallback for blanks.
func NormalizeName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fallbackItemName
	}
	return trimmed
}

func nameKey(name string) string {
	return strings.ToLower(NormalizeName(name))
}

// MergeEffective combines default-scoped and client-scoped catalog entries by
// item name. The merge is keyed case-insensitively on the trimmed name; a
// client row replaces the default row entirely (quantity, price and sort
// order), never partially. The result is ordered by sort order.
func MergeEffective(defaults, overrides []models.CatalogEntry) []EffectiveItem {
	merged := make(map[string]EffectiveItem, len(defaults)+len(overrides))

	for _, entry := range defaults {
		merged[nameKey(entry.Name)] = toEffective(entry)
	}
	for _, entry := range overrides {
		merged[nameKey(entry.Name)] = toEffective(entry)
	}

	items := make([]EffectiveItem, 0, len(merged))
	for _, item := range merged {
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].Name < items[j].Name
	})
	return items
}

func toEffective(entry models.CatalogEntry) EffectiveItem {
	return EffectiveItem{
		Name:      NormalizeName(entry.Name),
		Quantity:  entry.Quantity,
		Price:     entry.Price,
		SortOrder: entry.SortOrder,
	}
}
