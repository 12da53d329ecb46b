package ordering

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealrounds/mealrounds-backend/pkg/enums"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
	"github.com/mealrounds/mealrounds-backend/pkg/types"
)

// ItemSelection is one desired item line. Either ItemID references the menu
// directory, in which case Name and Price are resolved from it, or Name/Price
// carry a free-text line.
type ItemSelection struct {
	ItemID   *uuid.UUID      `json:"item_id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// VendorSelection is one vendor with its desired item lines.
type VendorSelection struct {
	VendorID uuid.UUID       `json:"vendor_id"`
	Items    []ItemSelection `json:"items"`
}

// FoodConfig partitions vendor selections by delivery weekday. Keys may carry
// a legacy service-kind suffix ("Thursday_Food"); they are normalized before
// use.
type FoodConfig struct {
	Partitions map[string][]VendorSelection `json:"partitions"`
}

// BoxSelection is one desired box.
type BoxSelection struct {
	VendorID  uuid.UUID        `json:"vendor_id"`
	BoxTypeID *uuid.UUID       `json:"box_type_id,omitempty"`
	Quantity  int              `json:"quantity"`
	Items     types.BoxItemMap `json:"items,omitempty"`
}

// BoxesConfig is the desired box set for a client.
type BoxesConfig struct {
	Selections []BoxSelection `json:"selections"`
}

// CustomConfig is a single free-form line supplied by an operator.
type CustomConfig struct {
	VendorID uuid.UUID       `json:"vendor_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// ProduceConfig is a flat weekly produce allowance.
type ProduceConfig struct {
	VendorID uuid.UUID       `json:"vendor_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// Config is the desired order configuration for one client and one service
// kind. Exactly the variant matching Kind must be populated.
type Config struct {
	Kind   enums.ServiceKind `json:"kind"`
	CaseID *string           `json:"case_id,omitempty"`
	Actor  string            `json:"actor,omitempty"`

	Food    *FoodConfig    `json:"food,omitempty"`
	Boxes   *BoxesConfig   `json:"boxes,omitempty"`
	Custom  *CustomConfig  `json:"custom,omitempty"`
	Produce *ProduceConfig `json:"produce,omitempty"`
}

// Validate checks the tagged union is well formed: the kind is known, exactly
// the matching variant is set, and quantities are positive. Emptiness of the
// desired set is NOT an error here; the reconciler decides whether an empty
// set is a placeholder case or a rejection.
func (c Config) Validate() error {
	if !c.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown service kind %q", c.Kind))
	}

	variants := 0
	if c.Food != nil {
		variants++
	}
	if c.Boxes != nil {
		variants++
	}
	if c.Custom != nil {
		variants++
	}
	if c.Produce != nil {
		variants++
	}
	if variants > 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "configuration carries more than one service variant")
	}

	switch c.Kind {
	case enums.ServiceKindFood:
		if variants == 1 && c.Food == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "food configuration carries a mismatched variant")
		}
		if c.Food != nil {
			return c.Food.validate()
		}
	case enums.ServiceKindBoxes:
		if variants == 1 && c.Boxes == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "boxes configuration carries a mismatched variant")
		}
		if c.Boxes != nil {
			return c.Boxes.validate()
		}
	case enums.ServiceKindCustom:
		if variants == 1 && c.Custom == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "custom configuration carries a mismatched variant")
		}
		if c.Custom != nil {
			return c.Custom.validate()
		}
	case enums.ServiceKindProduce:
		if variants == 1 && c.Produce == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "produce configuration carries a mismatched variant")
		}
		if c.Produce != nil {
			return c.Produce.validate()
		}
	}
	return nil
}

// IsEmpty reports whether the configuration carries no desired content at all.
func (c Config) IsEmpty() bool {
	switch c.Kind {
	case enums.ServiceKindFood:
		if c.Food == nil {
			return true
		}
		for _, selections := range c.Food.Partitions {
			for _, sel := range selections {
				for _, item := range sel.Items {
					if item.Quantity > 0 {
						return false
					}
				}
			}
		}
		return true
	case enums.ServiceKindBoxes:
		return c.Boxes == nil || len(c.Boxes.Selections) == 0
	case enums.ServiceKindCustom:
		return c.Custom == nil || c.Custom.Quantity <= 0
	case enums.ServiceKindProduce:
		return c.Produce == nil || !c.Produce.Amount.IsPositive()
	}
	return true
}

func (f FoodConfig) validate() error {
	for key, selections := range f.Partitions {
		for _, sel := range selections {
			if sel.VendorID == uuid.Nil {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("partition %q contains a vendor selection without a vendor id", key))
			}
			for _, item := range sel.Items {
				if item.Quantity < 0 {
					return pkgerrors.New(pkgerrors.CodeValidation,
						fmt.Sprintf("partition %q contains a negative quantity", key))
				}
				if item.ItemID == nil && item.Name == "" && item.Quantity > 0 {
					return pkgerrors.New(pkgerrors.CodeValidation,
						fmt.Sprintf("partition %q contains an item with neither id nor name", key))
				}
			}
		}
	}
	return nil
}

func (b BoxesConfig) validate() error {
	for _, sel := range b.Selections {
		if sel.VendorID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "box selection without a vendor id")
		}
		if sel.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "box selection quantity must be positive")
		}
	}
	return nil
}

func (c CustomConfig) validate() error {
	if c.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "custom order requires a vendor id")
	}
	if c.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "custom order requires an item name")
	}
	if c.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "custom order quantity cannot be negative")
	}
	if c.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "custom order price cannot be negative")
	}
	return nil
}

func (p ProduceConfig) validate() error {
	if p.Amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "produce amount cannot be negative")
	}
	return nil
}
