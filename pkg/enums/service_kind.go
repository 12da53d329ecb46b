package enums

import "fmt"

// ServiceKind distinguishes the four delivery services a client can subscribe to.
type ServiceKind string

const (
	ServiceKindFood    ServiceKind = "food"
	ServiceKindBoxes   ServiceKind = "boxes"
	ServiceKindCustom  ServiceKind = "custom"
	ServiceKindProduce ServiceKind = "produce"
)

var validServiceKinds = []ServiceKind{
	ServiceKindFood,
	ServiceKindBoxes,
	ServiceKindCustom,
	ServiceKindProduce,
}

// String implements fmt.Stringer.
func (s ServiceKind) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceKind.
func (s ServiceKind) IsValid() bool {
	for _, candidate := range validServiceKinds {
		if candidate == s {
			return true
		}
	}
	return false
}

// RequiresDeliveryDate reports whether the kind must resolve delivery dates at
// reconcile time. Box orders tolerate null dates and resolve them later.
func (s ServiceKind) RequiresDeliveryDate() bool {
	return s != ServiceKindBoxes
}

// ParseServiceKind converts raw input into a ServiceKind.
func ParseServiceKind(value string) (ServiceKind, error) {
	for _, candidate := range validServiceKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service kind %q", value)
}
