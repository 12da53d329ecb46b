package enums

import "fmt"

// OrderStatus tracks the lifecycle of an order in either partition.
type OrderStatus string

const (
	OrderStatusScheduled      OrderStatus = "scheduled"
	OrderStatusProcessed      OrderStatus = "processed"
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusBillingPending OrderStatus = "billing_pending"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusScheduled,
	OrderStatusProcessed,
	OrderStatusPending,
	OrderStatusCompleted,
	OrderStatusBillingPending,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
