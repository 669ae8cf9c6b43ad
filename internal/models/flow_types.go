// Package models defines flow type definitions to avoid circular imports.
package models

// PendingInput names the slot the dialog engine is waiting for the customer to fill.
// A conversation holds exactly one PendingInput, so at most one "awaiting" slot
// can ever be active.
type PendingInput string

// Pending input constants.
const (
	PendingNone               PendingInput = ""
	PendingOrderText          PendingInput = "order_text"
	PendingServiceType        PendingInput = "service_type"
	PendingAddress            PendingInput = "address"
	PendingPaymentConfirm     PendingInput = "payment_confirm"
	PendingItemQuantity       PendingInput = "item_quantity"
	PendingItemExtras         PendingInput = "item_extras"
	PendingReservationDetails PendingInput = "reservation_details"
	PendingDeliveryDetails    PendingInput = "delivery_details"
)

// AllPendingInputs lists every awaiting slot, excluding PendingNone.
var AllPendingInputs = []PendingInput{
	PendingOrderText,
	PendingServiceType,
	PendingAddress,
	PendingPaymentConfirm,
	PendingItemQuantity,
	PendingItemExtras,
	PendingReservationDetails,
	PendingDeliveryDetails,
}

// ServiceType is how the customer wants to receive the order.
type ServiceType string

// Service type constants.
const (
	ServiceNone     ServiceType = ""
	ServiceDelivery ServiceType = "delivery"
	ServiceInStore  ServiceType = "in_store"
)

// Label returns the customer facing name of the service type.
func (s ServiceType) Label() string {
	switch s {
	case ServiceDelivery:
		return "delivery"
	case ServiceInStore:
		return "retiro en tienda"
	default:
		return "sin definir"
	}
}
