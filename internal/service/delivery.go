package service

import (
	"strings"

	"pharmacy/internal/domain"
)

// ShippingFee фиксированная стоимость доставки по адресу
const ShippingFee int64 = 30000

// DeliveryChoice выбор покупателя до расчёта
type DeliveryChoice struct {
	Method   domain.DeliveryMethod `json:"method"`
	BranchID string                `json:"branch_id,omitempty"`
	Address  string                `json:"address,omitempty"`
}

// ResolveDelivery превращает выбор в способ доставки с ценой.
// Самовывоз возможен только из филиала, присутствующего в branches.
func ResolveDelivery(choice DeliveryChoice, branches []domain.Branch) (domain.DeliveryOption, error) {
	switch choice.Method {
	case domain.DeliveryPickup:
		id := strings.TrimSpace(choice.BranchID)
		if id == "" {
			return domain.DeliveryOption{}, invalid("branch_id", "pickup requires a branch")
		}
		for _, b := range branches {
			if b.ID == id {
				return domain.DeliveryOption{
					Method:     domain.DeliveryPickup,
					BranchID:   b.ID,
					BranchName: b.Name,
					Fee:        0,
				}, nil
			}
		}
		return domain.DeliveryOption{}, invalid("branch_id", "unknown branch "+id)
	case domain.DeliveryShipping:
		addr := strings.TrimSpace(choice.Address)
		if addr == "" {
			return domain.DeliveryOption{}, invalid("address", "shipping requires an address")
		}
		return domain.DeliveryOption{
			Method:  domain.DeliveryShipping,
			Address: addr,
			Fee:     ShippingFee,
		}, nil
	default:
		return domain.DeliveryOption{}, invalid("method", "must be pickup or shipping")
	}
}
