package service

import (
	"errors"
	"testing"

	"pharmacy/internal/domain"
)

var testBranches = []domain.Branch{{ID: "b1", Name: "Main"}, {ID: "b2", Name: "Riverside"}}

func TestResolveDelivery_Pickup(t *testing.T) {
	opt, err := ResolveDelivery(DeliveryChoice{Method: domain.DeliveryPickup, BranchID: "b2"}, testBranches)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if opt.Fee != 0 || opt.Destination() != "Riverside" {
		t.Fatalf("unexpected option: %+v", opt)
	}
}

func TestResolveDelivery_Shipping(t *testing.T) {
	opt, err := ResolveDelivery(DeliveryChoice{Method: domain.DeliveryShipping, Address: "  12 Le Loi  "}, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if opt.Fee != 30000 || opt.Destination() != "12 Le Loi" {
		t.Fatalf("unexpected option: %+v", opt)
	}
}

func TestResolveDelivery_Invalid(t *testing.T) {
	cases := []struct {
		choice DeliveryChoice
		field  string
	}{
		{DeliveryChoice{Method: domain.DeliveryPickup}, "branch_id"},
		{DeliveryChoice{Method: domain.DeliveryPickup, BranchID: "b9"}, "branch_id"},
		{DeliveryChoice{Method: domain.DeliveryShipping, Address: "   "}, "address"},
		{DeliveryChoice{Method: "drone"}, "method"},
	}
	for _, c := range cases {
		_, err := ResolveDelivery(c.choice, testBranches)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != c.field {
			t.Fatalf("%+v: expected validation error on %s, got %v", c.choice, c.field, err)
		}
	}
}
