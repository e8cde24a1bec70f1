package tests

import (
	"testing"

	"dispatch/internal/domain"
)

func TestTransitions_HappyPathChain(t *testing.T) {
	t.Parallel()

	chain := []domain.DeliveryStatus{
		domain.StatusPending,
		domain.StatusPickupAssigned,
		domain.StatusPickupInProgress,
		domain.StatusPickedUp,
		domain.StatusAtOriginHub,
		domain.StatusSorted,
		domain.StatusLineHaulInTransit,
		domain.StatusAtDestinationHub,
		domain.StatusDeliveryAssigned,
		domain.StatusOutForDelivery,
		domain.StatusDelivered,
	}

	for i := 0; i < len(chain)-1; i++ {
		if !domain.CanTransition(chain[i], chain[i+1]) {
			t.Errorf("expected %s -> %s to be allowed", chain[i], chain[i+1])
		}
	}
}

func TestTransitions_NoSkipping(t *testing.T) {
	t.Parallel()

	forbidden := []struct {
		from, to domain.DeliveryStatus
	}{
		{domain.StatusPending, domain.StatusPickedUp},
		{domain.StatusPending, domain.StatusDelivered},
		{domain.StatusPickupAssigned, domain.StatusAtOriginHub},
		{domain.StatusSorted, domain.StatusOutForDelivery},
		{domain.StatusLineHaulInTransit, domain.StatusDeliveryAssigned},
		{domain.StatusAtDestinationHub, domain.StatusDelivered},
		// Backwards moves.
		{domain.StatusPickedUp, domain.StatusPickupAssigned},
		{domain.StatusDelivered, domain.StatusOutForDelivery},
	}

	for _, tc := range forbidden {
		if domain.CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestTransitions_CancelFromAnyNonTerminal(t *testing.T) {
	t.Parallel()

	nonTerminal := []domain.DeliveryStatus{
		domain.StatusPending,
		domain.StatusPickupAssigned,
		domain.StatusPickupInProgress,
		domain.StatusPickedUp,
		domain.StatusAtOriginHub,
		domain.StatusSorted,
		domain.StatusLineHaulInTransit,
		domain.StatusAtDestinationHub,
		domain.StatusDeliveryAssigned,
		domain.StatusOutForDelivery,
	}
	for _, s := range nonTerminal {
		if !domain.CanTransition(s, domain.StatusCancelled) {
			t.Errorf("expected cancel to be allowed from %s", s)
		}
	}
}

func TestTransitions_TerminalStatesAreFinal(t *testing.T) {
	t.Parallel()

	terminal := []domain.DeliveryStatus{
		domain.StatusDelivered,
		domain.StatusCancelled,
		domain.StatusReturned,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
		if next := domain.AllowedNext(s); len(next) != 0 {
			t.Errorf("expected no transitions out of %s, got %v", s, next)
		}
		if domain.CanTransition(s, domain.StatusCancelled) {
			t.Errorf("expected cancel from terminal %s to be rejected", s)
		}
	}
}

func TestTransitions_SameStatusIsIdempotent(t *testing.T) {
	t.Parallel()

	if !domain.CanTransition(domain.StatusSorted, domain.StatusSorted) {
		t.Error("expected same-status transition to be accepted")
	}
	if !domain.CanTransition(domain.StatusDelivered, domain.StatusDelivered) {
		t.Error("expected same-status transition on terminal to be accepted")
	}
}

func TestTransitions_SortedBranchesForSameHubDeliveries(t *testing.T) {
	t.Parallel()

	// A delivery whose hubs coincide skips the line haul, so sorted must
	// branch to both line_haul_in_transit and delivery_assigned.
	if !domain.CanTransition(domain.StatusSorted, domain.StatusLineHaulInTransit) {
		t.Error("expected sorted -> line_haul_in_transit to be allowed")
	}
	if !domain.CanTransition(domain.StatusSorted, domain.StatusDeliveryAssigned) {
		t.Error("expected sorted -> delivery_assigned to be allowed")
	}
}

func TestDerivedOrderStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status domain.DeliveryStatus
		want   domain.OrderStatus
	}{
		{domain.StatusPending, ""},
		{domain.StatusPickupAssigned, ""},
		{domain.StatusPickedUp, domain.OrderStatusShipped},
		{domain.StatusLineHaulInTransit, domain.OrderStatusShipped},
		{domain.StatusOutForDelivery, domain.OrderStatusShipped},
		{domain.StatusDelivered, domain.OrderStatusDelivered},
		{domain.StatusCancelled, domain.OrderStatusCancelled},
	}
	for _, tc := range cases {
		if got := domain.DerivedOrderStatus(tc.status); got != tc.want {
			t.Errorf("DerivedOrderStatus(%s) = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestVehicleTypesForSize(t *testing.T) {
	t.Parallel()

	small := domain.VehicleTypesForSize(domain.PackageSmall)
	if len(small) != 3 || small[0] != domain.VehicleMotorcycle {
		t.Errorf("unexpected allowlist for small: %v", small)
	}

	bulk := domain.VehicleTypesForSize(domain.PackageBulk)
	for _, v := range bulk {
		if v == domain.VehicleMotorcycle || v == domain.VehicleCar {
			t.Errorf("expected %s to be excluded for bulk packages", v)
		}
	}
}
