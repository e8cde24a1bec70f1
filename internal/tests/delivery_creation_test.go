package tests

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

var trackingPattern = regexp.MustCompile(`^DSP-\d{8}-[A-Z0-9]{5}$`)

func TestCreateDelivery_CrossHubPlansThreeLegs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	deliveryRepo := NewMockDeliveryRepository()
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	engine := newEngine(deliveryRepo, hubRepo, NewMockDriverRepository(), nil, nil)

	delivery, err := engine.CreateDelivery(ctx, crossHubCreateRequest("order-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if delivery.Status != domain.StatusPending {
		t.Errorf("expected pending, got %s", delivery.Status)
	}
	if delivery.OriginHubID != "hub-a" || delivery.DestinationHubID != "hub-b" {
		t.Errorf("unexpected hub resolution: %s -> %s", delivery.OriginHubID, delivery.DestinationHubID)
	}
	if !trackingPattern.MatchString(delivery.TrackingNumber) {
		t.Errorf("tracking number %q does not match the expected format", delivery.TrackingNumber)
	}

	if len(delivery.Legs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(delivery.Legs))
	}
	wantTypes := []domain.LegType{domain.LegTypePickup, domain.LegTypeLineHaul, domain.LegTypeDelivery}
	for i, leg := range delivery.Legs {
		if leg.Number != i+1 {
			t.Errorf("leg %d has number %d", i, leg.Number)
		}
		if leg.Type != wantTypes[i] {
			t.Errorf("leg %d has type %s, want %s", i+1, leg.Type, wantTypes[i])
		}
		if leg.Status != domain.LegStatusUnassigned {
			t.Errorf("leg %d should start unassigned, got %s", i+1, leg.Status)
		}
	}

	if len(delivery.Timeline) != 1 || delivery.Timeline[0].Status != domain.StatusPending {
		t.Errorf("expected a single pending timeline entry, got %v", delivery.Timeline)
	}
}

func TestCreateDelivery_SameHubSkipsLineHaul(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	deliveryRepo := NewMockDeliveryRepository()
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	engine := newEngine(deliveryRepo, hubRepo, NewMockDriverRepository(), nil, nil)

	req := crossHubCreateRequest("order-1")
	req.DeliveryAddress = domain.Address{Street: "9 Same-City Rd", City: "Manila", Province: "Metro Manila"}

	delivery, err := engine.CreateDelivery(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if delivery.OriginHubID != delivery.DestinationHubID {
		t.Fatalf("expected same hub on both ends, got %s / %s", delivery.OriginHubID, delivery.DestinationHubID)
	}
	if len(delivery.Legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(delivery.Legs))
	}
	if delivery.Legs[0].Type != domain.LegTypePickup || delivery.Legs[1].Type != domain.LegTypeDelivery {
		t.Errorf("unexpected leg types: %s, %s", delivery.Legs[0].Type, delivery.Legs[1].Type)
	}
	if delivery.Legs[1].Number != 2 {
		t.Errorf("leg numbering must stay contiguous, got %d", delivery.Legs[1].Number)
	}
	if delivery.HasLineHaul() {
		t.Error("same-hub delivery must not report a line haul")
	}
}

func TestCreateDelivery_DuplicateOrderRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	deliveryRepo := NewMockDeliveryRepository()
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	engine := newEngine(deliveryRepo, hubRepo, NewMockDriverRepository(), nil, nil)

	if _, err := engine.CreateDelivery(ctx, crossHubCreateRequest("order-1")); err != nil {
		t.Fatalf("first creation failed: %v", err)
	}

	_, err := engine.CreateDelivery(ctx, crossHubCreateRequest("order-1"))
	if !errors.Is(err, service.ErrOrderAlreadyHasDelivery) {
		t.Fatalf("expected ErrOrderAlreadyHasDelivery, got %v", err)
	}
	if deliveryRepo.CountDeliveries() != 1 {
		t.Errorf("expected 1 delivery, got %d", deliveryRepo.CountDeliveries())
	}
}

func TestCreateDelivery_NoHubCoverage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	deliveryRepo := NewMockDeliveryRepository()
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	engine := newEngine(deliveryRepo, hubRepo, NewMockDriverRepository(), nil, nil)

	req := crossHubCreateRequest("order-1")
	req.DeliveryAddress = domain.Address{Street: "1 Remote Rd", City: "Basco", Province: "Batanes"}

	_, err := engine.CreateDelivery(ctx, req)
	if !errors.Is(err, service.ErrNoHubCoverage) {
		t.Fatalf("expected ErrNoHubCoverage, got %v", err)
	}
	if deliveryRepo.CountDeliveries() != 0 {
		t.Error("no delivery should be persisted when routing fails")
	}
}

func TestCreateDelivery_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	deliveryRepo := NewMockDeliveryRepository()
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	engine := newEngine(deliveryRepo, hubRepo, NewMockDriverRepository(), nil, nil)

	cases := []struct {
		name   string
		mutate func(*service.CreateDeliveryRequest)
		want   error
	}{
		{"empty order id", func(r *service.CreateDeliveryRequest) { r.OrderID = "" }, service.ErrInvalidOrderID},
		{"empty buyer id", func(r *service.CreateDeliveryRequest) { r.BuyerID = "" }, service.ErrInvalidBuyerID},
		{"empty seller id", func(r *service.CreateDeliveryRequest) { r.SellerID = "" }, service.ErrInvalidSellerID},
		{"missing city", func(r *service.CreateDeliveryRequest) { r.PickupAddress.City = "" }, service.ErrInvalidAddress},
		{"zero weight", func(r *service.CreateDeliveryRequest) { r.PackageWeightKg = 0 }, service.ErrInvalidWeight},
		{"negative weight", func(r *service.CreateDeliveryRequest) { r.PackageWeightKg = -3 }, service.ErrInvalidWeight},
		{"unknown size", func(r *service.CreateDeliveryRequest) { r.PackageSize = "gigantic" }, domain.ErrUnknownPackageSize},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := crossHubCreateRequest("order-x")
			tc.mutate(&req)
			_, err := engine.CreateDelivery(ctx, req)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTrackingGenerator_Format(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	generator := service.NewTrackingGenerator("dsp", NewMockDeliveryRepository())

	for i := 0; i < 25; i++ {
		number, err := generator.Generate(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !trackingPattern.MatchString(number) {
			t.Fatalf("tracking number %q does not match the expected format", number)
		}
	}
}

func TestTrackingGenerator_UniqueAgainstPopulatedStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	deliveryRepo := NewMockDeliveryRepository()
	generator := service.NewTrackingGenerator("DSP", deliveryRepo)

	// Persist every generated number so later iterations generate against a
	// store where candidate collisions are possible; with a fixed date prefix
	// the suffix is the only source of uniqueness.
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		number, err := generator.Generate(ctx)
		if err != nil {
			t.Fatalf("unexpected error on iteration %d: %v", i, err)
		}
		if _, dup := seen[number]; dup {
			t.Fatalf("duplicate tracking number %q on iteration %d", number, i)
		}
		seen[number] = struct{}{}
		deliveryRepo.AddDelivery(&domain.Delivery{
			ID:             fmt.Sprintf("delivery-%d", i),
			OrderID:        fmt.Sprintf("order-%d", i),
			TrackingNumber: number,
		})
	}
}

func TestTrackingGenerator_ExhaustionIsBounded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	deliveryRepo := NewMockDeliveryRepository()
	deliveryRepo.ForceTrackingCollision = true
	generator := service.NewTrackingGenerator("DSP", deliveryRepo)

	// Every candidate collides; the generator must give up instead of
	// spinning forever.
	_, err := generator.Generate(ctx)
	if !errors.Is(err, service.ErrTrackingIDExhausted) {
		t.Fatalf("expected ErrTrackingIDExhausted, got %v", err)
	}
}

func TestCreateDelivery_TrackingExhaustionSurfaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	deliveryRepo := NewMockDeliveryRepository()
	deliveryRepo.ForceTrackingCollision = true
	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	engine := newEngine(deliveryRepo, hubRepo, NewMockDriverRepository(), nil, nil)

	_, err := engine.CreateDelivery(ctx, crossHubCreateRequest("order-1"))
	if !errors.Is(err, service.ErrTrackingIDExhausted) {
		t.Fatalf("expected ErrTrackingIDExhausted, got %v", err)
	}
}
