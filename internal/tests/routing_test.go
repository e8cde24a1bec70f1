package tests

import (
	"context"
	"errors"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func TestResolveHub_MatchesCity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	routing := service.NewRoutingService(hubRepo)

	hub, err := routing.ResolveHub(ctx, domain.Address{City: "Quezon City", Province: "Metro Manila"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hub.ID != "hub-a" {
		t.Errorf("expected hub-a, got %s", hub.ID)
	}
}

func TestResolveHub_CityMatchIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	routing := service.NewRoutingService(hubRepo)

	hub, err := routing.ResolveHub(ctx, domain.Address{City: "CEBU CITY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hub.ID != "hub-b" {
		t.Errorf("expected hub-b, got %s", hub.ID)
	}
}

func TestResolveHub_ProvinceFallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	routing := service.NewRoutingService(hubRepo)

	// "Lapu-Lapu" is not in any coverage list, but the province is.
	hub, err := routing.ResolveHub(ctx, domain.Address{City: "Lapu-Lapu", Province: "Cebu"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hub.ID != "hub-b" {
		t.Errorf("expected province fallback to hub-b, got %s", hub.ID)
	}
}

func TestResolveHub_NoCoverage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hubRepo := NewMockHubRepository()
	addTestHubs(hubRepo)
	routing := service.NewRoutingService(hubRepo)

	_, err := routing.ResolveHub(ctx, domain.Address{City: "Basco", Province: "Batanes"})
	if !errors.Is(err, service.ErrNoHubCoverage) {
		t.Fatalf("expected ErrNoHubCoverage, got %v", err)
	}
}

func TestPlanLegs_CrossHub(t *testing.T) {
	t.Parallel()

	hubRepo := NewMockHubRepository()
	hubA, hubB := addTestHubs(hubRepo)
	routing := service.NewRoutingService(hubRepo)

	pickup := domain.Address{Street: "12 Seller St", City: "Quezon City"}
	dropoff := domain.Address{Street: "7 Buyer Ave", City: "Cebu City"}

	legs := routing.PlanLegs(hubA, hubB, pickup, dropoff)
	if len(legs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(legs))
	}

	if legs[0].Origin.HubID != "" || legs[0].Destination.HubID != hubA.ID {
		t.Errorf("pickup leg endpoints wrong: %+v", legs[0])
	}
	if legs[1].Origin.HubID != hubA.ID || legs[1].Destination.HubID != hubB.ID {
		t.Errorf("line-haul leg endpoints wrong: %+v", legs[1])
	}
	if legs[2].Origin.HubID != hubB.ID || legs[2].Destination.HubID != "" {
		t.Errorf("delivery leg endpoints wrong: %+v", legs[2])
	}
	if legs[0].Origin.Label == "" || legs[2].Destination.Label == "" {
		t.Error("address endpoints should carry a label")
	}
}

func TestPlanLegs_SameHub(t *testing.T) {
	t.Parallel()

	hubRepo := NewMockHubRepository()
	hubA, _ := addTestHubs(hubRepo)
	routing := service.NewRoutingService(hubRepo)

	legs := routing.PlanLegs(hubA, hubA, domain.Address{City: "Manila"}, domain.Address{City: "Quezon City"})
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	if legs[0].Type != domain.LegTypePickup || legs[1].Type != domain.LegTypeDelivery {
		t.Errorf("unexpected leg types: %s, %s", legs[0].Type, legs[1].Type)
	}
	if legs[1].Number != 2 {
		t.Errorf("expected contiguous numbering, got %d", legs[1].Number)
	}
}

func TestRequiredHubForLeg(t *testing.T) {
	t.Parallel()

	delivery := &domain.Delivery{OriginHubID: "hub-a", DestinationHubID: "hub-b"}

	cases := []struct {
		legType domain.LegType
		want    string
	}{
		{domain.LegTypePickup, "hub-a"},
		{domain.LegTypeLineHaul, "hub-a"},
		{domain.LegTypeDelivery, "hub-b"},
	}
	for _, tc := range cases {
		leg := &domain.Leg{Type: tc.legType}
		if got := service.RequiredHubForLeg(delivery, leg); got != tc.want {
			t.Errorf("RequiredHubForLeg(%s) = %s, want %s", tc.legType, got, tc.want)
		}
	}
}
