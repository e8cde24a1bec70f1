package tests

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

func TestFindCandidates_FiltersByCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(testDriver("moto", "hub-a", domain.DriverTypePickup, domain.VehicleMotorcycle, 10, 5.0))
	driverRepo.AddDriver(testDriver("van", "hub-a", domain.DriverTypePickup, domain.VehicleVan, 30, 4.2))

	matching := service.NewMatchingService(driverRepo, nil, nil)

	// 15kg exceeds the motorcycle's capacity; only the van qualifies even
	// though the motorcycle driver is rated higher.
	candidates, err := matching.FindCandidates(ctx, "hub-a", domain.LegTypePickup, 15, domain.PackageSmall)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].ID != "van" {
		t.Errorf("expected van driver, got %s", candidates[0].ID)
	}
}

func TestFindCandidates_FiltersByVehicleAllowlist(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	// A truck can carry anything, but trucks are not on the allowlist for
	// small packages.
	driverRepo.AddDriver(testDriver("truck", "hub-a", domain.DriverTypePickup, domain.VehicleTruck, 500, 5.0))
	driverRepo.AddDriver(testDriver("car", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.0))

	matching := service.NewMatchingService(driverRepo, nil, nil)

	candidates, err := matching.FindCandidates(ctx, "hub-a", domain.LegTypePickup, 5, domain.PackageSmall)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != "car" {
		t.Fatalf("expected only the car driver, got %v", candidateIDs(candidates))
	}
}

func TestFindCandidates_FiltersByHubAndLegType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(testDriver("right-hub", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.0))
	driverRepo.AddDriver(testDriver("wrong-hub", "hub-b", domain.DriverTypePickup, domain.VehicleCar, 20, 5.0))
	driverRepo.AddDriver(testDriver("wrong-type", "hub-a", domain.DriverTypeLineHaul, domain.VehicleCar, 20, 5.0))
	driverRepo.AddDriver(testDriver("all-round", "hub-a", domain.DriverTypeAllRound, domain.VehicleCar, 20, 3.5))

	matching := service.NewMatchingService(driverRepo, nil, nil)

	candidates, err := matching.FindCandidates(ctx, "hub-a", domain.LegTypePickup, 5, domain.PackageSmall)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %v", candidateIDs(candidates))
	}
	// Ranked by rating descending.
	if candidates[0].ID != "right-hub" || candidates[1].ID != "all-round" {
		t.Errorf("unexpected ranking: %v", candidateIDs(candidates))
	}
}

func TestFindCandidates_RanksByRatingThenCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	veteran := testDriver("veteran", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.8)
	veteran.CompletedDeliveries = 200
	rookie := testDriver("rookie", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.8)
	rookie.CompletedDeliveries = 3
	driverRepo.AddDriver(veteran)
	driverRepo.AddDriver(rookie)
	driverRepo.AddDriver(testDriver("top-rated", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 5.0))

	matching := service.NewMatchingService(driverRepo, nil, nil)

	candidates, err := matching.FindCandidates(ctx, "hub-a", domain.LegTypePickup, 5, domain.PackageSmall)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"top-rated", "veteran", "rookie"}
	got := candidateIDs(candidates)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected ranking: got %v, want %v", got, want)
		}
	}
}

func TestAutoAssign_ReservesBestCandidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(testDriver("best", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 5.0))
	driverRepo.AddDriver(testDriver("backup", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.0))

	matching := service.NewMatchingService(driverRepo, nil, nil)

	driver, err := matching.AutoAssign(ctx, "dlv-1", "hub-a", domain.LegTypePickup, domain.PackageSmall, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if driver.ID != "best" {
		t.Errorf("expected best-ranked driver, got %s", driver.ID)
	}
	if driver.Status != domain.DriverStatusOnDelivery {
		t.Errorf("expected returned driver to be on_delivery, got %s", driver.Status)
	}

	stored := driverRepo.GetDriver("best")
	if stored.Status != domain.DriverStatusOnDelivery || stored.CurrentDeliveryID != "dlv-1" {
		t.Errorf("reservation not persisted: status=%s delivery=%s", stored.Status, stored.CurrentDeliveryID)
	}
}

func TestAutoAssign_NoCandidates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	matching := service.NewMatchingService(driverRepo, nil, nil)

	_, err := matching.AutoAssign(ctx, "dlv-1", "hub-a", domain.LegTypePickup, domain.PackageSmall, 5)
	if !errors.Is(err, service.ErrNoDriverAvailable) {
		t.Fatalf("expected ErrNoDriverAvailable, got %v", err)
	}
}

func TestAutoAssign_ConcurrentCallersOneWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(testDriver("solo", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 5.0))

	matching := service.NewMatchingService(driverRepo, nil, nil)

	const callers = 20
	var wins, losses int32
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(n int) {
			defer wg.Done()
			deliveryID := "dlv-" + string(rune('a'+n))
			_, err := matching.AutoAssign(ctx, deliveryID, "hub-a", domain.LegTypePickup, domain.PackageSmall, 5)
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, service.ErrNoDriverAvailable):
				atomic.AddInt32(&losses, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
	if losses != callers-1 {
		t.Errorf("expected %d losers, got %d", callers-1, losses)
	}
	if driverRepo.GetDriver("solo").Status != domain.DriverStatusOnDelivery {
		t.Error("driver should be on_delivery after the race")
	}
}

func TestAutoAssign_LostRaceFallsThroughToNextCandidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	// Two candidates; four concurrent assignments for distinct deliveries.
	driverRepo.AddDriver(testDriver("d1", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 5.0))
	driverRepo.AddDriver(testDriver("d2", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.0))

	matching := service.NewMatchingService(driverRepo, nil, nil)

	const callers = 4
	var wins int32
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(n int) {
			defer wg.Done()
			deliveryID := "dlv-" + string(rune('a'+n))
			if _, err := matching.AutoAssign(ctx, deliveryID, "hub-a", domain.LegTypePickup, domain.PackageSmall, 5); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	if wins != 2 {
		t.Errorf("expected both drivers to be reserved exactly once, got %d wins", wins)
	}
}

func TestManualAssign_ValidationOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	wrongHub := testDriver("wrong-hub", "hub-b", domain.DriverTypePickup, domain.VehicleCar, 20, 4.0)
	offDuty := testDriver("off-duty", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.0)
	offDuty.Status = domain.DriverStatusOffDuty
	tooSmall := testDriver("too-small", "hub-a", domain.DriverTypePickup, domain.VehicleMotorcycle, 10, 4.0)
	wrongType := testDriver("line-haul-only", "hub-a", domain.DriverTypeLineHaul, domain.VehicleVan, 30, 4.0)
	driverRepo.AddDriver(wrongHub)
	driverRepo.AddDriver(offDuty)
	driverRepo.AddDriver(tooSmall)
	driverRepo.AddDriver(wrongType)

	matching := service.NewMatchingService(driverRepo, nil, nil)

	delivery := &domain.Delivery{
		ID:               "dlv-1",
		PackageSize:      domain.PackageSmall,
		PackageWeightKg:  15,
		OriginHubID:      "hub-a",
		DestinationHubID: "hub-b",
	}
	leg := &domain.Leg{Number: 1, Type: domain.LegTypePickup, Status: domain.LegStatusUnassigned}

	if _, err := matching.ManualAssign(ctx, delivery, leg, "missing"); err == nil {
		t.Error("expected not-found error for unknown driver")
	}

	if _, err := matching.ManualAssign(ctx, delivery, leg, "wrong-hub"); !errors.Is(err, service.ErrWrongHub) {
		t.Errorf("expected ErrWrongHub, got %v", err)
	}

	var unavailable *service.DriverUnavailableError
	if _, err := matching.ManualAssign(ctx, delivery, leg, "off-duty"); !errors.As(err, &unavailable) {
		t.Errorf("expected DriverUnavailableError, got %v", err)
	} else if unavailable.Status != domain.DriverStatusOffDuty {
		t.Errorf("expected off_duty status in error, got %s", unavailable.Status)
	} else if unavailable.Inactive {
		t.Error("off-duty driver should not be reported as deactivated")
	}

	if _, err := matching.ManualAssign(ctx, delivery, leg, "too-small"); !errors.Is(err, service.ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}

	if _, err := matching.ManualAssign(ctx, delivery, leg, "line-haul-only"); !errors.Is(err, service.ErrWrongLegType) {
		t.Errorf("expected ErrWrongLegType, got %v", err)
	}
}

func TestManualAssign_InactiveDriverIsReportedAsDeactivated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	dormant := testDriver("dormant", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.0)
	dormant.Active = false
	driverRepo.AddDriver(dormant)

	matching := service.NewMatchingService(driverRepo, nil, nil)

	delivery := &domain.Delivery{
		ID:               "dlv-1",
		PackageSize:      domain.PackageSmall,
		PackageWeightKg:  15,
		OriginHubID:      "hub-a",
		DestinationHubID: "hub-b",
	}
	leg := &domain.Leg{Number: 1, Type: domain.LegTypePickup, Status: domain.LegStatusUnassigned}

	var unavailable *service.DriverUnavailableError
	_, err := matching.ManualAssign(ctx, delivery, leg, "dormant")
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected DriverUnavailableError, got %v", err)
	}
	if !unavailable.Inactive {
		t.Error("inactive driver should be reported as deactivated")
	}
	if !strings.Contains(err.Error(), "deactivated") {
		t.Errorf("error message should name the deactivation, got %q", err.Error())
	}

	got := driverRepo.GetDriver("dormant")
	if got.Status != domain.DriverStatusAvailable || got.CurrentDeliveryID != "" {
		t.Errorf("inactive driver must not be reserved: status=%s delivery=%q", got.Status, got.CurrentDeliveryID)
	}
}

func TestManualAssign_RaceSurfacesFreshStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	driver := testDriver("contested", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.0)
	driverRepo.AddDriver(driver)

	matching := service.NewMatchingService(driverRepo, nil, nil)

	delivery := &domain.Delivery{
		ID:              "dlv-2",
		PackageSize:     domain.PackageSmall,
		PackageWeightKg: 5,
		OriginHubID:     "hub-a",
	}
	leg := &domain.Leg{Number: 1, Type: domain.LegTypePickup, Status: domain.LegStatusUnassigned}

	// Another delivery wins the driver first.
	if _, err := matching.AutoAssign(ctx, "dlv-1", "hub-a", domain.LegTypePickup, domain.PackageSmall, 5); err != nil {
		t.Fatalf("setup reservation failed: %v", err)
	}

	var unavailable *service.DriverUnavailableError
	_, err := matching.ManualAssign(ctx, delivery, leg, "contested")
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected DriverUnavailableError, got %v", err)
	}
	if unavailable.Status != domain.DriverStatusOnDelivery {
		t.Errorf("expected on_delivery in error, got %s", unavailable.Status)
	}
}

func TestReleaseDriver_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(testDriver("d1", "hub-a", domain.DriverTypePickup, domain.VehicleCar, 20, 4.0))

	matching := service.NewMatchingService(driverRepo, nil, nil)

	if _, err := matching.AutoAssign(ctx, "dlv-1", "hub-a", domain.LegTypePickup, domain.PackageSmall, 5); err != nil {
		t.Fatalf("setup reservation failed: %v", err)
	}

	if err := matching.ReleaseDriver(ctx, "d1", "dlv-1", domain.DriverStatusAvailable, repository.ReleaseOutcomeCompleted); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if got := driverRepo.GetDriver("d1"); got.Status != domain.DriverStatusAvailable || got.CompletedDeliveries != 1 {
		t.Errorf("unexpected driver state after release: status=%s completed=%d", got.Status, got.CompletedDeliveries)
	}

	// A replayed release for the same delivery must not bump counters again.
	if err := matching.ReleaseDriver(ctx, "d1", "dlv-1", domain.DriverStatusAvailable, repository.ReleaseOutcomeCompleted); err != nil {
		t.Fatalf("replayed release failed: %v", err)
	}
	if got := driverRepo.GetDriver("d1"); got.CompletedDeliveries != 1 {
		t.Errorf("expected completed counter to stay at 1, got %d", got.CompletedDeliveries)
	}
}

func candidateIDs(drivers []*domain.Driver) []string {
	ids := make([]string, len(drivers))
	for i, d := range drivers {
		ids[i] = d.ID
	}
	return ids
}
