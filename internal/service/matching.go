package service

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const (
	maxCandidates = 10
	driverLockTTL = 10 * time.Second
)

// MatchingService ranks eligible drivers for a leg and performs the atomic
// reservation that makes a driver exclusive to one delivery.
type MatchingService struct {
	driverRepo repository.DriverRepository
	lockStore  redis.LockStoreInterface
	cacheStore *redis.CacheStore
}

// NewMatchingService creates a new MatchingService. lockStore and cacheStore
// may be nil; the database reservation guard alone is sufficient for
// correctness, the redis layers just cut contention.
func NewMatchingService(
	driverRepo repository.DriverRepository,
	lockStore redis.LockStoreInterface,
	cacheStore *redis.CacheStore,
) *MatchingService {
	return &MatchingService{
		driverRepo: driverRepo,
		lockStore:  lockStore,
		cacheStore: cacheStore,
	}
}

// MatchingServiceInterface defines the matching contract.
// This interface allows for testing with mock implementations.
type MatchingServiceInterface interface {
	FindCandidates(ctx context.Context, hubID string, legType domain.LegType, weightKg float64, size domain.PackageSize) ([]*domain.Driver, error)
	AutoAssign(ctx context.Context, deliveryID, hubID string, legType domain.LegType, size domain.PackageSize, weightKg float64) (*domain.Driver, error)
	ManualAssign(ctx context.Context, delivery *domain.Delivery, leg *domain.Leg, driverID string) (*domain.Driver, error)
	ReleaseDriver(ctx context.Context, driverID, deliveryID string, nextStatus domain.DriverStatus, outcome repository.ReleaseOutcome) error
}

// Ensure MatchingService implements MatchingServiceInterface.
var _ MatchingServiceInterface = (*MatchingService)(nil)

// FindCandidates returns up to 10 eligible drivers at the hub for the leg,
// filtered by capacity and the vehicle-type allowlist for the package size,
// ranked by rating then completed deliveries.
func (s *MatchingService) FindCandidates(ctx context.Context, hubID string, legType domain.LegType, weightKg float64, size domain.PackageSize) ([]*domain.Driver, error) {
	return s.driverRepo.FindAvailable(ctx, repository.DriverFilter{
		HubID:        hubID,
		LegType:      legType,
		MinCapacity:  weightKg,
		VehicleTypes: domain.VehicleTypesForSize(size),
		Limit:        maxCandidates,
	})
}

// AutoAssign reserves the best-ranked eligible driver for the delivery.
// Losing the reservation race to a concurrent caller moves on to the next
// candidate; running out of candidates returns ErrNoDriverAvailable.
func (s *MatchingService) AutoAssign(ctx context.Context, deliveryID, hubID string, legType domain.LegType, size domain.PackageSize, weightKg float64) (*domain.Driver, error) {
	candidates, err := s.FindCandidates(ctx, hubID, legType, weightKg, size)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoDriverAvailable
	}

	for _, candidate := range candidates {
		driver, err := s.tryReserve(ctx, candidate, deliveryID)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// Another caller won this driver; try the next one.
				continue
			}
			return nil, err
		}
		return driver, nil
	}

	return nil, ErrNoDriverAvailable
}

// ManualAssign validates an operator-chosen driver against the leg and, if
// every check passes, performs the same atomic reservation as auto-assign.
// Checks run in a fixed order: existence, hub, availability, capacity.
func (s *MatchingService) ManualAssign(ctx context.Context, delivery *domain.Delivery, leg *domain.Leg, driverID string) (*domain.Driver, error) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	if driver.HubID != RequiredHubForLeg(delivery, leg) {
		return nil, ErrWrongHub
	}
	if driver.Status != domain.DriverStatusAvailable || !driver.Active {
		return nil, &DriverUnavailableError{DriverID: driver.ID, Status: driver.Status, Inactive: !driver.Active}
	}
	if driver.Vehicle.MaxWeightKg < delivery.PackageWeightKg {
		return nil, ErrCapacityExceeded
	}
	if !driver.CanWorkLeg(leg.Type) {
		return nil, ErrWrongLegType
	}

	reserved, err := s.tryReserve(ctx, driver, delivery.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost the race between the check and the write; surface the
			// driver's fresh status.
			fresh, getErr := s.driverRepo.GetByID(ctx, driverID)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &DriverUnavailableError{DriverID: fresh.ID, Status: fresh.Status, Inactive: !fresh.Active}
		}
		return nil, err
	}
	return reserved, nil
}

// tryReserve takes the driver lock and performs the conditional reservation
// write. Lock contention is reported as ErrConflict, same as a lost write.
func (s *MatchingService) tryReserve(ctx context.Context, candidate *domain.Driver, deliveryID string) (*domain.Driver, error) {
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireDriverLock(ctx, candidate.ID, driverLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, repository.ErrConflict
		}
		defer func() { _ = s.lockStore.ReleaseDriverLock(ctx, candidate.ID) }()
	}

	// The WHERE status = available guard inside Reserve is the actual
	// mutual-exclusion point; the lock above only reduces contention.
	if err := s.driverRepo.Reserve(ctx, candidate.ID, deliveryID); err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.RemoveAvailableDriver(ctx, candidate.HubID, candidate.ID)
	}

	reserved := *candidate
	reserved.Status = domain.DriverStatusOnDelivery
	reserved.CurrentDeliveryID = deliveryID
	return &reserved, nil
}

// ReleaseDriver frees a driver bound to the delivery. Idempotent: releasing
// an already-released driver is a no-op.
func (s *MatchingService) ReleaseDriver(ctx context.Context, driverID, deliveryID string, nextStatus domain.DriverStatus, outcome repository.ReleaseOutcome) error {
	if err := s.driverRepo.Release(ctx, driverID, deliveryID, nextStatus, outcome); err != nil {
		return err
	}

	if s.cacheStore != nil && nextStatus == domain.DriverStatusAvailable {
		if driver, err := s.driverRepo.GetByID(ctx, driverID); err == nil {
			_ = s.cacheStore.AddAvailableDriver(ctx, driver.HubID, driverID)
		}
	}
	return nil
}
