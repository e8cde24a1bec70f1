package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DriverService handles driver registration and duty-status changes.
type DriverService struct {
	driverRepo repository.DriverRepository
	hubRepo    repository.HubRepository
	cacheStore *redis.CacheStore
}

// NewDriverService creates a new DriverService.
func NewDriverService(driverRepo repository.DriverRepository, hubRepo repository.HubRepository, cacheStore *redis.CacheStore) *DriverService {
	return &DriverService{
		driverRepo: driverRepo,
		hubRepo:    hubRepo,
		cacheStore: cacheStore,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	Name        string
	Phone       string
	HubID       string
	Type        domain.DriverType
	VehicleType domain.VehicleType
	PlateNumber string
	MaxWeightKg float64
	VolumeM3    float64
}

// Register adds a new driver bound to a home hub, starting off duty.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	if req.Name == "" || req.PlateNumber == "" {
		return nil, ErrInvalidDriverID
	}
	if req.MaxWeightKg <= 0 {
		return nil, ErrInvalidWeight
	}
	if _, err := s.hubRepo.GetByID(ctx, req.HubID); err != nil {
		return nil, err
	}
	if existing, err := s.driverRepo.GetByPlate(ctx, req.PlateNumber); err == nil && existing != nil {
		return nil, repository.ErrDuplicate
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	driver := &domain.Driver{
		ID:    uuid.New().String(),
		Name:  req.Name,
		Phone: req.Phone,
		HubID: req.HubID,
		Type:  req.Type,
		Vehicle: domain.Vehicle{
			Type:        req.VehicleType,
			PlateNumber: req.PlateNumber,
			MaxWeightKg: req.MaxWeightKg,
			VolumeM3:    req.VolumeM3,
		},
		Status:    domain.DriverStatusOffDuty,
		Active:    true,
		Rating:    5.0,
		CreatedAt: time.Now(),
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// SetStatus moves a driver between duty statuses. Drivers on a delivery
// cannot be moved by hand; the orchestration releases them.
func (s *DriverService) SetStatus(ctx context.Context, driverID string, status domain.DriverStatus) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if status == domain.DriverStatusOnDelivery {
		driver, err := s.driverRepo.GetByID(ctx, driverID)
		if err != nil {
			return nil, err
		}
		return nil, &DriverUnavailableError{DriverID: driverID, Status: driver.Status}
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, status); err != nil {
		return nil, err
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		if status == domain.DriverStatusAvailable {
			_ = s.cacheStore.AddAvailableDriver(ctx, driver.HubID, driver.ID)
		} else {
			_ = s.cacheStore.RemoveAvailableDriver(ctx, driver.HubID, driver.ID)
		}
	}
	return driver, nil
}

// GetAll retrieves all drivers.
func (s *DriverService) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}
