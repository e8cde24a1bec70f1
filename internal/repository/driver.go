package repository

import (
	"context"

	"dispatch/internal/domain"
)

// DriverFilter narrows the candidate search for a leg assignment.
type DriverFilter struct {
	HubID        string
	LegType      domain.LegType
	MinCapacity  float64
	VehicleTypes []domain.VehicleType // empty means any
	Limit        int
}

// ReleaseOutcome tells Release which counter to bump, if any.
type ReleaseOutcome string

const (
	ReleaseOutcomeNone      ReleaseOutcome = ""
	ReleaseOutcomeCompleted ReleaseOutcome = "completed"
	ReleaseOutcomeCancelled ReleaseOutcome = "cancelled"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByPlate retrieves a driver by vehicle plate number.
	GetByPlate(ctx context.Context, plate string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// FindAvailable returns available, active drivers at a hub that can work
	// the leg type and carry the weight, ranked by rating then completed
	// deliveries, both descending.
	FindAvailable(ctx context.Context, filter DriverFilter) ([]*domain.Driver, error)

	// Reserve atomically marks a driver on_delivery and binds it to a
	// delivery. The write succeeds only if the driver is still available at
	// write time; a lost race returns ErrConflict.
	Reserve(ctx context.Context, driverID, deliveryID string) error

	// Release atomically frees a driver bound to the given delivery, setting
	// nextStatus and bumping the counter named by outcome. Releasing a driver
	// that is no longer bound to the delivery is a no-op.
	Release(ctx context.Context, driverID, deliveryID string, nextStatus domain.DriverStatus, outcome ReleaseOutcome) error

	// UpdateStatus updates the status of a driver that is not on a delivery.
	UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error
}
