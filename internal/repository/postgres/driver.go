package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `id, COALESCE(name, ''), COALESCE(phone, ''), hub_id, driver_type,
	vehicle_type, plate_number, max_weight_kg, COALESCE(volume_m3, 0),
	status, active, rating, completed_deliveries, cancelled_deliveries,
	COALESCE(current_delivery_id, ''), created_at`

func scanDriver(row interface{ Scan(...any) error }) (*domain.Driver, error) {
	var d domain.Driver
	err := row.Scan(
		&d.ID, &d.Name, &d.Phone, &d.HubID, &d.Type,
		&d.Vehicle.Type, &d.Vehicle.PlateNumber, &d.Vehicle.MaxWeightKg, &d.Vehicle.VolumeM3,
		&d.Status, &d.Active, &d.Rating, &d.CompletedDeliveries, &d.CancelledDeliveries,
		&d.CurrentDeliveryID, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `INSERT INTO drivers
		(id, name, phone, hub_id, driver_type, vehicle_type, plate_number,
		 max_weight_kg, volume_m3, status, active, rating,
		 completed_deliveries, cancelled_deliveries, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.ExecContext(ctx, query,
		driver.ID, driver.Name, driver.Phone, driver.HubID, driver.Type,
		driver.Vehicle.Type, driver.Vehicle.PlateNumber,
		driver.Vehicle.MaxWeightKg, driver.Vehicle.VolumeM3,
		driver.Status, driver.Active, driver.Rating,
		driver.CompletedDeliveries, driver.CancelledDeliveries, driver.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := fmt.Sprintf(`SELECT %s FROM drivers WHERE id = $1`, driverColumns)
	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// GetByPlate retrieves a driver by vehicle plate number.
func (r *DriverRepository) GetByPlate(ctx context.Context, plate string) (*domain.Driver, error) {
	query := fmt.Sprintf(`SELECT %s FROM drivers WHERE plate_number = $1`, driverColumns)
	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, plate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// GetAll retrieves all drivers.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	query := fmt.Sprintf(`SELECT %s FROM drivers ORDER BY id`, driverColumns)
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// FindAvailable returns ranked candidates for a leg assignment.
func (r *DriverRepository) FindAvailable(ctx context.Context, filter repository.DriverFilter) ([]*domain.Driver, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf(`SELECT %s FROM drivers
		WHERE hub_id = $1
		  AND status = $2
		  AND active
		  AND max_weight_kg >= $3
		  AND (driver_type = $4 OR driver_type = $5)
		  AND ($6::text[] IS NULL OR vehicle_type = ANY($6))
		ORDER BY rating DESC, completed_deliveries DESC
		LIMIT $7`, driverColumns)

	var vehicleTypes any
	if len(filter.VehicleTypes) > 0 {
		types := make([]string, len(filter.VehicleTypes))
		for i, t := range filter.VehicleTypes {
			types[i] = string(t)
		}
		vehicleTypes = pq.Array(types)
	}

	rows, err := r.q.QueryContext(ctx, query,
		filter.HubID, domain.DriverStatusAvailable, filter.MinCapacity,
		filter.LegType, domain.DriverTypeAllRound, vehicleTypes, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// Reserve atomically marks a driver on_delivery. The status guard in the
// WHERE clause is what resolves concurrent reservation races: only one
// caller's UPDATE can observe status = available.
func (r *DriverRepository) Reserve(ctx context.Context, driverID, deliveryID string) error {
	query := `UPDATE drivers
		SET status = $1, current_delivery_id = $2
		WHERE id = $3 AND status = $4 AND active`

	result, err := r.q.ExecContext(ctx, query,
		domain.DriverStatusOnDelivery, deliveryID, driverID, domain.DriverStatusAvailable)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Driver missing, inactive, or no longer available.
		if _, err := r.GetByID(ctx, driverID); err != nil {
			return err
		}
		return repository.ErrConflict
	}
	return nil
}

// Release frees a driver bound to the given delivery. Zero rows affected
// means the driver was already released; that is a no-op, not an error.
func (r *DriverRepository) Release(ctx context.Context, driverID, deliveryID string, nextStatus domain.DriverStatus, outcome repository.ReleaseOutcome) error {
	var completed, cancelled int
	switch outcome {
	case repository.ReleaseOutcomeCompleted:
		completed = 1
	case repository.ReleaseOutcomeCancelled:
		cancelled = 1
	}

	query := `UPDATE drivers
		SET status = $1,
		    current_delivery_id = NULL,
		    completed_deliveries = completed_deliveries + $2,
		    cancelled_deliveries = cancelled_deliveries + $3
		WHERE id = $4 AND current_delivery_id = $5`

	_, err := r.q.ExecContext(ctx, query, nextStatus, completed, cancelled, driverID, deliveryID)
	return err
}

// UpdateStatus updates the status of a driver that is not on a delivery.
func (r *DriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	query := `UPDATE drivers SET status = $1 WHERE id = $2 AND current_delivery_id IS NULL`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrConflict
	}
	return nil
}
