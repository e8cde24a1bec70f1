package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// DeliveryRepository is a PostgreSQL implementation of repository.DeliveryRepository.
//
// The aggregate's nested parts (legs, timeline, milestones, proof) are stored
// as JSONB columns on the deliveries row so the whole aggregate reads and
// writes atomically; the version column guards concurrent updates.
type DeliveryRepository struct {
	q Querier
}

// NewDeliveryRepository creates a new PostgreSQL delivery repository.
func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{q: db}
}

// NewDeliveryRepositoryWithTx creates a delivery repository using a transaction.
func NewDeliveryRepositoryWithTx(tx *sql.Tx) *DeliveryRepository {
	return &DeliveryRepository{q: tx}
}

const deliveryColumns = `id, order_id, buyer_id, seller_id,
	pickup_address, delivery_address, package_size, package_weight_kg,
	origin_hub_id, destination_hub_id, status, legs, timeline,
	tracking_number, milestones, proof, created_at, updated_at, version`

func scanDelivery(row interface{ Scan(...any) error }) (*domain.Delivery, error) {
	var (
		d                                        domain.Delivery
		pickupAddr, deliveryAddr, legs, timeline []byte
		milestones, proof                        []byte
	)
	err := row.Scan(
		&d.ID, &d.OrderID, &d.BuyerID, &d.SellerID,
		&pickupAddr, &deliveryAddr, &d.PackageSize, &d.PackageWeightKg,
		&d.OriginHubID, &d.DestinationHubID, &d.Status, &legs, &timeline,
		&d.TrackingNumber, &milestones, &proof, &d.CreatedAt, &d.UpdatedAt, &d.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(pickupAddr, &d.PickupAddress); err != nil {
		return nil, fmt.Errorf("decode pickup address: %w", err)
	}
	if err := json.Unmarshal(deliveryAddr, &d.DeliveryAddress); err != nil {
		return nil, fmt.Errorf("decode delivery address: %w", err)
	}
	if err := json.Unmarshal(legs, &d.Legs); err != nil {
		return nil, fmt.Errorf("decode legs: %w", err)
	}
	if err := json.Unmarshal(timeline, &d.Timeline); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	if err := json.Unmarshal(milestones, &d.Milestones); err != nil {
		return nil, fmt.Errorf("decode milestones: %w", err)
	}
	if len(proof) > 0 {
		if err := json.Unmarshal(proof, &d.Proof); err != nil {
			return nil, fmt.Errorf("decode proof: %w", err)
		}
	}
	return &d, nil
}

func encodeDelivery(d *domain.Delivery) (pickupAddr, deliveryAddr, legs, timeline, milestones, proof []byte, err error) {
	if pickupAddr, err = json.Marshal(d.PickupAddress); err != nil {
		return
	}
	if deliveryAddr, err = json.Marshal(d.DeliveryAddress); err != nil {
		return
	}
	if legs, err = json.Marshal(d.Legs); err != nil {
		return
	}
	if timeline, err = json.Marshal(d.Timeline); err != nil {
		return
	}
	if milestones, err = json.Marshal(d.Milestones); err != nil {
		return
	}
	if d.Proof != nil {
		proof, err = json.Marshal(d.Proof)
	}
	return
}

// Create persists a new delivery at version 1.
func (r *DeliveryRepository) Create(ctx context.Context, delivery *domain.Delivery) error {
	pickupAddr, deliveryAddr, legs, timeline, milestones, proof, err := encodeDelivery(delivery)
	if err != nil {
		return err
	}

	delivery.Version = 1
	query := `INSERT INTO deliveries
		(id, order_id, buyer_id, seller_id, pickup_address, delivery_address,
		 package_size, package_weight_kg, origin_hub_id, destination_hub_id,
		 status, legs, timeline, tracking_number, milestones, proof,
		 created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err = r.q.ExecContext(ctx, query,
		delivery.ID, delivery.OrderID, delivery.BuyerID, delivery.SellerID,
		pickupAddr, deliveryAddr, delivery.PackageSize, delivery.PackageWeightKg,
		delivery.OriginHubID, delivery.DestinationHubID,
		delivery.Status, legs, timeline, delivery.TrackingNumber, milestones, proof,
		delivery.CreatedAt, delivery.UpdatedAt, delivery.Version,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves a delivery by ID.
func (r *DeliveryRepository) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries WHERE id = $1`, deliveryColumns)
	return r.getOne(ctx, query, id)
}

// GetByTrackingNumber retrieves a delivery by tracking number.
func (r *DeliveryRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries WHERE tracking_number = $1`, deliveryColumns)
	return r.getOne(ctx, query, trackingNumber)
}

// GetByOrderID retrieves the delivery created for an order.
func (r *DeliveryRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries WHERE order_id = $1`, deliveryColumns)
	return r.getOne(ctx, query, orderID)
}

func (r *DeliveryRepository) getOne(ctx context.Context, query string, arg any) (*domain.Delivery, error) {
	delivery, err := scanDelivery(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return delivery, nil
}

// GetAll retrieves all deliveries.
func (r *DeliveryRepository) GetAll(ctx context.Context) ([]*domain.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries ORDER BY created_at DESC`, deliveryColumns)
	return r.getMany(ctx, query)
}

// GetByStatus retrieves deliveries in the given status.
func (r *DeliveryRepository) GetByStatus(ctx context.Context, status domain.DeliveryStatus) ([]*domain.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries WHERE status = $1 ORDER BY created_at`, deliveryColumns)
	return r.getMany(ctx, query, status)
}

func (r *DeliveryRepository) getMany(ctx context.Context, query string, args ...any) ([]*domain.Delivery, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []*domain.Delivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries, rows.Err()
}

// Update writes the whole aggregate guarded by its version. A stale version
// affects zero rows and surfaces as ErrConflict so the caller can retry
// against fresh state.
func (r *DeliveryRepository) Update(ctx context.Context, delivery *domain.Delivery) error {
	_, _, legs, timeline, milestones, proof, err := encodeDelivery(delivery)
	if err != nil {
		return err
	}

	query := `UPDATE deliveries
		SET status = $1, legs = $2, timeline = $3, milestones = $4, proof = $5,
		    updated_at = $6, version = version + 1
		WHERE id = $7 AND version = $8`

	result, err := r.q.ExecContext(ctx, query,
		delivery.Status, legs, timeline, milestones, proof,
		delivery.UpdatedAt, delivery.ID, delivery.Version,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, delivery.ID); err != nil {
			return err
		}
		return repository.ErrConflict
	}

	delivery.Version++
	return nil
}

// TrackingNumberExists reports whether a tracking number is taken.
func (r *DeliveryRepository) TrackingNumberExists(ctx context.Context, trackingNumber string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM deliveries WHERE tracking_number = $1)`
	if err := r.q.QueryRowContext(ctx, query, trackingNumber).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
