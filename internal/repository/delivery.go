package repository

import (
	"context"

	"dispatch/internal/domain"
)

// DeliveryRepository defines the persistence operations for deliveries.
type DeliveryRepository interface {
	// Create persists a new delivery.
	Create(ctx context.Context, delivery *domain.Delivery) error

	// GetByID retrieves a delivery by ID.
	GetByID(ctx context.Context, id string) (*domain.Delivery, error)

	// GetByTrackingNumber retrieves a delivery by tracking number.
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Delivery, error)

	// GetByOrderID retrieves the delivery created for an order.
	GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error)

	// GetAll retrieves all deliveries.
	GetAll(ctx context.Context) ([]*domain.Delivery, error)

	// GetByStatus retrieves deliveries in the given status.
	GetByStatus(ctx context.Context, status domain.DeliveryStatus) ([]*domain.Delivery, error)

	// Update writes the whole aggregate guarded by its version; the stored
	// version must match delivery.Version or ErrConflict is returned. On
	// success delivery.Version is incremented.
	Update(ctx context.Context, delivery *domain.Delivery) error

	// TrackingNumberExists reports whether a tracking number is taken.
	TrackingNumberExists(ctx context.Context, trackingNumber string) (bool, error)
}
