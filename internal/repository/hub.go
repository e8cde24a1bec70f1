package repository

import (
	"context"

	"dispatch/internal/domain"
)

// HubRepository defines the persistence operations for hubs.
// Hubs are provisioned administratively; the engine only reads and is handed
// Create for bootstrap tooling.
type HubRepository interface {
	// Create adds a new hub.
	Create(ctx context.Context, hub *domain.Hub) error

	// GetByID retrieves a hub by ID.
	GetByID(ctx context.Context, id string) (*domain.Hub, error)

	// GetByCode retrieves a hub by its unique short code.
	GetByCode(ctx context.Context, code string) (*domain.Hub, error)

	// GetAll retrieves all hubs.
	GetAll(ctx context.Context) ([]*domain.Hub, error)
}
