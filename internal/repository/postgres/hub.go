package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// HubRepository is a PostgreSQL implementation of repository.HubRepository.
type HubRepository struct {
	q Querier
}

// NewHubRepository creates a new PostgreSQL hub repository.
func NewHubRepository(db *sql.DB) *HubRepository {
	return &HubRepository{q: db}
}

const hubColumns = `id, name, code, hub_type, coverage, connected_hubs, daily_capacity, created_at`

func scanHub(row interface{ Scan(...any) error }) (*domain.Hub, error) {
	var h domain.Hub
	err := row.Scan(
		&h.ID, &h.Name, &h.Code, &h.Type,
		pq.Array(&h.Coverage), pq.Array(&h.ConnectedHubs),
		&h.DailyCapacity, &h.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Create adds a new hub.
func (r *HubRepository) Create(ctx context.Context, hub *domain.Hub) error {
	query := `INSERT INTO hubs
		(id, name, code, hub_type, coverage, connected_hubs, daily_capacity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.ExecContext(ctx, query,
		hub.ID, hub.Name, hub.Code, hub.Type,
		pq.Array(hub.Coverage), pq.Array(hub.ConnectedHubs),
		hub.DailyCapacity, hub.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves a hub by ID.
func (r *HubRepository) GetByID(ctx context.Context, id string) (*domain.Hub, error) {
	query := `SELECT ` + hubColumns + ` FROM hubs WHERE id = $1`
	hub, err := scanHub(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return hub, nil
}

// GetByCode retrieves a hub by its unique short code.
func (r *HubRepository) GetByCode(ctx context.Context, code string) (*domain.Hub, error) {
	query := `SELECT ` + hubColumns + ` FROM hubs WHERE code = $1`
	hub, err := scanHub(r.q.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return hub, nil
}

// GetAll retrieves all hubs.
func (r *HubRepository) GetAll(ctx context.Context) ([]*domain.Hub, error) {
	query := `SELECT ` + hubColumns + ` FROM hubs ORDER BY code`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hubs []*domain.Hub
	for rows.Next() {
		hub, err := scanHub(rows)
		if err != nil {
			return nil, err
		}
		hubs = append(hubs, hub)
	}
	return hubs, rows.Err()
}
