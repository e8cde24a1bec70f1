package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
// Reserve and Release perform their checks and writes under one mutex, so
// concurrent callers see the same atomicity as the conditional SQL updates.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount  int32
	ReserveCallCount int32
	ReleaseCallCount int32

	// Error injection
	CreateError        error
	FindAvailableError error
	ReserveError       error
	ReleaseError       error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetByPlate(ctx context.Context, plate string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drivers {
		if d.Vehicle.PlateNumber == plate {
			copy := *d
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		copy := *d
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockDriverRepository) FindAvailable(ctx context.Context, filter repository.DriverFilter) ([]*domain.Driver, error) {
	if m.FindAvailableError != nil {
		return nil, m.FindAvailableError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*domain.Driver, 0)
	for _, d := range m.drivers {
		if d.HubID != filter.HubID || d.Status != domain.DriverStatusAvailable || !d.Active {
			continue
		}
		if !d.CanWorkLeg(filter.LegType) {
			continue
		}
		if d.Vehicle.MaxWeightKg < filter.MinCapacity {
			continue
		}
		if len(filter.VehicleTypes) > 0 && !containsVehicleType(filter.VehicleTypes, d.Vehicle.Type) {
			continue
		}
		copy := *d
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Rating != result[j].Rating {
			return result[i].Rating > result[j].Rating
		}
		return result[i].CompletedDeliveries > result[j].CompletedDeliveries
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockDriverRepository) Reserve(ctx context.Context, driverID, deliveryID string) error {
	atomic.AddInt32(&m.ReserveCallCount, 1)
	if m.ReserveError != nil {
		return m.ReserveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[driverID]
	if !ok {
		return repository.ErrNotFound
	}
	// Conditional write: only an available, active driver can be taken.
	if driver.Status != domain.DriverStatusAvailable || !driver.Active {
		return repository.ErrConflict
	}
	driver.Status = domain.DriverStatusOnDelivery
	driver.CurrentDeliveryID = deliveryID
	return nil
}

func (m *MockDriverRepository) Release(ctx context.Context, driverID, deliveryID string, nextStatus domain.DriverStatus, outcome repository.ReleaseOutcome) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	if m.ReleaseError != nil {
		return m.ReleaseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[driverID]
	if !ok {
		return repository.ErrNotFound
	}
	// No-op when the driver is no longer bound to this delivery.
	if driver.CurrentDeliveryID != deliveryID {
		return nil
	}
	driver.Status = nextStatus
	driver.CurrentDeliveryID = ""
	switch outcome {
	case repository.ReleaseOutcomeCompleted:
		driver.CompletedDeliveries++
	case repository.ReleaseOutcomeCancelled:
		driver.CancelledDeliveries++
	}
	return nil
}

func (m *MockDriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	if driver.CurrentDeliveryID != "" {
		return repository.ErrConflict
	}
	driver.Status = status
	return nil
}

// GetDriver returns driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

func containsVehicleType(types []domain.VehicleType, t domain.VehicleType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK DELIVERY REPOSITORY
// ──────────────────────────────────────────────

// MockDeliveryRepository is a mock implementation of DeliveryRepository.
// Update enforces the same version guard as the real store.
type MockDeliveryRepository struct {
	mu         sync.RWMutex
	deliveries map[string]*domain.Delivery

	// Counters
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error

	// ForceTrackingCollision makes every tracking number look taken.
	ForceTrackingCollision bool

	// ForcedConflicts makes the next N updates fail with ErrConflict.
	ForcedConflicts int32
}

// NewMockDeliveryRepository creates a new mock delivery repository.
func NewMockDeliveryRepository() *MockDeliveryRepository {
	return &MockDeliveryRepository{
		deliveries: make(map[string]*domain.Delivery),
	}
}

// AddDelivery adds a delivery to the mock repository.
func (m *MockDeliveryRepository) AddDelivery(delivery *domain.Delivery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if delivery.Version == 0 {
		delivery.Version = 1
	}
	m.deliveries[delivery.ID] = cloneDelivery(delivery)
}

func (m *MockDeliveryRepository) Create(ctx context.Context, delivery *domain.Delivery) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deliveries[delivery.ID]; ok {
		return repository.ErrDuplicate
	}
	delivery.Version = 1
	m.deliveries[delivery.ID] = cloneDelivery(delivery)
	return nil
}

func (m *MockDeliveryRepository) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	delivery, ok := m.deliveries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneDelivery(delivery), nil
}

func (m *MockDeliveryRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.deliveries {
		if d.TrackingNumber == trackingNumber {
			return cloneDelivery(d), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDeliveryRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.deliveries {
		if d.OrderID == orderID {
			return cloneDelivery(d), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDeliveryRepository) GetAll(ctx context.Context) ([]*domain.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Delivery, 0, len(m.deliveries))
	for _, d := range m.deliveries {
		result = append(result, cloneDelivery(d))
	}
	return result, nil
}

func (m *MockDeliveryRepository) GetByStatus(ctx context.Context, status domain.DeliveryStatus) ([]*domain.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Delivery, 0)
	for _, d := range m.deliveries {
		if d.Status == status {
			result = append(result, cloneDelivery(d))
		}
	}
	return result, nil
}

func (m *MockDeliveryRepository) Update(ctx context.Context, delivery *domain.Delivery) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if atomic.AddInt32(&m.ForcedConflicts, -1) >= 0 {
		return repository.ErrConflict
	}
	atomic.StoreInt32(&m.ForcedConflicts, 0)
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.deliveries[delivery.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != delivery.Version {
		return repository.ErrConflict
	}
	delivery.Version++
	m.deliveries[delivery.ID] = cloneDelivery(delivery)
	return nil
}

func (m *MockDeliveryRepository) TrackingNumberExists(ctx context.Context, trackingNumber string) (bool, error) {
	if m.ForceTrackingCollision {
		return true, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.deliveries {
		if d.TrackingNumber == trackingNumber {
			return true, nil
		}
	}
	return false, nil
}

// GetDelivery returns the stored delivery for test assertions.
func (m *MockDeliveryRepository) GetDelivery(id string) *domain.Delivery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deliveries[id]
}

// CountDeliveries returns the number of deliveries.
func (m *MockDeliveryRepository) CountDeliveries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.deliveries)
}

// cloneDelivery deep-copies the aggregate so a caller's mutations never leak
// into the store before Update, matching real persistence semantics.
func cloneDelivery(d *domain.Delivery) *domain.Delivery {
	out := *d
	out.Legs = make([]domain.Leg, len(d.Legs))
	for i, leg := range d.Legs {
		out.Legs[i] = leg
		if leg.Driver != nil {
			snapshot := *leg.Driver
			out.Legs[i].Driver = &snapshot
		}
		if leg.AssignedAt != nil {
			at := *leg.AssignedAt
			out.Legs[i].AssignedAt = &at
		}
	}
	out.Timeline = make([]domain.TimelineEntry, len(d.Timeline))
	copy(out.Timeline, d.Timeline)
	if d.Proof != nil {
		proof := *d.Proof
		out.Proof = &proof
	}
	return &out
}

// ──────────────────────────────────────────────
// MOCK HUB REPOSITORY
// ──────────────────────────────────────────────

// MockHubRepository is a mock implementation of HubRepository.
type MockHubRepository struct {
	mu   sync.RWMutex
	hubs map[string]*domain.Hub

	// Error injection
	GetAllError error
}

// NewMockHubRepository creates a new mock hub repository.
func NewMockHubRepository() *MockHubRepository {
	return &MockHubRepository{
		hubs: make(map[string]*domain.Hub),
	}
}

// AddHub adds a hub to the mock repository.
func (m *MockHubRepository) AddHub(hub *domain.Hub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hubs[hub.ID] = hub
}

func (m *MockHubRepository) Create(ctx context.Context, hub *domain.Hub) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hubs[hub.ID]; ok {
		return repository.ErrDuplicate
	}
	m.hubs[hub.ID] = hub
	return nil
}

func (m *MockHubRepository) GetByID(ctx context.Context, id string) (*domain.Hub, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hub, ok := m.hubs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *hub
	return &copy, nil
}

func (m *MockHubRepository) GetByCode(ctx context.Context, code string) (*domain.Hub, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.hubs {
		if h.Code == code {
			copy := *h
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockHubRepository) GetAll(ctx context.Context) ([]*domain.Hub, error) {
	if m.GetAllError != nil {
		return nil, m.GetAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Hub, 0, len(m.hubs))
	for _, h := range m.hubs {
		copy := *h
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) acquire(key string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) release(key string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	return m.acquire("lock:driver:"+driverID, ttl)
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverID string) error {
	return m.release("lock:driver:" + driverID)
}

func (m *MockLockStore) AcquireDeliveryLock(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	return m.acquire("lock:delivery:"+deliveryID, ttl)
}

func (m *MockLockStore) ReleaseDeliveryLock(ctx context.Context, deliveryID string) error {
	return m.release("lock:delivery:" + deliveryID)
}

// IsLocked checks if a key is locked (for test assertions).
func (m *MockLockStore) IsLocked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[key]
	return exists && time.Now().Before(expiry)
}

// ClearLocks clears all locks (for test cleanup).
func (m *MockLockStore) ClearLocks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = make(map[string]time.Time)
}

// ──────────────────────────────────────────────
// RECORDING COLLABORATORS
// ──────────────────────────────────────────────

// RecordingOrderSync captures order status sync calls for assertions.
type RecordingOrderSync struct {
	mu    sync.Mutex
	calls []OrderSyncCall

	// Error injection
	SyncError error
}

// OrderSyncCall is one recorded sync invocation.
type OrderSyncCall struct {
	OrderID string
	Status  domain.OrderStatus
}

// NewRecordingOrderSync creates a new recording order sync.
func NewRecordingOrderSync() *RecordingOrderSync {
	return &RecordingOrderSync{}
}

func (r *RecordingOrderSync) SyncOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	if r.SyncError != nil {
		return r.SyncError
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, OrderSyncCall{OrderID: orderID, Status: status})
	return nil
}

// Calls returns the recorded sync calls.
func (r *RecordingOrderSync) Calls() []OrderSyncCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OrderSyncCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// RecordingPublisher captures published status-change events.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

// PublishedEvent is one recorded event.
type PublishedEvent struct {
	DeliveryID string
	Status     domain.DeliveryStatus
	Previous   domain.DeliveryStatus
}

// NewRecordingPublisher creates a new recording publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (r *RecordingPublisher) PublishStatusChanged(ctx context.Context, delivery *domain.Delivery, previous domain.DeliveryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, PublishedEvent{
		DeliveryID: delivery.ID,
		Status:     delivery.Status,
		Previous:   previous,
	})
	return nil
}

// Events returns the recorded events.
func (r *RecordingPublisher) Events() []PublishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PublishedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
