package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const (
	deliveryLockTTL     = 30 * time.Second
	statusUpdateRetries = 3
)

// EventPublisher emits delivery lifecycle events. Implementations are
// best-effort collaborators; errors are logged, never propagated.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, delivery *domain.Delivery, previous domain.DeliveryStatus) error
}

// DeliveryService is the orchestration API: it creates deliveries, advances
// their status through the transition graph, and assigns drivers to legs.
// Every mutation reads the aggregate, validates, writes the new state and
// appends the timeline entry as one unit.
type DeliveryService struct {
	deliveryRepo repository.DeliveryRepository
	hubRepo      repository.HubRepository
	routing      *RoutingService
	matching     MatchingServiceInterface
	tracking     *TrackingGenerator
	notification *NotificationService
	orderSync    OrderStatusSync
	publisher    EventPublisher
	lockStore    redis.LockStoreInterface
	cacheStore   *redis.CacheStore
}

// NewDeliveryService creates a new DeliveryService. notification, orderSync,
// publisher, lockStore and cacheStore may be nil.
func NewDeliveryService(
	deliveryRepo repository.DeliveryRepository,
	hubRepo repository.HubRepository,
	routing *RoutingService,
	matching MatchingServiceInterface,
	tracking *TrackingGenerator,
	notification *NotificationService,
	orderSync OrderStatusSync,
	publisher EventPublisher,
	lockStore redis.LockStoreInterface,
	cacheStore *redis.CacheStore,
) *DeliveryService {
	return &DeliveryService{
		deliveryRepo: deliveryRepo,
		hubRepo:      hubRepo,
		routing:      routing,
		matching:     matching,
		tracking:     tracking,
		notification: notification,
		orderSync:    orderSync,
		publisher:    publisher,
		lockStore:    lockStore,
		cacheStore:   cacheStore,
	}
}

// CreateDeliveryRequest contains the parameters for creating a delivery.
type CreateDeliveryRequest struct {
	OrderID         string
	BuyerID         string
	SellerID        string
	PickupAddress   domain.Address
	DeliveryAddress domain.Address
	PackageSize     domain.PackageSize
	PackageWeightKg float64
}

// CreateDelivery plans a new delivery for a paid order: resolves origin and
// destination hubs from the addresses, plans the legs, mints a tracking
// number and persists the aggregate in pending state.
func (s *DeliveryService) CreateDelivery(ctx context.Context, req CreateDeliveryRequest) (*domain.Delivery, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	if existing, err := s.deliveryRepo.GetByOrderID(ctx, req.OrderID); err == nil && existing != nil {
		return nil, ErrOrderAlreadyHasDelivery
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	originHub, err := s.routing.ResolveHub(ctx, req.PickupAddress)
	if err != nil {
		return nil, err
	}
	destinationHub, err := s.routing.ResolveHub(ctx, req.DeliveryAddress)
	if err != nil {
		return nil, err
	}

	trackingNumber, err := s.tracking.Generate(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	delivery := &domain.Delivery{
		ID:               uuid.New().String(),
		OrderID:          req.OrderID,
		BuyerID:          req.BuyerID,
		SellerID:         req.SellerID,
		PickupAddress:    req.PickupAddress,
		DeliveryAddress:  req.DeliveryAddress,
		PackageSize:      req.PackageSize,
		PackageWeightKg:  req.PackageWeightKg,
		OriginHubID:      originHub.ID,
		DestinationHubID: destinationHub.ID,
		Status:           domain.StatusPending,
		Legs:             s.routing.PlanLegs(originHub, destinationHub, req.PickupAddress, req.DeliveryAddress),
		TrackingNumber:   trackingNumber,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	delivery.AppendTimeline(domain.StatusPending, now, "", "delivery created", "system")

	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		return nil, err
	}

	if s.notification != nil {
		_ = s.notification.NotifyDeliveryCreated(ctx, delivery)
	}

	return delivery, nil
}

func validateCreateRequest(req CreateDeliveryRequest) error {
	if req.OrderID == "" {
		return ErrInvalidOrderID
	}
	if req.BuyerID == "" {
		return ErrInvalidBuyerID
	}
	if req.SellerID == "" {
		return ErrInvalidSellerID
	}
	if req.PickupAddress.City == "" || req.DeliveryAddress.City == "" {
		return ErrInvalidAddress
	}
	if req.PackageWeightKg <= 0 {
		return ErrInvalidWeight
	}
	if _, err := domain.ValidatePackageSize(string(req.PackageSize)); err != nil {
		return err
	}
	return nil
}

// UpdateStatusRequest contains the parameters for a status advance.
type UpdateStatusRequest struct {
	DeliveryID string
	Status     domain.DeliveryStatus
	Location   string
	Notes      string
	Actor      string
	Proof      *domain.ProofOfDelivery // only honored on delivered
}

// UpdateStatusResult is the outcome of a status advance.
type UpdateStatusResult struct {
	Delivery    *domain.Delivery
	OrderStatus domain.OrderStatus // "" when no category applies
	NoOp        bool               // requested status equalled current
}

// UpdateStatus advances a delivery through the transition graph. The write
// is guarded by the aggregate version; losing that race is retried a bounded
// number of times against fresh state before surfacing as a conflict.
func (s *DeliveryService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*UpdateStatusResult, error) {
	if req.DeliveryID == "" {
		return nil, ErrInvalidDeliveryID
	}
	if _, err := domain.ValidateDeliveryStatus(string(req.Status)); err != nil {
		return nil, err
	}

	unlock, err := s.lockDelivery(ctx, req.DeliveryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < statusUpdateRetries; attempt++ {
		delivery, err := s.deliveryRepo.GetByID(ctx, req.DeliveryID)
		if err != nil {
			return nil, err
		}

		// Idempotent retry: same status is accepted without touching the
		// aggregate.
		if delivery.Status == req.Status {
			return &UpdateStatusResult{
				Delivery:    delivery,
				OrderStatus: domain.DerivedOrderStatus(delivery.Status),
				NoOp:        true,
			}, nil
		}

		if !domain.CanTransition(delivery.Status, req.Status) {
			return nil, &InvalidTransitionError{
				Current:   delivery.Status,
				Requested: req.Status,
				Allowed:   domain.AllowedNext(delivery.Status),
			}
		}

		previous := delivery.Status
		previousOrderStatus := domain.DerivedOrderStatus(previous)
		now := time.Now()

		release, err := s.applyStatus(delivery, req.Status, now)
		if err != nil {
			return nil, err
		}
		if req.Status == domain.StatusDelivered && req.Proof != nil {
			proof := *req.Proof
			proof.RecordedAt = now
			delivery.Proof = &proof
		}

		delivery.Status = req.Status
		delivery.UpdatedAt = now
		actor := req.Actor
		if actor == "" {
			actor = "system"
		}
		delivery.AppendTimeline(req.Status, now, req.Location, req.Notes, actor)

		if err := s.deliveryRepo.Update(ctx, delivery); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		if release != nil {
			s.releaseDriver(ctx, release.driverID, delivery.ID, release.nextStatus, release.outcome)
		}
		s.afterStatusChange(ctx, delivery, previous, previousOrderStatus)

		return &UpdateStatusResult{
			Delivery:    delivery,
			OrderStatus: domain.DerivedOrderStatus(delivery.Status),
		}, nil
	}

	return nil, lastErr
}

// driverRelease is a driver-directory side effect implied by a status
// advance. It is executed only after the aggregate write commits; a write
// that loses every retry must not free the driver.
type driverRelease struct {
	driverID   string
	nextStatus domain.DriverStatus
	outcome    repository.ReleaseOutcome
}

// applyStatus performs the leg progression and milestone stamping that
// accompany a status advance, and returns the driver release the advance
// implies, if any.
func (s *DeliveryService) applyStatus(d *domain.Delivery, status domain.DeliveryStatus, now time.Time) (*driverRelease, error) {
	switch status {
	case domain.StatusPickupAssigned:
		leg := d.LegByType(domain.LegTypePickup)
		if leg == nil || leg.Driver == nil {
			return nil, ErrLegUnassigned
		}
		d.Milestones.AssignedAt = &now

	case domain.StatusPickupInProgress:
		s.setLegStatus(d, domain.LegTypePickup, domain.LegStatusInProgress)

	case domain.StatusPickedUp:
		d.Milestones.PickedUpAt = &now

	case domain.StatusAtOriginHub:
		d.Milestones.AtOriginHubAt = &now
		return completeLeg(d, domain.LegTypePickup, domain.DriverStatusAvailable, repository.ReleaseOutcomeNone), nil

	case domain.StatusSorted:
		// Hub-side event; nothing to progress.

	case domain.StatusLineHaulInTransit:
		leg := d.LegByType(domain.LegTypeLineHaul)
		if leg == nil || leg.Driver == nil {
			return nil, ErrLegUnassigned
		}
		d.Milestones.LineHaulStartedAt = &now
		s.setLegStatus(d, domain.LegTypeLineHaul, domain.LegStatusInProgress)

	case domain.StatusAtDestinationHub:
		d.Milestones.AtDestinationHubAt = &now
		return completeLeg(d, domain.LegTypeLineHaul, domain.DriverStatusAvailable, repository.ReleaseOutcomeNone), nil

	case domain.StatusDeliveryAssigned:
		leg := d.LegByType(domain.LegTypeDelivery)
		if leg == nil || leg.Driver == nil {
			return nil, ErrLegUnassigned
		}

	case domain.StatusOutForDelivery:
		d.Milestones.OutForDeliveryAt = &now
		s.setLegStatus(d, domain.LegTypeDelivery, domain.LegStatusInProgress)

	case domain.StatusDelivered:
		d.Milestones.ActualDeliveryTime = &now
		return completeLeg(d, domain.LegTypeDelivery, domain.DriverStatusAvailable, repository.ReleaseOutcomeCompleted), nil

	case domain.StatusReturned:
		return releaseActiveLeg(d, domain.DriverStatusReturning, repository.ReleaseOutcomeNone), nil

	case domain.StatusCancelled:
		return releaseActiveLeg(d, domain.DriverStatusAvailable, repository.ReleaseOutcomeCancelled), nil
	}
	return nil, nil
}

func (s *DeliveryService) setLegStatus(d *domain.Delivery, legType domain.LegType, status domain.LegStatus) {
	if leg := d.LegByType(legType); leg != nil {
		leg.Status = status
	}
}

// completeLeg marks a leg completed and returns the release of its driver.
// The release itself is idempotent so replays after a version conflict are
// harmless.
func completeLeg(d *domain.Delivery, legType domain.LegType, nextStatus domain.DriverStatus, outcome repository.ReleaseOutcome) *driverRelease {
	leg := d.LegByType(legType)
	if leg == nil {
		return nil
	}
	leg.Status = domain.LegStatusCompleted
	if leg.Driver == nil {
		return nil
	}
	return &driverRelease{driverID: leg.Driver.DriverID, nextStatus: nextStatus, outcome: outcome}
}

// releaseActiveLeg closes whichever leg is currently worked and returns the
// release of its driver.
func releaseActiveLeg(d *domain.Delivery, nextStatus domain.DriverStatus, outcome repository.ReleaseOutcome) *driverRelease {
	leg := d.ActiveLeg()
	if leg == nil || leg.Driver == nil {
		return nil
	}
	leg.Status = domain.LegStatusCompleted
	return &driverRelease{driverID: leg.Driver.DriverID, nextStatus: nextStatus, outcome: outcome}
}

func (s *DeliveryService) releaseDriver(ctx context.Context, driverID, deliveryID string, nextStatus domain.DriverStatus, outcome repository.ReleaseOutcome) {
	if err := s.matching.ReleaseDriver(ctx, driverID, deliveryID, nextStatus, outcome); err != nil {
		log.Printf("[DELIVERY] release driver %s failed: %v", driverID, err)
	}
}

// afterStatusChange runs the best-effort side channels: tracking cache
// invalidation, order sync when the derived category changed, buyer
// notification and the status event.
func (s *DeliveryService) afterStatusChange(ctx context.Context, delivery *domain.Delivery, previous domain.DeliveryStatus, previousOrderStatus domain.OrderStatus) {
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateTracking(ctx, delivery.TrackingNumber)
	}

	if s.orderSync != nil {
		if derived := domain.DerivedOrderStatus(delivery.Status); derived != "" && derived != previousOrderStatus {
			if err := s.orderSync.SyncOrderStatus(ctx, delivery.OrderID, derived); err != nil {
				log.Printf("[DELIVERY] order sync failed for %s: %v", delivery.OrderID, err)
			}
		}
	}

	if s.notification != nil {
		_ = s.notification.NotifyStatusChanged(ctx, delivery, delivery.Status)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishStatusChanged(ctx, delivery, previous)
	}
}

// AssignDriverRequest contains the parameters for a driver assignment.
type AssignDriverRequest struct {
	DeliveryID string
	LegNumber  int
	DriverID   string // empty means auto-assign
	Actor      string
}

// AssignDriverResult is the outcome of a driver assignment.
type AssignDriverResult struct {
	Delivery *domain.Delivery
	Driver   *domain.DriverSnapshot
}

// AssignDriver assigns a driver (auto-matched or operator-chosen) to a leg,
// snapshots the driver onto the leg and advances the overall status where
// the graph defines an assignment state. If the aggregate write ultimately
// fails, the reservation is compensated by releasing the driver.
func (s *DeliveryService) AssignDriver(ctx context.Context, req AssignDriverRequest) (*AssignDriverResult, error) {
	if req.DeliveryID == "" {
		return nil, ErrInvalidDeliveryID
	}

	unlock, err := s.lockDelivery(ctx, req.DeliveryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	delivery, err := s.deliveryRepo.GetByID(ctx, req.DeliveryID)
	if err != nil {
		return nil, err
	}
	leg := delivery.LegByNumber(req.LegNumber)
	if leg == nil {
		return nil, ErrLegNotFound
	}
	if delivery.Status.IsTerminal() {
		return nil, &InvalidTransitionError{
			Current:   delivery.Status,
			Requested: delivery.Status,
			Allowed:   domain.AllowedNext(delivery.Status),
		}
	}
	if leg.Status != domain.LegStatusUnassigned {
		return nil, ErrLegAlreadyAssigned
	}

	var driver *domain.Driver
	if req.DriverID == "" {
		driver, err = s.matching.AutoAssign(ctx, delivery.ID,
			RequiredHubForLeg(delivery, leg), leg.Type,
			delivery.PackageSize, delivery.PackageWeightKg)
	} else {
		driver, err = s.matching.ManualAssign(ctx, delivery, leg, req.DriverID)
	}
	if err != nil {
		return nil, err
	}

	snapshot := &domain.DriverSnapshot{
		DriverID:    driver.ID,
		Name:        driver.Name,
		Phone:       driver.Phone,
		VehicleType: driver.Vehicle.Type,
		PlateNumber: driver.Vehicle.PlateNumber,
	}

	var lastErr error
	for attempt := 0; attempt < statusUpdateRetries; attempt++ {
		now := time.Now()
		leg.Status = domain.LegStatusAssigned
		leg.Driver = snapshot
		leg.AssignedAt = &now

		actor := req.Actor
		if actor == "" {
			actor = "system"
		}

		switch {
		case leg.Type == domain.LegTypePickup && delivery.Status == domain.StatusPending:
			delivery.Status = domain.StatusPickupAssigned
			delivery.Milestones.AssignedAt = &now
		case leg.Type == domain.LegTypeDelivery &&
			(delivery.Status == domain.StatusAtDestinationHub || delivery.Status == domain.StatusSorted):
			delivery.Status = domain.StatusDeliveryAssigned
		}

		delivery.UpdatedAt = now
		delivery.AppendTimeline(delivery.Status, now, "",
			"driver "+snapshot.Name+" assigned to "+string(leg.Type)+" leg", actor)

		err := s.deliveryRepo.Update(ctx, delivery)
		if err == nil {
			if s.cacheStore != nil {
				_ = s.cacheStore.InvalidateTracking(ctx, delivery.TrackingNumber)
			}
			if s.notification != nil {
				_ = s.notification.NotifyDriverAssigned(ctx, delivery, snapshot)
			}
			return &AssignDriverResult{Delivery: delivery, Driver: snapshot}, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			lastErr = err
			break
		}

		lastErr = err
		delivery, err = s.deliveryRepo.GetByID(ctx, req.DeliveryID)
		if err != nil {
			lastErr = err
			break
		}
		leg = delivery.LegByNumber(req.LegNumber)
		if leg == nil || leg.Status != domain.LegStatusUnassigned {
			lastErr = ErrLegAlreadyAssigned
			break
		}
	}

	// The reservation cannot be left dangling when the aggregate write
	// failed for good.
	s.releaseDriver(ctx, driver.ID, delivery.ID, domain.DriverStatusAvailable, repository.ReleaseOutcomeNone)
	return nil, lastErr
}

// ListCandidates returns the ranked eligible drivers for a leg without
// mutating anything.
func (s *DeliveryService) ListCandidates(ctx context.Context, deliveryID string, legNumber int) ([]*domain.Driver, error) {
	if deliveryID == "" {
		return nil, ErrInvalidDeliveryID
	}

	delivery, err := s.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	leg := delivery.LegByNumber(legNumber)
	if leg == nil {
		return nil, ErrLegNotFound
	}

	return s.matching.FindCandidates(ctx, RequiredHubForLeg(delivery, leg),
		leg.Type, delivery.PackageWeightKg, delivery.PackageSize)
}

// GetByID retrieves a delivery.
func (s *DeliveryService) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	if id == "" {
		return nil, ErrInvalidDeliveryID
	}
	return s.deliveryRepo.GetByID(ctx, id)
}

// GetAll retrieves all deliveries.
func (s *DeliveryService) GetAll(ctx context.Context) ([]*domain.Delivery, error) {
	return s.deliveryRepo.GetAll(ctx)
}

// TrackingView is the public, cacheable tracking read.
type TrackingView struct {
	TrackingNumber string
	Status         domain.DeliveryStatus
	Timeline       []domain.TimelineEntry
	UpdatedAt      time.Time
}

// Track returns the public tracking view for a tracking number. Reads are
// served from cache when a fresh copy exists; any status change invalidates
// the entry.
func (s *DeliveryService) Track(ctx context.Context, trackingNumber string) (*TrackingView, error) {
	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetTracking(ctx, trackingNumber); err == nil && cached != nil {
			return trackingViewFromCache(cached), nil
		}
	}

	delivery, err := s.deliveryRepo.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetTracking(ctx, trackingViewToCache(delivery))
	}

	return &TrackingView{
		TrackingNumber: delivery.TrackingNumber,
		Status:         delivery.Status,
		Timeline:       delivery.Timeline,
		UpdatedAt:      delivery.UpdatedAt,
	}, nil
}

func trackingViewToCache(d *domain.Delivery) *redis.CachedTracking {
	entries := make([]redis.CachedTimelineEntry, len(d.Timeline))
	for i, e := range d.Timeline {
		entries[i] = redis.CachedTimelineEntry{
			Status:    string(e.Status),
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Location:  e.Location,
			Notes:     e.Notes,
			Actor:     e.Actor,
		}
	}
	return &redis.CachedTracking{
		DeliveryID:     d.ID,
		TrackingNumber: d.TrackingNumber,
		Status:         string(d.Status),
		Timeline:       entries,
		UpdatedAt:      d.UpdatedAt.Format(time.RFC3339),
	}
}

func trackingViewFromCache(c *redis.CachedTracking) *TrackingView {
	entries := make([]domain.TimelineEntry, len(c.Timeline))
	for i, e := range c.Timeline {
		ts, _ := time.Parse(time.RFC3339, e.Timestamp)
		entries[i] = domain.TimelineEntry{
			Status:    domain.DeliveryStatus(e.Status),
			Timestamp: ts,
			Location:  e.Location,
			Notes:     e.Notes,
			Actor:     e.Actor,
		}
	}
	updatedAt, _ := time.Parse(time.RFC3339, c.UpdatedAt)
	return &TrackingView{
		TrackingNumber: c.TrackingNumber,
		Status:         domain.DeliveryStatus(c.Status),
		Timeline:       entries,
		UpdatedAt:      updatedAt,
	}
}

// lockDelivery serializes mutations on one aggregate. Without a lock store
// the optimistic version check alone carries correctness.
func (s *DeliveryService) lockDelivery(ctx context.Context, deliveryID string) (func(), error) {
	if s.lockStore == nil {
		return func() {}, nil
	}
	locked, err := s.lockStore.AcquireDeliveryLock(ctx, deliveryID, deliveryLockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrDeliveryLocked
	}
	return func() { _ = s.lockStore.ReleaseDeliveryLock(ctx, deliveryID) }, nil
}
