package domain

import "time"

// DeliveryStatus represents the overall status of a delivery.
type DeliveryStatus string

const (
	StatusPending           DeliveryStatus = "pending"
	StatusPickupAssigned    DeliveryStatus = "pickup_assigned"
	StatusPickupInProgress  DeliveryStatus = "pickup_in_progress"
	StatusPickedUp          DeliveryStatus = "picked_up"
	StatusAtOriginHub       DeliveryStatus = "at_origin_hub"
	StatusSorted            DeliveryStatus = "sorted"
	StatusLineHaulInTransit DeliveryStatus = "line_haul_in_transit"
	StatusAtDestinationHub  DeliveryStatus = "at_destination_hub"
	StatusDeliveryAssigned  DeliveryStatus = "delivery_assigned"
	StatusOutForDelivery    DeliveryStatus = "out_for_delivery"
	StatusDelivered         DeliveryStatus = "delivered"
	StatusCancelled         DeliveryStatus = "cancelled"
	StatusReturned          DeliveryStatus = "returned"
)

// PackageSize is a coarse bucket used to restrict eligible vehicle types.
type PackageSize string

const (
	PackageSmall  PackageSize = "small"
	PackageMedium PackageSize = "medium"
	PackageLarge  PackageSize = "large"
	PackageBulk   PackageSize = "bulk"
)

// LegType represents one physical segment kind of a delivery's journey.
type LegType string

const (
	LegTypePickup   LegType = "pickup"
	LegTypeLineHaul LegType = "line_haul"
	LegTypeDelivery LegType = "delivery"
)

// LegStatus represents the status of a single leg, tracked independently of
// the delivery's overall status.
type LegStatus string

const (
	LegStatusUnassigned LegStatus = "unassigned"
	LegStatusAssigned   LegStatus = "assigned"
	LegStatusInProgress LegStatus = "in_progress"
	LegStatusCompleted  LegStatus = "completed"
)

// Address is a pickup or delivery address.
type Address struct {
	Street   string  `json:"street"`
	City     string  `json:"city"`
	Province string  `json:"province"`
	Lat      float64 `json:"lat,omitempty"`
	Lng      float64 `json:"lng,omitempty"`
}

// Location is a coarse endpoint snapshot stored on a leg: either a hub or a
// buyer/seller address rendered to text at planning time.
type Location struct {
	HubID string `json:"hub_id,omitempty"`
	Label string `json:"label"`
}

// DriverSnapshot is the driver's identity as it was at assignment time.
// Deliberately decoupled from the live Driver record so later driver edits
// do not retroactively alter delivery history.
type DriverSnapshot struct {
	DriverID    string      `json:"driver_id"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone"`
	VehicleType VehicleType `json:"vehicle_type"`
	PlateNumber string      `json:"plate_number"`
}

// Leg is one physical segment of a delivery's journey.
type Leg struct {
	Number      int             `json:"number"` // contiguous from 1
	Type        LegType         `json:"type"`
	Origin      Location        `json:"origin"`
	Destination Location        `json:"destination"`
	Status      LegStatus       `json:"status"`
	Driver      *DriverSnapshot `json:"driver,omitempty"`
	AssignedAt  *time.Time      `json:"assigned_at,omitempty"`
}

// TimelineEntry is one append-only audit record. Entries are stamped by the
// engine at append time and are never edited or removed.
type TimelineEntry struct {
	Status    DeliveryStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Location  string         `json:"location,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Actor     string         `json:"actor"`
}

// Milestones holds the timestamp stamped at each status advance.
type Milestones struct {
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
	PickedUpAt         *time.Time `json:"picked_up_at,omitempty"`
	AtOriginHubAt      *time.Time `json:"at_origin_hub_at,omitempty"`
	LineHaulStartedAt  *time.Time `json:"line_haul_started_at,omitempty"`
	AtDestinationHubAt *time.Time `json:"at_destination_hub_at,omitempty"`
	OutForDeliveryAt   *time.Time `json:"out_for_delivery_at,omitempty"`
	ActualDeliveryTime *time.Time `json:"actual_delivery_time,omitempty"`
}

// ProofOfDelivery records how the handover was confirmed.
type ProofOfDelivery struct {
	ReceivedBy   string    `json:"received_by"`
	SignatureRef string    `json:"signature_ref,omitempty"`
	PhotoRef     string    `json:"photo_ref,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Delivery is the central aggregate: one shipment moving through the
// hub-and-spoke network. Mutated exclusively through the orchestration
// service and never physically deleted; terminal states are final but the
// record persists for audit.
type Delivery struct {
	ID               string
	OrderID          string
	BuyerID          string
	SellerID         string
	PickupAddress    Address
	DeliveryAddress  Address
	PackageSize      PackageSize
	PackageWeightKg  float64
	OriginHubID      string
	DestinationHubID string
	Status           DeliveryStatus
	Legs             []Leg
	Timeline         []TimelineEntry
	TrackingNumber   string // globally unique, immutable once set
	Milestones       Milestones
	Proof            *ProofOfDelivery
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int // optimistic concurrency guard
}

// LegByNumber returns the leg with the given number, or nil.
func (d *Delivery) LegByNumber(n int) *Leg {
	for i := range d.Legs {
		if d.Legs[i].Number == n {
			return &d.Legs[i]
		}
	}
	return nil
}

// LegByType returns the first leg of the given type, or nil.
func (d *Delivery) LegByType(t LegType) *Leg {
	for i := range d.Legs {
		if d.Legs[i].Type == t {
			return &d.Legs[i]
		}
	}
	return nil
}

// ActiveLeg returns the leg currently assigned or in progress, or nil.
func (d *Delivery) ActiveLeg() *Leg {
	for i := range d.Legs {
		if d.Legs[i].Status == LegStatusAssigned || d.Legs[i].Status == LegStatusInProgress {
			return &d.Legs[i]
		}
	}
	return nil
}

// HasLineHaul reports whether the delivery crosses hubs.
func (d *Delivery) HasLineHaul() bool {
	return d.OriginHubID != d.DestinationHubID
}

// AppendTimeline appends an audit entry stamped with the given time.
func (d *Delivery) AppendTimeline(status DeliveryStatus, at time.Time, location, notes, actor string) {
	d.Timeline = append(d.Timeline, TimelineEntry{
		Status:    status,
		Timestamp: at,
		Location:  location,
		Notes:     notes,
		Actor:     actor,
	})
}

// ValidatePackageSize validates a package size string.
func ValidatePackageSize(s string) (PackageSize, error) {
	switch PackageSize(s) {
	case PackageSmall, PackageMedium, PackageLarge, PackageBulk:
		return PackageSize(s), nil
	default:
		return "", ErrUnknownPackageSize
	}
}

// ValidateDeliveryStatus validates a delivery status string.
func ValidateDeliveryStatus(s string) (DeliveryStatus, error) {
	switch DeliveryStatus(s) {
	case StatusPending, StatusPickupAssigned, StatusPickupInProgress, StatusPickedUp,
		StatusAtOriginHub, StatusSorted, StatusLineHaulInTransit, StatusAtDestinationHub,
		StatusDeliveryAssigned, StatusOutForDelivery, StatusDelivered, StatusCancelled,
		StatusReturned:
		return DeliveryStatus(s), nil
	default:
		return "", ErrUnknownDeliveryStatus
	}
}

// VehicleTypesForSize returns the vehicle-type allowlist for a package size.
func VehicleTypesForSize(size PackageSize) []VehicleType {
	switch size {
	case PackageSmall:
		return []VehicleType{VehicleMotorcycle, VehicleCar, VehicleVan}
	case PackageMedium:
		return []VehicleType{VehicleCar, VehicleVan, VehicleMiniTruck}
	case PackageLarge:
		return []VehicleType{VehicleVan, VehicleMiniTruck, VehicleTruck}
	case PackageBulk:
		return []VehicleType{VehicleMiniTruck, VehicleTruck}
	default:
		return nil
	}
}
