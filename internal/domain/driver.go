package domain

import "time"

// DriverStatus represents the current status of a driver.
type DriverStatus string

const (
	DriverStatusAvailable  DriverStatus = "available"
	DriverStatusOnDelivery DriverStatus = "on_delivery"
	DriverStatusReturning  DriverStatus = "returning"
	DriverStatusOffDuty    DriverStatus = "off_duty"
	DriverStatusSuspended  DriverStatus = "suspended"
)

// DriverType represents which delivery legs a driver can work.
type DriverType string

const (
	DriverTypePickup   DriverType = "pickup"
	DriverTypeLineHaul DriverType = "line_haul"
	DriverTypeDelivery DriverType = "delivery"
	DriverTypeAllRound DriverType = "all_round"
)

// VehicleType represents the class of a driver's vehicle.
type VehicleType string

const (
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleCar        VehicleType = "car"
	VehicleVan        VehicleType = "van"
	VehicleMiniTruck  VehicleType = "mini_truck"
	VehicleTruck      VehicleType = "truck"
)

// Vehicle describes the vehicle a driver operates.
type Vehicle struct {
	Type        VehicleType
	PlateNumber string // globally unique
	MaxWeightKg float64
	VolumeM3    float64 // optional, 0 when unknown
}

// Driver represents a driver in the fulfillment network.
//
// Invariant: Status is on_delivery if and only if CurrentDeliveryID is
// non-empty. Reservation and release preserve this pairing with conditional
// writes; no code path may set one side without the other.
type Driver struct {
	ID                  string
	Name                string
	Phone               string
	HubID               string // home hub
	Type                DriverType
	Vehicle             Vehicle
	Status              DriverStatus
	Active              bool
	Rating              float64 // 1.0 - 5.0
	CompletedDeliveries int
	CancelledDeliveries int
	CurrentDeliveryID   string
	CreatedAt           time.Time
}

// CanWorkLeg reports whether the driver's type covers the given leg type.
func (d *Driver) CanWorkLeg(legType LegType) bool {
	if d.Type == DriverTypeAllRound {
		return true
	}
	return string(d.Type) == string(legType)
}

// ValidateDriverStatus validates a driver status string.
func ValidateDriverStatus(s string) (DriverStatus, error) {
	switch DriverStatus(s) {
	case DriverStatusAvailable, DriverStatusOnDelivery, DriverStatusReturning,
		DriverStatusOffDuty, DriverStatusSuspended:
		return DriverStatus(s), nil
	default:
		return "", ErrUnknownDriverStatus
	}
}

// ValidateDriverType validates a driver type string.
func ValidateDriverType(s string) (DriverType, error) {
	switch DriverType(s) {
	case DriverTypePickup, DriverTypeLineHaul, DriverTypeDelivery, DriverTypeAllRound:
		return DriverType(s), nil
	default:
		return "", ErrUnknownDriverType
	}
}

// ValidateVehicleType validates a vehicle type string.
func ValidateVehicleType(s string) (VehicleType, error) {
	switch VehicleType(s) {
	case VehicleMotorcycle, VehicleCar, VehicleVan, VehicleMiniTruck, VehicleTruck:
		return VehicleType(s), nil
	default:
		return "", ErrUnknownVehicleType
	}
}
