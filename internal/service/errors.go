package service

import (
	"errors"
	"fmt"

	"dispatch/internal/domain"
)

var (
	// ErrNoDriverAvailable is returned when auto-assign exhausts candidates.
	ErrNoDriverAvailable = errors.New("no available driver")

	// ErrNoHubCoverage is returned when an address cannot be routed to any hub.
	ErrNoHubCoverage = errors.New("no hub covers this address")

	// ErrCapacityExceeded is returned when a vehicle is too small for the package.
	ErrCapacityExceeded = errors.New("vehicle capacity exceeded by package weight")

	// ErrWrongHub is returned when a driver is manually assigned to a leg
	// outside the driver's home hub.
	ErrWrongHub = errors.New("driver does not belong to the required hub")

	// ErrWrongLegType is returned when a driver's type does not cover the leg.
	ErrWrongLegType = errors.New("driver type does not cover this leg")

	// ErrTrackingIDExhausted is returned when the tracking number generator
	// reaches its collision retry bound. Transient, safe to retry.
	ErrTrackingIDExhausted = errors.New("tracking number generation exhausted retries")

	// ErrLegNotFound is returned when a delivery has no leg with the given number.
	ErrLegNotFound = errors.New("leg not found")

	// ErrLegAlreadyAssigned is returned when the leg already has a driver.
	ErrLegAlreadyAssigned = errors.New("leg already has an assigned driver")

	// ErrLegUnassigned is returned when a status advance requires a leg
	// that has no assigned driver yet.
	ErrLegUnassigned = errors.New("leg has no assigned driver")

	// ErrDeliveryLocked is returned when another operation holds the
	// delivery's lock. Transient, safe to retry.
	ErrDeliveryLocked = errors.New("delivery is locked by another operation")

	// ErrInvalidOrderID is returned when the order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidBuyerID is returned when the buyer ID is empty.
	ErrInvalidBuyerID = errors.New("invalid buyer id")

	// ErrInvalidSellerID is returned when the seller ID is empty.
	ErrInvalidSellerID = errors.New("invalid seller id")

	// ErrInvalidDeliveryID is returned when the delivery ID is empty.
	ErrInvalidDeliveryID = errors.New("invalid delivery id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidAddress is returned when an address is missing its city.
	ErrInvalidAddress = errors.New("invalid address: city is required")

	// ErrInvalidWeight is returned when the package weight is not positive.
	ErrInvalidWeight = errors.New("invalid package weight")

	// ErrOrderAlreadyHasDelivery is returned when a delivery already exists
	// for the order.
	ErrOrderAlreadyHasDelivery = errors.New("order already has a delivery")
)

// InvalidTransitionError is returned when a requested status change is not
// permitted by the transition graph. It carries the allowed-next set so
// callers can self-correct.
type InvalidTransitionError struct {
	Current   domain.DeliveryStatus
	Requested domain.DeliveryStatus
	Allowed   []domain.DeliveryStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s (allowed: %v)", e.Current, e.Requested, e.Allowed)
}

// DriverUnavailableError is returned when a driver cannot be reserved because
// it is not available; it surfaces the driver's current status. Inactive is
// set when the driver is deactivated, which blocks reservation regardless of
// status.
type DriverUnavailableError struct {
	DriverID string
	Status   domain.DriverStatus
	Inactive bool
}

func (e *DriverUnavailableError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("driver %s is deactivated (status: %s)", e.DriverID, e.Status)
	}
	return fmt.Sprintf("driver %s is not available (status: %s)", e.DriverID, e.Status)
}
