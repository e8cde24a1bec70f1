package domain

import "errors"

var (
	// ErrUnknownDeliveryStatus is returned for a status outside the enum.
	ErrUnknownDeliveryStatus = errors.New("unknown delivery status")

	// ErrUnknownDriverStatus is returned for a driver status outside the enum.
	ErrUnknownDriverStatus = errors.New("unknown driver status")

	// ErrUnknownDriverType is returned for a driver type outside the enum.
	ErrUnknownDriverType = errors.New("unknown driver type")

	// ErrUnknownVehicleType is returned for a vehicle type outside the enum.
	ErrUnknownVehicleType = errors.New("unknown vehicle type")

	// ErrUnknownHubType is returned for a hub type outside the enum.
	ErrUnknownHubType = errors.New("unknown hub type")

	// ErrUnknownPackageSize is returned for a package size outside the enum.
	ErrUnknownPackageSize = errors.New("unknown package size")
)
