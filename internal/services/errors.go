// Package services defines the business logic for users, devices, warranties,
// and verification codes. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing chat replies should be performed at the
// conversation engine layer.
package services

import "errors"

var (
	// ErrUserNotFound indicates that no user exists for the requested chat id.
	ErrUserNotFound = errors.New("user not found")

	// ErrDeviceNotFound indicates that the requested device does not exist
	// or has been removed.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceOwnedByOther is returned when a serial number is already
	// registered to a different user.
	ErrDeviceOwnedByOther = errors.New("serial number registered to another user")

	// ErrStandardAlreadyActive is returned when a device already carries an
	// active base warranty and a second one is requested.
	ErrStandardAlreadyActive = errors.New("base warranty already active for device")

	// ErrPeriodNotDefined is returned when no coverage period is defined for
	// the requested tier.
	ErrPeriodNotDefined = errors.New("warranty period not defined for tier")

	// ErrNoPurchaseDate is returned when a warranty activation is attempted
	// for a device without a recorded purchase date.
	ErrNoPurchaseDate = errors.New("device has no purchase date")
)
