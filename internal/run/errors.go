package run

import (
	"errors"

	"backend-runlog/internal/shared/geo"
)

var (
	ErrIncompleteData       = errors.New("incomplete run data")
	ErrInvalidFormat        = errors.New("invalid distance or duration format")
	ErrInvalidDuration      = errors.New("run duration must be greater than 0 minutes")
	ErrMalformedCoordinates = geo.ErrMalformedCoordinates
	ErrInsufficientMovement = errors.New("detected distance is below 0.01 km: too few GPS points or no movement")
	ErrForbidden            = errors.New("run belongs to another user")
	ErrNotFound             = errors.New("run not found")
)

// IsValidation reports whether err is a client-correctable input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrIncompleteData) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrMalformedCoordinates) ||
		errors.Is(err, ErrInsufficientMovement)
}
