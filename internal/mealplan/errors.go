package mealplan

import "errors"

// Error categories shared by the service client and the plan engine. Remote
// failures are mapped onto these so callers can branch with errors.Is.
var (
	// ErrValidation marks input rejected before or by the service.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing recommendation, profile or user.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCheckedIn marks a duplicate check-in for a date.
	ErrAlreadyCheckedIn = errors.New("already checked in")
	// ErrDayCheckedIn marks a change refused because the day is finalized.
	ErrDayCheckedIn = errors.New("day already checked in")
	// ErrConflict marks any other state conflict reported by the service.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks an expired or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
)
