package planclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lg/mealmind-go-api/internal/mealplan"
)

// APIError is a non-2xx response from the recommendation service.
type APIError struct {
	Status  int
	Message string
	Code    string
	// Body is the raw response body, kept for endpoints whose error
	// envelope carries extra fields.
	Body []byte
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Is maps the status onto the shared mealplan error categories.
func (e *APIError) Is(target error) bool {
	switch target {
	case mealplan.ErrNotFound:
		return e.Status == http.StatusNotFound
	case mealplan.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case mealplan.ErrAlreadyCheckedIn:
		return e.duplicateCheckin()
	case mealplan.ErrDayCheckedIn:
		return e.Code == "day_checked_in"
	case mealplan.ErrConflict:
		return e.Status == http.StatusConflict
	case mealplan.ErrValidation:
		return (e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity) && !e.duplicateCheckin()
	}
	return false
}

// duplicateCheckin recognises both the 409 conflict and the older 400
// "Already checked in today" response.
func (e *APIError) duplicateCheckin() bool {
	if e.Code != "" {
		return e.Code == "already_checked_in"
	}
	if e.Status != http.StatusConflict && e.Status != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(e.Message), "already checked in")
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
