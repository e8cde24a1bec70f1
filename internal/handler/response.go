package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Allowed []string `json:"allowed_statuses,omitempty"`
	Status  string   `json:"driver_status,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Structured errors carry their payload: an invalid transition reports the
// allowed-next set, an unavailable driver reports its current status.
func respondError(c *gin.Context, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var transitionErr *service.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		allowed := make([]string, len(transitionErr.Allowed))
		for i, s := range transitionErr.Allowed {
			allowed[i] = string(s)
		}
		resp.Allowed = allowed
	}

	var unavailableErr *service.DriverUnavailableError
	if errors.As(err, &unavailableErr) {
		resp.Status = string(unavailableErr.Status)
	}

	c.JSON(mapErrorToHTTPStatus(err), resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var transitionErr *service.InvalidTransitionError
	var unavailableErr *service.DriverUnavailableError

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrLegNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidBuyerID),
		errors.Is(err, service.ErrInvalidSellerID),
		errors.Is(err, service.ErrInvalidDeliveryID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidWeight),
		errors.Is(err, domain.ErrUnknownDeliveryStatus),
		errors.Is(err, domain.ErrUnknownDriverStatus),
		errors.Is(err, domain.ErrUnknownDriverType),
		errors.Is(err, domain.ErrUnknownVehicleType),
		errors.Is(err, domain.ErrUnknownHubType),
		errors.Is(err, domain.ErrUnknownPackageSize):
		return http.StatusBadRequest

	// Business rule violations
	case errors.Is(err, service.ErrNoHubCoverage),
		errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrWrongHub),
		errors.Is(err, service.ErrWrongLegType),
		errors.Is(err, service.ErrLegUnassigned):
		return http.StatusUnprocessableEntity

	// Conflict errors
	case errors.As(err, &transitionErr),
		errors.As(err, &unavailableErr),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, service.ErrLegAlreadyAssigned),
		errors.Is(err, service.ErrOrderAlreadyHasDelivery),
		errors.Is(err, service.ErrDeliveryLocked):
		return http.StatusConflict

	// Service unavailable / transient
	case errors.Is(err, service.ErrNoDriverAvailable),
		errors.Is(err, service.ErrTrackingIDExhausted):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
