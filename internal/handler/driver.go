package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	HubID       string  `json:"hub_id"`
	DriverType  string  `json:"driver_type"`
	VehicleType string  `json:"vehicle_type"`
	PlateNumber string  `json:"plate_number"`
	MaxWeightKg float64 `json:"max_weight_kg"`
	VolumeM3    float64 `json:"volume_m3,omitempty"`
}

// SetDriverStatusRequest is the HTTP request body for a duty-status change.
type SetDriverStatusRequest struct {
	Status string `json:"status"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Phone               string    `json:"phone"`
	HubID               string    `json:"hub_id"`
	DriverType          string    `json:"driver_type"`
	VehicleType         string    `json:"vehicle_type"`
	PlateNumber         string    `json:"plate_number"`
	MaxWeightKg         float64   `json:"max_weight_kg"`
	Status              string    `json:"status"`
	Rating              float64   `json:"rating"`
	CompletedDeliveries int       `json:"completed_deliveries"`
	CancelledDeliveries int       `json:"cancelled_deliveries"`
	CurrentDeliveryID   string    `json:"current_delivery_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:                  d.ID,
		Name:                d.Name,
		Phone:               d.Phone,
		HubID:               d.HubID,
		DriverType:          string(d.Type),
		VehicleType:         string(d.Vehicle.Type),
		PlateNumber:         d.Vehicle.PlateNumber,
		MaxWeightKg:         d.Vehicle.MaxWeightKg,
		Status:              string(d.Status),
		Rating:              d.Rating,
		CompletedDeliveries: d.CompletedDeliveries,
		CancelledDeliveries: d.CancelledDeliveries,
		CurrentDeliveryID:   d.CurrentDeliveryID,
		CreatedAt:           d.CreatedAt,
	}
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driverType, err := domain.ValidateDriverType(req.DriverType)
	if err != nil {
		respondError(c, err)
		return
	}
	vehicleType, err := domain.ValidateVehicleType(req.VehicleType)
	if err != nil {
		respondError(c, err)
		return
	}

	driver, err := h.driverService.Register(c.Request.Context(), service.RegisterDriverRequest{
		Name:        req.Name,
		Phone:       req.Phone,
		HubID:       req.HubID,
		Type:        driverType,
		VehicleType: vehicleType,
		PlateNumber: req.PlateNumber,
		MaxWeightKg: req.MaxWeightKg,
		VolumeM3:    req.VolumeM3,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	drivers, err := h.driverService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]DriverResponse, len(drivers))
	for i, d := range drivers {
		responses[i] = toDriverResponse(d)
	}
	respondJSON(c, http.StatusOK, responses)
}

// SetStatus handles POST /v1/drivers/:id/status
func (h *DriverHandler) SetStatus(c *gin.Context) {
	var req SetDriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	status, err := domain.ValidateDriverStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	driver, err := h.driverService.SetStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}
