package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// DeliveryHandler handles HTTP requests for deliveries.
type DeliveryHandler struct {
	deliveryService *service.DeliveryService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(deliveryService *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveryService: deliveryService}
}

// AddressRequest is an address in a request body.
type AddressRequest struct {
	Street   string  `json:"street"`
	City     string  `json:"city"`
	Province string  `json:"province"`
	Lat      float64 `json:"lat,omitempty"`
	Lng      float64 `json:"lng,omitempty"`
}

// CreateDeliveryRequest is the HTTP request body for creating a delivery.
type CreateDeliveryRequest struct {
	OrderID         string         `json:"order_id"`
	BuyerID         string         `json:"buyer_id"`
	SellerID        string         `json:"seller_id"`
	PickupAddress   AddressRequest `json:"pickup_address"`
	DeliveryAddress AddressRequest `json:"delivery_address"`
	PackageSize     string         `json:"package_size"`
	PackageWeightKg float64        `json:"package_weight_kg"`
}

// UpdateStatusRequest is the HTTP request body for a status advance.
type UpdateStatusRequest struct {
	Status   string        `json:"status"`
	Location string        `json:"location,omitempty"`
	Notes    string        `json:"notes,omitempty"`
	Actor    string        `json:"actor,omitempty"`
	Proof    *ProofRequest `json:"proof,omitempty"`
}

// ProofRequest is the proof-of-delivery payload accepted on delivered.
type ProofRequest struct {
	ReceivedBy   string `json:"received_by"`
	SignatureRef string `json:"signature_ref,omitempty"`
	PhotoRef     string `json:"photo_ref,omitempty"`
}

// AssignDriverRequest is the HTTP request body for a driver assignment.
// An empty driver_id asks for auto-assignment.
type AssignDriverRequest struct {
	DriverID string `json:"driver_id,omitempty"`
	Actor    string `json:"actor,omitempty"`
}

// LegResponse is one leg in a delivery response.
type LegResponse struct {
	Number      int             `json:"number"`
	Type        string          `json:"type"`
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	Status      string          `json:"status"`
	Driver      *DriverSnapshot `json:"driver,omitempty"`
	AssignedAt  *time.Time      `json:"assigned_at,omitempty"`
}

// DriverSnapshot is the assigned driver's identity at assignment time.
type DriverSnapshot struct {
	DriverID    string `json:"driver_id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	VehicleType string `json:"vehicle_type"`
	PlateNumber string `json:"plate_number"`
}

// TimelineEntryResponse is one audit entry in a delivery response.
type TimelineEntryResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Actor     string    `json:"actor"`
}

// DeliveryResponse is the HTTP representation of a delivery.
type DeliveryResponse struct {
	ID               string                  `json:"id"`
	OrderID          string                  `json:"order_id"`
	BuyerID          string                  `json:"buyer_id"`
	SellerID         string                  `json:"seller_id"`
	TrackingNumber   string                  `json:"tracking_number"`
	Status           string                  `json:"status"`
	OrderStatus      string                  `json:"order_status,omitempty"`
	PackageSize      string                  `json:"package_size"`
	PackageWeightKg  float64                 `json:"package_weight_kg"`
	OriginHubID      string                  `json:"origin_hub_id"`
	DestinationHubID string                  `json:"destination_hub_id"`
	Legs             []LegResponse           `json:"legs"`
	Timeline         []TimelineEntryResponse `json:"timeline"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func toDeliveryResponse(d *domain.Delivery) DeliveryResponse {
	legs := make([]LegResponse, len(d.Legs))
	for i, leg := range d.Legs {
		legs[i] = LegResponse{
			Number:      leg.Number,
			Type:        string(leg.Type),
			Origin:      leg.Origin.Label,
			Destination: leg.Destination.Label,
			Status:      string(leg.Status),
			AssignedAt:  leg.AssignedAt,
		}
		if leg.Driver != nil {
			legs[i].Driver = &DriverSnapshot{
				DriverID:    leg.Driver.DriverID,
				Name:        leg.Driver.Name,
				Phone:       leg.Driver.Phone,
				VehicleType: string(leg.Driver.VehicleType),
				PlateNumber: leg.Driver.PlateNumber,
			}
		}
	}

	timeline := make([]TimelineEntryResponse, len(d.Timeline))
	for i, e := range d.Timeline {
		timeline[i] = TimelineEntryResponse{
			Status:    string(e.Status),
			Timestamp: e.Timestamp,
			Location:  e.Location,
			Notes:     e.Notes,
			Actor:     e.Actor,
		}
	}

	return DeliveryResponse{
		ID:               d.ID,
		OrderID:          d.OrderID,
		BuyerID:          d.BuyerID,
		SellerID:         d.SellerID,
		TrackingNumber:   d.TrackingNumber,
		Status:           string(d.Status),
		OrderStatus:      string(domain.DerivedOrderStatus(d.Status)),
		PackageSize:      string(d.PackageSize),
		PackageWeightKg:  d.PackageWeightKg,
		OriginHubID:      d.OriginHubID,
		DestinationHubID: d.DestinationHubID,
		Legs:             legs,
		Timeline:         timeline,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// CreateDelivery handles POST /v1/deliveries
func (h *DeliveryHandler) CreateDelivery(c *gin.Context) {
	var req CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	size, err := domain.ValidatePackageSize(req.PackageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	delivery, err := h.deliveryService.CreateDelivery(c.Request.Context(), service.CreateDeliveryRequest{
		OrderID:         req.OrderID,
		BuyerID:         req.BuyerID,
		SellerID:        req.SellerID,
		PickupAddress:   toAddress(req.PickupAddress),
		DeliveryAddress: toAddress(req.DeliveryAddress),
		PackageSize:     size,
		PackageWeightKg: req.PackageWeightKg,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDeliveryResponse(delivery))
}

func toAddress(a AddressRequest) domain.Address {
	return domain.Address{
		Street:   a.Street,
		City:     a.City,
		Province: a.Province,
		Lat:      a.Lat,
		Lng:      a.Lng,
	}
}

// GetDelivery handles GET /v1/deliveries/:id
func (h *DeliveryHandler) GetDelivery(c *gin.Context) {
	delivery, err := h.deliveryService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDeliveryResponse(delivery))
}

// GetAll handles GET /v1/deliveries
func (h *DeliveryHandler) GetAll(c *gin.Context) {
	deliveries, err := h.deliveryService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]DeliveryResponse, len(deliveries))
	for i, d := range deliveries {
		responses[i] = toDeliveryResponse(d)
	}
	respondJSON(c, http.StatusOK, responses)
}

// Track handles GET /v1/deliveries/track/:trackingNumber
func (h *DeliveryHandler) Track(c *gin.Context) {
	view, err := h.deliveryService.Track(c.Request.Context(), c.Param("trackingNumber"))
	if err != nil {
		respondError(c, err)
		return
	}

	timeline := make([]TimelineEntryResponse, len(view.Timeline))
	for i, e := range view.Timeline {
		timeline[i] = TimelineEntryResponse{
			Status:    string(e.Status),
			Timestamp: e.Timestamp,
			Location:  e.Location,
			Notes:     e.Notes,
			Actor:     e.Actor,
		}
	}
	respondJSON(c, http.StatusOK, gin.H{
		"tracking_number": view.TrackingNumber,
		"status":          string(view.Status),
		"timeline":        timeline,
		"updated_at":      view.UpdatedAt,
	})
}

// UpdateStatus handles POST /v1/deliveries/:id/status
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var proof *domain.ProofOfDelivery
	if req.Proof != nil {
		proof = &domain.ProofOfDelivery{
			ReceivedBy:   req.Proof.ReceivedBy,
			SignatureRef: req.Proof.SignatureRef,
			PhotoRef:     req.Proof.PhotoRef,
		}
	}

	result, err := h.deliveryService.UpdateStatus(c.Request.Context(), service.UpdateStatusRequest{
		DeliveryID: c.Param("id"),
		Status:     domain.DeliveryStatus(req.Status),
		Location:   req.Location,
		Notes:      req.Notes,
		Actor:      req.Actor,
		Proof:      proof,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"delivery":     toDeliveryResponse(result.Delivery),
		"order_status": string(result.OrderStatus),
		"no_op":        result.NoOp,
	})
}

// AssignDriver handles POST /v1/deliveries/:id/legs/:legNumber/assign
func (h *DeliveryHandler) AssignDriver(c *gin.Context) {
	legNumber, err := strconv.Atoi(c.Param("legNumber"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid leg number"})
		return
	}

	// An empty body means auto-assign.
	var req AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.deliveryService.AssignDriver(c.Request.Context(), service.AssignDriverRequest{
		DeliveryID: c.Param("id"),
		LegNumber:  legNumber,
		DriverID:   req.DriverID,
		Actor:      req.Actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"driver": DriverSnapshot{
			DriverID:    result.Driver.DriverID,
			Name:        result.Driver.Name,
			Phone:       result.Driver.Phone,
			VehicleType: string(result.Driver.VehicleType),
			PlateNumber: result.Driver.PlateNumber,
		},
		"delivery_status": string(result.Delivery.Status),
	})
}

// ListCandidates handles GET /v1/deliveries/:id/legs/:legNumber/candidates
func (h *DeliveryHandler) ListCandidates(c *gin.Context) {
	legNumber, err := strconv.Atoi(c.Param("legNumber"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid leg number"})
		return
	}

	candidates, err := h.deliveryService.ListCandidates(c.Request.Context(), c.Param("id"), legNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]CandidateResponse, len(candidates))
	for i, d := range candidates {
		responses[i] = CandidateResponse{
			ID:                  d.ID,
			Name:                d.Name,
			VehicleType:         string(d.Vehicle.Type),
			MaxWeightKg:         d.Vehicle.MaxWeightKg,
			Rating:              d.Rating,
			CompletedDeliveries: d.CompletedDeliveries,
		}
	}
	respondJSON(c, http.StatusOK, responses)
}

// CandidateResponse is one ranked driver candidate.
type CandidateResponse struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	VehicleType         string  `json:"vehicle_type"`
	MaxWeightKg         float64 `json:"max_weight_kg"`
	Rating              float64 `json:"rating"`
	CompletedDeliveries int     `json:"completed_deliveries"`
}
