package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// HubHandler handles HTTP requests for hubs.
type HubHandler struct {
	hubRepo    repository.HubRepository
	cacheStore *redis.CacheStore
}

// NewHubHandler creates a new HubHandler. cacheStore may be nil.
func NewHubHandler(hubRepo repository.HubRepository, cacheStore *redis.CacheStore) *HubHandler {
	return &HubHandler{hubRepo: hubRepo, cacheStore: cacheStore}
}

// CreateHubRequest is the HTTP request body for provisioning a hub.
type CreateHubRequest struct {
	Name          string   `json:"name"`
	Code          string   `json:"code"`
	HubType       string   `json:"hub_type"`
	Coverage      []string `json:"coverage"`
	ConnectedHubs []string `json:"connected_hubs,omitempty"`
	DailyCapacity int      `json:"daily_capacity"`
}

// HubResponse is the HTTP representation of a hub.
type HubResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Code          string   `json:"code"`
	HubType       string   `json:"hub_type"`
	Coverage      []string `json:"coverage"`
	ConnectedHubs []string `json:"connected_hubs"`
	DailyCapacity int      `json:"daily_capacity"`

	// AvailableDrivers is set only on single-hub reads backed by Redis.
	AvailableDrivers *int64 `json:"available_drivers,omitempty"`
}

func toHubResponse(h *domain.Hub) HubResponse {
	return HubResponse{
		ID:            h.ID,
		Name:          h.Name,
		Code:          h.Code,
		HubType:       string(h.Type),
		Coverage:      h.Coverage,
		ConnectedHubs: h.ConnectedHubs,
		DailyCapacity: h.DailyCapacity,
	}
}

// Create handles POST /v1/hubs
func (h *HubHandler) Create(c *gin.Context) {
	var req CreateHubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	hubType, err := domain.ValidateHubType(req.HubType)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Code == "" || len(req.Coverage) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "code and coverage are required"})
		return
	}

	hub := &domain.Hub{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Code:          req.Code,
		Type:          hubType,
		Coverage:      req.Coverage,
		ConnectedHubs: req.ConnectedHubs,
		DailyCapacity: req.DailyCapacity,
		CreatedAt:     time.Now(),
	}
	if err := h.hubRepo.Create(c.Request.Context(), hub); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toHubResponse(hub))
}

// GetAll handles GET /v1/hubs
func (h *HubHandler) GetAll(c *gin.Context) {
	hubs, err := h.hubRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]HubResponse, len(hubs))
	for i, hub := range hubs {
		responses[i] = toHubResponse(hub)
	}
	respondJSON(c, http.StatusOK, responses)
}

// GetByCode handles GET /v1/hubs/:code
func (h *HubHandler) GetByCode(c *gin.Context) {
	hub, err := h.hubRepo.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := toHubResponse(hub)
	if h.cacheStore != nil {
		// Advisory count from the availability set; the database wins on
		// any disagreement.
		if count, err := h.cacheStore.CountAvailableDrivers(c.Request.Context(), hub.ID); err == nil {
			resp.AvailableDrivers = &count
		}
	}
	respondJSON(c, http.StatusOK, resp)
}
