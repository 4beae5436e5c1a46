package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"triplog/internal/domain"
	"triplog/internal/middleware"
	"triplog/internal/repository"
	"triplog/internal/service"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Type           string `json:"type,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	PositionsCount int    `json:"positions_count"`
}

// PositionResponse is one position in a trip detail.
type PositionResponse struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

// TripDetailResponse is the HTTP response for a single trip lookup.
type TripDetailResponse struct {
	TripResponse
	OwnerName string             `json:"owner_name"`
	Positions []PositionResponse `json:"positions"`
}

// TripPageResponse is one page of a trip listing.
type TripPageResponse struct {
	Trips      []TripResponse `json:"trips"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// List handles GET /v1/trips
func (h *TripHandler) List(c *gin.Context) {
	q := repository.ListQuery{
		Type:   domain.TripType(c.Query("type")),
		Cursor: c.Query("cursor"),
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "page_size must be a positive integer"})
			return
		}
		q.PageSize = size
	}

	page, err := h.tripService.List(c.Request.Context(), middleware.ActingUserID(c), q)
	if err != nil {
		respondError(c, err)
		return
	}

	response := TripPageResponse{
		Trips:      make([]TripResponse, 0, len(page.Trips)),
		NextCursor: page.NextCursor,
	}
	for _, trip := range page.Trips {
		response.Trips = append(response.Trips, toTripResponse(trip))
	}
	respondJSON(c, http.StatusOK, response)
}

// Get handles GET /v1/trips/:id
func (h *TripHandler) Get(c *gin.Context) {
	detail, err := h.tripService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := TripDetailResponse{
		TripResponse: toTripResponse(detail.Trip),
		OwnerName:    detail.OwnerName,
		Positions:    make([]PositionResponse, 0, len(detail.Positions)),
	}
	for _, pos := range detail.Positions {
		response.Positions = append(response.Positions, PositionResponse{
			ID:        pos.ID,
			Latitude:  pos.Latitude,
			Longitude: pos.Longitude,
			Timestamp: pos.Timestamp,
		})
	}
	respondJSON(c, http.StatusOK, response)
}

// UpdateTripRequest is the HTTP request body for a partial trip update.
// Absent fields are left unchanged.
type UpdateTripRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
}

// Update handles PATCH /v1/trips/:id
func (h *TripHandler) Update(c *gin.Context) {
	var req UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	upd := domain.TripUpdate{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Type != nil {
		t := domain.TripType(*req.Type)
		upd.Type = &t
	}
	if upd.Empty() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no fields to update"})
		return
	}

	trip, err := h.tripService.Update(c.Request.Context(), middleware.ActingUserID(c), c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// Delete handles DELETE /v1/trips/:id
func (h *TripHandler) Delete(c *gin.Context) {
	err := h.tripService.Delete(c.Request.Context(), middleware.ActingUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AppendPositionRequest is the HTTP request body for a position append.
type AppendPositionRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

// AppendPosition handles POST /v1/trips/:id/positions
func (h *TripHandler) AppendPosition(c *gin.Context) {
	var req AppendPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	count, err := h.tripService.AppendPosition(c.Request.Context(), middleware.ActingUserID(c), c.Param("id"), domain.Position{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"positions_count": count})
}

func toTripResponse(trip *domain.Trip) TripResponse {
	return TripResponse{
		ID:             trip.ID,
		OwnerID:        trip.OwnerID,
		Name:           trip.Name,
		Description:    trip.Description,
		Type:           string(trip.Type),
		CreatedAt:      trip.CreatedAt.Format(timeFormat),
		UpdatedAt:      trip.UpdatedAt.Format(timeFormat),
		PositionsCount: trip.PositionsCount,
	}
}
