package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"triplog/internal/domain"
	"triplog/internal/middleware"
	"triplog/internal/service"
)

// RecordingHandler handles HTTP requests for the acting user's recording
// session.
type RecordingHandler struct {
	recordings *service.RecordingService
}

// NewRecordingHandler creates a new RecordingHandler.
func NewRecordingHandler(recordings *service.RecordingService) *RecordingHandler {
	return &RecordingHandler{recordings: recordings}
}

// StartRecordingRequest is the HTTP request body for starting a recording.
type StartRecordingRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// RecordingStatusResponse is a snapshot of the acting user's session.
type RecordingStatusResponse struct {
	Status         string             `json:"status"`
	Name           string             `json:"name,omitempty"`
	StartedAt      string             `json:"started_at,omitempty"`
	PositionsCount int                `json:"positions_count"`
	Positions      []PositionResponse `json:"positions"`
}

// Start handles POST /v1/recordings/start
func (h *RecordingHandler) Start(c *gin.Context) {
	var req StartRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	status, err := h.recordings.Start(c.Request.Context(), middleware.ActingUserID(c), service.StartRequest{
		Name:        req.Name,
		Description: req.Description,
		Type:        domain.TripType(req.Type),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toStatusResponse(status))
}

// FixRequest is one client-reported location fix.
type FixRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Fix handles POST /v1/recordings/fixes
func (h *RecordingHandler) Fix(c *gin.Context) {
	var req FixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	status, err := h.recordings.Fix(c.Request.Context(), middleware.ActingUserID(c), req.Latitude, req.Longitude)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toStatusResponse(status))
}

// Stop handles POST /v1/recordings/stop
func (h *RecordingHandler) Stop(c *gin.Context) {
	status, err := h.recordings.Stop(c.Request.Context(), middleware.ActingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toStatusResponse(status))
}

// Reset handles POST /v1/recordings/reset
func (h *RecordingHandler) Reset(c *gin.Context) {
	if err := h.recordings.Reset(c.Request.Context(), middleware.ActingUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Status handles GET /v1/recordings
func (h *RecordingHandler) Status(c *gin.Context) {
	status, err := h.recordings.Status(c.Request.Context(), middleware.ActingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toStatusResponse(status))
}

// Live handles GET /v1/recordings/live
func (h *RecordingHandler) Live(c *gin.Context) {
	fix, err := h.recordings.Live(c.Request.Context(), middleware.ActingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if fix == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no live recording"})
		return
	}
	respondJSON(c, http.StatusOK, fix)
}

// Commit handles POST /v1/recordings/commit
func (h *RecordingHandler) Commit(c *gin.Context) {
	trip, err := h.recordings.Commit(c.Request.Context(), middleware.ActingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

func toStatusResponse(status *service.RecordingStatus) RecordingStatusResponse {
	response := RecordingStatusResponse{
		Status:         string(status.Status),
		Name:           status.Name,
		PositionsCount: len(status.Positions),
		Positions:      make([]PositionResponse, 0, len(status.Positions)),
	}
	if !status.StartedAt.IsZero() {
		response.StartedAt = status.StartedAt.Format(timeFormat)
	}
	for _, pos := range status.Positions {
		response.Positions = append(response.Positions, PositionResponse{
			Latitude:  pos.Latitude,
			Longitude: pos.Longitude,
			Timestamp: pos.Timestamp,
		})
	}
	return response
}
