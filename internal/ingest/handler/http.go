// Package handler exposes error ingestion over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"watchpost/internal/ingest"
)

// Handler serves POST /errors.
type Handler struct {
	gate *ingest.Gate
}

// NewHandler returns an ingestion handler writing through gate.
func NewHandler(gate *ingest.Gate) *Handler {
	return &Handler{gate: gate}
}

// Register mounts the ingestion routes on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/errors", h.create)
}

func (h *Handler) create(c *gin.Context) {
	var sub ingest.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := h.gate.Ingest(c.Request.Context(), sub)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"event_id": id, "status": "received"})
	case errors.Is(err, ingest.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ingest.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, ingest.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event store unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
