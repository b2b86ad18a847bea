// Package handler exposes spike alerts over HTTP: listing, acknowledgement,
// and an on-demand scan trigger.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"watchpost/internal/spike"
)

// Handler serves the /alerts and /spikes routes.
type Handler struct {
	detector *spike.Detector
}

// NewHandler returns a spike handler backed by detector.
func NewHandler(detector *spike.Detector) *Handler {
	return &Handler{detector: detector}
}

// Register mounts the spike routes on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/alerts", h.list)
	rg.POST("/alerts/:id/acknowledge", h.acknowledge)
	rg.POST("/spikes/scan", h.scan)
}

func (h *Handler) list(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	alerts, err := h.detector.List(c.Request.Context(), c.Query("product"), limit)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *Handler) acknowledge(c *gin.Context) {
	err := h.detector.Acknowledge(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"acknowledged": true})
	case errors.Is(err, spike.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert store unavailable"})
	}
}

// scan runs one detection pass immediately, outside the worker's schedule.
func (h *Handler) scan(c *gin.Context) {
	created, err := h.detector.Scan(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}
