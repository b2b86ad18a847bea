// Package handler exposes status transitions over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"watchpost/internal/status"
	"watchpost/internal/status/domain"
)

// Handler serves PUT /errors/status and POST /errors/status/bulk.
type Handler struct {
	ledger *status.Ledger
}

// NewHandler returns a status handler writing through ledger.
func NewHandler(ledger *status.Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// Register mounts the status routes on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.PUT("/errors/status", h.set)
	rg.POST("/errors/status/bulk", h.setBulk)
}

type setRequest struct {
	Fingerprint string `json:"fingerprint"`
	Product     string `json:"product"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
}

func (h *Handler) set(c *gin.Context) {
	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.ledger.Set(c.Request.Context(), req.Fingerprint, req.Product, domain.Status(req.Status), req.Notes)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": req.Status})
	case errors.Is(err, status.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status store unavailable"})
	}
}

type bulkRequest struct {
	Items  []status.Item `json:"items"`
	Status string        `json:"status"`
	Notes  string        `json:"notes"`
}

func (h *Handler) setBulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := h.ledger.SetBulk(c.Request.Context(), req.Items, domain.Status(req.Status), req.Notes)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"updated": updated})
	case errors.Is(err, status.ErrInvalidBulk), errors.Is(err, status.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		// Mid-batch store failure: report how far the batch got.
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "status store unavailable",
			"updated": updated,
		})
	}
}
