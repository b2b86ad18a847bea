// Package handler exposes the aggregated error-group view over HTTP,
// overlaying operator status onto each group.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"watchpost/internal/group"
	"watchpost/internal/status"
	statusdomain "watchpost/internal/status/domain"
)

// Handler serves GET /errors/groups.
type Handler struct {
	aggregator *group.Aggregator
	ledger     *status.Ledger
}

// NewHandler returns a groups handler reading from aggregator with status from ledger.
func NewHandler(aggregator *group.Aggregator, ledger *status.Ledger) *Handler {
	return &Handler{aggregator: aggregator, ledger: ledger}
}

// Register mounts the group routes on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/errors/groups", h.list)
}

// GroupView is one group with its operator status overlaid. Groups with no
// status record report "active".
type GroupView struct {
	group.Group
	Status     string     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func (h *Handler) list(c *gin.Context) {
	product := c.Query("product")

	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC 3339"})
			return
		}
		since = &t
	}

	groups, err := h.aggregator.Aggregate(c.Request.Context(), product, since)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event store unavailable"})
		return
	}
	overlay, err := h.ledger.Overlay(c.Request.Context(), product)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status store unavailable"})
		return
	}

	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		v := GroupView{Group: g, Status: string(statusdomain.StatusActive)}
		if rec, ok := overlay[status.OverlayKey(g.Fingerprint, g.Product)]; ok {
			v.Status = string(rec.Status)
			v.Notes = rec.Notes
			v.ResolvedAt = rec.ResolvedAt
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}
