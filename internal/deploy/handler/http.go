// Package handler exposes deployments and deploy correlation over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"watchpost/internal/deploy"
	"watchpost/internal/deploy/domain"
	"watchpost/internal/deploy/repository"
)

// Handler serves the /deployments routes.
type Handler struct {
	repo       repository.Repository
	correlator *deploy.Correlator
	nowF       func() time.Time
}

// NewHandler returns a deployment handler persisting through repo and
// correlating through correlator.
func NewHandler(repo repository.Repository, correlator *deploy.Correlator) *Handler {
	return &Handler{repo: repo, correlator: correlator, nowF: time.Now}
}

// Register mounts the deployment routes on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/deployments", h.create)
	rg.GET("/deployments", h.list)
	rg.GET("/deployments/:id/correlation", h.correlate)
}

type createRequest struct {
	Product       string    `json:"product"`
	DeployedAt    time.Time `json:"deployed_at"`
	CommitSHA     string    `json:"commit_sha"`
	CommitMessage string    `json:"commit_message"`
	CommitAuthor  string    `json:"commit_author"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Product == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product is required"})
		return
	}
	deployedAt := req.DeployedAt.UTC()
	if req.DeployedAt.IsZero() {
		deployedAt = h.nowF().UTC()
	}

	d := &domain.Deployment{
		ID:            uuid.NewString(),
		Product:       req.Product,
		DeployedAt:    deployedAt,
		CommitSHA:     req.CommitSHA,
		CommitMessage: req.CommitMessage,
		CommitAuthor:  req.CommitAuthor,
		CreatedAt:     h.nowF().UTC(),
	}
	if err := h.repo.Create(c.Request.Context(), d); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deployment store unavailable"})
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) list(c *gin.Context) {
	product := c.Query("product")
	if product == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product is required"})
		return
	}
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}

	deployments, err := h.repo.ListByProduct(c.Request.Context(), product, limit)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deployment store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deployments": deployments})
}

func (h *Handler) correlate(c *gin.Context) {
	windowHours, ok := intQuery(c, "window_hours", 0)
	if !ok {
		return
	}
	bucketMinutes, ok := intQuery(c, "bucket_minutes", 0)
	if !ok {
		return
	}

	corr, err := h.correlator.Correlate(c.Request.Context(), c.Param("id"), windowHours, bucketMinutes)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, corr)
	case errors.Is(err, deploy.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "deployment not found"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event store unavailable"})
	}
}

// intQuery parses an optional non-negative integer query parameter. On a bad
// value it writes a 400 and returns ok=false.
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a non-negative integer"})
		return 0, false
	}
	return n, true
}
