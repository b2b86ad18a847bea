package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"watchpost/internal/deploy"
	"watchpost/internal/deploy/domain"
	eventdomain "watchpost/internal/event/domain"
)

type mockDeployRepo struct {
	deployments map[string]*domain.Deployment
}

func (m *mockDeployRepo) Create(ctx context.Context, d *domain.Deployment) error {
	m.deployments[d.ID] = d
	return nil
}

func (m *mockDeployRepo) GetByID(ctx context.Context, id string) (*domain.Deployment, error) {
	return m.deployments[id], nil
}

func (m *mockDeployRepo) ListByProduct(ctx context.Context, product string, limit int) ([]*domain.Deployment, error) {
	var out []*domain.Deployment
	for _, d := range m.deployments {
		if d.Product == product {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockEventLister struct{}

func (mockEventLister) ListBetween(ctx context.Context, product string, from, to time.Time) ([]*eventdomain.ErrorEvent, error) {
	return nil, nil
}

func newTestRouter(repo *mockDeployRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(repo, deploy.NewCorrelator(mockEventLister{}, repo)).Register(r.Group("/v1"))
	return r
}

func TestCreate_Persists(t *testing.T) {
	repo := &mockDeployRepo{deployments: map[string]*domain.Deployment{}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/deployments", strings.NewReader(
		`{"product": "web", "deployed_at": "2026-03-01T12:00:00Z", "commit_sha": "9f3b2a1c"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}
	if len(repo.deployments) != 1 {
		t.Fatalf("stored %d deployments, want 1", len(repo.deployments))
	}
	var created domain.Deployment
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if created.ID == "" {
		t.Error("response should carry the generated id")
	}
	if created.CommitSHA != "9f3b2a1c" {
		t.Errorf("commit_sha = %q, want 9f3b2a1c", created.CommitSHA)
	}
}

func TestCreate_DefaultsDeployedAt(t *testing.T) {
	repo := &mockDeployRepo{deployments: map[string]*domain.Deployment{}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/deployments", strings.NewReader(
		`{"product": "web"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}
	for _, d := range repo.deployments {
		if d.DeployedAt.IsZero() {
			t.Error("omitted deployed_at should default to the current time")
		}
	}
}

func TestCreate_MissingProduct(t *testing.T) {
	repo := &mockDeployRepo{deployments: map[string]*domain.Deployment{}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/deployments", strings.NewReader(
		`{"deployed_at": "2026-03-01T12:00:00Z"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCorrelate_UnknownDeployment(t *testing.T) {
	repo := &mockDeployRepo{deployments: map[string]*domain.Deployment{}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/deployments/missing/correlation", nil)
	newTestRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCorrelate_EmptyWindow(t *testing.T) {
	repo := &mockDeployRepo{deployments: map[string]*domain.Deployment{
		"dep-1": {ID: "dep-1", Product: "web", DeployedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/deployments/dep-1/correlation", nil)
	newTestRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var corr deploy.Correlation
	if err := json.Unmarshal(w.Body.Bytes(), &corr); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if corr.Badge != deploy.BadgeNone {
		t.Errorf("badge = %q, want none", corr.Badge)
	}
	if len(corr.Buckets) != 9 {
		t.Errorf("buckets = %d, want 9 (default 1h window, 15m buckets)", len(corr.Buckets))
	}
}

func TestCorrelate_BadWindowParam(t *testing.T) {
	repo := &mockDeployRepo{deployments: map[string]*domain.Deployment{}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/deployments/dep-1/correlation?window_hours=soon", nil)
	newTestRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
