package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	eventdomain "watchpost/internal/event/domain"
	"watchpost/internal/ingest"
)

type mockEventWriter struct {
	inserted []*eventdomain.ErrorEvent
	err      error
}

func (m *mockEventWriter) Insert(ctx context.Context, e *eventdomain.ErrorEvent) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, e)
	return nil
}

func newTestRouter(store *mockEventWriter, max int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	gate := ingest.NewGate(store, ingest.NewWindowLimiter(time.Minute, max))
	r := gin.New()
	NewHandler(gate).Register(r.Group("/v1"))
	return r
}

const validBody = `{
	"product": "web-app",
	"error_message": "TypeError: x is undefined",
	"fingerprint": "0123456789abcdef",
	"error_type": "unhandled_exception",
	"source": "client"
}`

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/errors", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreate_Accepted(t *testing.T) {
	store := &mockEventWriter{}
	w := post(newTestRouter(store, 100), validBody)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d events, want 1", len(store.inserted))
	}
	if !strings.Contains(w.Body.String(), store.inserted[0].ID) {
		t.Error("response should echo the new event id")
	}
}

func TestCreate_MalformedJSON(t *testing.T) {
	w := post(newTestRouter(&mockEventWriter{}, 100), `{"product":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreate_MissingRequiredField(t *testing.T) {
	w := post(newTestRouter(&mockEventWriter{}, 100), `{"product": "web-app"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreate_RateLimited(t *testing.T) {
	r := newTestRouter(&mockEventWriter{}, 1)
	if w := post(r, validBody); w.Code != http.StatusCreated {
		t.Fatalf("first event: status = %d, want 201", w.Code)
	}
	if w := post(r, validBody); w.Code != http.StatusTooManyRequests {
		t.Errorf("second event: status = %d, want 429", w.Code)
	}
}

func TestCreate_StoreUnavailable(t *testing.T) {
	store := &mockEventWriter{err: errors.New("connection refused")}
	w := post(newTestRouter(store, 100), validBody)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
