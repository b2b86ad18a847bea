package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"watchpost/internal/event/domain"
)

// mockEventWriter implements EventWriter for tests.
type mockEventWriter struct {
	events    []*domain.ErrorEvent
	failures  int // number of Insert calls to fail before succeeding
	insertErr error
}

func (m *mockEventWriter) Insert(ctx context.Context, e *domain.ErrorEvent) error {
	if m.failures > 0 {
		m.failures--
		return m.insertErr
	}
	m.events = append(m.events, e)
	return nil
}

func validSubmission() Submission {
	return Submission{
		Product:     "web",
		Message:     "TypeError: boom",
		ErrorType:   "unhandled_exception",
		Source:      "client",
		Fingerprint: "0123456789abcdef",
	}
}

func TestIngest_Success(t *testing.T) {
	store := &mockEventWriter{}
	g := NewGate(store, NewWindowLimiter(time.Minute, 100))

	id, err := g.Ingest(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if id == "" {
		t.Error("Ingest should return a non-empty event ID")
	}
	if len(store.events) != 1 {
		t.Fatalf("stored %d events, want 1", len(store.events))
	}
	e := store.events[0]
	if e.Environment != domain.EnvironmentProduction {
		t.Errorf("environment = %q, want production default", e.Environment)
	}
	if e.OccurredAt.IsZero() || e.CreatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestIngest_RejectsMissingRequiredFields(t *testing.T) {
	g := NewGate(&mockEventWriter{}, nil)
	cases := map[string]func(*Submission){
		"product":       func(s *Submission) { s.Product = "" },
		"error_message": func(s *Submission) { s.Message = "" },
		"fingerprint":   func(s *Submission) { s.Fingerprint = "XYZ" },
		"error_type":    func(s *Submission) { s.ErrorType = "segfault" },
		"source":        func(s *Submission) { s.Source = "mainframe" },
	}
	for name, mutate := range cases {
		sub := validSubmission()
		mutate(&sub)
		_, err := g.Ingest(context.Background(), sub)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestIngest_TruncatesOversizedFreeText(t *testing.T) {
	store := &mockEventWriter{}
	g := NewGate(store, nil)

	sub := validSubmission()
	sub.Message = strings.Repeat("m", 5000)
	sub.StackTrace = strings.Repeat("s", 20000)
	sub.UserAgent = strings.Repeat("u", 2000)

	if _, err := g.Ingest(context.Background(), sub); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	e := store.events[0]
	if len(e.Message) != 2000 {
		t.Errorf("message length = %d, want 2000", len(e.Message))
	}
	if len(e.StackTrace) != 10000 {
		t.Errorf("stack length = %d, want 10000", len(e.StackTrace))
	}
	if len(e.UserAgent) != 500 {
		t.Errorf("user agent length = %d, want 500", len(e.UserAgent))
	}
}

func TestIngest_TruncationKeepsValidUTF8(t *testing.T) {
	store := &mockEventWriter{}
	g := NewGate(store, nil)

	// A two-byte rune straddles the 2000-byte message cap: 1999 ASCII bytes,
	// then "é" at bytes 1999-2000. A byte-wise cut would split it and the
	// stored string would no longer be valid UTF-8.
	sub := validSubmission()
	sub.Message = strings.Repeat("m", 1999) + "é" + strings.Repeat("m", 100)
	sub.UserAgent = strings.Repeat("u", 499) + "é" + strings.Repeat("u", 100)

	if _, err := g.Ingest(context.Background(), sub); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	e := store.events[0]
	if !utf8.ValidString(e.Message) {
		t.Errorf("message is invalid UTF-8 after truncation (len=%d)", len(e.Message))
	}
	if len(e.Message) != 1999 {
		t.Errorf("message length = %d, want 1999 (straddling rune dropped whole)", len(e.Message))
	}
	if !utf8.ValidString(e.UserAgent) {
		t.Errorf("user agent is invalid UTF-8 after truncation (len=%d)", len(e.UserAgent))
	}
	if len(e.UserAgent) != 499 {
		t.Errorf("user agent length = %d, want 499 (straddling rune dropped whole)", len(e.UserAgent))
	}
}

func TestIngest_DropsNonUUIDUserID(t *testing.T) {
	store := &mockEventWriter{}
	g := NewGate(store, nil)

	sub := validSubmission()
	sub.UserID = "not-a-uuid"
	if _, err := g.Ingest(context.Background(), sub); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if store.events[0].UserID != "" {
		t.Errorf("user_id = %q, want dropped", store.events[0].UserID)
	}

	sub = validSubmission()
	sub.UserID = "7da9fb80-2b5d-4b58-9c2e-3a1f0c7d9e21"
	if _, err := g.Ingest(context.Background(), sub); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if store.events[1].UserID != sub.UserID {
		t.Errorf("user_id = %q, want kept", store.events[1].UserID)
	}
}

func TestIngest_ReplacesOversizedOrMalformedMetadata(t *testing.T) {
	store := &mockEventWriter{}
	g := NewGate(store, nil)

	sub := validSubmission()
	sub.Metadata = json.RawMessage(`{"big":"` + strings.Repeat("x", 6000) + `"}`)
	if _, err := g.Ingest(context.Background(), sub); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if string(store.events[0].Metadata) != "{}" {
		t.Errorf("oversized metadata = %s, want {}", store.events[0].Metadata)
	}

	sub = validSubmission()
	sub.Metadata = json.RawMessage(`{"broken":`)
	if _, err := g.Ingest(context.Background(), sub); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if string(store.events[1].Metadata) != "{}" {
		t.Errorf("malformed metadata = %s, want {}", store.events[1].Metadata)
	}

	sub = validSubmission()
	sub.Metadata = json.RawMessage(`{"release":"1.2.3"}`)
	if _, err := g.Ingest(context.Background(), sub); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if string(store.events[2].Metadata) != `{"release":"1.2.3"}` {
		t.Errorf("valid metadata = %s, want kept", store.events[2].Metadata)
	}
}

func TestIngest_ReplacesNonObjectMetadata(t *testing.T) {
	store := &mockEventWriter{}
	g := NewGate(store, nil)

	// Valid JSON that is not an object still becomes {}: the column holds objects.
	for i, raw := range []string{`[1,2,3]`, `"tag"`, `42`, `null`} {
		sub := validSubmission()
		sub.Metadata = json.RawMessage(raw)
		if _, err := g.Ingest(context.Background(), sub); err != nil {
			t.Fatalf("Ingest %s: %v", raw, err)
		}
		if string(store.events[i].Metadata) != "{}" {
			t.Errorf("metadata %s stored as %s, want {}", raw, store.events[i].Metadata)
		}
	}
}

func TestIngest_RateLimited(t *testing.T) {
	store := &mockEventWriter{}
	g := NewGate(store, NewWindowLimiter(time.Minute, 2))

	for i := 0; i < 2; i++ {
		if _, err := g.Ingest(context.Background(), validSubmission()); err != nil {
			t.Fatalf("event %d: %v", i+1, err)
		}
	}
	_, err := g.Ingest(context.Background(), validSubmission())
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if len(store.events) != 2 {
		t.Errorf("stored %d events, want 2 (over-cap event must be dropped)", len(store.events))
	}
}

func TestIngest_RetriesOnceThenSucceeds(t *testing.T) {
	store := &mockEventWriter{failures: 1, insertErr: errors.New("connection reset")}
	g := NewGate(store, nil)

	if _, err := g.Ingest(context.Background(), validSubmission()); err != nil {
		t.Fatalf("Ingest should succeed after one retry: %v", err)
	}
	if len(store.events) != 1 {
		t.Errorf("stored %d events, want 1", len(store.events))
	}
}

func TestIngest_StoreUnavailableAfterRetry(t *testing.T) {
	store := &mockEventWriter{failures: 2, insertErr: errors.New("connection reset")}
	g := NewGate(store, nil)

	_, err := g.Ingest(context.Background(), validSubmission())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}
