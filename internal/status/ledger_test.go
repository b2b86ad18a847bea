package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"watchpost/internal/status/domain"
)

// mockStatusRepo implements repository.Repository for tests.
type mockStatusRepo struct {
	rows      map[string]*domain.Record
	upserts   int
	failAfter int // fail the Nth upsert (1-based); 0 disables
}

func (m *mockStatusRepo) key(fp, product string) string { return fp + "|" + product }

func (m *mockStatusRepo) Upsert(ctx context.Context, rec *domain.Record) error {
	m.upserts++
	if m.failAfter > 0 && m.upserts >= m.failAfter {
		return errors.New("connection reset")
	}
	if m.rows == nil {
		m.rows = make(map[string]*domain.Record)
	}
	cp := *rec
	m.rows[m.key(rec.Fingerprint, rec.Product)] = &cp
	return nil
}

func (m *mockStatusRepo) Get(ctx context.Context, fp, product string) (*domain.Record, error) {
	return m.rows[m.key(fp, product)], nil
}

func (m *mockStatusRepo) ListByProduct(ctx context.Context, product string) ([]*domain.Record, error) {
	var out []*domain.Record
	for _, rec := range m.rows {
		if product == "" || rec.Product == product {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestSet_ResolvedStampsResolvedAt(t *testing.T) {
	repo := &mockStatusRepo{}
	l := NewLedger(repo)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.nowF = func() time.Time { return now }

	if err := l.Set(context.Background(), "0123456789abcdef", "web", domain.StatusResolved, "fixed in 1.2.3"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	rec := repo.rows["0123456789abcdef|web"]
	if rec == nil {
		t.Fatal("no row upserted")
	}
	if rec.ResolvedAt == nil || !rec.ResolvedAt.Equal(now) {
		t.Errorf("resolved_at = %v, want %v", rec.ResolvedAt, now)
	}
}

func TestSet_NonResolvedClearsResolvedAt(t *testing.T) {
	repo := &mockStatusRepo{}
	l := NewLedger(repo)

	if err := l.Set(context.Background(), "0123456789abcdef", "web", domain.StatusResolved, ""); err != nil {
		t.Fatalf("Set resolved: %v", err)
	}
	if err := l.Set(context.Background(), "0123456789abcdef", "web", domain.StatusAcknowledged, ""); err != nil {
		t.Fatalf("Set acknowledged: %v", err)
	}
	rec := repo.rows["0123456789abcdef|web"]
	if rec.ResolvedAt != nil {
		t.Errorf("resolved_at = %v, want nil after leaving resolved", rec.ResolvedAt)
	}
	if rec.Status != domain.StatusAcknowledged {
		t.Errorf("status = %q, want acknowledged", rec.Status)
	}
}

func TestSet_UpsertIdempotent(t *testing.T) {
	repo := &mockStatusRepo{}
	l := NewLedger(repo)

	for i := 0; i < 2; i++ {
		if err := l.Set(context.Background(), "0123456789abcdef", "web", domain.StatusResolved, ""); err != nil {
			t.Fatalf("Set #%d: %v", i+1, err)
		}
	}
	if len(repo.rows) != 1 {
		t.Errorf("rows = %d, want exactly 1 for the pair", len(repo.rows))
	}
	if repo.rows["0123456789abcdef|web"].ResolvedAt == nil {
		t.Error("resolved_at should be set")
	}
}

func TestSet_RejectsUnknownStatus(t *testing.T) {
	l := NewLedger(&mockStatusRepo{})
	err := l.Set(context.Background(), "0123456789abcdef", "web", domain.Status("snoozed"), "")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestSetBulk_AppliesToAll(t *testing.T) {
	repo := &mockStatusRepo{}
	l := NewLedger(repo)

	items := []Item{
		{Fingerprint: "0123456789abcdef", Product: "web"},
		{Fingerprint: "fedcba9876543210", Product: "web"},
		{Fingerprint: "0123456789abcdef", Product: "mobile"},
	}
	n, err := l.SetBulk(context.Background(), items, domain.StatusIgnored, "")
	if err != nil {
		t.Fatalf("SetBulk: %v", err)
	}
	if n != 3 {
		t.Errorf("updated = %d, want 3", n)
	}
	if len(repo.rows) != 3 {
		t.Errorf("rows = %d, want 3", len(repo.rows))
	}
}

func TestSetBulk_RejectsEmptyOversizedAndMalformed(t *testing.T) {
	l := NewLedger(&mockStatusRepo{})

	if _, err := l.SetBulk(context.Background(), nil, domain.StatusActive, ""); !errors.Is(err, ErrInvalidBulk) {
		t.Errorf("empty: err = %v, want ErrInvalidBulk", err)
	}

	big := make([]Item, MaxBulkItems+1)
	for i := range big {
		big[i] = Item{Fingerprint: "0123456789abcdef", Product: "web"}
	}
	if _, err := l.SetBulk(context.Background(), big, domain.StatusActive, ""); !errors.Is(err, ErrInvalidBulk) {
		t.Errorf("oversized: err = %v, want ErrInvalidBulk", err)
	}

	bad := []Item{{Fingerprint: "0123456789abcdef", Product: "web"}, {Fingerprint: "", Product: "web"}}
	if _, err := l.SetBulk(context.Background(), bad, domain.StatusActive, ""); !errors.Is(err, ErrInvalidBulk) {
		t.Errorf("malformed item: err = %v, want ErrInvalidBulk", err)
	}
}

func TestSetBulk_PartialFailureReportsCount(t *testing.T) {
	repo := &mockStatusRepo{failAfter: 3}
	l := NewLedger(repo)

	items := []Item{
		{Fingerprint: "0123456789abcdef", Product: "web"},
		{Fingerprint: "fedcba9876543210", Product: "web"},
		{Fingerprint: "00112233445566ff", Product: "web"},
	}
	n, err := l.SetBulk(context.Background(), items, domain.StatusResolved, "")
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if n != 2 {
		t.Errorf("updated = %d, want 2 rows before the failure", n)
	}
}

func TestOverlay(t *testing.T) {
	repo := &mockStatusRepo{}
	l := NewLedger(repo)
	if err := l.Set(context.Background(), "0123456789abcdef", "web", domain.StatusIgnored, ""); err != nil {
		t.Fatalf("Set: %v", err)
	}

	overlay, err := l.Overlay(context.Background(), "web")
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	rec := overlay[OverlayKey("0123456789abcdef", "web")]
	if rec == nil || rec.Status != domain.StatusIgnored {
		t.Errorf("overlay record = %+v, want ignored", rec)
	}
	if overlay[OverlayKey("unknown", "web")] != nil {
		t.Error("unknown pair should have no record (defaults to active at display time)")
	}
}
