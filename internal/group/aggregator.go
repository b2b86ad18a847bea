// Package group derives per-fingerprint rollups from raw error events. The
// aggregate is a recomputable view over the append-only event store, never
// independently persisted: rerunning it over the same snapshot yields
// identical output.
package group

import (
	"context"
	"sort"
	"time"

	"watchpost/internal/event/domain"
)

// EventLister is the slice of the event store the aggregator needs.
type EventLister interface {
	// ListSince returns events with occurred_at >= since ordered by created_at
	// ascending. product "" means all products.
	ListSince(ctx context.Context, product string, since time.Time) ([]*domain.ErrorEvent, error)
}

// Group is the rollup for one (fingerprint, product) pair.
type Group struct {
	Fingerprint string `json:"fingerprint"`
	Product     string `json:"product"`
	// Representative message and stack come from the most recently stored
	// event in the group (insertion order breaks ties).
	Message    string `json:"message"`
	StackTrace string `json:"stack_trace,omitempty"`

	OccurrenceCount int64     `json:"occurrence_count"`
	AffectedUsers   int64     `json:"affected_users"`
	Occurrences24h  int64     `json:"occurrences_24h"`
	Occurrences7d   int64     `json:"occurrences_7d"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
}

// Aggregator recomputes error groups on demand from the event store.
type Aggregator struct {
	events EventLister
	nowF   func() time.Time
}

// NewAggregator returns an aggregator reading from events.
func NewAggregator(events EventLister) *Aggregator {
	return &Aggregator{events: events, nowF: time.Now}
}

// Aggregate groups events by (fingerprint, product) and computes counts,
// distinct users, first/last seen, and the trailing 24h/7d windows against
// "now" at invocation. product "" covers all products; since nil means all
// history. An empty event set yields an empty slice, never an error.
func (a *Aggregator) Aggregate(ctx context.Context, product string, since *time.Time) ([]Group, error) {
	from := time.Time{}
	if since != nil {
		from = *since
	}
	events, err := a.events.ListSince(ctx, product, from)
	if err != nil {
		return nil, err
	}
	return Build(events, a.nowF().UTC()), nil
}

// Build computes groups from an event snapshot. Pure: same events and now
// produce identical output, so concurrent recomputations agree. Events must
// be in insertion (created_at) order for representative selection.
func Build(events []*domain.ErrorEvent, now time.Time) []Group {
	type acc struct {
		g     Group
		users map[string]struct{}
		repAt time.Time
	}

	cutoff24h := now.Add(-24 * time.Hour)
	cutoff7d := now.Add(-7 * 24 * time.Hour)

	byKey := make(map[string]*acc)
	order := make([]string, 0)

	for _, e := range events {
		key := e.Fingerprint + "\x00" + e.Product
		c, ok := byKey[key]
		if !ok {
			c = &acc{
				g: Group{
					Fingerprint: e.Fingerprint,
					Product:     e.Product,
					FirstSeen:   e.OccurredAt,
					LastSeen:    e.OccurredAt,
				},
				users: make(map[string]struct{}),
			}
			byKey[key] = c
			order = append(order, key)
		}

		c.g.OccurrenceCount++
		if e.UserID != "" {
			c.users[e.UserID] = struct{}{}
		}
		if e.OccurredAt.Before(c.g.FirstSeen) {
			c.g.FirstSeen = e.OccurredAt
		}
		if e.OccurredAt.After(c.g.LastSeen) {
			c.g.LastSeen = e.OccurredAt
		}
		if !e.OccurredAt.Before(cutoff24h) {
			c.g.Occurrences24h++
		}
		if !e.OccurredAt.Before(cutoff7d) {
			c.g.Occurrences7d++
		}
		// Later insertion wins ties, so iterating in created_at order keeps
		// the most recently stored event as representative.
		if !e.CreatedAt.Before(c.repAt) {
			c.repAt = e.CreatedAt
			c.g.Message = e.Message
			c.g.StackTrace = e.StackTrace
		}
	}

	out := make([]Group, 0, len(order))
	for _, key := range order {
		c := byKey[key]
		c.g.AffectedUsers = int64(len(c.users))
		out = append(out, c.g)
	}

	// Deterministic presentation: most recent groups first, fingerprint then
	// product as tiebreaks so repeated runs are byte-identical.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		if out[i].Fingerprint != out[j].Fingerprint {
			return out[i].Fingerprint < out[j].Fingerprint
		}
		return out[i].Product < out[j].Product
	})
	return out
}
