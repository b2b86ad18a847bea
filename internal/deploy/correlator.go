// Package deploy correlates a deployment with the error volume around it:
// a bucketed timeline for charting, fingerprints first seen after the deploy,
// and a coarse badge comparing the hour before with the hour after.
package deploy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	deploydomain "watchpost/internal/deploy/domain"
	"watchpost/internal/deploy/repository"
	eventdomain "watchpost/internal/event/domain"
)

// Badge is the coarse classification of how error volume changed across a deploy.
type Badge string

const (
	BadgeNone  Badge = "none"
	BadgeRed   Badge = "red"
	BadgeGreen Badge = "green"
	BadgeGray  Badge = "gray"
)

// Classification policy constants: a >2x increase is red, a <0.5x decrease is
// green. Tunable parameters, not caller-configurable.
const (
	redIncreaseFactor   = 2.0
	greenDecreaseFactor = 0.5
)

// maxNewFingerprints caps the reported new-error list to keep the signal focused.
const maxNewFingerprints = 3

// Defaults for the correlation window and bucket width.
const (
	DefaultWindowHours   = 1
	DefaultBucketMinutes = 15
)

// ErrNotFound is returned when correlating an unknown deployment id.
var ErrNotFound = fmt.Errorf("deployment not found")

// TimeBucket is one fixed-width interval of the correlation timeline.
type TimeBucket struct {
	Start time.Time `json:"start"`
	Count int64     `json:"count"`
}

// Correlation is the derived, non-persisted result of comparing error volume
// around one deployment.
type Correlation struct {
	Deployment           *deploydomain.Deployment `json:"deployment"`
	Buckets              []TimeBucket             `json:"buckets"`
	NewErrorFingerprints []string                 `json:"new_error_fingerprints"`
	PreCount             int64                    `json:"pre_count"`
	PostCount            int64                    `json:"post_count"`
	Badge                Badge                    `json:"badge"`
	PctChange            int                      `json:"pct_change"`
}

// EventLister is the slice of the event store the correlator needs.
type EventLister interface {
	ListBetween(ctx context.Context, product string, from, to time.Time) ([]*eventdomain.ErrorEvent, error)
}

// Correlator computes deploy correlations on demand.
type Correlator struct {
	events  EventLister
	deploys repository.Repository
}

// NewCorrelator returns a correlator reading events and deployments from the given stores.
func NewCorrelator(events EventLister, deploys repository.Repository) *Correlator {
	return &Correlator{events: events, deploys: deploys}
}

// Correlate buckets the product's error volume from windowHours before the
// deploy to windowHours after, detects fingerprints new since the deploy,
// and classifies the before/after delta. Non-positive windowHours or
// bucketMinutes fall back to the defaults. An empty event window yields
// all-zero buckets and badge "none", never an error.
func (c *Correlator) Correlate(ctx context.Context, deploymentID string, windowHours, bucketMinutes int) (*Correlation, error) {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}
	if bucketMinutes <= 0 {
		bucketMinutes = DefaultBucketMinutes
	}

	dep, err := c.deploys.GetByID(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, deploymentID)
	}

	window := time.Duration(windowHours) * time.Hour
	from := dep.DeployedAt.Add(-window)
	to := dep.DeployedAt.Add(window)

	events, err := c.events.ListBetween(ctx, dep.Product, from, to)
	if err != nil {
		return nil, err
	}

	pre, post := splitCounts(events, dep.DeployedAt)
	badge, pct := Classify(pre, post)

	return &Correlation{
		Deployment:           dep,
		Buckets:              BucketEvents(events, from, to, time.Duration(bucketMinutes)*time.Minute),
		NewErrorFingerprints: newFingerprints(events, dep.DeployedAt),
		PreCount:             pre,
		PostCount:            post,
		Badge:                badge,
		PctChange:            pct,
	}, nil
}

// splitCounts counts events in the hour strictly before the deploy and the
// hour at/after it. The badge compares fixed one-hour sides regardless of the
// requested chart window.
func splitCounts(events []*eventdomain.ErrorEvent, deployedAt time.Time) (pre, post int64) {
	preFrom := deployedAt.Add(-time.Hour)
	postTo := deployedAt.Add(time.Hour)
	for _, e := range events {
		switch {
		case e.OccurredAt.Before(deployedAt):
			if !e.OccurredAt.Before(preFrom) {
				pre++
			}
		case e.OccurredAt.Before(postTo):
			post++
		}
	}
	return pre, post
}

// Classify maps a pre/post pair to a badge and percent change.
func Classify(pre, post int64) (Badge, int) {
	switch {
	case pre == 0 && post == 0:
		return BadgeNone, 0
	case float64(post) > float64(pre)*redIncreaseFactor:
		if pre == 0 {
			return BadgeRed, 100
		}
		return BadgeRed, int(math.Round(float64(post-pre) / float64(pre) * 100))
	case pre > 0 && float64(post) < float64(pre)*greenDecreaseFactor:
		return BadgeGreen, int(math.Round(float64(pre-post) / float64(pre) * 100))
	default:
		return BadgeGray, 0
	}
}

// BucketEvents partitions [from, to] into fixed-size buckets. Bucket keys are
// left-aligned (floor(unixms/size)*size), deterministic, and independent of
// event arrival order; every bucket in the range is emitted even when empty
// so charts render a continuous timeline. The bucket count is always
// ceil(span/size)+1.
func BucketEvents(events []*eventdomain.ErrorEvent, from, to time.Time, size time.Duration) []TimeBucket {
	sizeMs := size.Milliseconds()
	spanMs := to.Sub(from).Milliseconds()
	n := int((spanMs+sizeMs-1)/sizeMs) + 1

	startMs := floorTo(from.UnixMilli(), sizeMs)
	buckets := make([]TimeBucket, n)
	index := make(map[int64]int, n)
	for i := 0; i < n; i++ {
		keyMs := startMs + int64(i)*sizeMs
		buckets[i] = TimeBucket{Start: time.UnixMilli(keyMs).UTC()}
		index[keyMs] = i
	}

	for _, e := range events {
		keyMs := floorTo(e.OccurredAt.UnixMilli(), sizeMs)
		if i, ok := index[keyMs]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

func floorTo(ms, size int64) int64 {
	f := ms / size
	if ms < 0 && ms%size != 0 {
		f--
	}
	return f * size
}

// newFingerprints returns up to maxNewFingerprints fingerprints whose first
// event in the window is at or after the deploy, ordered by first post-deploy
// appearance. Events must be passed in a deterministic order.
func newFingerprints(events []*eventdomain.ErrorEvent, deployedAt time.Time) []string {
	seenBefore := make(map[string]bool)
	for _, e := range events {
		if e.OccurredAt.Before(deployedAt) {
			seenBefore[e.Fingerprint] = true
		}
	}

	type firstSeen struct {
		fp string
		at time.Time
	}
	var candidates []firstSeen
	firstAt := make(map[string]time.Time)
	for _, e := range events {
		if e.OccurredAt.Before(deployedAt) || seenBefore[e.Fingerprint] {
			continue
		}
		if prev, ok := firstAt[e.Fingerprint]; !ok || e.OccurredAt.Before(prev) {
			if !ok {
				candidates = append(candidates, firstSeen{fp: e.Fingerprint, at: e.OccurredAt})
			}
			firstAt[e.Fingerprint] = e.OccurredAt
		}
	}

	// Order by first post-deploy appearance.
	for i := range candidates {
		candidates[i].at = firstAt[candidates[i].fp]
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].at.Equal(candidates[j].at) {
			return candidates[i].at.Before(candidates[j].at)
		}
		return candidates[i].fp < candidates[j].fp
	})

	out := make([]string, 0, maxNewFingerprints)
	for _, c := range candidates {
		out = append(out, c.fp)
		if len(out) == maxNewFingerprints {
			break
		}
	}
	return out
}
