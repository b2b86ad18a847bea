// Package domain defines the SpikeAlert model: a record of one product's
// error rate exceeding its historical baseline. Alerts are retained as an
// audit trail and never auto-deleted.
package domain

import "time"

// Alert is one spike detection. CurrentCount is the error count in the
// trailing hour; BaselineAvg is the 7-day hourly average excluding the
// current hour; SpikeMultiplier is their ratio.
type Alert struct {
	ID              string     `json:"id"`
	Product         string     `json:"product"`
	CurrentCount    int64      `json:"current_count"`
	BaselineAvg     float64    `json:"baseline_avg"`
	SpikeMultiplier float64    `json:"spike_multiplier"`
	AlertedAt       time.Time  `json:"alerted_at"`
	Acknowledged    bool       `json:"acknowledged"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
}
