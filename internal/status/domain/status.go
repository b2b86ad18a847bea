// Package domain defines the operator-owned lifecycle record for an error group.
package domain

import "time"

// Status is the operator-assigned lifecycle state of an error group.
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusIgnored      Status = "ignored"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusAcknowledged, StatusResolved, StatusIgnored:
		return true
	}
	return false
}

// Record is the lifecycle state for one (fingerprint, product) pair. At most
// one row exists per pair; absent rows mean "active". ResolvedAt is fully
// derived from status transitions: set iff status is resolved.
type Record struct {
	Fingerprint string
	Product     string
	Status      Status
	Notes       string
	ResolvedAt  *time.Time
	UpdatedAt   time.Time
}
