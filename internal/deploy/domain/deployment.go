// Package domain defines the Deployment model: an external event marking a release.
package domain

import "time"

// Deployment marks one release of a product.
type Deployment struct {
	ID            string    `json:"id"`
	Product       string    `json:"product"`
	DeployedAt    time.Time `json:"deployed_at"`
	CommitSHA     string    `json:"commit_sha,omitempty"`
	CommitMessage string    `json:"commit_message,omitempty"`
	CommitAuthor  string    `json:"commit_author,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
