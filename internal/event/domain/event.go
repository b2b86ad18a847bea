// Package domain defines the ErrorEvent model: one raw error occurrence as
// reported by an instrumented product. Events are immutable once written.
package domain

import "time"

// ErrorType classifies how the error was caught.
type ErrorType string

const (
	ErrorTypeUnhandledException ErrorType = "unhandled_exception"
	ErrorTypeAPIError           ErrorType = "api_error"
	ErrorTypeClientCrash        ErrorType = "client_crash"
	ErrorTypeEdgeFunctionError  ErrorType = "edge_function_error"
)

// Valid reports whether t is one of the known error types.
func (t ErrorType) Valid() bool {
	switch t {
	case ErrorTypeUnhandledException, ErrorTypeAPIError, ErrorTypeClientCrash, ErrorTypeEdgeFunctionError:
		return true
	}
	return false
}

// Source identifies where the error originated.
type Source string

const (
	SourceClient       Source = "client"
	SourceServer       Source = "server"
	SourceEdgeFunction Source = "edge_function"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceClient, SourceServer, SourceEdgeFunction:
		return true
	}
	return false
}

// Environment is the reporting product's runtime environment.
type Environment string

const (
	EnvironmentProduction  Environment = "production"
	EnvironmentStaging     Environment = "staging"
	EnvironmentDevelopment Environment = "development"
)

// Valid reports whether e is one of the known environments.
func (e Environment) Valid() bool {
	switch e {
	case EnvironmentProduction, EnvironmentStaging, EnvironmentDevelopment:
		return true
	}
	return false
}

// ErrorEvent is one raw error occurrence. Created by the ingestion gate,
// never mutated, deleted only by the external retention sweep.
type ErrorEvent struct {
	ID          string
	Product     string
	Message     string
	StackTrace  string // empty if none
	ErrorType   ErrorType
	Source      Source
	Fingerprint string // 16 lowercase hex chars
	OccurredAt  time.Time

	// Optional request metadata.
	RequestURL    string
	RequestMethod string
	RequestStatus int // 0 if not set

	CurrentRoute string
	AppVersion   string
	UserAgent    string
	UserID       string // UUID, empty when the reporter had no identified user
	Environment  Environment
	Metadata     []byte // JSON object, bounded at ingestion

	CreatedAt time.Time
}
