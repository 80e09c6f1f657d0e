// internal/models/response.go
package models

import "time"

// ResponseStatus is the overall outcome of a request.
type ResponseStatus string

const (
	StatusComplete ResponseStatus = "complete"
	StatusPartial  ResponseStatus = "partial"
	StatusFailed   ResponseStatus = "failed"
)

// Section is one capability's contribution to the final answer. Failed
// capabilities still get a section, marked degraded with the failure kind,
// so the caller always sees what is missing and why.
type Section struct {
	Capability  Capability `json:"capability"`
	Content     string     `json:"content"`
	Sources     []Source   `json:"sources,omitempty"`
	Provenance  Provenance `json:"provenance"`
	FailureKind string     `json:"failureKind,omitempty"`
}

// Response is the final merged answer handed to the transport layer.
type Response struct {
	RequestID    string         `json:"requestId"`
	Status       ResponseStatus `json:"status"`
	Sections     []Section      `json:"sections"`
	ErrorSummary string         `json:"errorSummary,omitempty"`
	Language     string         `json:"language,omitempty"`
	Elapsed      time.Duration  `json:"elapsedNs"`
}
