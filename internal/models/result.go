// internal/models/result.go
package models

import "time"

// ResultStatus is the tagged outcome of one dispatched capability call.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailure ResultStatus = "failure"
	ResultTimeout ResultStatus = "timeout"
)

// Provenance records where a section's content came from.
type Provenance string

const (
	ProvenanceLive     Provenance = "live"
	ProvenanceCache    Provenance = "cache"
	ProvenanceDegraded Provenance = "degraded"
)

// Source names one origin of provider content (a document, URL, table row).
type Source struct {
	Name  string  `json:"source"`
	Score float64 `json:"score"`
}

// Payload is the content a provider produced for one capability call.
type Payload struct {
	Content string                 `json:"content"`
	Sources []Source               `json:"sources,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ProviderResult is the outcome slot for one capability of an intent.
// The scheduler guarantees exactly one per requested capability, even when
// the underlying call timed out or was cancelled.
type ProviderResult struct {
	Capability  Capability    `json:"capability"`
	Status      ResultStatus  `json:"status"`
	Payload     *Payload      `json:"payload,omitempty"`
	FailureKind string        `json:"failureKind,omitempty"`
	Message     string        `json:"message,omitempty"`
	Latency     time.Duration `json:"latencyNs,omitempty"`
	Provenance  Provenance    `json:"provenance"`
}
