// internal/models/query.go
package models

import "time"

// Query is one incoming natural-language request. It is built once by the
// transport layer and never mutated afterwards.
type Query struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	SessionID  string    `json:"sessionId,omitempty"`
	Language   string    `json:"language,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Intent is the ordered set of capabilities a query requires, produced by
// the classifier and consumed by the scheduler.
type Intent struct {
	Requests []CapabilityRequest `json:"requests"`
	// Fallback marks an intent synthesized because no capability matched.
	Fallback bool `json:"fallback,omitempty"`
}

// CapabilityRequest pairs one capability tag with its extracted parameters.
type CapabilityRequest struct {
	Capability Capability        `json:"capability"`
	Params     map[string]string `json:"params"`
	Confidence float64           `json:"confidence"`
}

// Capabilities returns the requested tags in selection order.
func (in Intent) Capabilities() []Capability {
	caps := make([]Capability, 0, len(in.Requests))
	for _, r := range in.Requests {
		caps = append(caps, r.Capability)
	}
	return caps
}
