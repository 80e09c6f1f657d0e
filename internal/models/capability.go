// internal/models/capability.go
package models

// Capability identifies one backend skill the assistant can route a query to.
// The set is closed; providers are registered per tag at startup.
type Capability string

const (
	CapabilityRetrieval Capability = "retrieval"
	CapabilityStock     Capability = "stock"
	CapabilityPortfolio Capability = "portfolio"
	CapabilityWebSearch Capability = "websearch"
	CapabilityEmail     Capability = "email"
)

// AllCapabilities lists every known tag in merge-priority order:
// document findings first, then numeric/portfolio facts, then news,
// then action confirmations.
var AllCapabilities = []Capability{
	CapabilityRetrieval,
	CapabilityPortfolio,
	CapabilityStock,
	CapabilityWebSearch,
	CapabilityEmail,
}

// Valid reports whether c is one of the known capability tags.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityRetrieval, CapabilityStock, CapabilityPortfolio, CapabilityWebSearch, CapabilityEmail:
		return true
	}
	return false
}

// MergePriority returns the position of c in the fixed presentation order.
// Unknown tags sort last.
func (c Capability) MergePriority() int {
	for i, known := range AllCapabilities {
		if c == known {
			return i
		}
	}
	return len(AllCapabilities)
}
