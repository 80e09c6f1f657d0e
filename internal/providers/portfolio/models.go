// internal/providers/portfolio/models.go
package portfolio

// Holding is one position in the holdings table.
type Holding struct {
	Symbol    string
	Company   string
	Sector    string
	Quantity  float64
	AvgCost   float64
	LastPrice float64
}

// Value returns the current market value of the position.
func (h Holding) Value() float64 {
	return h.Quantity * h.LastPrice
}

// Cost returns the acquisition cost of the position.
func (h Holding) Cost() float64 {
	return h.Quantity * h.AvgCost
}
