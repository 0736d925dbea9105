// Package thresholds computes adaptive confidence cutoffs for routing
// decisions.
package thresholds

// Base threshold values tuned for the template corpus.
const (
	BaseHigh   = 0.45
	BaseMedium = 0.25
	BaseLow    = 0.10

	// Floor is the minimum value any threshold may take after adjustment.
	Floor = 0.05

	// schemaMatchBoost is applied when the best retrieved candidate is a
	// direct schema match (column or table query).
	schemaMatchBoost = 0.05
)

// Set holds the three routing cutoffs for one request.
type Set struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

// Adjustment lookup tables. Unmatched keys contribute zero.
var (
	queryTypeAdjustments = map[string]float64{
		"column_query":      0.10,
		"table_query":       0.05,
		"count_query":       0.08,
		"join_query":        -0.05,
		"measurement_query": 0.03,
	}

	complexityAdjustments = map[string]float64{
		"simple":  0.05,
		"medium":  0.0,
		"complex": -0.05,
	}

	intentAdjustments = map[string]float64{
		"count_statistics": 0.08,
		"data_retrieval":   0.06,
		"data_filtering":   -0.02,
		"aggregation":      -0.03,
		"quality_control":  0.02,
	}
)

// Inputs carries the request characteristics that drive adjustment.
type Inputs struct {
	QueryType  string
	Complexity string
	Intent     string
	// BestCandidateType is the metadata type of the top retrieved template,
	// empty when retrieval returned nothing.
	BestCandidateType string
}

// Calculate returns the adaptive threshold set for one request. It is a
// pure function: identical inputs always produce identical outputs.
func Calculate(in Inputs) Set {
	adjustment := queryTypeAdjustments[in.QueryType] +
		complexityAdjustments[in.Complexity] +
		intentAdjustments[in.Intent]

	if in.BestCandidateType == "column_query" || in.BestCandidateType == "table_query" {
		adjustment += schemaMatchBoost
	}

	return Set{
		High:   floor(BaseHigh + adjustment),
		Medium: floor(BaseMedium + adjustment),
		Low:    floor(BaseLow + adjustment),
	}
}

func floor(v float64) float64 {
	if v < Floor {
		return Floor
	}
	return v
}
