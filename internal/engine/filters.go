package engine

import (
	"fmt"
	"strings"
)

// TimeRange bounds profile dates, inclusive. Empty fields are ignored.
type TimeRange struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Filters carries user-supplied measurement filter criteria. All values are
// bound as query parameters, never interpolated into SQL text.
type Filters struct {
	TimeRange           *TimeRange `json:"time_range,omitempty"`
	LatRange            []float64  `json:"lat_range,omitempty"`
	LonRange            []float64  `json:"lon_range,omitempty"`
	DepthRange          []float64  `json:"depth_range,omitempty"`
	Parameters          []string   `json:"parameters,omitempty"`
	DeploymentYearRange []int      `json:"deployment_year_range,omitempty"`
	QualityLevels       []int      `json:"quality_levels,omitempty"`
	NetworkTypes        []string   `json:"network_types,omitempty"`
}

// measurementParameters are the filterable measurement columns.
var measurementParameters = map[string]bool{
	"temperature": true,
	"salinity":    true,
	"pressure":    true,
}

const filteredBaseQuery = `SELECT
	m.profile_id,
	f.float_id,
	m.temperature,
	m.salinity,
	m.pressure,
	p.profile_date AS date,
	f.deployment_latitude AS latitude,
	f.deployment_longitude AS longitude
FROM measurements m
JOIN profiles p ON m.profile_id = p.profile_id
JOIN floats f ON p.float_id = f.float_id
WHERE 1=1`

// BuildFilteredQuery translates filter criteria into a parameterized query
// and its bound arguments. Malformed ranges are rejected up front so they
// never reach the engine.
func BuildFilteredQuery(f Filters) (string, []interface{}, error) {
	var conditions []string
	var args []interface{}

	rangeCond := func(column string, bounds []float64) error {
		if bounds == nil {
			return nil
		}
		if len(bounds) != 2 {
			return fmt.Errorf("range filter for %s must have exactly 2 bounds, got %d", column, len(bounds))
		}
		conditions = append(conditions, column+" BETWEEN ? AND ?")
		args = append(args, bounds[0], bounds[1])
		return nil
	}

	if err := rangeCond("f.deployment_latitude", f.LatRange); err != nil {
		return "", nil, err
	}
	if err := rangeCond("f.deployment_longitude", f.LonRange); err != nil {
		return "", nil, err
	}
	if err := rangeCond("m.pressure", f.DepthRange); err != nil {
		return "", nil, err
	}

	if f.TimeRange != nil {
		if f.TimeRange.StartDate != "" {
			conditions = append(conditions, "p.profile_date >= ?")
			args = append(args, f.TimeRange.StartDate)
		}
		if f.TimeRange.EndDate != "" {
			conditions = append(conditions, "p.profile_date <= ?")
			args = append(args, f.TimeRange.EndDate)
		}
	}

	for _, param := range f.Parameters {
		if !measurementParameters[param] {
			return "", nil, fmt.Errorf("unknown filter parameter %q", param)
		}
		// Requesting a parameter implies QC filtering for it.
		switch param {
		case "temperature":
			conditions = append(conditions, "m.temperature_qc <= 2")
		case "salinity":
			conditions = append(conditions, "m.salinity_qc <= 2")
		}
	}

	if len(f.QualityLevels) > 0 {
		placeholders := make([]string, len(f.QualityLevels))
		for i, level := range f.QualityLevels {
			placeholders[i] = "?"
			args = append(args, level)
		}
		conditions = append(conditions, "m.temperature_qc IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(f.NetworkTypes) > 0 {
		placeholders := make([]string, len(f.NetworkTypes))
		for i, network := range f.NetworkTypes {
			placeholders[i] = "?"
			args = append(args, network)
		}
		conditions = append(conditions, "f.program_name IN ("+strings.Join(placeholders, ", ")+")")
	}

	if f.DeploymentYearRange != nil {
		if len(f.DeploymentYearRange) != 2 {
			return "", nil, fmt.Errorf("deployment_year_range must have exactly 2 bounds, got %d", len(f.DeploymentYearRange))
		}
		conditions = append(conditions, "CAST(strftime('%Y', f.deployment_date) AS INTEGER) BETWEEN ? AND ?")
		args = append(args, f.DeploymentYearRange[0], f.DeploymentYearRange[1])
	}

	query := filteredBaseQuery
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	return query, args, nil
}
