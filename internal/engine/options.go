package engine

import (
	"context"

	"go.uber.org/zap"
)

// FilterOptions reports the filterable value ranges present in the dataset,
// falling back to sensible defaults when a probe fails.
type FilterOptions struct {
	Parameters    []string           `json:"parameters"`
	QualityLevels []int              `json:"qualityLevels"`
	DateRange     map[string]string  `json:"dateRange"`
	DepthRange    map[string]float64 `json:"depthRange"`
	GeoRange      map[string]float64 `json:"geoRange"`
}

// DefaultFilterOptions are returned for probes that fail or find no data.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		Parameters:    []string{"temperature", "salinity", "pressure"},
		QualityLevels: []int{1, 2, 3, 4},
		DateRange:     map[string]string{"min": "2000-01-01", "max": "2024-12-31"},
		DepthRange:    map[string]float64{"min": 0, "max": 2000},
		GeoRange:      map[string]float64{"latMin": -80, "latMax": 80, "lonMin": -180, "lonMax": 180},
	}
}

// FilterOptions probes the dataset for actual value ranges. Each probe
// degrades independently to its default.
func (e *Engine) FilterOptions(ctx context.Context) FilterOptions {
	opts := DefaultFilterOptions()

	var levels []int
	rows, err := e.QueryArgs(ctx,
		"SELECT DISTINCT temperature_qc FROM measurements WHERE temperature_qc IS NOT NULL ORDER BY temperature_qc LIMIT 10")
	if err == nil {
		for _, row := range rows {
			if v, ok := row["temperature_qc"].(int64); ok {
				levels = append(levels, int(v))
			}
		}
	}
	if len(levels) > 0 {
		opts.QualityLevels = levels
	} else if err != nil {
		e.logger.Debug("Quality level probe failed, using defaults", zap.Error(err))
	}

	var minDate, maxDate string
	err = e.db.QueryRowContext(ctx,
		"SELECT MIN(profile_date), MAX(profile_date) FROM profiles WHERE profile_date IS NOT NULL").
		Scan(&minDate, &maxDate)
	if err == nil && minDate != "" {
		opts.DateRange = map[string]string{"min": minDate, "max": maxDate}
	}

	var minDepth, maxDepth float64
	err = e.db.QueryRowContext(ctx,
		"SELECT MIN(pressure), MAX(pressure) FROM measurements WHERE pressure IS NOT NULL").
		Scan(&minDepth, &maxDepth)
	if err == nil {
		opts.DepthRange = map[string]float64{"min": minDepth, "max": maxDepth}
	}

	var latMin, latMax, lonMin, lonMax float64
	err = e.db.QueryRowContext(ctx,
		`SELECT MIN(deployment_latitude), MAX(deployment_latitude),
		        MIN(deployment_longitude), MAX(deployment_longitude)
		 FROM floats WHERE deployment_latitude IS NOT NULL`).
		Scan(&latMin, &latMax, &lonMin, &lonMax)
	if err == nil {
		opts.GeoRange = map[string]float64{"latMin": latMin, "latMax": latMax, "lonMin": lonMin, "lonMax": lonMax}
	}

	return opts
}
