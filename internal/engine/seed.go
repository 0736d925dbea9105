package engine

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// seedSchema creates the demo dataset tables.
var seedSchema = []string{
	`CREATE TABLE IF NOT EXISTS floats (
		float_id TEXT PRIMARY KEY,
		platform_number TEXT,
		deployment_date TEXT,
		deployment_latitude REAL,
		deployment_longitude REAL,
		program_name TEXT,
		status TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		profile_id TEXT PRIMARY KEY,
		float_id TEXT REFERENCES floats(float_id),
		cycle_number INTEGER,
		profile_date TEXT,
		latitude REAL,
		longitude REAL
	)`,
	`CREATE TABLE IF NOT EXISTS measurements (
		measurement_id INTEGER PRIMARY KEY,
		profile_id TEXT REFERENCES profiles(profile_id),
		pressure REAL,
		temperature REAL,
		temperature_qc INTEGER,
		salinity REAL,
		salinity_qc INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS spatial_summaries (
		region TEXT PRIMARY KEY,
		float_count INTEGER,
		profile_count INTEGER,
		avg_temperature REAL,
		avg_salinity REAL
	)`,
	`CREATE TABLE IF NOT EXISTS quality_control_tests (
		test_id INTEGER PRIMARY KEY,
		test_name TEXT,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS quality_control_results (
		result_id INTEGER PRIMARY KEY,
		profile_id TEXT REFERENCES profiles(profile_id),
		test_id INTEGER REFERENCES quality_control_tests(test_id),
		passed INTEGER
	)`,
}

// seedRows inserts a small but representative dataset: three floats across
// programs, profiles over several years, and measurements spanning the QC
// range.
var seedRows = []string{
	`INSERT OR IGNORE INTO floats VALUES
		('F001', '5904471', '2018-03-12', -35.2, 18.4, 'Argo Australia', 'active'),
		('F002', '5904472', '2020-07-01', 42.1, -29.8, 'Argo Atlantic', 'active'),
		('F003', '5904473', '2016-11-23', 10.5, 65.0, 'Argo India', 'inactive')`,
	`INSERT OR IGNORE INTO profiles VALUES
		('P001', 'F001', 1, '2018-03-15', -35.3, 18.5),
		('P002', 'F001', 2, '2018-03-25', -35.5, 18.9),
		('P003', 'F002', 1, '2020-07-05', 42.0, -29.9),
		('P004', 'F003', 1, '2016-11-30', 10.6, 65.2)`,
	`INSERT OR IGNORE INTO measurements VALUES
		(1, 'P001', 5.0, 18.2, 1, 35.1, 1),
		(2, 'P001', 500.0, 8.7, 1, 34.6, 2),
		(3, 'P002', 5.0, 18.5, 2, 35.0, 1),
		(4, 'P002', 1000.0, 4.1, 1, 34.5, 1),
		(5, 'P003', 10.0, 22.3, 1, 36.2, 1),
		(6, 'P003', 750.0, 6.9, 3, 35.1, 4),
		(7, 'P004', 5.0, 28.1, 1, 34.9, 1)`,
	`INSERT OR IGNORE INTO spatial_summaries VALUES
		('South Atlantic', 1, 2, 12.4, 34.8),
		('North Atlantic', 1, 1, 14.6, 35.7),
		('Indian Ocean', 1, 1, 28.1, 34.9)`,
	`INSERT OR IGNORE INTO quality_control_tests VALUES
		(1, 'range_check', 'Value within physically plausible range'),
		(2, 'spike_test', 'No sudden spikes relative to neighbors'),
		(3, 'gradient_test', 'Vertical gradient within limits')`,
	`INSERT OR IGNORE INTO quality_control_results VALUES
		(1, 'P001', 1, 1),
		(2, 'P001', 2, 1),
		(3, 'P002', 1, 1),
		(4, 'P003', 3, 0),
		(5, 'P004', 1, 1)`,
}

// Seed creates the demo schema and data at dbPath. Existing rows are left in
// place.
func Seed(dbPath string, logger *zap.Logger) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database for seeding: %w", err)
	}
	defer db.Close()

	for _, stmt := range seedSchema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create seed schema: %w", err)
		}
	}

	for _, stmt := range seedRows {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to insert seed rows: %w", err)
		}
	}

	logger.Info("Demo dataset seeded", zap.String("db_path", dbPath))
	return nil
}
