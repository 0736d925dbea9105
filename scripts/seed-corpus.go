// Copyright 2024 Ocean Query Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command seed-corpus writes a starter corpus document to data/corpus.json.
// The schema catalog matches the demo dataset created by "oceanctl seed" and
// the templates cover the query shapes the retrieval tier is tuned for.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/your-org/ocean-query-assistant/internal/corpus"
	"github.com/your-org/ocean-query-assistant/internal/extract"
)

func main() {
	outPath := flag.String("out", "./data/corpus.json", "Where to write the corpus document")
	flag.Parse()

	doc := starterCorpus()

	// Fail fast if the document would not load, or if any template lacks
	// extractable SQL — direct-reuse routing depends on it.
	if _, err := corpus.New(doc); err != nil {
		log.Fatalf("Starter corpus is invalid: %v", err)
	}
	for _, tpl := range doc.Queries {
		if _, ok := extract.Query(tpl.Content); !ok {
			log.Fatalf("Template %s has no extractable SQL", tpl.ID)
		}
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode corpus: %v", err)
	}

	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write corpus file: %v", err)
	}

	log.Printf("Wrote %d templates across %d tables to %s",
		len(doc.Queries), len(doc.SchemaInfo), *outPath)
}

func starterCorpus() corpus.Document {
	queries := []corpus.Template{
		{
			ID:       "count_floats",
			Content:  "How many floats are in the dataset? SQL: SELECT COUNT(*) AS float_count FROM floats;",
			Metadata: map[string]string{"type": "count_query", "complexity": "simple"},
		},
		{
			ID:       "count_profiles_per_float",
			Content:  "How many profiles has each float reported? SQL: SELECT float_id, COUNT(*) AS profile_count FROM profiles GROUP BY float_id ORDER BY profile_count DESC;",
			Metadata: map[string]string{"type": "count_query", "complexity": "medium"},
		},
		{
			ID:       "avg_temperature_by_float",
			Content:  "What is the average temperature measured by each float? SQL: SELECT p.float_id, AVG(m.temperature) AS avg_temperature FROM measurements m JOIN profiles p ON m.profile_id = p.profile_id WHERE m.temperature_qc <= 2 GROUP BY p.float_id;",
			Metadata: map[string]string{"type": "aggregation_query", "complexity": "complex"},
		},
		{
			ID:       "surface_salinity",
			Content:  "Show surface salinity values shallower than 10 dbar SQL: SELECT profile_id, pressure, salinity FROM measurements WHERE pressure < 10 AND salinity_qc <= 2 ORDER BY pressure;",
			Metadata: map[string]string{"type": "column_query", "complexity": "simple"},
		},
		{
			ID:       "floats_by_program",
			Content:  "List floats grouped by program SQL: SELECT program_name, COUNT(*) AS float_count FROM floats GROUP BY program_name;",
			Metadata: map[string]string{"type": "count_query", "complexity": "simple"},
		},
		{
			ID:       "active_floats",
			Content:  "Which floats are still active? SQL: SELECT float_id, platform_number, deployment_date FROM floats WHERE status = 'active';",
			Metadata: map[string]string{"type": "table_query", "complexity": "simple"},
		},
		{
			ID:       "deep_measurements",
			Content:  "Show temperature readings below 500 dbar SQL: SELECT profile_id, pressure, temperature FROM measurements WHERE pressure > 500 AND temperature_qc <= 2 ORDER BY pressure DESC;",
			Metadata: map[string]string{"type": "column_query", "complexity": "simple"},
		},
		{
			ID:       "profiles_in_date_range",
			Content:  "List profiles collected during 2018 SQL: SELECT profile_id, float_id, profile_date, latitude, longitude FROM profiles WHERE profile_date BETWEEN '2018-01-01' AND '2018-12-31' ORDER BY profile_date;",
			Metadata: map[string]string{"type": "table_query", "complexity": "medium"},
		},
		{
			ID:       "regional_summary",
			Content:  "Summarize float coverage by region SQL: SELECT region, float_count, profile_count, avg_temperature, avg_salinity FROM spatial_summaries ORDER BY float_count DESC;",
			Metadata: map[string]string{"type": "aggregation_query", "complexity": "simple"},
		},
		{
			ID:       "failed_qc_profiles",
			Content:  "Which profiles failed a quality control test? SQL: SELECT r.profile_id, t.test_name FROM quality_control_results r JOIN quality_control_tests t ON r.test_id = t.test_id WHERE r.passed = 0;",
			Metadata: map[string]string{"type": "table_query", "complexity": "complex"},
		},
	}

	return corpus.Document{
		CollectionInfo: corpus.CollectionInfo{
			Name:         "argo_starter_corpus",
			Description:  "Curated question/SQL pairs over the ARGO demo dataset",
			TotalQueries: len(queries),
		},
		SchemaInfo: map[string]corpus.TableInfo{
			"floats": {Columns: []corpus.ColumnInfo{
				{Name: "float_id", Type: "TEXT"},
				{Name: "platform_number", Type: "TEXT"},
				{Name: "deployment_date", Type: "TEXT"},
				{Name: "deployment_latitude", Type: "REAL"},
				{Name: "deployment_longitude", Type: "REAL"},
				{Name: "program_name", Type: "TEXT"},
				{Name: "status", Type: "TEXT"},
			}},
			"profiles": {Columns: []corpus.ColumnInfo{
				{Name: "profile_id", Type: "TEXT"},
				{Name: "float_id", Type: "TEXT"},
				{Name: "cycle_number", Type: "INTEGER"},
				{Name: "profile_date", Type: "TEXT"},
				{Name: "latitude", Type: "REAL"},
				{Name: "longitude", Type: "REAL"},
			}},
			"measurements": {Columns: []corpus.ColumnInfo{
				{Name: "measurement_id", Type: "INTEGER"},
				{Name: "profile_id", Type: "TEXT"},
				{Name: "pressure", Type: "REAL"},
				{Name: "temperature", Type: "REAL"},
				{Name: "temperature_qc", Type: "INTEGER"},
				{Name: "salinity", Type: "REAL"},
				{Name: "salinity_qc", Type: "INTEGER"},
			}},
			"spatial_summaries": {Columns: []corpus.ColumnInfo{
				{Name: "region", Type: "TEXT"},
				{Name: "float_count", Type: "INTEGER"},
				{Name: "profile_count", Type: "INTEGER"},
				{Name: "avg_temperature", Type: "REAL"},
				{Name: "avg_salinity", Type: "REAL"},
			}},
			"quality_control_tests": {Columns: []corpus.ColumnInfo{
				{Name: "test_id", Type: "INTEGER"},
				{Name: "test_name", Type: "TEXT"},
				{Name: "description", Type: "TEXT"},
			}},
			"quality_control_results": {Columns: []corpus.ColumnInfo{
				{Name: "result_id", Type: "INTEGER"},
				{Name: "profile_id", Type: "TEXT"},
				{Name: "test_id", Type: "INTEGER"},
				{Name: "passed", Type: "INTEGER"},
			}},
		},
		Queries: queries,
	}
}
