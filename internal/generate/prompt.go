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

package generate

import (
	"fmt"
	"strings"

	"github.com/your-org/ocean-query-assistant/internal/preprocess"
	"github.com/your-org/ocean-query-assistant/internal/semindex"
)

// maxContextResults bounds how many retrieved templates are included in the
// prompt context.
const maxContextResults = 3

// BuildSystemPrompt creates the system prompt for SQL generation, carrying
// the dataset schema, generation rules, and the request's classified intent
// and entities.
func BuildSystemPrompt(req *preprocess.Request) string {
	var b strings.Builder

	b.WriteString(`You are an expert ARGO oceanographic database SQL generator.

DATABASE SCHEMA:
FLOATS TABLE: float_id, wmo_number, current_status, deployment_date, deployment_latitude, deployment_longitude, last_latitude, last_longitude, last_update
PROFILES TABLE: profile_id, float_id, profile_date, latitude, longitude, max_pressure, cycle_number, data_quality_flag, data_mode
MEASUREMENTS TABLE: measurement_id, profile_id, pressure, temperature, salinity, temperature_qc, salinity_qc

SQL GENERATION RULES:
1. Use exact table/column names from the schema above
2. Table aliases: f=floats, p=profiles, m=measurements
3. Quality filtering: temperature_qc <= 2, salinity_qc <= 2 for reliable data
4. Join pattern: FROM profiles p JOIN measurements m ON p.profile_id = m.profile_id
5. No LIMIT clauses unless the user specifically requests limited results
6. Return ONLY the SQL query, no explanations
`)

	if req != nil {
		fmt.Fprintf(&b, "\nQuery Intent: %s\n", req.Intent)
		fmt.Fprintf(&b, "Query Entities: Tables=%v, Columns=%v\n", req.Entities.Tables, req.Entities.Columns)
	}

	return b.String()
}

// BuildUserPrompt creates the user prompt, embedding up to three retrieved
// template documents as context. An empty context slice produces the
// minimal-context prompt used by the lowest routing tier.
func BuildUserPrompt(query string, results []semindex.SearchResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate SQL for: %q\n", query)

	if len(results) > 0 {
		b.WriteString("\nContext from semantic search:\n")
		limit := len(results)
		if limit > maxContextResults {
			limit = maxContextResults
		}
		for _, result := range results[:limit] {
			fmt.Fprintf(&b, "\nContext: %s\nSimilarity: %.3f\n", result.Content, result.Similarity)
		}
	}

	b.WriteString("\nReturn only the SQL query without any formatting or explanations.")
	return b.String()
}
