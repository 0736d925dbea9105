// Package preprocess normalizes natural-language dataset questions, expands
// domain synonyms, extracts entities, classifies intent, and generates
// phrasing variations for semantic search.
package preprocess

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxVariations caps the number of phrasing variations per request.
const MaxVariations = 10

// DefaultIntent is assigned when no intent rule matches.
const DefaultIntent = "general_query"

// ErrEmptyQuery is returned when the raw input is empty or whitespace only.
var ErrEmptyQuery = errors.New("query text is empty")

// Entities holds the database entities recognized in a query.
type Entities struct {
	Tables     []string `json:"tables"`
	Columns    []string `json:"columns"`
	Operations []string `json:"operations"`
}

// Request is the ephemeral per-call result of preprocessing.
type Request struct {
	Raw        string   `json:"raw"`
	Normalized string   `json:"normalized"`
	Expanded   string   `json:"expanded"`
	Tokens     []string `json:"tokens"`
	Entities   Entities `json:"entities"`
	Intent     string   `json:"intent"`
	Variations []string `json:"variations"`
}

// IntentRule maps an intent label to its trigger keywords. Rules are
// evaluated in order and the first match wins.
type IntentRule struct {
	Intent   string
	Keywords []string
}

// tableRule maps a table name to the keywords that select it.
type tableRule struct {
	table    string
	keywords []string
}

// operationRule maps an operation category to its trigger keywords.
type operationRule struct {
	operation string
	keywords  []string
}

// fillerPhrases are stripped from the input before any other step.
var fillerPhrases = []string{"give me", "show me", "i want", "please", "can you"}

// fillerPatterns anchor each phrase on word boundaries so tokens that merely
// contain a phrase ("displease") are left alone.
var fillerPatterns = compileFillerPatterns()

func compileFillerPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(fillerPhrases))
	for i, phrase := range fillerPhrases {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
	}
	return patterns
}

// oceanSynonyms is the token-wise domain synonym dictionary. Unmatched
// tokens pass through unchanged.
var oceanSynonyms = map[string]string{
	"temp":        "temperature",
	"thermal":     "temperature",
	"t":           "temperature",
	"sal":         "salinity",
	"salt":        "salinity",
	"s":           "salinity",
	"pres":        "pressure",
	"depth":       "pressure",
	"p":           "pressure",
	"float":       "floats",
	"buoy":        "floats",
	"argo":        "floats",
	"profile":     "profiles",
	"cast":        "profiles",
	"measurement": "measurements",
	"data":        "measurements",
	"values":      "measurements",
	"readings":    "measurements",
	"get":         "retrieve",
	"show":        "display",
	"list":        "display",
	"find":        "retrieve",
	"give":        "retrieve",
	"count":       "total",
	"number":      "total",
	"good":        "quality",
	"reliable":    "quality",
	"valid":       "quality",
	"active":      "operational",
	"working":     "operational",
	"live":        "operational",
}

// tableRules select tables by keyword. Evaluation order is fixed so entity
// lists are deterministic across runs.
var tableRules = []tableRule{
	{table: "floats", keywords: []string{"float", "buoy", "argo"}},
	{table: "profiles", keywords: []string{"profile", "cast"}},
	{table: "measurements", keywords: []string{"measurement", "data", "temperature", "salinity", "pressure"}},
}

// operationRules select operation categories by keyword. Matches may
// co-occur.
var operationRules = []operationRule{
	{operation: "count", keywords: []string{"count", "total", "how many", "number"}},
	{operation: "retrieve", keywords: []string{"get", "show", "list", "display", "retrieve"}},
	{operation: "filter", keywords: []string{"where", "filter", "specific"}},
	{operation: "aggregate", keywords: []string{"average", "mean", "min", "max", "sum"}},
}

// IntentRules is the ordered intent classification table.
var IntentRules = []IntentRule{
	{Intent: "count_statistics", Keywords: []string{"count", "total", "how many", "number of"}},
	{Intent: "data_retrieval", Keywords: []string{"get", "show", "list", "display", "retrieve", "give me"}},
	{Intent: "data_filtering", Keywords: []string{"where", "filter", "specific", "in region", "with"}},
	{Intent: "aggregation", Keywords: []string{"average", "mean", "min", "max", "statistics"}},
	{Intent: "quality_control", Keywords: []string{"quality", "good", "bad", "qc", "reliable"}},
	{Intent: "geographic", Keywords: []string{"location", "region", "latitude", "longitude", "coordinates"}},
	{Intent: "temporal", Keywords: []string{"recent", "latest", "date", "time", "year", "month"}},
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// Preprocessor turns raw question text into a structured Request. Column
// entity extraction is driven by the schema catalog supplied at
// construction.
type Preprocessor struct {
	catalogColumns []string
}

// NewPreprocessor creates a Preprocessor with the given schema catalog
// column names.
func NewPreprocessor(catalogColumns []string) *Preprocessor {
	return &Preprocessor{catalogColumns: catalogColumns}
}

// Process runs the full preprocessing sequence. It never fails on
// well-formed text; only empty input is rejected.
func (p *Preprocessor) Process(raw string) (*Request, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyQuery
	}

	normalized := p.normalize(raw)
	expanded := p.expandSynonyms(normalized)
	entities := p.extractEntities(normalized)
	intent := ClassifyIntent(normalized)
	variations := p.generateVariations(expanded, entities)

	return &Request{
		Raw:        raw,
		Normalized: normalized,
		Expanded:   expanded,
		Tokens:     strings.Fields(normalized),
		Entities:   entities,
		Intent:     intent,
		Variations: variations,
	}, nil
}

// normalize lowercases the input, strips filler phrases, and collapses
// whitespace.
func (p *Preprocessor) normalize(raw string) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	for _, pattern := range fillerPatterns {
		text = pattern.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// expandSynonyms applies the domain synonym dictionary token by token.
func (p *Preprocessor) expandSynonyms(text string) string {
	tokens := strings.Fields(text)
	for i, token := range tokens {
		if expanded, ok := oceanSynonyms[token]; ok {
			tokens[i] = expanded
		}
	}
	return strings.Join(tokens, " ")
}

// extractEntities recognizes tables, catalog columns, and operation
// categories. All matches may co-occur; no matches yields empty sets.
func (p *Preprocessor) extractEntities(text string) Entities {
	entities := Entities{}

	for _, rule := range tableRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				entities.Tables = append(entities.Tables, rule.table)
				break
			}
		}
	}

	for _, col := range p.catalogColumns {
		lower := strings.ToLower(col)
		spaced := strings.ReplaceAll(lower, "_", " ")
		if strings.Contains(text, lower) || strings.Contains(text, spaced) {
			entities.Columns = append(entities.Columns, col)
		}
	}

	for _, rule := range operationRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				entities.Operations = append(entities.Operations, rule.operation)
				break
			}
		}
	}

	return entities
}

// ClassifyIntent evaluates the ordered intent rule table against normalized
// text. The first matching rule wins; DefaultIntent is returned when none
// match.
func ClassifyIntent(text string) string {
	for _, rule := range IntentRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Intent
			}
		}
	}
	return DefaultIntent
}

// generateVariations builds phrasing variations for multi-variation search:
// the expanded text itself, table-prefixed forms, up to three
// column-prefixed forms, and operation-specific phrasings.
func (p *Preprocessor) generateVariations(expanded string, entities Entities) []string {
	variations := []string{expanded}

	for _, table := range entities.Tables {
		variations = append(variations,
			fmt.Sprintf("%s %s", table, expanded),
			fmt.Sprintf("database %s %s", table, expanded),
			fmt.Sprintf("argo %s %s", table, expanded),
		)
	}

	columns := entities.Columns
	if len(columns) > 3 {
		columns = columns[:3]
	}
	for _, col := range columns {
		variations = append(variations,
			fmt.Sprintf("%s %s", col, expanded),
			fmt.Sprintf("get %s from database", col),
		)
	}

	for _, op := range entities.Operations {
		switch op {
		case "count":
			variations = append(variations,
				fmt.Sprintf("statistical %s", expanded),
				fmt.Sprintf("count records %s", expanded),
			)
		case "retrieve":
			variations = append(variations,
				fmt.Sprintf("extract data %s", expanded),
				fmt.Sprintf("access %s", expanded),
			)
		}
	}

	if len(variations) > MaxVariations {
		variations = variations[:MaxVariations]
	}
	return variations
}
