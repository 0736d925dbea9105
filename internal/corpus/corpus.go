// Package corpus loads and validates the curated query template corpus.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Template is a single curated natural-language/SQL example pair.
type Template struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// ColumnInfo describes one column of a dataset table.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableInfo describes one dataset table from the schema catalog.
type TableInfo struct {
	Columns  []ColumnInfo `json:"columns"`
	RowCount int64        `json:"row_count,omitempty"`
}

// CollectionInfo carries descriptive metadata about the corpus document.
type CollectionInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	TotalQueries int    `json:"total_queries"`
}

// Document is the on-disk corpus file layout.
type Document struct {
	CollectionInfo CollectionInfo       `json:"collection_info"`
	SchemaInfo     map[string]TableInfo `json:"schema_info"`
	Queries        []Template           `json:"queries"`
}

// Corpus is the immutable, ordered template collection. It is built once at
// setup and never mutated during serving.
type Corpus struct {
	templates []Template
	byID      map[string]int
	schema    map[string]TableInfo
	info      CollectionInfo
}

// Load reads a corpus document from disk and builds a Corpus.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file: %w", err)
	}

	return New(doc)
}

// New builds a Corpus from an already-parsed document, validating that
// template IDs are unique and content is present.
func New(doc Document) (*Corpus, error) {
	byID := make(map[string]int, len(doc.Queries))
	for i, tpl := range doc.Queries {
		if tpl.ID == "" {
			return nil, fmt.Errorf("template at position %d has empty id", i)
		}
		if strings.TrimSpace(tpl.Content) == "" {
			return nil, fmt.Errorf("template %q has empty content", tpl.ID)
		}
		if _, exists := byID[tpl.ID]; exists {
			return nil, fmt.Errorf("duplicate template id %q", tpl.ID)
		}
		byID[tpl.ID] = i
	}

	return &Corpus{
		templates: doc.Queries,
		byID:      byID,
		schema:    doc.SchemaInfo,
		info:      doc.CollectionInfo,
	}, nil
}

// Len returns the number of templates.
func (c *Corpus) Len() int {
	return len(c.templates)
}

// Templates returns the templates in insertion order. Callers must not
// modify the returned slice.
func (c *Corpus) Templates() []Template {
	return c.templates
}

// Get returns the template with the given id and its insertion position.
func (c *Corpus) Get(id string) (Template, int, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Template{}, 0, false
	}
	return c.templates[idx], idx, true
}

// Position returns the insertion position of a template id, used for stable
// tie-breaking in search results.
func (c *Corpus) Position(id string) (int, bool) {
	idx, ok := c.byID[id]
	return idx, ok
}

// Info returns the collection metadata.
func (c *Corpus) Info() CollectionInfo {
	return c.info
}

// Schema returns the schema catalog keyed by table name.
func (c *Corpus) Schema() map[string]TableInfo {
	return c.schema
}

// TableNames returns the catalog table names in sorted order.
func (c *Corpus) TableNames() []string {
	names := make([]string, 0, len(c.schema))
	for name := range c.schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ColumnNames returns all column names across the schema catalog, sorted
// and deduplicated.
func (c *Corpus) ColumnNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, table := range c.schema {
		for _, col := range table.Columns {
			lower := strings.ToLower(col.Name)
			if !seen[lower] {
				seen[lower] = true
				names = append(names, col.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}
