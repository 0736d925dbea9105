// Package extract pulls executable SQL statements out of template documents
// and model responses using an ordered rule table.
package extract

import (
	"regexp"
	"strings"
)

// Rule is a single extraction pattern. Rules are evaluated in order and the
// first match wins. Group selects the capture group holding the statement;
// group 0 uses the whole match.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Group   int
}

// Rules is the ordered extraction cascade: a labeled "SQL:" marker first,
// then a bare statement starting with a query keyword.
var Rules = []Rule{
	{
		Name:    "labeled_sql",
		Pattern: regexp.MustCompile(`(?is)\bSQL:\s*([^;]+(?:;|$))`),
		Group:   1,
	},
	{
		Name:    "bare_select",
		Pattern: regexp.MustCompile(`(?is)\bSELECT\s+[^;]+(?:;|$)`),
		Group:   0,
	},
	{
		Name:    "bare_with",
		Pattern: regexp.MustCompile(`(?is)\bWITH\s+[^;]+(?:;|$)`),
		Group:   0,
	},
}

var codeFencePattern = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)\\s*```")

// Query applies the extraction rules to text and returns the first SQL
// statement found. The second return value is false when no rule matches;
// callers must treat that as "nothing to reuse", not as an error.
func Query(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	text = stripCodeFences(text)

	for _, rule := range Rules {
		match := rule.Pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		candidate := match[rule.Group]
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimSuffix(candidate, ";")
		candidate = strings.TrimSpace(candidate)
		if candidate != "" {
			return candidate, true
		}
	}

	return "", false
}

// stripCodeFences unwraps a fenced code block, leaving the inner statement.
// Text without fences passes through unchanged.
func stripCodeFences(text string) string {
	if match := codeFencePattern.FindStringSubmatch(text); match != nil {
		return match[1]
	}
	// Handle unbalanced fences from truncated model output.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```sql")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
