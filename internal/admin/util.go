package admin

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/crucial707/auditlog-admin/internal/models"
)

func itoa(n int) string { return strconv.Itoa(n) }

// changeOrder returns the changed field names in the order they were stored,
// falling back to sorted order when raw cannot be walked.
func changeOrder(raw string, changes models.Changes) []string {
	dec := json.NewDecoder(strings.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return changes.Fields()
	}
	var out []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return changes.Fields()
		}
		key, ok := tok.(string)
		if !ok {
			return changes.Fields()
		}
		out = append(out, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return changes.Fields()
		}
	}
	return out
}

// smartSplit splits a search string on whitespace, keeping double-quoted phrases together.
func smartSplit(s string) []string {
	var terms []string
	var b strings.Builder
	inQuote := false
	flush := func() {
		if b.Len() > 0 {
			terms = append(terms, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return terms
}
