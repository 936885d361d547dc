package accounts

import (
	"fmt"
	"strings"

	"github.com/terrafan/terrafan/internal/model"
)

// ParseIDs splits a comma separated account ID list, dropping whitespace and
// empty items.
func ParseIDs(s string) []string {
	ids := []string{}
	for _, id := range strings.Split(s, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}

// ParseTagFilters parses a `Key=k,Values=v1,v2;Key=...` filter expression.
func ParseTagFilters(s string) ([]model.TagFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	filters := []model.TagFilter{}
	for _, expr := range strings.Split(s, ";") {
		keyPart, valuesPart, ok := strings.Cut(expr, ",")
		if !ok {
			return nil, fmt.Errorf("tag filter %q is missing values: %w", expr, model.ErrNotValid)
		}

		key, ok := strings.CutPrefix(strings.TrimSpace(keyPart), "Key=")
		if !ok || key == "" {
			return nil, fmt.Errorf("tag filter %q is missing the key: %w", expr, model.ErrNotValid)
		}

		values, ok := strings.CutPrefix(strings.TrimSpace(valuesPart), "Values=")
		if !ok || values == "" {
			return nil, fmt.Errorf("tag filter %q is missing the values: %w", expr, model.ErrNotValid)
		}

		filters = append(filters, model.TagFilter{Key: key, Values: strings.Split(values, ",")})
	}

	return filters, nil
}
