package filter

import "strings"

const (
	// ListSeparator splits the sort, fields and with parameters.
	ListSeparator = ","

	descendingMarker = "-"
)

// ParseSort parses a comma-separated sort parameter. A leading "-" selects
// descending order. Empty entries are skipped.
func ParseSort(value string) []SortSpec {
	var out []SortSpec
	for _, item := range splitList(value) {
		dir := Asc
		if rest, ok := strings.CutPrefix(item, descendingMarker); ok {
			dir = Desc
			item = strings.TrimSpace(rest)
		}
		if item == "" {
			continue
		}
		out = append(out, SortSpec{Path: item, Direction: dir})
	}
	return out
}

// ParseFields parses the fields parameter. Dotted names go to Additional.
func ParseFields(value string) FieldSpec {
	var fs FieldSpec
	for _, item := range splitList(value) {
		if isDotted(item) {
			fs.Additional = append(fs.Additional, item)
			continue
		}
		fs.Columns = append(fs.Columns, item)
	}
	return fs
}

// ParseRelations parses the with parameter, dropping duplicates.
func ParseRelations(value string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range splitList(value) {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// splitList splits on commas, trimming spaces and skipping empty items.
func splitList(value string) []string {
	parts := strings.Split(value, ListSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
