package sqlquery

import "strings"

// reservedWords are the DuckDB keywords that cannot appear as bare column or
// table names.
var reservedWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		all analyse analyze and any array as asc asymmetric both case cast
		check collate column constraint create default deferrable desc
		describe distinct do else end except false fetch for foreign from
		grant group having in initially intersect into lateral leading limit
		not null offset on only or order pivot placing primary qualify
		references returning select show some summarize symmetric table then
		to trailing true union unique unpivot using variadic when where window
		with`) {
		reservedWords[w] = struct{}{}
	}
}

// quoteIdentifier double-quotes name unless DuckDB accepts it bare.
func quoteIdentifier(name string) string {
	if isBareIdentifier(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualify returns alias.column with both parts quoted as needed.
func qualify(alias, column string) string {
	return quoteIdentifier(alias) + "." + quoteIdentifier(column)
}

// isBareIdentifier reports whether name matches [A-Za-z_][A-Za-z0-9_]* and is
// not a reserved word.
func isBareIdentifier(name string) bool {
	if name == "" || ('0' <= name[0] && name[0] <= '9') {
		return false
	}
	for _, r := range name {
		switch {
		case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		default:
			return false
		}
	}
	_, reserved := reservedWords[strings.ToLower(name)]
	return !reserved
}

// placeholders returns n comma-separated parameter markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
