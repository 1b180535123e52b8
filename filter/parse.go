package filter

import "strings"

const (
	// Separator joins the negation prefix, the column and the comparator suffix.
	Separator = "-"

	// RelationSeparator stands in for "." in parameter keys.
	RelationSeparator = "~"

	// Wildcard is the client-side pattern marker rewritten for LIKE comparators.
	Wildcard = "*"

	// InSeparator splits IN/NOT IN member lists.
	InSeparator = ","

	// GroupSeparator splits OR/AND value groups.
	GroupSeparator = "|"

	negationPrefix = "not"
	nullLiteral    = "null"
	builderPattern = "%"
)

// suffixTable maps key suffixes to comparators, longest token first so that
// "not-in" is preferred over "in" and "lte" over "lt".
var suffixTable = []struct {
	token      string
	comparator Comparator
}{
	{"not-lk", CompareNotLike},
	{"not-in", CompareNotIn},
	{"lte", CompareLessThanOrEqual},
	{"gte", CompareGreaterThanOrEqual},
	{"not", CompareNotEqual},
	{"lt", CompareLessThan},
	{"gt", CompareGreaterThan},
	{"lk", CompareLike},
	{"in", CompareIn},
}

// Suffixes returns the recognized suffix tokens in match order.
func Suffixes() []string {
	out := make([]string, len(suffixTable))
	for i, s := range suffixTable {
		out[i] = s.token
	}
	return out
}

// ParseKey splits a parameter key into column path, suffix and negation prefix.
//
// The longest suffix matching the end of the key wins. Only when no suffix
// matches is a leading "not-" consumed as standalone negation. ParseKey never
// fails: a key with neither returns the whole key as the column. The column may
// be empty (e.g. "-lt"); callers must skip such keys.
func ParseKey(key string) Key {
	for _, s := range suffixTable {
		if strings.HasSuffix(key, Separator+s.token) {
			return Key{
				Column: strings.TrimSuffix(key, Separator+s.token),
				Suffix: s.token,
			}
		}
	}

	if rest, ok := strings.CutPrefix(key, negationPrefix+Separator); ok && rest != "" {
		return Key{Column: rest, Negated: true}
	}

	return Key{Column: key}
}

// Comparator returns the comparator selected by the key's suffix or prefix.
func (k Key) Comparator() Comparator {
	if k.Suffix != "" {
		for _, s := range suffixTable {
			if s.token == k.Suffix {
				return s.comparator
			}
		}
	}
	if k.Negated {
		return CompareNotEqual
	}
	return CompareEqual
}

// IsNullLiteral reports whether value is the literal null (trimmed, any case).
func IsNullLiteral(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), nullLiteral)
}

// Compile turns one key/value pair into a filter spec.
// Returns false when the key compiles to an empty column.
func Compile(key, value string) (Spec, bool) {
	k := ParseKey(key)
	if k.Column == "" {
		return Spec{}, false
	}

	if IsNullLiteral(value) {
		cmp := CompareIsNotNull
		if k.Suffix == "" && !k.Negated {
			cmp = CompareIsNull
		}
		return Spec{Column: k.Column, Comparator: cmp}, true
	}

	cmp := k.Comparator()
	return Spec{
		Column:     k.Column,
		Comparator: cmp,
		Values:     SplitValues(cmp, value),
	}, true
}

// SplitValues splits a raw value according to the comparator: IN/NOT IN on
// commas as literal members, anything else on pipes as a value group. Pattern
// comparators get their leading and trailing wildcards rewritten.
func SplitValues(cmp Comparator, value string) []string {
	if cmp.IsSet() {
		return strings.Split(value, InSeparator)
	}

	values := strings.Split(value, GroupSeparator)
	if cmp.IsPattern() {
		for i, v := range values {
			values[i] = RewriteWildcard(v)
		}
	}
	return values
}

// RewriteWildcard replaces a "*" at the start and at the end of v with "%".
// No other characters are escaped.
func RewriteWildcard(v string) string {
	if strings.HasPrefix(v, Wildcard) {
		v = builderPattern + v[len(Wildcard):]
	}
	if strings.HasSuffix(v, Wildcard) {
		v = v[:len(v)-len(Wildcard)] + builderPattern
	}
	return v
}

// SplitPath splits a dotted path at its last dot into relation and column.
// A path without a dot has an empty relation.
func SplitPath(path string) (relation, column string) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// NestedKey rewrites the relation separator in a parameter key to a dot.
func NestedKey(key string) string {
	return strings.ReplaceAll(key, RelationSeparator, ".")
}

// HasRelationSeparator reports whether a parameter key addresses a relation column.
func HasRelationSeparator(key string) bool {
	return strings.Contains(key, RelationSeparator)
}

func isDotted(s string) bool {
	return strings.Contains(s, ".")
}
