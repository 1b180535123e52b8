// Package filter compiles the query-string filter grammar into typed specs.
//
// A filter key has the shape
//
//	[not-]column[-suffix]
//
// where suffix is one of lt, gt, lte, gte, lk, not-lk, in, not-in, not.
// Relation columns use "~" in keys (comments~title-lk) and "." in the sort
// and fields parameters (comments.created_at).
//
// Values are split on "," for in/not-in and on "|" otherwise:
//
//	spec, ok := filter.Compile("age-gte", "18|21")
//	// spec.Column == "age", spec.Comparator == filter.CompareGreaterThanOrEqual
//	// spec.Values == []string{"18", "21"}
//
// The literal value null turns any key into a null check.
//
// Everything in this package is pure: no builder is touched and no input is
// rejected with an error. Keys that compile to an empty column are reported
// through the ok result of Compile.
package filter
