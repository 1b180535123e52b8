// Package sqlquery implements the builder interfaces over DuckDB through
// database/sql. Conditions render to parameterized SQL, relation predicates
// to correlated EXISTS subqueries, and eager loads to one IN query per
// relation. Results convert to Arrow records with ToRecord.
package sqlquery
