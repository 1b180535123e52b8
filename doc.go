// Package apiquery translates HTTP query-string parameters into calls on a
// query builder: filtering, sorting, field selection, limiting, pagination and
// eager loading of related resources.
//
// The apiquery package simplifies building list endpoints by:
//   - Compiling free-form filter parameters (status=draft, title-lk=*go*,
//     votes-gte=10, tag-in=a,b) into builder predicates
//   - Applying reserved parameters (_sort, _fields, _limit, _with, _page)
//   - Restricting every column and relation to a per-entity whitelist
//   - Silently dropping anything the whitelist or grammar rejects
//
// # Quick Start
//
//	cat, _ := apiquery.NewCatalogBuilder().
//	    Entity("posts").
//	        Fillable("title", "status", "created_at").
//	        EagerLoad("comments").
//	        HasMany("comments", "comments", "post_id").
//	    Entity("comments").
//	        Fillable("body", "created_at").
//	    Build()
//
//	factory, _ := apiquery.NewFactory(apiquery.Config{Catalog: cat})
//
//	http.HandleFunc("/posts", func(w http.ResponseWriter, r *http.Request) {
//	    posts, _ := cat.Entity("posts")
//	    q := sqlquery.New(db, cat, "posts")
//	    page, err := factory.FromRequest(r, q, posts).Collection(r.Context())
//	    ...
//	})
//
// # Filter Grammar
//
// A filter key has the form [not-]column[-suffix]. Suffixes are lt, gt, lte,
// gte, lk, not-lk, in, not-in and not. A key ending in a suffix keeps any
// leading "not-" as part of the column; without a suffix "not-" means !=.
// The value null selects IS NULL (bare key) or IS NOT NULL (any operator).
// Values containing "|" become a parenthesized OR group (AND for != and
// NOT LIKE). A leading or trailing "*" in a LIKE value becomes "%".
//
// Keys addressing related columns use "~" instead of "." (comments~body-lk)
// and apply only when the relation is loaded with _with.
//
// # Builders
//
// Translation targets the builder.Builder interface. Builders that report
// SupportsRelations and implement builder.RelationBuilder also receive eager
// loads and relation predicates. The sqlquery package provides a DuckDB
// implementation; builder.Recorder records calls for inspection and tests.
//
// # Logging
//
// Dropped parameters are logged at Debug level through Config.Logger, or a
// stderr text logger at Config.LogLevel when no logger is set.
package apiquery
