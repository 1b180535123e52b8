package apiquery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hugr-lab/apiquery/builder"
	"github.com/hugr-lab/apiquery/catalog"
)

// Test helper: creates a factory with a discarding logger.
func testFactory(t *testing.T, config Config) *Factory {
	t.Helper()
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	f, err := NewFactory(config)
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	return f
}

// Test helper: builds the posts/comments/users catalog used across tests.
func testCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	cat, err := NewCatalogBuilder().
		Entity("posts").
		Fillable("title", "status", "votes", "tag", "created_at").
		EagerLoad("comments").
		HasMany("comments", "comments", "post_id").
		BelongsTo("author", "users", "author_id").
		Entity("comments").
		Fillable("body", "created_at").
		Sortable("created_at").
		Entity("users").
		Fillable("name").
		Build()
	if err != nil {
		t.Fatalf("catalog build failed: %v", err)
	}
	return cat
}

func testEntity(t *testing.T, cat catalog.Catalog, name string) catalog.Entity {
	t.Helper()
	e, ok := cat.Entity(name)
	if !ok {
		t.Fatalf("entity %s not found", name)
	}
	return e
}

// translate runs Get over a recorder and returns the recorded calls.
func translate(t *testing.T, f *Factory, query string, relational bool, entity catalog.Entity) *builder.Recorder {
	t.Helper()
	rec := builder.NewRecorder(relational)
	if _, err := f.Make(ParseQuery(query), rec, entity).Get(context.Background()); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return rec
}

func TestHandlerFlatFilters(t *testing.T) {
	f := testFactory(t, Config{})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "equality",
			query: "status=draft",
			want:  []string{"where(status, =, draft)"},
		},
		{
			name:  "like with wildcards",
			query: "title-lk=*foo*",
			want:  []string{"where(title, LIKE, %foo%)"},
		},
		{
			name:  "null literal",
			query: "status=null",
			want:  []string{"whereNull(status, false)"},
		},
		{
			name:  "negated null literal",
			query: "not-status=null",
			want:  []string{"whereNull(status, true)"},
		},
		{
			name:  "suffixed null literal",
			query: "status-gt=NULL",
			want:  []string{"whereNull(status, true)"},
		},
		{
			name:  "standalone negation",
			query: "not-status=draft",
			want:  []string{"where(status, !=, draft)"},
		},
		{
			name:  "or group",
			query: "age-gte=18|21",
			want:  []string{"whereGroup() { orWhere(age, >=, 18); orWhere(age, >=, 21) }"},
		},
		{
			name:  "and group for exclusions",
			query: "status-not=a|b",
			want:  []string{"whereGroup() { where(status, !=, a); where(status, !=, b) }"},
		},
		{
			name:  "and group for not like",
			query: "title-not-lk=*a|b*",
			want:  []string{"whereGroup() { where(title, NOT LIKE, %a); where(title, NOT LIKE, b%) }"},
		},
		{
			name:  "in list never split on pipe",
			query: "role-in=admin,editor|x",
			want:  []string{"whereIn(role, admin,editor|x)"},
		},
		{
			name:  "not in list",
			query: "role-not-in=admin,editor",
			want:  []string{"whereNotIn(role, admin,editor)"},
		},
		{
			name:  "suffix keeps negation prefix",
			query: "not-votes-lt=3",
			want:  []string{"where(not-votes, <, 3)"},
		},
		{
			name:  "empty column skipped",
			query: "-lt=3&status=draft",
			want:  []string{"where(status, =, draft)"},
		},
		{
			name:  "parameter order preserved",
			query: "b=2&a=1&c-gt=0",
			want:  []string{"where(b, =, 2)", "where(a, =, 1)", "where(c, >, 0)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := translate(t, f, tt.query, false, nil)
			want := strings.Join(append(tt.want, "get(*)"), "\n")
			if got := rec.String(); got != want {
				t.Errorf("calls:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestHandlerWhitelist(t *testing.T) {
	cat := testCatalog(t)
	f := testFactory(t, Config{Catalog: cat})
	posts := testEntity(t, cat, "posts")

	rec := translate(t, f, "secret=1&status=draft&_sort=password,-votes", false, posts)
	want := "orderBy(votes, desc)\nwhere(status, =, draft)\nget(*)"
	if got := rec.String(); got != want {
		t.Errorf("calls:\n%s\nwant:\n%s", got, want)
	}

	rec = translate(t, f, "secret=1", false, posts)
	if got := rec.String(); got != "get(*)" {
		t.Errorf("non-whitelisted filter mutated builder: %s", got)
	}
}

func TestHandlerSortAndPhaseOrder(t *testing.T) {
	f := testFactory(t, Config{})

	rec := translate(t, f, "status=draft&_limit=5&_fields=id,title&_sort=-created_at,name", false, nil)
	want := strings.Join([]string{
		"orderBy(created_at, desc)",
		"orderBy(name, asc)",
		"limit(5)",
		"where(status, =, draft)",
		"get(id,title)",
	}, "\n")
	if got := rec.String(); got != want {
		t.Errorf("calls:\n%s\nwant:\n%s", got, want)
	}
}

func TestHandlerInvalidLimit(t *testing.T) {
	f := testFactory(t, Config{})

	for _, q := range []string{"_limit=abc", "_limit=0", "_limit=-3", "_limit="} {
		rec := translate(t, f, q, false, nil)
		if got := rec.String(); got != "get(*)" {
			t.Errorf("%s: calls %q, want only get", q, got)
		}
	}
}

func TestHandlerNestedSort(t *testing.T) {
	cat := testCatalog(t)
	f := testFactory(t, Config{Catalog: cat})
	posts := testEntity(t, cat, "posts")

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "attached to eager load",
			query: "_sort=-comments.created_at,title&_with=comments",
			want:  "orderBy(title, asc)\nwith() { comments() { orderBy(created_at, desc) } }\nget(*)",
		},
		{
			name:  "dropped without with",
			query: "_sort=-comments.created_at,title",
			want:  "orderBy(title, asc)\nget(*)",
		},
		{
			name:  "related column not sortable",
			query: "_sort=comments.body&_with=comments",
			want:  "with() { comments() }\nget(*)",
		},
		{
			name:  "relation not eager-loadable",
			query: "_sort=author.name&_with=author",
			want:  "get(*)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := translate(t, f, tt.query, true, posts)
			if got := rec.String(); got != tt.want {
				t.Errorf("calls:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestHandlerNestedFilter(t *testing.T) {
	cat := testCatalog(t)
	f := testFactory(t, Config{Catalog: cat})
	posts := testEntity(t, cat, "posts")

	rec := translate(t, f, "_with=comments&comments~body-lk=*nice*", true, posts)
	want := "with() { comments() }\nwhereHas(comments) { where(body, LIKE, %nice%) }\nget(*)"
	if got := rec.String(); got != want {
		t.Errorf("calls:\n%s\nwant:\n%s", got, want)
	}

	rec = translate(t, f, "comments~body=x", true, posts)
	if got := rec.String(); got != "get(*)" {
		t.Errorf("filter on unloaded relation applied: %s", got)
	}

	rec = translate(t, f, "_with=comments&comments~secret=x", true, posts)
	if got := rec.String(); got != "with() { comments() }\nget(*)" {
		t.Errorf("non-whitelisted related column applied: %s", got)
	}
}

func TestHandlerWithoutRelations(t *testing.T) {
	cat := testCatalog(t)
	f := testFactory(t, Config{Catalog: cat})
	posts := testEntity(t, cat, "posts")

	// A flat target never receives with or whereHas.
	rec := translate(t, f, "_with=comments&comments~body=x&_sort=comments.body", false, posts)
	if got := rec.String(); got != "get(*)" {
		t.Errorf("calls %q, want only get", got)
	}

	// Without an entity no relation is eager-loadable.
	rec = translate(t, f, "_with=comments", true, nil)
	if got := rec.String(); got != "get(*)" {
		t.Errorf("calls %q, want only get", got)
	}
}

func TestHandlerIdempotence(t *testing.T) {
	cat := testCatalog(t)
	f := testFactory(t, Config{Catalog: cat})
	posts := testEntity(t, cat, "posts")
	query := "tag-in=a,b&_with=comments&status=a|b&_sort=-comments.created_at,votes&comments~body-not-lk=*x&_limit=3"

	first := translate(t, f, query, true, posts)
	second := translate(t, f, query, true, posts)

	a, err := first.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	b, err := second.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("translations differ:\n%s\n---\n%s", first, second)
	}
}

func TestHandlerParsesOnce(t *testing.T) {
	f := testFactory(t, Config{})
	rec := builder.NewRecorder(false)
	h := f.Make(ParseQuery("status=draft"), rec, nil)

	if _, err := h.Get(context.Background()); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := h.First(context.Background()); err != nil {
		t.Fatalf("First failed: %v", err)
	}

	want := "where(status, =, draft)\nget(*)\nfirst(*)"
	if got := rec.String(); got != want {
		t.Errorf("calls:\n%s\nwant:\n%s", got, want)
	}
}

func TestHandlerOnlyExceptIgnores(t *testing.T) {
	f := testFactory(t, Config{Ignores: []string{"token"}})

	tests := []struct {
		name  string
		apply func(h *Handler)
		want  string
	}{
		{
			name:  "ignores",
			apply: func(h *Handler) {},
			want:  "where(a, =, 1)\nwhere(b, =, 2)\nget(*)",
		},
		{
			name:  "only",
			apply: func(h *Handler) { h.Only("a", "token") },
			want:  "where(a, =, 1)\nget(*)",
		},
		{
			name:  "except",
			apply: func(h *Handler) { h.Except("a") },
			want:  "where(b, =, 2)\nget(*)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := builder.NewRecorder(false)
			h := f.Make(ParseQuery("a=1&token=secret&b=2"), rec, nil)
			tt.apply(h)
			if _, err := h.Get(context.Background()); err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got := rec.String(); got != tt.want {
				t.Errorf("calls:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestHandlerCustomPrefix(t *testing.T) {
	f := testFactory(t, Config{Prefix: "$"})

	rec := translate(t, f, "$limit=3&_limit=7", false, nil)
	want := "limit(3)\nwhere(_limit, =, 7)\nget(*)"
	if got := rec.String(); got != want {
		t.Errorf("calls:\n%s\nwant:\n%s", got, want)
	}
}

func TestHandlerUnknownReservedIgnored(t *testing.T) {
	f := testFactory(t, Config{})

	rec := translate(t, f, "_search=x&_foo=1&status=draft", false, nil)
	if got := rec.String(); got != "where(status, =, draft)\nget(*)" {
		t.Errorf("calls %q", got)
	}
}

func TestHandlerPagination(t *testing.T) {
	f := testFactory(t, Config{Limit: 2})
	rows := []builder.Row{{"id": 1}, {"id": 2}, {"id": 3}}

	tests := []struct {
		name      string
		query     string
		wantCalls string
		wantItems int
		wantMeta  bool
	}{
		{
			name:      "bounded fetch",
			query:     "_limit=5",
			wantCalls: "limit(5)\nget(*)",
			wantItems: 3,
		},
		{
			name:      "page with limit",
			query:     "_page=2&_limit=1",
			wantCalls: "paginate(1, 2, *)",
			wantItems: 1,
			wantMeta:  true,
		},
		{
			name:      "page with default limit",
			query:     "_page=2",
			wantCalls: "paginate(2, 2, *)",
			wantItems: 1,
			wantMeta:  true,
		},
		{
			name:      "invalid page falls back to first",
			query:     "_page=abc&_fields=id",
			wantCalls: "paginate(2, 1, id)",
			wantItems: 2,
			wantMeta:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := builder.NewRecorder(false).WithRows(rows...)
			page, err := f.Make(ParseQuery(tt.query), rec, nil).Collection(context.Background())
			if err != nil {
				t.Fatalf("Collection failed: %v", err)
			}
			if got := rec.String(); got != tt.wantCalls {
				t.Errorf("calls:\n%s\nwant:\n%s", got, tt.wantCalls)
			}
			if len(page.Items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(page.Items), tt.wantItems)
			}
			if (page.Pagination != nil) != tt.wantMeta {
				t.Errorf("pagination = %v, want present %v", page.Pagination, tt.wantMeta)
			}
		})
	}
}

func TestHandlerGetWithPageParam(t *testing.T) {
	f := testFactory(t, Config{Limit: 4})

	tests := []struct {
		query string
		want  string
	}{
		{query: "_page=2&_limit=5", want: "limit(5)\nget(*)"},
		{query: "_page=2&status=draft", want: "where(status, =, draft)\nlimit(4)\nget(*)"},
		{query: "_page=1&_limit=0", want: "limit(4)\nget(*)"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := translate(t, f, tt.query, false, nil)
			if got := rec.String(); got != tt.want {
				t.Errorf("calls:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestHandlerPaginateWithoutPageParam(t *testing.T) {
	f := testFactory(t, Config{})
	rec := builder.NewRecorder(false)

	page, err := f.Make(ParseQuery("_limit=10"), rec, nil).Paginate(context.Background())
	if err != nil {
		t.Fatalf("Paginate failed: %v", err)
	}
	if got := rec.String(); got != "paginate(10, 1, *)" {
		t.Errorf("calls %q", got)
	}
	if page.Pagination.PerPage != 10 || page.Pagination.CurrentPage != 1 {
		t.Errorf("pagination = %+v", page.Pagination)
	}
}

func TestHandlerMissingBuilder(t *testing.T) {
	f := testFactory(t, Config{})
	h := f.Make(ParseQuery("status=draft"), nil, nil)
	ctx := context.Background()

	if _, err := h.Get(ctx); !errors.Is(err, ErrMissingBuilder) {
		t.Errorf("Get error = %v, want ErrMissingBuilder", err)
	}
	if _, err := h.First(ctx); !errors.Is(err, ErrMissingBuilder) {
		t.Errorf("First error = %v, want ErrMissingBuilder", err)
	}
	if _, err := h.Find(ctx, 1); !errors.Is(err, ErrMissingBuilder) {
		t.Errorf("Find error = %v, want ErrMissingBuilder", err)
	}
	if _, err := h.Paginate(ctx); !errors.Is(err, ErrMissingBuilder) {
		t.Errorf("Paginate error = %v, want ErrMissingBuilder", err)
	}
	if _, err := h.Collection(ctx); !errors.Is(err, ErrMissingBuilder) {
		t.Errorf("Collection error = %v, want ErrMissingBuilder", err)
	}
}

func TestHandlerFindPropagatesNotFound(t *testing.T) {
	f := testFactory(t, Config{})

	_, err := f.Make(ParseQuery(""), builder.NewRecorder(false), nil).Find(context.Background(), 42)
	if !errors.Is(err, builder.ErrNotFound) {
		t.Fatalf("Find error = %v, want ErrNotFound", err)
	}

	rec := builder.NewRecorder(false).WithRows(builder.Row{"id": 42})
	row, err := f.Make(ParseQuery("_fields=id"), rec, nil).Find(context.Background(), 42)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if row["id"] != 42 {
		t.Errorf("row = %v", row)
	}
	if got := rec.String(); got != "find(42, id)" {
		t.Errorf("calls %q", got)
	}
}

func TestHandlerAccessors(t *testing.T) {
	cat := testCatalog(t)
	f := testFactory(t, Config{Catalog: cat})
	posts := testEntity(t, cat, "posts")

	h := f.Make(ParseQuery("_fields=id,title,comments.body&_with=comments,author,comments"), builder.NewRecorder(true), posts)

	if got := strings.Join(h.Fields(), ","); got != "id,title" {
		t.Errorf("Fields = %s", got)
	}
	if got := strings.Join(h.AdditionalFields(), ","); got != "comments.body" {
		t.Errorf("AdditionalFields = %s", got)
	}
	if got := strings.Join(h.Relations(), ","); got != "comments" {
		t.Errorf("Relations = %s", got)
	}
}

func TestHandlerLogsDroppedParams(t *testing.T) {
	var buf bytes.Buffer
	level := slog.LevelDebug
	f := testFactory(t, Config{
		Logger:   slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})),
		LogLevel: &level,
	})

	translate(t, f, "_limit=abc&_foo=1", false, nil)

	out := buf.String()
	if !strings.Contains(out, "query parameter dropped") || !strings.Contains(out, "invalid limit") {
		t.Errorf("log output %q", out)
	}
	if !strings.Contains(out, "unknown reserved parameter") {
		t.Errorf("log output %q, want unknown reserved parameter", out)
	}
}
