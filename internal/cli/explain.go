package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/apiquery"
	"github.com/hugr-lab/apiquery/builder"
	"github.com/hugr-lab/apiquery/catalog"
	"github.com/hugr-lab/apiquery/sqlquery"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	SQL bool
}

// ExplainResult is the outcome of translating one query string.
type ExplainResult struct {
	Entity     string         `json:"entity"`
	Calls      []builder.Call `json:"calls"`
	Fields     []string       `json:"fields,omitempty"`
	Additional []string       `json:"additional_fields,omitempty"`
	Relations  []string       `json:"relations,omitempty"`
	SQL        string         `json:"sql,omitempty"`
	Args       []any          `json:"args,omitempty"`
}

// String renders the result for text output.
func (r *ExplainResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "entity: %s\n", r.Entity)
	for _, c := range r.Calls {
		sb.WriteString("  ")
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	if len(r.Additional) > 0 {
		fmt.Fprintf(&sb, "additional fields: %s\n", strings.Join(r.Additional, ", "))
	}
	if r.SQL != "" {
		fmt.Fprintf(&sb, "sql: %s\n", r.SQL)
		fmt.Fprintf(&sb, "args: %v\n", r.Args)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <entity> <query-string>",
		Short: "Show the builder operations a query string compiles to",
		Long: `Translate a query string against an entity of the configured catalog
and print the recorded builder operations. No database is needed.

Example:
  apiquery explain posts '_sort=-created_at&_with=comments&status-in=draft,published'
  apiquery explain --config api.yaml --sql posts 'title-lk=Go*&_limit=5'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "also render the DuckDB SQL statement")

	return cmd
}

func runExplain(ctx context.Context, opts *ExplainOptions, name, query string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := opts.loadConfig(opts.logger(cmd.ErrOrStderr()))
	if err != nil {
		return formatter.Error(err)
	}
	f, err := apiquery.NewFactory(cfg)
	if err != nil {
		return formatter.Error(WrapExitError(ExitCommandError, "invalid config", err))
	}

	result, err := explain(ctx, f, cfg.Catalog, name, query, opts.SQL)
	if err != nil {
		return formatter.Error(err)
	}
	return formatter.Success(result)
}

// explain translates query onto a recorder and, if withSQL is set, onto a
// DuckDB query whose statement is rendered without running it.
func explain(ctx context.Context, f *apiquery.Factory, cat catalog.Catalog, name, query string, withSQL bool) (*ExplainResult, error) {
	var entity catalog.Entity
	relational := false
	if cat != nil {
		e, ok := cat.Entity(name)
		if !ok {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown entity %q", name))
		}
		entity = e
		_, relational = e.(catalog.RelationalEntity)
	}

	params := apiquery.ParseQuery(strings.TrimPrefix(query, "?"))

	rec := builder.NewRecorder(relational)
	h := f.Make(params, rec, entity)
	if _, err := h.Collection(ctx); err != nil {
		return nil, WrapExitError(ExitFailure, "translation failed", err)
	}

	result := &ExplainResult{
		Entity:     name,
		Calls:      rec.Calls(),
		Fields:     h.Fields(),
		Additional: h.AdditionalFields(),
		Relations:  h.Relations(),
	}

	if withSQL {
		q := sqlquery.New(nil, cat, name)
		sh := f.Make(params, q, entity)
		s, args, err := q.SQL(sh.Fields())
		if err != nil {
			return nil, WrapExitError(ExitFailure, "render SQL", err)
		}
		result.SQL = s
		result.Args = args
	}
	return result, nil
}
