package queries

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgmodel"
	"github.com/pgschema/pgmodel/cmd/util"
	"github.com/pgschema/pgmodel/internal/color"
	"github.com/pgschema/pgmodel/ir"
)

var (
	schemaPaths   []string
	pattern       string
	strict        bool
	defaultSchema string
	configPath    string
	concurrency   int
	failOnWarning bool
	output        util.OutputFlags
)

var QueriesCmd = &cobra.Command{
	Use:   "queries --schema <dir | file> <query file...>",
	Short: "Analyze annotated SQL queries",
	Long: `Analyze query files whose statements are annotated with
"-- name: <Name> :<one|many|exec|execrows>" against a schema, and print each
query's typed parameters and result columns. The command fails when an Error
issue is reported for the schema or a query.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: util.PreRunEWithEnvVars(&strict, &configPath, &concurrency),
	RunE:    runQueries,
}

func init() {
	QueriesCmd.Flags().StringSliceVar(&schemaPaths, "schema", nil, "Schema directory or files (required)")
	QueriesCmd.Flags().StringVar(&pattern, "pattern", "*.sql", "File name glob used when the schema is a directory")
	QueriesCmd.Flags().BoolVar(&strict, "strict", false, "Report unrecognized schema statements as errors (env: PGMODEL_STRICT)")
	QueriesCmd.Flags().StringVar(&defaultSchema, "default-schema", "public", "Schema of unqualified names")
	QueriesCmd.Flags().StringVar(&configPath, "config", util.DefaultConfigPath(), "Filter configuration file (env: PGMODEL_CONFIG)")
	QueriesCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Files analyzed at once (default: number of CPUs)")
	QueriesCmd.Flags().BoolVar(&failOnWarning, "fail-on-warning", false, "Fail when a Warning issue is reported")
	QueriesCmd.MarkFlagRequired("schema")
	output.Register(QueriesCmd)
}

// Result is the machine-readable output of the queries command.
type Result struct {
	Queries      []*ir.QueryMetadata  `json:"queries"`
	SchemaIssues []ir.ValidationIssue `json:"schema_issues"`
}

func runQueries(cmd *cobra.Command, args []string) error {
	client, err := util.NewClient(configPath, pgmodel.Options{
		Strict:         strict,
		CommentParsing: true,
		DefaultSchema:  defaultSchema,
		Concurrency:    concurrency,
	})
	if err != nil {
		return err
	}

	md, err := util.AnalyzeSchema(cmd.Context(), client, schemaPaths, pattern, true)
	if err != nil {
		return err
	}
	queries, err := client.AnalyzeQueryFiles(cmd.Context(), md, args)
	if err != nil {
		return err
	}

	result := &Result{Queries: queries, SchemaIssues: md.Issues}
	if err := output.Write(cmd, result, func(useColor bool) string {
		return formatHuman(color.New(useColor), result)
	}); err != nil {
		return err
	}

	if n := util.ErrorCount(pgmodel.Issues(md, queries), failOnWarning); n > 0 {
		return fmt.Errorf("analysis reported %d blocking issues", n)
	}
	return nil
}

func formatHuman(c *color.Color, result *Result) string {
	var b strings.Builder
	for _, q := range result.Queries {
		name := q.Name
		if name == "" {
			name = "<unnamed>"
		}
		fmt.Fprintf(&b, "%s :%s  %s\n", c.Bold(name), q.Cardinality, c.Dim(q.Location.String()))
		if q.Summary != "" {
			fmt.Fprintf(&b, "  %s\n", q.Summary)
		}
		for _, p := range q.Parameters {
			fmt.Fprintf(&b, "  $%d %s %s%s\n", p.Position, p.Name, p.PgType, nullable(p.Nullable))
			if doc, ok := q.ParamDocs[p.Name]; ok && doc != "" {
				fmt.Fprintf(&b, "      %s\n", c.Dim(doc))
			}
		}
		if rt := q.ReturnType; rt != nil {
			model := rt.ModelName
			if rt.RequiresCustomModel {
				model += " (custom)"
			}
			fmt.Fprintf(&b, "  -> %s\n", model)
			for _, col := range rt.Columns {
				fmt.Fprintf(&b, "     %s %s%s\n", col.Name, col.PgType, nullable(col.Nullable))
			}
		}
		b.WriteString("\n")
	}

	issues := append([]ir.ValidationIssue{}, result.SchemaIssues...)
	for _, q := range result.Queries {
		issues = append(issues, q.Issues...)
	}
	b.WriteString(util.FormatIssues(c, issues))
	return b.String()
}

func nullable(n bool) string {
	if n {
		return " null"
	}
	return ""
}
