package analyze

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgmodel"
	"github.com/pgschema/pgmodel/cmd/util"
	"github.com/pgschema/pgmodel/internal/color"
	"github.com/pgschema/pgmodel/internal/fingerprint"
	"github.com/pgschema/pgmodel/ir"
)

var (
	pattern       string
	recursive     bool
	strict        bool
	noComments    bool
	verifySyntax  bool
	defaultSchema string
	configPath    string
	concurrency   int
	failOnWarning bool
	expectHash    string
	output        util.OutputFlags
)

var AnalyzeCmd = &cobra.Command{
	Use:   "analyze <dir | file...>",
	Short: "Analyze PostgreSQL schema files",
	Long: `Analyze the DDL of a schema directory or of a list of SQL files and print the
resulting model with its validation issues. The command fails when an
Error issue is reported.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: util.PreRunEWithEnvVars(&strict, &configPath, &concurrency),
	RunE:    runAnalyze,
}

func init() {
	AnalyzeCmd.Flags().StringVar(&pattern, "pattern", "*.sql", "File name glob used when analyzing a directory")
	AnalyzeCmd.Flags().BoolVar(&recursive, "recursive", true, "Descend into subdirectories when analyzing a directory")
	AnalyzeCmd.Flags().BoolVar(&strict, "strict", false, "Report unrecognized statements as errors (env: PGMODEL_STRICT)")
	AnalyzeCmd.Flags().BoolVar(&noComments, "no-comments", false, "Ignore comment:/to_type:/to_name: metadata in comments")
	AnalyzeCmd.Flags().BoolVar(&verifySyntax, "verify-syntax", false, "Cross-check statements with the PostgreSQL parser")
	AnalyzeCmd.Flags().StringVar(&defaultSchema, "default-schema", "public", "Schema of unqualified names")
	AnalyzeCmd.Flags().StringVar(&configPath, "config", util.DefaultConfigPath(), "Filter configuration file (env: PGMODEL_CONFIG)")
	AnalyzeCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Files analyzed at once (default: number of CPUs)")
	AnalyzeCmd.Flags().BoolVar(&failOnWarning, "fail-on-warning", false, "Fail when a Warning issue is reported")
	AnalyzeCmd.Flags().StringVar(&expectHash, "expect-fingerprint", "", "Fail unless the schema fingerprint equals this hash")
	output.Register(AnalyzeCmd)
}

// Result is the machine-readable output of the analyze command.
type Result struct {
	Schema      *ir.SchemaMetadata `json:"schema"`
	Fingerprint string             `json:"fingerprint"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	client, err := util.NewClient(configPath, pgmodel.Options{
		Strict:         strict,
		CommentParsing: !noComments,
		VerifySyntax:   verifySyntax,
		DefaultSchema:  defaultSchema,
		Concurrency:    concurrency,
	})
	if err != nil {
		return err
	}

	md, err := util.AnalyzeSchema(cmd.Context(), client, args, pattern, recursive)
	if err != nil {
		return err
	}

	fp, err := fingerprint.Schema(md)
	if err != nil {
		return fmt.Errorf("failed to fingerprint schema: %w", err)
	}
	result := &Result{Schema: md, Fingerprint: fp.Hash}

	if err := output.Write(cmd, result, func(useColor bool) string {
		return formatHuman(color.New(useColor), result)
	}); err != nil {
		return err
	}

	if n := util.ErrorCount(md.Issues, failOnWarning); n > 0 {
		return fmt.Errorf("analysis reported %d blocking issues", n)
	}
	if expectHash != "" {
		return fingerprint.Compare(&fingerprint.SchemaFingerprint{Hash: expectHash}, fp)
	}
	return nil
}

func formatHuman(c *color.Color, result *Result) string {
	md := result.Schema
	var b strings.Builder

	fmt.Fprintf(&b, "%s %d definitions from %d files\n\n",
		c.Bold("Analyzed"), md.Count(), len(md.SourceFiles))
	for _, kind := range ir.DefinitionKinds {
		defs := md.DefinitionsOf(kind)
		if len(defs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (%d)\n", c.Bold(heading(kind)), len(defs))
		for _, d := range defs {
			base := d.Base()
			fmt.Fprintf(&b, "  %s%s\n", ir.ShortName(base.Schema, base.Name, defaultSchema), describe(d))
		}
	}

	b.WriteString("\n")
	b.WriteString(util.FormatIssues(c, md.Issues))
	fmt.Fprintf(&b, "fingerprint %s\n", c.Dim(result.Fingerprint))
	return b.String()
}

func heading(kind ir.ObjectKind) string {
	if kind == ir.KindIndex {
		return "indexes"
	}
	return string(kind) + "s"
}

// describe returns a short parenthesized summary of d.
func describe(d ir.Definition) string {
	switch v := d.(type) {
	case *ir.Table:
		return fmt.Sprintf(" (%d columns)", len(v.Columns))
	case *ir.View:
		if v.Materialized {
			return fmt.Sprintf(" (materialized, %d columns)", len(v.Columns))
		}
		return fmt.Sprintf(" (%d columns)", len(v.Columns))
	case *ir.Enum:
		return " (" + strings.Join(v.Values, ", ") + ")"
	case *ir.Domain:
		return " (" + v.BaseType + ")"
	case *ir.Function:
		return "(" + v.Arguments() + ")"
	case *ir.Index, *ir.Trigger, *ir.Constraint:
		return " on " + ir.Ref(d).Table
	case *ir.Partition:
		return " partition of " + v.Parent
	}
	return ""
}
