package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgmodel/cmd/analyze"
	"github.com/pgschema/pgmodel/cmd/queries"
	"github.com/pgschema/pgmodel/internal/logger"
	"github.com/pgschema/pgmodel/internal/version"
)

var Debug bool

var RootCmd = &cobra.Command{
	Use:   "pgmodel",
	Short: "PostgreSQL schema and query analyzer",
	Long: fmt.Sprintf(`pgmodel analyzes PostgreSQL DDL and annotated SQL queries into a typed
model for code generators.

Version: %s

Commands:
  analyze  Analyze schema files
  queries  Analyze annotated query files against a schema

Use "pgmodel [command] --help" for more information about a command.`, version.String()),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(analyze.AnalyzeCmd)
	RootCmd.AddCommand(queries.QueriesCmd)
	RootCmd.AddCommand(VersionCmd)
}

func setupLogger() {
	logger.Setup(os.Stderr, Debug)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
