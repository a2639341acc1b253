package pgmodel_test

import (
	"context"
	"fmt"
	"log"

	"github.com/pgschema/pgmodel"
)

// ExampleAnalyzeSQL demonstrates how to analyze schema text into a snapshot.
func ExampleAnalyzeSQL() {
	md := pgmodel.AnalyzeSQL(`
CREATE TYPE mood AS ENUM ('happy', 'sad');
CREATE TABLE users (
    id integer PRIMARY KEY,
    name text,
    feeling mood NOT NULL
);
`)

	for _, t := range md.Tables {
		fmt.Printf("table %s.%s\n", t.Schema, t.Name)
		for _, c := range t.Columns {
			fmt.Printf("  %s %s nullable=%v\n", c.Name, c.DataType, c.IsNullable)
		}
	}
	fmt.Println("enums:", len(md.Enums), "issues:", len(md.Issues))
	// Output:
	// table public.users
	//   id integer nullable=false
	//   name text nullable=true
	//   feeling mood nullable=false
	// enums: 1 issues: 0
}

// ExampleAnalyzeQueries demonstrates how to type an annotated query against
// an analyzed schema.
func ExampleAnalyzeQueries() {
	md := pgmodel.AnalyzeSQL(`CREATE TABLE users (id integer PRIMARY KEY, name text);`)

	queries := pgmodel.AnalyzeQueries(md, `-- name: GetUser :one
SELECT id, name FROM users WHERE id = $1;
`)

	q := queries[0]
	fmt.Println(q.Name, q.Cardinality)
	for _, p := range q.Parameters {
		fmt.Printf("  $%d %s %s\n", p.Position, p.Name, p.PgType)
	}
	for _, c := range q.ReturnType.Columns {
		fmt.Printf("  -> %s %s nullable=%v\n", c.Name, c.PgType, c.Nullable)
	}
	// Output:
	// GetUser one
	//   $1 id integer
	//   -> id integer nullable=false
	//   -> name text nullable=true
}

// ExampleExtractEnums demonstrates how to run a single extractor.
func ExampleExtractEnums() {
	enums, issues := pgmodel.ExtractEnums(`CREATE TYPE status AS ENUM ('active', 'archived');`)

	fmt.Println(enums[0].Name, enums[0].Values, len(issues))
	// Output: status [active archived] 0
}

// ExampleNewFilterBuilder demonstrates how to keep only part of a snapshot.
func ExampleNewFilterBuilder() {
	cfg, err := pgmodel.NewFilterBuilder().
		OnlySchemas("billing").
		Build()
	if err != nil {
		log.Fatal(err)
	}

	client := pgmodel.NewClient(pgmodel.Options{CommentParsing: true, Filter: cfg})
	md := client.AnalyzeSQL("schema.sql", `
CREATE TABLE public.users (id integer);
CREATE TABLE billing.invoices (id integer, user_id integer);
`)

	for _, t := range md.Tables {
		fmt.Println(t.Schema + "." + t.Name)
	}
	// Output: billing.invoices
}

// ExampleClient_AnalyzeDirectory demonstrates how to analyze a directory
// of schema files.
func ExampleClient_AnalyzeDirectory() {
	client := pgmodel.NewClient(pgmodel.DefaultOptions())

	md, err := client.AnalyzeDirectory(context.Background(), "schema", "*.sql", true)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%d definitions from %d files\n", md.Count(), len(md.SourceFiles))
}
