package main

import (
	"github.com/joho/godotenv"

	"github.com/pgschema/pgmodel/cmd"
)

func main() {
	// PGMODEL_* settings may come from a .env file
	_ = godotenv.Load()

	cmd.Execute()
}
