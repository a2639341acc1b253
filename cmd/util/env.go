package util

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgmodel/internal/filter"
)

// GetEnvWithDefault returns the value of an environment variable or a default value if not set
func GetEnvWithDefault(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntWithDefault returns the value of an environment variable as int or a default value if not set
func GetEnvIntWithDefault(envVar string, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvBoolWithDefault returns the value of an environment variable as bool or a default value if not set
func GetEnvBoolWithDefault(envVar string, defaultValue bool) bool {
	if value := os.Getenv(envVar); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// PreRunEWithEnvVars creates a PreRunE function that fills the --strict,
// --config and --concurrency flags from PGMODEL_STRICT, PGMODEL_CONFIG and
// PGMODEL_CONCURRENCY when they were not set explicitly.
func PreRunEWithEnvVars(strictPtr *bool, configPtr *string, concurrencyPtr *int) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if strictPtr != nil && !cmd.Flags().Changed("strict") {
			*strictPtr = GetEnvBoolWithDefault("PGMODEL_STRICT", *strictPtr)
		}
		if configPtr != nil && !cmd.Flags().Changed("config") {
			*configPtr = GetEnvWithDefault("PGMODEL_CONFIG", *configPtr)
		}
		if concurrencyPtr != nil && !cmd.Flags().Changed("concurrency") {
			*concurrencyPtr = GetEnvIntWithDefault("PGMODEL_CONCURRENCY", *concurrencyPtr)
		}
		return nil
	}
}

// DefaultConfigPath is the filter file read when --config is not given.
func DefaultConfigPath() string {
	return filter.FileName
}
