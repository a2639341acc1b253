package util

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("TEST_STRING", "test-value")
	if got := GetEnvWithDefault("TEST_STRING", "default"); got != "test-value" {
		t.Errorf("Expected GetEnvWithDefault to return 'test-value', got '%s'", got)
	}

	if got := GetEnvWithDefault("PGMODEL_MISSING_VAR", "default"); got != "default" {
		t.Errorf("Expected GetEnvWithDefault to return 'default', got '%s'", got)
	}

	t.Setenv("EMPTY_VAR", "")
	if got := GetEnvWithDefault("EMPTY_VAR", "default"); got != "default" {
		t.Errorf("Expected GetEnvWithDefault to return 'default' for empty var, got '%s'", got)
	}
}

func TestGetEnvIntWithDefault(t *testing.T) {
	t.Setenv("TEST_INT", "12345")
	if got := GetEnvIntWithDefault("TEST_INT", 0); got != 12345 {
		t.Errorf("Expected GetEnvIntWithDefault to return 12345, got %d", got)
	}

	t.Setenv("TEST_INVALID_INT", "not-a-number")
	if got := GetEnvIntWithDefault("TEST_INVALID_INT", 999); got != 999 {
		t.Errorf("Expected GetEnvIntWithDefault to return default 999, got %d", got)
	}
}

func TestGetEnvBoolWithDefault(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"false", true, false},
		{"maybe", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.value)
		if got := GetEnvBoolWithDefault("TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("GetEnvBoolWithDefault(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func newEnvCommand(strict *bool, config *string, concurrency *int) *cobra.Command {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().BoolVar(strict, "strict", false, "")
	cmd.Flags().StringVar(config, "config", ".pgmodel.toml", "")
	cmd.Flags().IntVar(concurrency, "concurrency", 0, "")
	cmd.PreRunE = PreRunEWithEnvVars(strict, config, concurrency)
	return cmd
}

func TestPreRunEWithEnvVars(t *testing.T) {
	t.Setenv("PGMODEL_STRICT", "true")
	t.Setenv("PGMODEL_CONFIG", "/etc/pgmodel.toml")
	t.Setenv("PGMODEL_CONCURRENCY", "4")

	var (
		strict      bool
		config      string
		concurrency int
	)
	cmd := newEnvCommand(&strict, &config, &concurrency)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strict || config != "/etc/pgmodel.toml" || concurrency != 4 {
		t.Errorf("Expected environment values, got strict=%v config=%q concurrency=%d", strict, config, concurrency)
	}

	// Explicit flags win over the environment.
	cmd = newEnvCommand(&strict, &config, &concurrency)
	cmd.SetArgs([]string{"--strict=false", "--config", "local.toml", "--concurrency", "2"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strict || config != "local.toml" || concurrency != 2 {
		t.Errorf("Expected flag values, got strict=%v config=%q concurrency=%d", strict, config, concurrency)
	}
}
