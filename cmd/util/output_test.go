package util

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

type sample struct {
	Name  string   `json:"name"`
	Items []string `json:"items,omitempty"`
}

func TestOutputs(t *testing.T) {
	tests := []struct {
		name    string
		flags   OutputFlags
		want    []outputSpec
		wantErr bool
	}{
		{"default", OutputFlags{}, []outputSpec{{"human", "stdout"}}, false},
		{"json file and human stdout", OutputFlags{Human: "stdout", JSON: "out.json"}, []outputSpec{{"human", "stdout"}, {"json", "out.json"}}, false},
		{"two stdout", OutputFlags{JSON: "stdout", YAML: "stdout"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.outputs()
			if (err != nil) != tt.wantErr {
				t.Fatalf("outputs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(outputSpec{})); diff != "" {
				t.Errorf("outputs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToYAML(t *testing.T) {
	got, err := ToYAML(sample{Name: "users", Items: []string{"id", "name"}})
	if err != nil {
		t.Fatalf("ToYAML() error = %v", err)
	}
	want := "items:\n    - id\n    - name\nname: users\n"
	if got != want {
		t.Errorf("ToYAML() = %q, want %q", got, want)
	}
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	flags := OutputFlags{Human: "stdout", JSON: path}

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	err := flags.Write(cmd, sample{Name: "users"}, func(useColor bool) string {
		if !useColor {
			t.Error("Expected color for human output to stdout")
		}
		return "users\n"
	})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.String() != "users\n" {
		t.Errorf("Unexpected stdout %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read JSON output: %v", err)
	}
	if !strings.Contains(string(data), `"name": "users"`) {
		t.Errorf("Unexpected JSON output %s", data)
	}
}
