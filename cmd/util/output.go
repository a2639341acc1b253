package util

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// OutputFlags are the --output-* flags shared by the analysis commands.
type OutputFlags struct {
	Human   string
	JSON    string
	YAML    string
	NoColor bool
}

// Register defines the output flags on cmd.
func (f *OutputFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Human, "output-human", "", "Output human-readable format to stdout or file path")
	cmd.Flags().StringVar(&f.JSON, "output-json", "", "Output JSON format to stdout or file path")
	cmd.Flags().StringVar(&f.YAML, "output-yaml", "", "Output YAML format to stdout or file path")
	cmd.Flags().BoolVar(&f.NoColor, "no-color", false, "Disable colored output")
}

// outputSpec is one requested output
type outputSpec struct {
	format string // "human", "json", or "yaml"
	target string // "stdout" or file path
}

// outputs parses the output flags and returns the list of outputs to generate
func (f *OutputFlags) outputs() ([]outputSpec, error) {
	var outputs []outputSpec
	stdoutCount := 0
	for _, o := range []outputSpec{{"human", f.Human}, {"json", f.JSON}, {"yaml", f.YAML}} {
		if o.target == "" {
			continue
		}
		if o.target == "stdout" {
			stdoutCount++
		}
		outputs = append(outputs, o)
	}

	if stdoutCount > 1 {
		return nil, fmt.Errorf("only one output format can use stdout")
	}
	// Default behavior: if no outputs specified, output human to stdout
	if len(outputs) == 0 {
		outputs = append(outputs, outputSpec{format: "human", target: "stdout"})
	}
	return outputs, nil
}

// Write renders value in every requested format. human renders the
// human-readable form, colored when useColor is set.
func (f *OutputFlags) Write(cmd *cobra.Command, value any, human func(useColor bool) string) error {
	outputs, err := f.outputs()
	if err != nil {
		return err
	}
	for _, output := range outputs {
		var content string
		switch output.format {
		case "human":
			content = human(output.target == "stdout" && !f.NoColor)
		case "json":
			content, err = ToJSON(value)
		case "yaml":
			content, err = ToYAML(value)
		}
		if err != nil {
			return fmt.Errorf("failed to generate %s output: %w", output.format, err)
		}

		if output.target == "stdout" {
			fmt.Fprint(cmd.OutOrStdout(), content)
			continue
		}
		if err := os.WriteFile(output.target, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s output to %s: %w", output.format, output.target, err)
		}
	}
	return nil
}

// ToJSON renders value as indented JSON with a trailing newline.
func ToJSON(value any) (string, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// ToYAML renders value as YAML with the same keys as its JSON form.
func ToYAML(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return "", err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
