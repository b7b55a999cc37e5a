// Package output prints command results as YAML or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/wdadash/internal/model"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// Out receives all printed results.
var Out io.Writer = os.Stdout

// ParseFormat validates a --format value. Empty means YAML.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "yaml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use yaml or json)", s)
	}
}

// SourceResult is the output of the `source` command.
type SourceResult struct {
	Device   string          `yaml:"device,omitempty" json:"device,omitempty"`
	App      string          `yaml:"app,omitempty"    json:"app,omitempty"`
	TS       int64           `yaml:"ts"               json:"ts"`
	Count    int             `yaml:"count"            json:"count"`
	Elements []model.Element `yaml:"elements"         json:"elements"`
}

// SourceFlatResult is the output of `source --flat`.
type SourceFlatResult struct {
	Device   string              `yaml:"device,omitempty" json:"device,omitempty"`
	App      string              `yaml:"app,omitempty"    json:"app,omitempty"`
	TS       int64               `yaml:"ts"               json:"ts"`
	Elements []model.FlatElement `yaml:"elements"         json:"elements"`
}

// Print serializes v to Out in the current output format.
func Print(v interface{}) error {
	return Fprint(Out, OutputFormat, PrettyOutput, v)
}

// Fprint serializes v to w in the given format.
func Fprint(w io.Writer, format Format, pretty bool, v interface{}) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, v, pretty)
	case FormatYAML:
		return writeYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// PrintJSON serializes v to Out as compact single-line JSON.
func PrintJSON(v interface{}) error { return writeJSON(Out, v, false) }

// PrintPrettyJSON serializes v to Out as indented JSON.
func PrintPrettyJSON(v interface{}) error { return writeJSON(Out, v, true) }

// PrintYAML serializes v to Out as YAML.
func PrintYAML(v interface{}) error { return writeYAML(Out, v) }

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
