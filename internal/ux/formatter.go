package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	jmespath "github.com/jmespath-community/go-jmespath"
	"gopkg.in/yaml.v3"
)

// Formatter defines the interface for output formatters.
type Formatter interface {
	// Format writes the given data to the output writer
	Format(data any) error
}

// TextRenderer is implemented by values with a human-readable rendering
type TextRenderer interface {
	RenderText(w io.Writer, noColor bool) error
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// NoColor disables styling in text output
	NoColor bool
	// Compact enables compact output (no indentation for JSON/YAML)
	Compact bool
	// Query is a JMESPath expression applied before formatting
	Query string
}

// Formats lists the supported output formats
var Formats = []string{"text", "json", "yaml"}

// NewFormatter creates a formatter based on the format string
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	if opts == nil {
		opts = &FormatterOptions{}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	var f Formatter
	switch format {
	case "json":
		f = &JSONFormatter{opts: opts}
	case "yaml":
		f = &YAMLFormatter{opts: opts}
	case "text", "":
		f = &TextFormatter{opts: opts}
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}

	if opts.Query == "" {
		return f, nil
	}
	expr, err := jmespath.Compile(opts.Query)
	if err != nil {
		return nil, fmt.Errorf("invalid --query expression: %w", err)
	}
	return &queryFormatter{next: f, expr: expr}, nil
}

type searcher interface {
	Search(data any) (any, error)
}

// queryFormatter projects data through a JMESPath expression
type queryFormatter struct {
	next Formatter
	expr searcher
}

func (q *queryFormatter) Format(data any) error {
	generic, err := toGeneric(data)
	if err != nil {
		return err
	}
	result, err := q.expr.Search(generic)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return q.next.Format(queryResult{value: result})
}

// queryResult marks projected data so the text formatter prints it plainly
type queryResult struct {
	value any
}

// Data returns the projected value
func (r queryResult) Data() any { return r.value }

// toGeneric converts data to the map/slice shape JMESPath operates on,
// honouring json tags
func toGeneric(data any) (any, error) {
	raw, err := json.Marshal(unwrap(data))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data for query: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to prepare data for query: %w", err)
	}
	return out, nil
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	opts *FormatterOptions
}

// Format writes data as JSON
func (f *JSONFormatter) Format(data any) error {
	encoder := json.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(unwrap(data))
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	opts *FormatterOptions
}

// Format writes data as YAML
func (f *YAMLFormatter) Format(data any) error {
	encoder := yaml.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		encoder.SetIndent(2)
	}
	defer encoder.Close()
	return encoder.Encode(unwrap(data))
}

// unwrap returns the value structured encoders should see
func unwrap(data any) any {
	if d, ok := data.(interface{ Data() any }); ok {
		return d.Data()
	}
	return data
}

// TextFormatter formats output as human-readable text
type TextFormatter struct {
	opts *FormatterOptions
}

// Format writes data as formatted text. Values must be a string, a
// TextRenderer, a fmt.Stringer, or a query result.
func (f *TextFormatter) Format(data any) error {
	w := f.opts.Writer
	switch v := data.(type) {
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case TextRenderer:
		return v.RenderText(w, f.opts.NoColor)
	case fmt.Stringer:
		_, err := fmt.Fprintln(w, v.String())
		return err
	case queryResult:
		return writePlain(w, v.value)
	default:
		return fmt.Errorf("text formatter cannot render %T; use --output json or yaml", data)
	}
}

// writePlain prints scalars bare, lists of scalars one per line, and
// anything else as indented JSON
func writePlain(w io.Writer, v any) error {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, t)
		return err
	case float64, bool:
		_, err := fmt.Fprintln(w, t)
		return err
	case []any:
		if allScalars(t) {
			for _, item := range t {
				if _, err := fmt.Fprintln(w, item); err != nil {
					return err
				}
			}
			return nil
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func allScalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case string, float64, bool:
		default:
			return false
		}
	}
	return true
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
	_ Formatter = (*TextFormatter)(nil)
	_ Formatter = (*queryFormatter)(nil)
)
