package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// OutputFormat selects how structured command results are printed.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// Formatter writes a command result.
type Formatter interface {
	FormatTo(w io.Writer, data interface{}) error
}

// TextFormatter prints data with %v.
type TextFormatter struct{}

// FormatTo writes data followed by a newline.
func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter prints indented JSON.
type JSONFormatter struct{}

// FormatTo writes data as indented JSON.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// YAMLFormatter prints YAML with two-space indentation.
type YAMLFormatter struct{}

// FormatTo writes data as YAML.
func (f *YAMLFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// NewFormatter returns the formatter for format, or an error for an unknown
// format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatText, "":
		return &TextFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected text, json or yaml)", format)
	}
}

// Printer writes colored status lines. Colors are disabled automatically
// when the output is not a terminal or NO_COLOR is set.
type Printer struct {
	out io.Writer
	err io.Writer

	success *color.Color
	warn    *color.Color
	fail    *color.Color
	label   *color.Color
	faint   *color.Color
}

// NewPrinter creates a printer. Nil writers default to stdout and stderr.
func NewPrinter(out, errOut io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{
		out:     out,
		err:     errOut,
		success: color.New(color.FgGreen, color.Bold),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed, color.Bold),
		label:   color.New(color.FgCyan, color.Bold),
		faint:   color.New(color.Faint),
	}
}

// Out returns the standard output writer.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Success prints a green check line.
func (p *Printer) Success(format string, args ...interface{}) {
	p.success.Fprint(p.out, "✓ ")
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Warn prints a yellow warning line to stderr.
func (p *Printer) Warn(format string, args ...interface{}) {
	p.warn.Fprintf(p.err, "! "+format+"\n", args...)
}

// Error prints a red error line to stderr.
func (p *Printer) Error(format string, args ...interface{}) {
	p.fail.Fprintf(p.err, "✗ "+format+"\n", args...)
}

// Label prints a bold prompt label without a newline.
func (p *Printer) Label(text string) {
	p.label.Fprint(p.out, text)
}

// Faint prints dimmed text without a newline.
func (p *Printer) Faint(format string, args ...interface{}) {
	p.faint.Fprintf(p.out, format, args...)
}

// Plain prints text without a newline.
func (p *Printer) Plain(text string) {
	fmt.Fprint(p.out, text)
}
