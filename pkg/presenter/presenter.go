// Package presenter provides consistent CLI output for user-facing
// messages, with color support and a quiet mode for scripted use.
package presenter

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Presenter writes user-facing messages.
type Presenter struct {
	output      io.Writer
	errorOutput io.Writer
	quiet       bool
}

// New creates a Presenter writing to stdout/stderr. The color package
// handles terminal detection on its own.
func New() *Presenter {
	return NewWithOptions(os.Stdout, os.Stderr)
}

// NewWithOptions creates a Presenter with custom output streams.
func NewWithOptions(output, errorOutput io.Writer) *Presenter {
	return &Presenter{
		output:      output,
		errorOutput: errorOutput,
	}
}

// SetQuiet suppresses success and informational output.
func (p *Presenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Error prints an error message with optional context.
func (p *Presenter) Error(err error, context string) {
	if context != "" {
		fmt.Fprintf(p.errorOutput, "%s %s: %v\n", color.RedString("Error:"), context, err)
		return
	}
	fmt.Fprintf(p.errorOutput, "%s %v\n", color.RedString("Error:"), err)
}

// Success prints a success message unless quiet.
func (p *Presenter) Success(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "%s %s\n", color.GreenString("✓"), message)
}

// Warning prints a warning message.
func (p *Presenter) Warning(message string) {
	fmt.Fprintf(p.output, "%s %s\n", color.YellowString("Warning:"), message)
}

// Info prints an informational message unless quiet.
func (p *Presenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.output, message)
}

var defaultPresenter = New()

// Default returns the process-wide presenter.
func Default() *Presenter {
	return defaultPresenter
}
