// Package presenter provides consistent CLI output for user-facing messages,
// including the agent discovery summary, with color support and quiet mode.
package presenter

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/devPermutations/agent-discovery/pkg/agents"
)

// RestartReminder is printed after every successful discovery run
const RestartReminder = "Restart Cursor to pick up the new agent references"

// Presenter defines the interface for consistent CLI output
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Info(message string)
	AgentSummary(registry *agents.Registry, outputPath string)
	SetQuiet(quiet bool)
}

// TerminalPresenter implements Presenter for terminal output
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto lets the color package decide based on the terminal
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output
	ColorAlways
	// ColorNever disables colored output
	ColorNever
)

// New creates a TerminalPresenter writing to stdout and stderr
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with custom settings
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	presenter := &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   colorMode,
	}

	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}

	return presenter
}

// detectColorMode reads NO_COLOR and AGENT_DISCOVERY_COLOR
func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv("AGENT_DISCOVERY_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error displays an error message to stderr. It is shown in quiet mode too.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Success displays a success message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}

	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Fprintf(p.output, "✓ %s\n", message)
}

// Info displays an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}

	fmt.Fprintf(p.output, "%s\n", message)
}

// AgentSummary reports the agents written to outputPath, one "@name - description" line each
func (p *TerminalPresenter) AgentSummary(registry *agents.Registry, outputPath string) {
	if p.quiet {
		return
	}

	p.Success(fmt.Sprintf("Discovered %d agents:", registry.Len()))
	for _, agent := range registry.Agents() {
		p.Info(fmt.Sprintf("  @%s - %s", agent.Name, agent.Description))
	}

	p.Info("")
	p.Info("Agent configuration saved to: " + outputPath)
	color.New(color.FgCyan).Fprintf(p.output, "%s\n", RestartReminder)
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

var defaultPresenter = New()

// Default returns the presenter behind the package-level helpers
func Default() Presenter {
	return defaultPresenter
}

// Error displays an error message using the default presenter
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// SetQuiet enables or disables quiet mode for the default presenter
func SetQuiet(quiet bool) {
	defaultPresenter.SetQuiet(quiet)
}
