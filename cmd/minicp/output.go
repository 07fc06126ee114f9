package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	idleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// outputFormatter prints either JSON or styled text depending on --json.
type outputFormatter struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

func newOutputFormatter(cmd *cobra.Command) *outputFormatter {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &outputFormatter{jsonMode: jsonMode, w: cmd.OutOrStdout(), errW: cmd.ErrOrStderr()}
}

// Print writes data as JSON in JSON mode and text otherwise.
func (f *outputFormatter) Print(data any, text string) error {
	if f.jsonMode {
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(f.w, string(b))
		return nil
	}
	fmt.Fprintln(f.w, strings.TrimRight(text, "\n"))
	return nil
}

func (f *outputFormatter) Success(message string) error {
	return f.Print(map[string]any{"success": true, "message": message}, goodStyle.Render("✓ ")+message)
}

// Error reports to stderr and returns an error so cobra exits non-zero.
func (f *outputFormatter) Error(message string, err error) error {
	if f.jsonMode {
		out := map[string]any{"success": false, "error": message}
		if err != nil {
			out["details"] = err.Error()
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(f.errW, string(b))
	} else if err != nil {
		fmt.Fprintf(f.errW, "%s %s: %v\n", badStyle.Render("✗"), message, err)
	} else {
		fmt.Fprintf(f.errW, "%s %s\n", badStyle.Render("✗"), message)
	}
	if err != nil {
		return reportedError{fmt.Errorf("%s: %w", message, err)}
	}
	return reportedError{errors.New(message)}
}

// reportedError has already been shown to the user.
type reportedError struct{ error }

func (r reportedError) Unwrap() error { return r.error }

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func yesNo(b bool) string {
	if b {
		return goodStyle.Render("yes")
	}
	return badStyle.Render("no")
}
