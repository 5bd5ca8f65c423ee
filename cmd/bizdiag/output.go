package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"bizdiag/internal/export"
	"bizdiag/internal/pipeline"
)

const (
	outputHuman    = "human"
	outputJSON     = "json"
	outputYAML     = "yaml"
	outputMarkdown = "md"
)

func checkOutput(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unsupported output %q (want %s)", format, strings.Join(allowed, ", "))
}

// writeStructured prints v as indented JSON or block YAML.
func writeStructured(w io.Writer, v any, format string) error {
	var (
		raw []byte
		err error
	)
	switch format {
	case outputJSON:
		raw, err = export.ToJSON(v)
	case outputYAML:
		raw, err = export.ToYAML(v)
	default:
		return fmt.Errorf("unsupported output %q", format)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, strings.TrimRight(string(raw), "\n"))
	return err
}

// renderMarkdown styles md for the terminal, falling back to the raw text.
func renderMarkdown(w io.Writer, md string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		if out, rerr := r.Render(md); rerr == nil {
			md = out
		}
	}
	_, err = io.WriteString(w, md)
	return err
}

func newSpinner(w io.Writer) *spinner.Spinner {
	return spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(w))
}

// step runs fn behind the spinner and reports the outcome.
func step(s *spinner.Spinner, out io.Writer, label, done string, fn func() error) error {
	s.Suffix = " " + label
	s.Start()
	err := fn()
	s.Stop()
	if err != nil {
		return userError(err)
	}
	printSuccess(out, done)
	return nil
}

// userError swaps stage failures for their end-user message.
func userError(err error) error {
	var se *pipeline.StageError
	if errors.As(err, &se) {
		return errors.New(se.UserMessage())
	}
	return err
}

func printHeader(w io.Writer, title string) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Fprintln(w)
	cyan.Fprintln(w, title)
	fmt.Fprintln(w)
}

func printSuccess(w io.Writer, msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(w, "✓ %s\n", msg)
}
