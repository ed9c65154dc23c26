package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/worldcal/internal/compiler"
	"github.com/roach88/worldcal/internal/ir"
	"github.com/roach88/worldcal/internal/loader"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// LevelSummary describes one depth of a compiled calendar.
type LevelSummary struct {
	Depth   int      `json:"depth"`
	Units   []string `json:"units"`
	MinSpan int64    `json:"min_span"`
	MaxSpan int64    `json:"max_span"`
	Labeled bool     `json:"labeled"`
}

// CompilationResult summarizes a compiled calendar.
type CompilationResult struct {
	IRVersion     string         `json:"ir_version"`
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Key           string         `json:"key"`
	Origin        int64          `json:"origin"`
	UnitCount     int            `json:"unit_count"`
	RootSpan      int64          `json:"root_span"`
	Levels        []LevelSummary `json:"levels"`
	Presentations []string       `json:"presentations"`
	Output        string         `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <template>",
		Short: "Compile a calendar template",
		Long: `Compile a calendar template and summarize its unit tree.

<template> is a built-in template name (see "worldcal templates") or a path
to a .cue, .yaml or .yml file. With --output the calendar is also written
as canonical JSON, the form used for fingerprinting.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical calendar JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cal, err := loader.Resolve(ref)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Loaded calendar %q with %d unit(s), %d relation(s)", cal.Name, len(cal.Units), len(cal.Relations))

	compiled, err := compiler.Compile(cal)
	if err != nil {
		return formatter.Fail(err)
	}

	result := summarize(cal, compiled)

	if opts.Output != "" {
		if err := writeCanonical(cal, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
		result.Output = opts.Output
	}

	return outputCompileSuccess(formatter, result)
}

func summarize(cal ir.Calendar, c *compiler.Compiled) CompilationResult {
	result := CompilationResult{
		IRVersion:     ir.IRVersion,
		ID:            cal.ID,
		Name:          c.Name(),
		Key:           c.Key().String(),
		Origin:        c.Origin(),
		UnitCount:     len(cal.Units),
		Levels:        []LevelSummary{},
		Presentations: []string{},
	}
	if root, ok := c.RootNode(); ok {
		result.RootSpan = c.SpanAt(root)
	}
	for _, l := range c.Levels() {
		ls := LevelSummary{Depth: l.Depth, MinSpan: l.MinSpan, MaxSpan: l.MaxSpan, Labeled: l.Labeled}
		for _, u := range l.Units {
			ls.Units = append(ls.Units, string(u))
		}
		result.Levels = append(result.Levels, ls)
	}
	for _, p := range c.Presentations() {
		result.Presentations = append(result.Presentations, p.Name)
	}
	return result
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s: %d unit(s), %d level(s)\n\n", result.Name, result.UnitCount, len(result.Levels))
	fmt.Fprintf(w, "Key:    %s\n", result.Key)
	fmt.Fprintf(w, "Origin: %d\n", result.Origin)
	if result.RootSpan > 0 {
		fmt.Fprintf(w, "Cycle:  %d ticks\n", result.RootSpan)
	}

	if len(result.Levels) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Levels:")
		for _, l := range result.Levels {
			span := fmt.Sprintf("%d", l.MinSpan)
			if l.MaxSpan != l.MinSpan {
				span = fmt.Sprintf("%d-%d", l.MinSpan, l.MaxSpan)
			}
			fmt.Fprintf(w, "  %d: %v (%s ticks)\n", l.Depth, l.Units, span)
		}
	}

	if len(result.Presentations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Presentations:")
		for _, p := range result.Presentations {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}

	if result.Output != "" {
		fmt.Fprintf(w, "\nWrote canonical calendar to %s\n", result.Output)
	}
	return nil
}

// writeCanonical writes the calendar in canonical JSON form.
func writeCanonical(cal ir.Calendar, filename string) error {
	data, err := ir.MarshalCanonical(cal)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, append(data, '\n'), 0644)
}
