package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/worldcal/internal/engine"
)

// ParsedEntry is one decoded level in command output.
type ParsedEntry struct {
	Unit    string `json:"unit"`
	Name    string `json:"name"`
	Depth   int    `json:"depth"`
	Value   int64  `json:"value"`
	Display string `json:"display"`
	Start   int64  `json:"start"`
	Span    int64  `json:"span"`
}

// ParseResult is the decoded form of a timestamp.
type ParseResult struct {
	Calendar  string        `json:"calendar"`
	Timestamp int64         `json:"timestamp"`
	Remainder int64         `json:"remainder"`
	Entries   []ParsedEntry `json:"entries"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <template> <tick>",
		Short: "Decode a timestamp into unit values",
		Long: `Decode a tick (minutes from the calendar origin's epoch) into one value
per level of the calendar, coarsest first. Values are zero-based; the
display column applies the unit's format.`,
		Example: `  worldcal parse gregorian 85745
  worldcal parse ./calendars/clock.yaml -- -90`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runParse(opts *RootOptions, ref, tickArg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	t, err := parseTick("tick", tickArg)
	if err != nil {
		return formatter.Fail(err)
	}
	svc, id, err := openService(cmd.Context(), ref, nil)
	if err != nil {
		return formatter.Fail(err)
	}
	p, err := svc.Parse(cmd.Context(), id, t)
	if err != nil {
		return formatter.Fail(err)
	}

	result := newParseResult(id, p)
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s @ %d\n", id, t)
	for _, e := range result.Entries {
		fmt.Fprintf(w, "  %s%-12s %-16s value=%d start=%d\n",
			strings.Repeat("  ", e.Depth), e.Unit, e.Display, e.Value, e.Start)
	}
	if result.Remainder != 0 {
		fmt.Fprintf(w, "  remainder=%d\n", result.Remainder)
	}
	return nil
}

func newParseResult(id string, p engine.ParsedTime) ParseResult {
	result := ParseResult{
		Calendar:  id,
		Timestamp: p.Timestamp,
		Remainder: p.Remainder,
		Entries:   make([]ParsedEntry, 0, len(p.Entries)),
	}
	for _, e := range p.Entries {
		result.Entries = append(result.Entries, ParsedEntry{
			Unit:    string(e.Unit.ID),
			Name:    e.Unit.Title(),
			Depth:   e.Depth,
			Value:   e.Value,
			Display: engine.RenderValue(e),
			Start:   e.Start,
			Span:    e.Span,
		})
	}
	return result
}
