package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// FormatOptions holds flags for the format command.
type FormatOptions struct {
	*RootOptions
	Presentation string
}

// FormatResult is a rendered timestamp.
type FormatResult struct {
	Calendar     string   `json:"calendar"`
	Timestamp    int64    `json:"timestamp"`
	Presentation string   `json:"presentation,omitempty"`
	Text         string   `json:"text"`
	Skipped      []string `json:"skipped,omitempty"`
}

// NewFormatCommand creates the format command.
func NewFormatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "format <template> <tick>",
		Short: "Render a timestamp through a presentation",
		Long: `Render a tick as text using one of the calendar's presentations.
Without --presentation the calendar's first presentation is used.`,
		Example: `  worldcal format gregorian 0
  worldcal format gregorian 85745 -p iso`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Presentation, "presentation", "p", "", "presentation id or name")

	return cmd
}

func runFormat(opts *FormatOptions, ref, tickArg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	t, err := parseTick("tick", tickArg)
	if err != nil {
		return formatter.Fail(err)
	}
	svc, id, err := openService(cmd.Context(), ref, nil)
	if err != nil {
		return formatter.Fail(err)
	}
	rendered, err := svc.Format(cmd.Context(), id, opts.Presentation, t)
	if err != nil {
		return formatter.Fail(err)
	}

	result := FormatResult{
		Calendar:     id,
		Timestamp:    t,
		Presentation: opts.Presentation,
		Text:         rendered.Text,
	}
	for _, u := range rendered.Skipped {
		result.Skipped = append(result.Skipped, string(u))
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, result.Text)
	if len(result.Skipped) > 0 {
		formatter.VerboseLog("Skipped unknown unit(s): %v", result.Skipped)
	}
	return nil
}
