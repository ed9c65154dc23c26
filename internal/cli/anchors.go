package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/worldcal/internal/timeline"
)

// AnchorsOptions holds flags for the anchors command.
type AnchorsOptions struct {
	*RootOptions
	Scale        int
	From         int64
	To           int64
	Presentation string
}

// AnchorLine is one anchor in command output. Label is set for anchors
// with a visible tier.
type AnchorLine struct {
	Timestamp int64              `json:"timestamp"`
	Size      timeline.LabelSize `json:"size"`
	Label     string             `json:"label,omitempty"`
}

// AnchorsResult lists the anchors of a range at one scale.
type AnchorsResult struct {
	Calendar string              `json:"calendar"`
	Scale    timeline.ScaleLevel `json:"scale"`
	Range    timeline.Range      `json:"range"`
	Anchors  []AnchorLine        `json:"anchors"`
}

// NewAnchorsCommand creates the anchors command.
func NewAnchorsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnchorsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "anchors <template>",
		Short: "Lay out timeline anchors for a range",
		Long: `Generate the timeline grid for a tick range at one zoom level.

Each anchor is a unit boundary with a label tier (none, small, medium,
large). Labeled anchors are rendered through the presentation.
See "worldcal scales" for the zoom ladder.`,
		Example:       `  worldcal anchors gregorian --scale 0 --from 0 --to 1440`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnchors(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Scale, "scale", 0,
		fmt.Sprintf("scale index (%d..%d)", timeline.MinScaleIndex, timeline.MaxScaleIndex))
	cmd.Flags().Int64Var(&opts.From, "from", 0, "first tick of the range")
	cmd.Flags().Int64Var(&opts.To, "to", 0, "last tick of the range (inclusive)")
	cmd.Flags().StringVarP(&opts.Presentation, "presentation", "p", "", "presentation used for labels")

	return cmd
}

func runAnchors(opts *AnchorsOptions, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	svc, id, err := openService(ctx, ref, nil)
	if err != nil {
		return formatter.Fail(err)
	}

	rng := timeline.Range{From: opts.From, To: opts.To}
	anchors, err := svc.Anchors(ctx, id, opts.Scale, rng)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Generated %d anchor(s)", len(anchors))

	level, _ := timeline.ScaleByIndex(opts.Scale)
	result := AnchorsResult{Calendar: id, Scale: level, Range: rng, Anchors: make([]AnchorLine, 0, len(anchors))}
	for _, a := range anchors {
		line := AnchorLine{Timestamp: a.Timestamp, Size: a.Size}
		if a.Size != timeline.LabelNone {
			rendered, err := svc.Format(ctx, id, opts.Presentation, a.Timestamp)
			if err != nil {
				return formatter.Fail(err)
			}
			line.Label = rendered.Text
		}
		result.Anchors = append(result.Anchors, line)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s at %s (%d anchor(s))\n", id, level.Label, len(result.Anchors))
	for _, a := range result.Anchors {
		fmt.Fprintf(w, "  %12d  %-6s  %s\n", a.Timestamp, a.Size, a.Label)
	}
	return nil
}

// ScalesResult is the zoom ladder.
type ScalesResult struct {
	Scales []timeline.ScaleLevel `json:"scales"`
}

// NewScalesCommand creates the scales command.
func NewScalesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "scales",
		Short:         "List the timeline zoom ladder",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			scales := timeline.Scales()
			if formatter.JSON() {
				return formatter.Success(ScalesResult{Scales: scales})
			}
			for _, s := range scales {
				fmt.Fprintf(formatter.Writer, "%3d  %-10s %12d ticks  %10.2f ticks/px\n",
					s.Index, s.Label, s.Ticks, s.TimePerPixel())
			}
			return nil
		},
	}
}

// ClosestOptions holds flags for the closest command.
type ClosestOptions struct {
	*RootOptions
	Query int64
}

// ClosestResult is the snapped timestamp.
type ClosestResult struct {
	Query   int64 `json:"query"`
	Closest int64 `json:"closest"`
	Found   bool  `json:"found"`
}

// NewClosestCommand creates the closest command.
func NewClosestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClosestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "closest --query <tick> <anchor>...",
		Short: "Snap a tick to the nearest anchor",
		Long: `Find the anchor nearest to --query. Anchors must be given in ascending
order. On a tie the earlier anchor wins.`,
		Example:       `  worldcal closest --query 100 0 60 120`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClosest(opts, args, cmd)
		},
	}

	cmd.Flags().Int64VarP(&opts.Query, "query", "q", 0, "tick to snap")

	return cmd
}

func runClosest(opts *ClosestOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	anchors := make([]int64, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return formatter.Fail(badArgument("anchor must be an integer tick, got %q", a))
		}
		anchors = append(anchors, v)
	}
	if !slices.IsSorted(anchors) {
		return formatter.Fail(badArgument("anchors must be sorted ascending"))
	}

	v, found := timeline.ClosestOK(anchors, opts.Query)
	result := ClosestResult{Query: opts.Query, Closest: v, Found: found}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	if !found {
		fmt.Fprintln(formatter.Writer, "no anchors")
		return nil
	}
	fmt.Fprintln(formatter.Writer, v)
	return nil
}
