package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/worldcal/internal/loader"
	"github.com/roach88/worldcal/internal/store"
)

// TemplateInfo describes a built-in template.
type TemplateInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Units         int    `json:"units"`
	Presentations int    `json:"presentations"`
}

// NewTemplatesCommand creates the templates command.
func NewTemplatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "templates",
		Short:         "List the built-in calendar templates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			infos := []TemplateInfo{}
			for _, name := range loader.Templates() {
				cal, err := loader.Template(name)
				if err != nil {
					return formatter.Fail(err)
				}
				infos = append(infos, TemplateInfo{
					ID:            name,
					Name:          cal.Name,
					Units:         len(cal.Units),
					Presentations: len(cal.Presentations),
				})
			}

			if formatter.JSON() {
				return formatter.Success(infos)
			}
			for _, t := range infos {
				fmt.Fprintf(formatter.Writer, "%-10s %s\n", t.ID, t.Name)
			}
			return nil
		},
	}
}

// StoreOptions holds flags for commands that use the calendar store.
type StoreOptions struct {
	*RootOptions
	DB string
}

// dbPath returns --db, falling back to the configured store path.
func (o *StoreOptions) dbPath() (string, error) {
	if o.DB != "" {
		return o.DB, nil
	}
	cfg, err := o.LoadConfig()
	if err != nil {
		return "", err
	}
	if cfg.DBPath == "" {
		return "", badArgument("no calendar store: pass --db or set db in the config")
	}
	return cfg.DBPath, nil
}

// ImportResult reports a stored calendar.
type ImportResult struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
	DB       string `json:"db"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <template>",
		Short: "Store a template as a new editable calendar",
		Long: `Copy a template into the SQLite calendar store under a fresh id.
The new id is printed; "worldcal serve" exposes it over HTTP.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite calendar store (default from config)")

	return cmd
}

func runImport(opts *StoreOptions, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	path, err := opts.dbPath()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return formatter.Fail(err)
	}

	cal, err := loader.Resolve(ref)
	if err != nil {
		return formatter.Fail(err)
	}

	st, err := store.Open(path)
	if err != nil {
		return formatter.Fail(&storeError{err: err})
	}
	defer st.Close()

	id, err := st.ImportCalendar(cmd.Context(), cal)
	if err != nil {
		return formatter.Fail(&storeError{err: err})
	}
	formatter.VerboseLog("Imported %q into %s", cal.Name, path)

	result := ImportResult{ID: id, Name: cal.Name, Template: ref, DB: path}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, id)
	return nil
}

// NewCalendarsCommand creates the calendars command.
func NewCalendarsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "calendars",
		Short:         "List the calendars in the store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)

			path, err := opts.dbPath()
			if err != nil {
				var exitErr *ExitError
				if errors.As(err, &exitErr) {
					return err
				}
				return formatter.Fail(err)
			}
			st, err := store.Open(path)
			if err != nil {
				return formatter.Fail(&storeError{err: err})
			}
			defer st.Close()

			infos, err := st.ListCalendars(cmd.Context())
			if err != nil {
				return formatter.Fail(&storeError{err: err})
			}
			if formatter.JSON() {
				return formatter.Success(infos)
			}
			for _, c := range infos {
				fmt.Fprintf(formatter.Writer, "%s  %s (v%d)\n", c.ID, c.Name, c.Version)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite calendar store (default from config)")

	return cmd
}
