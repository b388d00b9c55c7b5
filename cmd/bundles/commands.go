package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/starlarkeval"
	"github.com/stackb/scriptbundles/pkg/watch"
)

func newListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bundle names with the visible and shadowed directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPRECEDENCE\tDIRECTORY\tSHADOWS")
			for _, name := range e.manager.GetBundleNames() {
				entry := e.manager.GetBundleEntry(name)
				if entry == nil {
					continue
				}
				visible := entry.VisibleBundle()
				if visible == nil {
					continue
				}
				var shadowed []string
				for _, b := range entry.Bundles() {
					if b != visible {
						shadowed = append(shadowed, b.BundleDirectory())
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, visible.Precedence(), visible.BundleDirectory(), strings.Join(shadowed, ","))
			}
			return w.Flush()
		},
	}
}

func newShowCmd(e *env) *cobra.Command {
	var dump, star bool
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Show the visible bundle of a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := e.manager.GetBundleEntry(args[0])
			if entry == nil || entry.VisibleBundle() == nil {
				return fmt.Errorf("no bundle named %q", args[0])
			}
			out := cmd.OutOrStdout()
			b := entry.VisibleBundle()
			switch {
			case dump:
				spew.Fdump(out, b)
				return nil
			case star:
				_, err := out.Write(starlarkeval.FormatBundle(b))
				return err
			}
			return printBundle(out, entry)
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the bundle's internal representation")
	cmd.Flags().BoolVar(&star, "star", false, "print the bundle as script declarations")
	return cmd
}

func printBundle(out io.Writer, entry *bundle.BundleEntry) error {
	b := entry.VisibleBundle()
	meta := b.Metadata()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "name:\t%s\n", b.DisplayName())
	fmt.Fprintf(w, "directory:\t%s\n", b.BundleDirectory())
	fmt.Fprintf(w, "precedence:\t%s\n", b.Precedence())
	for _, field := range [][2]string{
		{"author", meta.Author},
		{"copyright", meta.Copyright},
		{"description", meta.Description},
		{"repository", meta.Repository},
		{"license", meta.License},
	} {
		if field[1] != "" {
			fmt.Fprintf(w, "%s:\t%s\n", field[0], field[1])
		}
	}
	for _, p := range entry.LoadPaths() {
		fmt.Fprintf(w, "load path:\t%s\n", p)
	}
	for _, ft := range entry.FileTypes() {
		fmt.Fprintf(w, "file type:\t%s\t%s\n", ft.Pattern, ft.Scope)
	}
	for _, c := range entry.Commands() {
		fmt.Fprintf(w, "command:\t%s\t%s\n", c.DisplayName(), c.Scope)
	}
	for _, c := range entry.ContentAssists() {
		fmt.Fprintf(w, "content assist:\t%s\t%s\n", c.DisplayName(), c.Scope)
	}
	for _, m := range entry.Menus() {
		fmt.Fprintf(w, "menu:\t%s\t%s\n", m.DisplayName(), strings.Join(m.Commands(), ","))
	}
	for _, s := range entry.Snippets() {
		fmt.Fprintf(w, "snippet:\t%s\t%s\n", s.DisplayName(), s.Trigger)
	}
	return w.Flush()
}

func newScopeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "scope TYPE SCOPE",
		Short: "Print the marker regexp for a scope (TYPE: increase, decrease, folding-start, folding-stop)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseMarkerKind(args[0])
			if err != nil {
				return err
			}
			re := e.manager.GetMarkerRegexp(kind, args[1])
			if re == nil {
				return fmt.Errorf("no %s marker matches %q", kind, args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), re.String())
			return nil
		},
	}
}

func parseMarkerKind(s string) (bundle.MarkerKind, error) {
	switch s {
	case "increase":
		return bundle.IncreaseIndent, nil
	case "decrease":
		return bundle.DecreaseIndent, nil
	}
	for _, kind := range bundle.MarkerKinds {
		if kind.String() == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown marker type %q (want increase, decrease, folding-start or folding-stop)", s)
}

func newFileTypeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "filetype FILE",
		Short: "Print the top-level scope of a file name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := filepath.Base(args[0])
			scopeName, ok := e.manager.GetTopLevelScope(name)
			if !ok {
				return fmt.Errorf("no file type matches %q", name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), scopeName)
			return nil
		},
	}
}

func newCommandsCmd(e *env) *cobra.Command {
	var scopeName string
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List commands that run on this platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := bundle.AcceptAll
			if scopeName != "" {
				filter = bundle.ScopeFilter(scopeName)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSCOPE\tKEY\tINVOKE")
			for _, c := range e.manager.GetCommands(filter) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.DisplayName(), c.Scope, c.KeyBinding, c.Invoke)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&scopeName, "scope", "", "only commands whose selector matches this scope")
	return cmd
}

func newConfigCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.cfg.Encode(cmd.OutOrStdout())
		},
	}
}

func newWatchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload bundles as their files change, until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, e)
		},
	}
}

func runWatch(ctx context.Context, e *env) error {
	w, err := watch.New(e.manager, e.roots(),
		watch.WithLogger(e.logger),
		watch.WithDebounce(e.cfg.Debounce()),
		watch.WithIgnore(e.cfg.Watch.Ignore...),
	)
	if err != nil {
		return err
	}
	e.logger.Info().Strs("roots", w.Roots()).Msg("watching")
	return w.Run(ctx)
}
