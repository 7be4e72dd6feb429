package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	nerrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/auth"
	"github.com/vango-dev/storefront/pkg/navigation"
	"github.com/vango-dev/storefront/pkg/router"
)

func resolveCmd(flags *globalFlags) *cobra.Command {
	var (
		authenticated bool
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Navigate to paths and print what each commits",
		Long: `Navigate to each path in turn and print the committed route,
its parameters and the view filling every slot.

Navigations run in one session, so a later path can be a duplicate of an
earlier one.

Examples:
  storefront resolve /detail/42
  storefront resolve /category/fiction --auth
  storefront resolve / /homepage /about --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			nav := a.newRouter(auth.Static(authenticated), nil)
			return runResolve(cmd.Context(), cmd.OutOrStdout(), nav, args, asJSON)
		},
	}

	cmd.Flags().BoolVarP(&authenticated, "auth", "a", false, "Navigate as an authenticated user")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print commits as JSON")

	return cmd
}

// resolvedCommit is the JSON shape printed by resolve --json.
type resolvedCommit struct {
	Target    string              `json:"target"`
	Route     string              `json:"route"`
	Path      string              `json:"path"`
	Params    router.Params       `json:"params,omitempty"`
	Views     []map[string]string `json:"views"`
	Recovered string              `json:"recovered,omitempty"`
}

func runResolve(ctx context.Context, w io.Writer, nav *navigation.Router, paths []string, asJSON bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	for _, p := range paths {
		c, err := nav.Navigate(ctx, navigation.To(p))
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}

		if asJSON {
			if err := enc.Encode(toResolved(p, c)); err != nil {
				return err
			}
			continue
		}
		printCommit(w, p, c)
	}
	return nil
}

func toResolved(target string, c *navigation.Commit) resolvedCommit {
	out := resolvedCommit{
		Target: target,
		Route:  c.Match.Name(),
		Path:   c.Match.FullPath(),
		Params: c.Params(),
	}
	for _, lvl := range c.Levels {
		views := make(map[string]string, len(lvl.Slots))
		for slot, s := range lvl.Slots {
			views[slot] = s.View.ViewName()
		}
		out.Views = append(out.Views, views)
	}
	if c.Recovered != nil {
		out.Recovered = compactError(c.Recovered)
	}
	return out
}

func printCommit(w io.Writer, target string, c *navigation.Commit) {
	route := c.Match.Name()
	if route == "" {
		route = "-"
	}
	success(w, "%s -> %s (%s)", target, c.Match.FullPath(), route)
	if len(c.Match.Params) > 0 {
		info(w, "params: %s", formatParams(c.Match.Params))
	}
	for i, lvl := range c.Levels {
		for _, slot := range slotOrder(lvl) {
			s := lvl.Slots[slot]
			line := fmt.Sprintf("%s%s: %s", strings.Repeat("  ", i), slot, s.View.ViewName())
			if len(s.Props) > 0 {
				line += " {" + formatParams(s.Props) + "}"
			}
			info(w, "%s", line)
		}
	}
	if c.Recovered != nil {
		warn(w, "recovered from: %s", compactError(c.Recovered))
	}
}

// compactError renders coded errors on one line without their cause chain.
func compactError(err error) string {
	var e *nerrors.Error
	if errors.As(err, &e) {
		return e.FormatCompact()
	}
	return err.Error()
}

// slotOrder lists a level's slots with the default slot first.
func slotOrder(lvl navigation.Level) []string {
	names := make([]string, 0, len(lvl.Slots))
	if _, ok := lvl.Slots[router.DefaultSlot]; ok {
		names = append(names, router.DefaultSlot)
	}
	rest := make([]string, 0, len(lvl.Slots))
	for name := range lvl.Slots {
		if name != router.DefaultSlot {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

func formatParams(p router.Params) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + p[k]
	}
	return strings.Join(parts, " ")
}
