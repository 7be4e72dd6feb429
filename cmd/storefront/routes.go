package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/storefront/pkg/router"
)

func routesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Long: `Print the route table in match order.

Child routes are indented under their parent. Deferred views are marked
with *.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			printRoutes(cmd.OutOrStdout(), a.table)
			return nil
		},
	}
}

func printRoutes(w io.Writer, t *router.Table) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNAME\tVIEWS\tFLAGS")
	t.Walk(func(depth int, r *router.Record) {
		path := strings.Repeat("  ", depth) + r.FullPath()
		name := r.Name()
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", path, name, recordViews(r), recordFlags(r))
	})
	tw.Flush()
}

func recordViews(r *router.Record) string {
	if r.Redirect() != "" {
		return "-> " + r.Redirect()
	}
	var views []string
	for _, slot := range r.SlotNames() {
		ref, _ := r.View(slot)
		v := ref.Name()
		if ref.IsDeferred() {
			v += "*"
		}
		if slot != router.DefaultSlot {
			v = slot + "=" + v
		}
		views = append(views, v)
	}
	if len(views) == 0 {
		return "-"
	}
	return strings.Join(views, " ")
}

func recordFlags(r *router.Record) string {
	var flags []string
	if r.Meta().Bool(router.MetaRequiresAuth) {
		flags = append(flags, "auth")
	}
	if r.Props() {
		flags = append(flags, "props")
	}
	if r.IsCatchAll() {
		flags = append(flags, "catch-all")
	}
	return strings.Join(flags, ",")
}
