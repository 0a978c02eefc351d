// cmd/check.go
package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/antchfx/htmlquery"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/loginprobe/internal/browser/dom"
	"github.com/xkilldash9x/loginprobe/internal/browser/locator"
	"github.com/xkilldash9x/loginprobe/internal/config"
)

type checkRow struct {
	name    string
	loc     locator.Locator
	matches []*html.Node
	err     error

	// alternative rows belong to a set where any one match suffices
	// (error indicators, overlays).
	alternative bool
}

func newCheckCommand() *cobra.Command {
	var (
		htmlFile string
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Match the configured locators against a saved HTML snapshot",
		Long: `Evaluate every configured locator against a saved copy of the login page,
without a browser. Useful when the page markup changes and a locator needs
updating. With --strict, any single-element locator that matches nothing is an
error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := htmlquery.LoadDoc(htmlFile)
			if err != nil {
				return fmt.Errorf("loading %s: %w", htmlFile, err)
			}

			rows := checkLocators(cfg, doc)
			writeCheckTable(cmd.OutOrStdout(), rows)

			if strict {
				var missing int
				for _, r := range rows {
					if r.err != nil || (!r.alternative && len(r.matches) == 0) {
						missing++
					}
				}
				if missing > 0 {
					return fmt.Errorf("%d locator(s) did not match %s", missing, htmlFile)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlFile, "html", "", "saved HTML snapshot of the login page")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when a single-element locator matches nothing")
	_ = cmd.MarkFlagRequired("html")
	return cmd
}

func checkLocators(cfg *config.Config, doc *html.Node) []checkRow {
	var rows []checkRow
	add := func(name, raw string, alternative bool) {
		row := checkRow{name: name, alternative: alternative}
		row.loc, row.err = locator.Parse(raw)
		if row.err == nil {
			row.matches, row.err = row.loc.MatchStatic(doc)
		}
		rows = append(rows, row)
	}

	named := cfg.Locators.Named()
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		add(name, named[name], false)
	}
	for i, raw := range cfg.Locators.ErrorIndicators {
		add(fmt.Sprintf("error_indicators[%d]", i), raw, true)
	}
	for i, raw := range cfg.Interaction.Overlays {
		add(fmt.Sprintf("overlays[%d]", i), raw, true)
	}
	return rows
}

func writeCheckTable(out io.Writer, rows []checkRow) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLOCATOR\tMATCHES\tFIRST")
	for _, r := range rows {
		switch {
		case r.err != nil:
			fmt.Fprintf(tw, "%s\t%s\t-\terror: %v\n", r.name, r.loc, r.err)
		case len(r.matches) == 0:
			fmt.Fprintf(tw, "%s\t%s\t0\t-\n", r.name, r.loc)
		default:
			first := r.matches[0]
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s %s\n", r.name, r.loc, len(r.matches), dom.Describe(first), dom.NodePath(first))
		}
	}
	_ = tw.Flush()
}
