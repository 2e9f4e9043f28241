package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/scorer"
)

var (
	scorePersonID string
	scoreFormat   string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Print the completeness breakdown for a person",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("score"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		person, err := st.GetPerson(ctx, scorePersonID)
		if err != nil {
			return eris.Wrap(err, "load person")
		}
		if person == nil {
			return eris.Errorf("person %s not found", scorePersonID)
		}

		b, err := scorer.New(cfg.Scorer).ScorePerson(ctx, st, person)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch scoreFormat {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"person_id": person.ID, "score": b})
		case "table":
			fmt.Fprintln(out, renderScoreTable(person, b))
			return nil
		default:
			return eris.Errorf("unknown format %q", scoreFormat)
		}
	},
}

// renderScoreTable lays out the four dimensions and the content counts.
func renderScoreTable(p *model.Person, b scorer.Breakdown) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(fmt.Sprintf("%s (%s)", p.Name, p.ID))
	tw.AppendHeader(table.Row{"Dimension", "Score", "Max"})
	tw.AppendRows([]table.Row{
		{"Basic info", formatPoints(b.BasicInfo), scorer.BasicInfoMax},
		{"Official links", formatPoints(b.OfficialLinks), scorer.OfficialLinksMax},
		{"Content richness", formatPoints(b.ContentRichness), scorer.ContentRichnessMax},
		{"Freshness", formatPoints(b.Freshness), scorer.FreshnessMax},
	})
	tw.AppendSeparator()

	buckets := make([]string, 0, len(b.ContentCounts))
	for k := range b.ContentCounts {
		buckets = append(buckets, k)
	}
	sort.Strings(buckets)
	for _, k := range buckets {
		tw.AppendRow(table.Row{"  " + k, strconv.Itoa(b.ContentCounts[k]), ""})
	}
	tw.AppendFooter(table.Row{"Total", fmt.Sprintf("%d (%s)", b.Total, b.Grade), 100})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	return tw.Render()
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scorePersonID, "person-id", "", "person to score (required)")
	f.StringVar(&scoreFormat, "format", "table", "output format: table or json")
	_ = scoreCmd.MarkFlagRequired("person-id")
	rootCmd.AddCommand(scoreCmd)
}
