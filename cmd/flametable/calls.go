package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/flachnetz/alwaysprofile/internal/metrics"
	"github.com/flachnetz/alwaysprofile/internal/timeutil"
)

func (t *flameTable) newCallsCommand() *cobra.Command {
	var (
		limit int
		order string
	)
	cmd := cobra.Command{
		Use:   "calls",
		Short: "Print the time spent per method",
		RunE: func(_ *cobra.Command, _ []string) error {
			// the result belongs to the view, sort a copy
			calls := append([]metrics.Call(nil), t.result.Calls...)
			switch order {
			case "self":
				metrics.SortBySelfTime(calls)
			case "total":
				metrics.SortByTotalTime(calls)
			default:
				return fmt.Errorf("unknown sort order %q", order)
			}
			t.printCalls(metrics.Top(calls, limit))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 25, "number of methods to print, 0 prints all")
	cmd.Flags().StringVar(&order, "sort", "self", "sort by self or total time")
	return &cmd
}

func (t *flameTable) printCalls(calls []metrics.Call) {
	table := tablewriter.NewWriter(t.out)
	table.SetHeader([]string{"Method", "Module", "Self", "Total", "Self %", "App"})
	table.SetAutoWrapText(false)
	table.AppendBulk(lo.Map(calls, func(c metrics.Call, _ int) []string {
		return []string{
			c.Method.FQN,
			c.Method.Module,
			timeutil.FormatDuration(c.SelfTime),
			timeutil.FormatDuration(c.TotalTime),
			percent(float64(c.SelfTime), float64(t.result.Total)),
			lo.Ternary(c.ToRow(t.appPrefix...).IsApplication, "yes", ""),
		}
	}))
	table.SetFooter([]string{"", "", timeutil.FormatDuration(metrics.SumSelfTime(t.result.Calls)), "", "", ""})
	table.Render()
}

func percent(v, total float64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*v/total)
}
