package main

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/flachnetz/alwaysprofile/internal/nodetree"
	"github.com/flachnetz/alwaysprofile/internal/timeutil"
)

func (t *flameTable) newTreeCommand() *cobra.Command {
	var (
		depth  int
		minPct float64
	)
	cmd := cobra.Command{
		Use:   "tree",
		Short: "Print the flame tree, longest branches first",
		RunE: func(_ *cobra.Command, _ []string) error {
			t.printTree(depth, minPct)
			return nil
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 8, "maximum depth to print, 0 prints all levels")
	cmd.Flags().Float64Var(&minPct, "min-pct", 1, "hide nodes below this share of the total time")
	return &cmd
}

func (t *flameTable) printTree(depth int, minPct float64) {
	root := t.result.Tree

	table := tablewriter.NewWriter(t.out)
	table.SetHeader([]string{"Method", "Total", "Self", "Total %"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	// children are never longer than their parent, hidden nodes hide
	// their subtree as well
	root.Walk(func(n *nodetree.Node, level int) {
		if n == root || (depth > 0 && level > depth) {
			return
		}
		if root.Duration == 0 || 100*float64(n.Duration)/float64(root.Duration) < minPct {
			return
		}
		table.Append([]string{
			strings.Repeat("  ", level-1) + n.Method.FQN,
			timeutil.FormatDuration(n.Duration),
			timeutil.FormatDuration(n.SelfTime()),
			percent(float64(n.Duration), float64(root.Duration)),
		})
	})
	table.Render()
}
