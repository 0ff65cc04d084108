package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/chlorine/packages/core/spec"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the specs of the layout bundle",
	Long: `List every spec of the built-in layout bundle in declaration order
with its options.

Examples:
  chlorine list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listBundle(cmd.OutOrStdout(), layoutBundle(0))
	},
}

func listBundle(w io.Writer, b spec.Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Bundle: %s", b.Name))
	t.AppendHeader(table.Row{"#", "Spec", "Options"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})
	for i, s := range b.Specs {
		t.AppendRow(table.Row{i, s.Name, s.Options.String()})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d specs", len(b.Specs)), fmt.Sprintf("%d serial", b.Serial())})
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}
