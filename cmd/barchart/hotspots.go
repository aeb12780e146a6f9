package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/ebird-barchart/internal/output"
	"github.com/couchcryptid/ebird-barchart/internal/summary"
)

func newHotspotsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hotspots FILE|DIR...",
		Short: "List the hotspots in a set of exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			barcharts, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			s := summary.New("hotspots", barcharts)

			tbl := output.NewTable(a.printer.Out(), []string{"Location", "Name", "Years", "Months", "Species", "Other taxa"})
			for _, id := range s.LocationIDs() {
				bc, _ := s.Barchart(id)
				info := bc.Info()
				tbl.AddRow([]string{
					id,
					bc.HotspotName(),
					fmt.Sprintf("%d-%d", info.StartYear, info.EndYear),
					fmt.Sprintf("%d-%d", info.StartMonth, info.EndMonth),
					strconv.Itoa(len(bc.Species())),
					strconv.Itoa(len(bc.OtherTaxa())),
				})
			}
			tbl.Render()
			return nil
		},
	}
}
