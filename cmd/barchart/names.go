package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/ebird-barchart/internal/adapter/ebird"
	"github.com/couchcryptid/ebird-barchart/internal/adapter/sqlite"
	"github.com/couchcryptid/ebird-barchart/internal/output"
)

var errNameCacheOff = errors.New("name cache is disabled (NAME_CACHE_PATH=off)")

func newNamesCmd(a *app) *cobra.Command {
	var prune bool
	cmd := &cobra.Command{
		Use:   "names",
		Short: "List or prune cached hotspot names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if store == nil {
				return errNameCacheOff
			}

			if prune {
				if a.cfg.NameCacheTTL <= 0 {
					a.printer.Warning("NAME_CACHE_TTL is not set, nothing expires")
					return nil
				}
				client := ebird.NewClient(a.cfg.EBirdHotspotURL, a.cfg.EBirdTimeout, a.metrics, a.logger)
				cached := sqlite.NewCachedNamer(client, store, a.cfg.NameCacheTTL, a.clock, a.metrics, a.logger)
				n, err := cached.Prune(ctx)
				if err != nil {
					return err
				}
				a.printer.Print("pruned %d names older than %s", n, a.cfg.NameCacheTTL)
				return nil
			}

			entries, err := store.List(ctx)
			if err != nil {
				return err
			}
			tbl := output.NewTable(a.printer.Out(), []string{"Location", "Name", "Fetched"})
			for _, e := range entries {
				tbl.AddRow([]string{e.LocationID, e.Name, e.FetchedAt.Local().Format(time.DateTime)})
			}
			tbl.Render()
			a.printer.Print("%d names cached in %s", len(entries), store.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "delete names older than NAME_CACHE_TTL")
	return cmd
}
