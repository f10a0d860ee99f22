package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"weatherwatcher/internal/config"
	"weatherwatcher/internal/storage/sqlitelog"
)

func newRecentCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the latest readings from the SQLite log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cfg.Storage.Backend != config.BackendSQLite {
				return errors.New("recent needs storage.backend 'sqlite'")
			}
			l, err := sqlitelog.Open(cfg.Storage.SQLitePath, nil)
			if err != nil {
				return err
			}
			defer l.Close()

			rows, err := l.Recent(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTEMP\tHUM\tPRESS\tLUM\tPOSITION")
			for _, r := range rows {
				pos := "-"
				if r.Fix.Valid {
					pos = fmt.Sprintf("%.6f,%.6f", r.Fix.Latitude, r.Fix.Longitude)
				}
				fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.0f\t%s\n",
					r.Time.Format(time.RFC3339),
					r.Reading.Temperature, r.Reading.Humidity,
					r.Reading.Pressure, r.Reading.Luminosity, pos)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows")
	return cmd
}
