package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// clockLayout is the format accepted by "clock set", e.g. 2024-03-09-14-30-00.
const clockLayout = "2006-01-02-15-04-05"

func newClockCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Show the real-time clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if !cfg.RTC.Enable {
				return errors.New("rtc is disabled in the config")
			}
			d, bus, err := openDS1307(cfg.RTC)
			if err != nil {
				return err
			}
			defer bus.Close()
			t, err := d.Now()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC3339))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <YYYY-MM-DD-HH-MM-SS>",
		Short: "Program the real-time clock (UTC)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseClock(args[0])
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if !cfg.RTC.Enable {
				return errors.New("rtc is disabled in the config")
			}
			d, bus, err := openDS1307(cfg.RTC)
			if err != nil {
				return err
			}
			defer bus.Close()
			if err := d.Set(t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "clock set to %s\n", t.Format(time.RFC3339))
			return nil
		},
	})
	return cmd
}

func parseClock(s string) (time.Time, error) {
	t, err := time.ParseInLocation(clockLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock must be YYYY-MM-DD-HH-MM-SS: %w", err)
	}
	return t, nil
}
