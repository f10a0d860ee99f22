package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"weatherwatcher/internal/config"
	"weatherwatcher/internal/sensor"
)

func newParamsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Print the effective thresholds and intervals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return printParams(cmd.OutOrStdout(), cfg)
		},
	}
}

func printParams(out io.Writer, cfg config.Config) error {
	th, err := sensor.NewThresholds(cfg.Sensors.Limits())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tENABLED\tMIN\tMAX")
	for _, c := range sensor.Channels {
		l := th.Limit(c)
		fmt.Fprintf(tw, "%s\t%t\t%g\t%g\n", c, l.Enabled, l.Min, l.Max)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	base := cfg.Acquisition.LogIntervalSec
	_, err = fmt.Fprintf(out,
		"\nlog interval     %ds (eco %ds)\nconfig timeout   %ds\nstorage          %s\n",
		base, 2*base, cfg.Acquisition.ConfigTimeoutSec, cfg.Storage.Backend)
	return err
}
