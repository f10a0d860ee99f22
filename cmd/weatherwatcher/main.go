package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"weatherwatcher/internal/config"
	"weatherwatcher/internal/logger"
)

const (
	defaultConfigPath = "./weatherwatcher.yaml"
	configEnv         = "WEATHERWATCHER_CONFIG"
)

type rootFlags struct {
	configPath string
	debug      bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "weatherwatcher",
		Short: "Battery powered environmental logging station",
		Long: `weatherwatcher reads temperature, humidity, pressure and light levels
together with a GPS position, logs them on a fixed cadence and reports faults
through a single RGB LED. Two push buttons switch between standard, eco,
configuration and maintenance modes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			if !cmd.Flags().Changed("config") {
				if p := os.Getenv(configEnv); p != "" {
					flags.configPath = p
				}
			}
			logger.Init(flags.debug, flags.verbose, logger.IsService())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStation(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", defaultConfigPath, "Path to YAML config (env "+configEnv+")")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	pf.BoolVar(&flags.verbose, "verbose", false, "Enable info logging")

	root.AddCommand(
		newRunCmd(flags),
		newNMEACmd(),
		newParamsCmd(flags),
		newClockCmd(flags),
		newRecentCmd(flags),
	)
	return root
}

// loadConfig reads the config file. A missing file at the default location
// yields the built-in defaults and an empty path, which disables reloading.
func loadConfig(flags *rootFlags) (config.Config, string, error) {
	cfg, err := config.Load(flags.configPath)
	if err == nil {
		return cfg, flags.configPath, nil
	}
	if errors.Is(err, fs.ErrNotExist) && flags.configPath == defaultConfigPath {
		logger.Warn().Str("path", flags.configPath).Msg("config not found, using defaults")
		return config.Default(), "", nil
	}
	return config.Config{}, "", fmt.Errorf("config load failed: %w", err)
}

// execute runs the command tree and logs the error that ends it. Logging is
// set to its defaults first so failures before flag parsing are still shown.
func execute(root *cobra.Command) error {
	err := root.Execute()
	if err != nil {
		logger.Error().Err(err).Msg("weatherwatcher failed")
	}
	return err
}

func main() {
	logger.Init(false, false, logger.IsService())
	if err := execute(newRootCmd()); err != nil {
		os.Exit(1)
	}
}
