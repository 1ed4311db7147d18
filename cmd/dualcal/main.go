package main

import (
	"os"

	"github.com/spf13/cobra"

	appLog "dualcal/internal/log"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

const defaultConfigPath = "/etc/dualcal/config.yaml"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "dualcal",
		Short: "Dual Gregorian / Jalali month calendar",
		Long: `dualcal renders a month grid in either the Gregorian or the Jalali
calendar, annotating every day with its date in the other system. It can
print a month in the terminal or serve the calendar as a JSON API.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to config file")

	rootCmd.AddCommand(newServeCommand(&configPath))
	rootCmd.AddCommand(newMonthCommand(&configPath))
	rootCmd.AddCommand(newConvertCommand(&configPath))
	rootCmd.AddCommand(newVersionCommand())

	err := rootCmd.Execute()
	_ = appLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}
