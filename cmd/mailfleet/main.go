package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mailfleet",
	Short: "Mailfleet - campaign scheduling and A/B test delivery engine",
	Long:  `Mailfleet schedules email campaigns, runs A/B subject tests and rolls out the winning variant to the remaining audience.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mailfleet %s (built %s)\n", version, buildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(rolloutCmd)
	rootCmd.AddCommand(apikeyCmd)
	rootCmd.AddCommand(deadletterCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
