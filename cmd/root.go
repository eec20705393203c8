package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rpl",
	Short: "RPL control plane simulator",
	Long: `rpl runs the RPL (RFC 6550) control plane on a set of simulated 6LoWPAN nodes.
Nodes build a DODAG from DIO advertisements and report downward routes with DAO messages, in storing or non-storing mode.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Create Configuration",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "ny",
		Title: "Simulation Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigPath, "simulation config")
}
