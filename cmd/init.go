package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/rpl/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sample simulation config",
	Run: func(cmd *cobra.Command, args []string) {
		nodes, _ := cmd.Flags().GetInt("nodes")
		if nodes < 1 || nodes > 0xffff {
			fmt.Printf("Invalid node count: %d\n", nodes)
			os.Exit(-1)
		}
		mode := state.NonStoring
		if ok, _ := cmd.Flags().GetBool("storing"); ok {
			mode = state.Storing
		}

		cfg := sampleConfig(nodes, mode)
		if err := state.SimConfigValidator(&cfg); err != nil {
			panic(err)
		}
		out, err := yaml.Marshal(&cfg)
		if err != nil {
			panic(err)
		}

		outPath := cmd.Flag("output").Value.String()
		err = os.WriteFile(outPath, out, 0600)
		if err != nil {
			panic(err)
		}
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("output", "o", DefaultConfigPath, "config output file path")
	initCmd.Flags().IntP("nodes", "n", 4, "number of nodes in the chain, including the root")
	initCmd.Flags().BoolP("storing", "s", false, "use storing mode")
}
