package main

import (
	"os"

	"github.com/cottand/vellum/cmd"
	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "vellum [subcommand]",
	Short:        "vellum 📜\n type queries for a gradually typed scripting engine",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.BuiltinsCmd)
	rootCmd.AddCommand(cmd.SignatureCmd)
}
