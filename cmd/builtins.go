package cmd

import (
	"fmt"
	"log/slog"

	"github.com/cottand/vellum/frontend/types"
	"github.com/cottand/vellum/internal/log"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var BuiltinsCmd = &cobra.Command{
	Use:          "builtins [name]",
	Short:        "List the dictionary-constructible builtin types and their fields",
	RunE:         runBuiltins,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
}

var nameStyle = pterm.NewStyle(pterm.BgLightBlue, pterm.FgBlack)

func runBuiltins(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.LevelError)

	dicts := types.BuiltinDicts()
	if len(args) == 1 {
		for _, entry := range dicts {
			if entry.Fst == args[0] {
				printDict(entry.Fst, entry.Snd)
				return nil
			}
		}
		return fmt.Errorf("no builtin dictionary called %q", args[0])
	}

	for _, entry := range dicts {
		printDict(entry.Fst, entry.Snd)
	}
	return nil
}

func printDict(name string, record *types.RecordTy) {
	nameStyle.Print(" " + name + " ")
	fmt.Println()
	for field, ty := range record.Fields() {
		fmt.Printf("  %s: %s\n", field, ty)
	}
	fmt.Println()
}
