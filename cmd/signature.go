package cmd

import (
	"fmt"
	"log/slog"

	"github.com/cottand/vellum/frontend/types"
	"github.com/cottand/vellum/internal/log"
	"github.com/cottand/vellum/vellum"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var SignatureCmd = &cobra.Command{
	Use:          "signature name",
	Short:        "Show the constructor signature a builtin type surfaces",
	RunE:         runSignature,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

var logLevel *int

func init() {
	logLevel = SignatureCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
}

func runSignature(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(*logLevel))

	tag, ok := types.DictTag(args[0])
	if !ok {
		return fmt.Errorf("no builtin dictionary called %q", args[0])
	}

	session := vellum.NewSession()
	var shapes []types.SigShape
	session.Surfaces(tag, types.SigSurfaceDict, types.SigCheckerFunc(
		func(sig types.Sig, sctx *types.SigCheckContext, _ bool) bool {
			if shape, ok := sctx.Apply(sig).Shape(nil); ok {
				shapes = append(shapes, shape)
			}
			return true
		}))
	if len(shapes) == 0 {
		return fmt.Errorf("%s surfaces no constructor", tag)
	}

	for _, shape := range shapes {
		nameStyle.Print(" " + args[0] + " ")
		pterm.FgLightGreen.Println(" " + shape.Sig.String())
	}
	return nil
}
