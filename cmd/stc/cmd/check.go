package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/project"
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Run semantic analysis without emitting code",
	Run: func(cmd *cobra.Command, args []string) {
		sources, includes, _ := gatherSources(args)
		if len(sources) == 0 {
			exitWithError("no source files given")
		}
		diagnostician := diagnostic.NewConsoleDiagnostician(os.Stderr)
		_, errs := runFrontend(sources, includes, diagnostician)
		if errs > 0 {
			exitWithError("%d error(s) found", errs)
		}
		fmt.Println("ok")
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a source file and print its canonical form",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sources := []project.SourceContainer{project.FileContainer{Path: args[0]}}
		diagnostician := diagnostic.NewConsoleDiagnostician(os.Stderr)
		annotated, _ := runFrontend(sources, nil, diagnostician)
		for _, unit := range annotated.Units {
			fmt.Print(unit.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(parseCmd)
}
