package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/pipeline"
	"github.com/plc-foundry/go-stc/internal/project"
)

var compileFlags struct {
	output       string
	configPath   string
	includes     []string
	targets      []string
	encoding     string
	optimization int
	debugLevel   int
	workers      int
	format       string
}

var compileCmd = &cobra.Command{
	Use:   "compile [files...]",
	Short: "Compile Structured Text sources",
	Long: `Compile runs the full pipeline over the given source files (or the
files of a project descriptor) and emits one object per compilation unit
and target.`,
	Run: func(cmd *cobra.Command, args []string) {
		sources, includes, format := gatherSources(args)
		if len(sources) == 0 {
			exitWithError("no source files given")
		}
		if compileFlags.format != "" {
			format = project.FormatOption(compileFlags.format)
		}

		diagnostician := diagnostic.NewConsoleDiagnostician(os.Stderr)
		annotated, errs := runFrontend(sources, includes, diagnostician)
		if errs > 0 {
			exitWithError("%d error(s) found, aborting before emission", errs)
		}

		var targets []pipeline.Target
		for _, triple := range compileFlags.targets {
			targets = append(targets, pipeline.Target{Triple: triple})
		}

		plan, err := annotated.Plan(targets, compileFlags.output, format)
		if err != nil {
			exitWithError("%v", err)
		}
		paths, err := plan.Emit(pipeline.TextBackend{}, pipeline.EmitOptions{
			OptimizationLevel: compileFlags.optimization,
			DebugLevel:        compileFlags.debugLevel,
			Workers:           compileFlags.workers,
		})
		if err != nil {
			exitWithError("%v", err)
		}
		for _, path := range paths {
			fmt.Println(path)
		}
	},
}

// gatherSources resolves the command arguments (and the optional project
// descriptor) into source and include containers.
func gatherSources(args []string) ([]project.SourceContainer, []project.SourceContainer, project.FormatOption) {
	format := project.FormatObject

	var sources, includes []project.SourceContainer
	if compileFlags.configPath != "" {
		config, err := project.LoadConfig(compileFlags.configPath)
		if err != nil {
			exitWithError("%v", err)
		}
		format = config.CompileType
		for _, file := range config.ExpandFiles() {
			sources = append(sources, project.FileContainer{Path: file})
		}
		for _, lib := range config.Libraries {
			for _, include := range lib.IncludePath {
				includes = append(includes, project.FileContainer{Path: include})
			}
		}
	}
	for _, arg := range args {
		sources = append(sources, project.FileContainer{Path: arg})
	}
	for _, include := range compileFlags.includes {
		includes = append(includes, project.FileContainer{Path: include})
	}
	return sources, includes, format
}

// runFrontend executes parse, index, annotate and validate, returning
// the annotated project and the number of error diagnostics.
func runFrontend(
	sources, includes []project.SourceContainer,
	diagnostician diagnostic.Diagnostician,
) (*pipeline.AnnotatedProject, int) {
	ids := ast.NewIdProvider()

	parsed, err := pipeline.Parse(sources, includes, pipeline.ParseOptions{
		EncodingHint: strings.ToLower(compileFlags.encoding),
	}, ids, diagnostician)
	if err != nil {
		exitWithError("%v", err)
	}
	indexed, err := parsed.Index(ids)
	if err != nil {
		exitWithError("%v", err)
	}
	annotated, err := indexed.Annotate(ids, diagnostician)
	if err != nil {
		exitWithError("%v", err)
	}
	errs := annotated.Validate(diagnostician)
	return annotated, errs
}

func init() {
	compileCmd.Flags().StringVarP(&compileFlags.output, "output", "o", "build", "output directory")
	compileCmd.Flags().StringVar(&compileFlags.configPath, "config", "", "project descriptor (plc.json / plc.yaml)")
	compileCmd.Flags().StringSliceVarP(&compileFlags.includes, "include", "i", nil, "header-only include files")
	compileCmd.Flags().StringSliceVar(&compileFlags.targets, "target", nil, "target triples (repeatable)")
	compileCmd.Flags().StringVar(&compileFlags.encoding, "encoding", "", "source encoding (utf-8, utf-16le, utf-16be, windows-1252)")
	compileCmd.Flags().IntVarP(&compileFlags.optimization, "optimization", "O", 2, "optimization level")
	compileCmd.Flags().IntVar(&compileFlags.debugLevel, "debug-level", 0, "debug info level")
	compileCmd.Flags().IntVar(&compileFlags.workers, "workers", 0, "emission worker count (0 = one per task)")
	compileCmd.Flags().StringVar(&compileFlags.format, "format", "", "output format (Object, Static, Shared, Relocatable, Bitcode, IR)")
	rootCmd.AddCommand(compileCmd)
}
