package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/project"
	"github.com/plc-foundry/go-stc/internal/resolver"
)

// Target identifies a compilation target: the build host, or an explicit
// triple with an optional sysroot.
type Target struct {
	Triple  string // empty for the system target
	Sysroot string
}

// SystemTarget is the host target.
var SystemTarget = Target{}

// Name returns the directory-safe name of the target; the system target
// has none.
func (t Target) Name() string { return t.Triple }

// String implements fmt.Stringer.
func (t Target) String() string {
	if t.Triple == "" {
		return "system"
	}
	return t.Triple
}

// Module is the handle a backend returns for one generated unit.
type Module interface {
	// Persist writes the module into the output directory and returns
	// the produced object path.
	Persist(outputDir, name string, format project.FormatOption, target Target, optimization int) (string, error)

	// Merge combines this module with another into one.
	Merge(other Module) (Module, error)
}

// CodegenBackend is the external code generator consuming the annotated
// artifacts. The core guarantees the inputs are frozen and referentially
// complete.
type CodegenBackend interface {
	Generate(
		unit *ast.CompilationUnit,
		idx *index.Index,
		annotations *resolver.AstAnnotations,
		literals *resolver.StringLiterals,
		rootPath string,
		fileName string,
		optimizationLevel int,
		debugLevel int,
	) (Module, error)
}

// EmissionTask is one (unit x target) pair of the emission plan.
type EmissionTask struct {
	Unit      *ast.CompilationUnit
	Target    Target
	OutputDir string
	UnitName  string
}

// EmissionPlan partitions the annotated units across targets.
type EmissionPlan struct {
	Project *AnnotatedProject
	Tasks   []EmissionTask
	Format  project.FormatOption
	RootDir string
}

// Plan builds the emission plan: one task per internal unit and target.
// External units (headers, library includes) are declaration-only and
// never emitted. Per-target subdirectories are created when more than
// one target is requested.
func (p *AnnotatedProject) Plan(targets []Target, outputDir string, format project.FormatOption) (*EmissionPlan, error) {
	if len(targets) == 0 {
		targets = []Target{SystemTarget}
	}
	if err := ensureCompileDirs(targets, outputDir); err != nil {
		return nil, err
	}

	plan := &EmissionPlan{Project: p, Format: format, RootDir: outputDir}
	for _, target := range targets {
		dir := outputDir
		if len(targets) > 1 && target.Name() != "" {
			dir = filepath.Join(outputDir, target.Name())
		}
		for _, unit := range p.Units {
			if unit.Linkage != ast.LinkageInternal {
				continue
			}
			plan.Tasks = append(plan.Tasks, EmissionTask{
				Unit:      unit,
				Target:    target,
				OutputDir: dir,
				UnitName:  unitOutputName(unit.FileName),
			})
		}
	}
	logrus.WithFields(logrus.Fields{
		"tasks":   len(plan.Tasks),
		"targets": len(targets),
	}).Debug("emission plan ready")
	return plan, nil
}

// ensureCompileDirs creates the output directory tree before any worker
// starts writing.
func ensureCompileDirs(targets []Target, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", outputDir, err)
	}
	if len(targets) <= 1 {
		return nil
	}
	for _, target := range targets {
		if target.Name() == "" {
			continue
		}
		dir := filepath.Join(outputDir, target.Name())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create output directory %s: %w", dir, err)
		}
	}
	return nil
}

// unitOutputName derives the object name from the source file stem.
func unitOutputName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EmitOptions configures the emission fan-out.
type EmitOptions struct {
	OptimizationLevel int
	DebugLevel        int
	// Workers bounds the worker pool; <= 0 means one worker per task.
	Workers int
}

// Emit runs the plan's tasks on a worker pool, one task per (unit x
// target). Tasks share only read-only artifacts; completion order is not
// observable. Every task runs even when another fails; if any task
// fails, no paths are returned and the error is that of the first failing
// task in plan order.
func (plan *EmissionPlan) Emit(backend CodegenBackend, options EmitOptions) ([]string, error) {
	workers := options.Workers
	if workers <= 0 || workers > len(plan.Tasks) {
		workers = len(plan.Tasks)
	}
	if workers == 0 {
		return nil, nil
	}

	type outcome struct {
		path string
		err  error
	}

	taskCh := make(chan int)
	results := make([]outcome, len(plan.Tasks))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskCh {
				path, err := plan.runTask(backend, plan.Tasks[i], options)
				results[i] = outcome{path: path, err: err}
			}
		}()
	}
	for i := range plan.Tasks {
		taskCh <- i
	}
	close(taskCh)
	wg.Wait()

	paths := make([]string, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		paths = append(paths, r.path)
	}
	return paths, nil
}

func (plan *EmissionPlan) runTask(backend CodegenBackend, task EmissionTask, options EmitOptions) (string, error) {
	module, err := backend.Generate(
		task.Unit,
		plan.Project.Index,
		plan.Project.Annotations,
		plan.Project.Literals,
		plan.RootDir,
		task.Unit.FileName,
		options.OptimizationLevel,
		options.DebugLevel,
	)
	if err != nil {
		return "", fmt.Errorf("codegen failed for %s (%s): %w", task.Unit.FileName, task.Target, err)
	}
	path, err := module.Persist(task.OutputDir, task.UnitName, plan.Format, task.Target, options.OptimizationLevel)
	if err != nil {
		return "", fmt.Errorf("cannot persist %s (%s): %w", task.UnitName, task.Target, err)
	}
	return path, nil
}
