package diagnostic

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// FileId identifies a registered source file.
type FileId int

// Diagnostician is the sink the core reports diagnostics through.
// Implementations decide how (and whether) to render them.
type Diagnostician interface {
	// Register makes a source text known so diagnostics can be rendered
	// with context, and returns its file id.
	Register(path, source string) FileId

	// Report delivers a batch of diagnostics.
	Report(diagnostics []Diagnostic)
}

// ConsoleDiagnostician renders diagnostics to a writer with source
// context and a caret marking the error column.
type ConsoleDiagnostician struct {
	mu      sync.Mutex
	out     io.Writer
	sources map[string]string
	paths   []string
	count   int
}

// NewConsoleDiagnostician creates a console sink writing to out.
func NewConsoleDiagnostician(out io.Writer) *ConsoleDiagnostician {
	return &ConsoleDiagnostician{out: out, sources: make(map[string]string)}
}

// Register implements Diagnostician.
func (c *ConsoleDiagnostician) Register(path, source string) FileId {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.sources[path]; !exists {
		c.paths = append(c.paths, path)
	}
	c.sources[path] = source
	return FileId(len(c.paths) - 1)
}

// Report implements Diagnostician.
func (c *ConsoleDiagnostician) Report(diagnostics []Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range diagnostics {
		if d.Severity == SeverityError {
			c.count++
		}
		c.render(d)
	}
}

// ErrorCount returns the number of error-severity diagnostics seen.
func (c *ConsoleDiagnostician) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *ConsoleDiagnostician) render(d Diagnostic) {
	header := color.New(color.Bold, color.FgRed)
	if d.Severity == SeverityWarning {
		header = color.New(color.Bold, color.FgYellow)
	} else if d.Severity == SeverityInfo {
		header = color.New(color.Bold, color.FgCyan)
	}

	fmt.Fprintf(c.out, "%s: %s [%s]\n",
		header.Sprint(d.Severity.String()), d.Message, d.Kind)
	fmt.Fprintf(c.out, "  --> %s\n", d.Location)

	if line := c.sourceLine(d.Location); line != "" {
		prefix := fmt.Sprintf("%4d | ", d.Location.Pos.Line)
		fmt.Fprintf(c.out, "%s%s\n", prefix, line)
		caretCol := d.Location.Pos.Column
		if caretCol < 1 {
			caretCol = 1
		}
		fmt.Fprintf(c.out, "%s%s\n",
			strings.Repeat(" ", len(prefix)+caretCol-1),
			header.Sprint("^"))
	}

	for _, sec := range d.Secondary {
		fmt.Fprintf(c.out, "  see also: %s\n", sec)
	}
}

func (c *ConsoleDiagnostician) sourceLine(loc Location) string {
	source, ok := c.sources[loc.File]
	if !ok {
		return ""
	}
	lines := strings.Split(source, "\n")
	if loc.Pos.Line < 1 || loc.Pos.Line > len(lines) {
		return ""
	}
	return lines[loc.Pos.Line-1]
}

// LogDiagnostician forwards diagnostics to a logrus logger.
type LogDiagnostician struct {
	mu     sync.Mutex
	logger *logrus.Logger
	files  []string
}

// NewLogDiagnostician creates a logging sink.
func NewLogDiagnostician(logger *logrus.Logger) *LogDiagnostician {
	return &LogDiagnostician{logger: logger}
}

// Register implements Diagnostician.
func (l *LogDiagnostician) Register(path, source string) FileId {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files = append(l.files, path)
	return FileId(len(l.files) - 1)
}

// Report implements Diagnostician.
func (l *LogDiagnostician) Report(diagnostics []Diagnostic) {
	for _, d := range diagnostics {
		entry := l.logger.WithFields(logrus.Fields{
			"kind":     string(d.Kind),
			"location": d.Location.String(),
		})
		switch d.Severity {
		case SeverityError:
			entry.Error(d.Message)
		case SeverityWarning:
			entry.Warn(d.Message)
		default:
			entry.Info(d.Message)
		}
	}
}

// BufferedDiagnostician collects diagnostics in memory so that callers
// (the tests) can inspect them afterwards.
type BufferedDiagnostician struct {
	mu          sync.Mutex
	files       []string
	Diagnostics []Diagnostic
}

// NewBufferedDiagnostician creates an in-memory sink.
func NewBufferedDiagnostician() *BufferedDiagnostician {
	return &BufferedDiagnostician{}
}

// Register implements Diagnostician.
func (b *BufferedDiagnostician) Register(path, source string) FileId {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files = append(b.files, path)
	return FileId(len(b.files) - 1)
}

// Report implements Diagnostician.
func (b *BufferedDiagnostician) Report(diagnostics []Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Diagnostics = append(b.Diagnostics, diagnostics...)
}

// HasErrors reports whether any collected diagnostic is an error.
func (b *BufferedDiagnostician) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return HasErrors(b.Diagnostics)
}

// OfKind returns the collected diagnostics with the given kind.
func (b *BufferedDiagnostician) OfKind(kind Kind) []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Diagnostic
	for _, d := range b.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
