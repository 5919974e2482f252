// Package diagnostic defines the diagnostic records produced by the
// compiler core and the sink interface they are reported through. The
// core only constructs records; all formatting happens in Diagnostician
// implementations.
package diagnostic

import (
	"fmt"

	"github.com/plc-foundry/go-stc/internal/lexer"
)

// Kind tags a diagnostic with its machine-readable category.
type Kind string

const (
	SyntaxError                         Kind = "SyntaxError"
	UnresolvedReference                 Kind = "UnresolvedReference"
	IncompatibleType                    Kind = "IncompatibleType"
	IncompatibleArrayAccessRange        Kind = "IncompatibleArrayAccessRange"
	IncompatibleArrayAccessType         Kind = "IncompatibleArrayAccessType"
	IncompatibleArrayAccessVariable     Kind = "IncompatibleArrayAccessVariable"
	ArrayExpectedInitializerList        Kind = "ArrayExpectedInitializerList"
	ArrayExpectedIdentifierOrRoundBracket Kind = "ArrayExpectedIdentifierOrRoundBracket"
	FunctionReturnMissing               Kind = "FunctionReturnMissing"
	MissingActionContainer              Kind = "MissingActionContainer"
	GlobalNameConflict                  Kind = "GlobalNameConflict"
	AmbiguousCallableSymbol             Kind = "AmbiguousCallableSymbol"
	AmbiguousDatatype                   Kind = "AmbiguousDatatype"
	AmbiguousGlobalVariable             Kind = "AmbiguousGlobalVariable"
	InvalidVariableLengthArrayPlacement Kind = "InvalidVariableLengthArrayPlacement"
	InvalidVariableLengthArrayRankMismatch Kind = "InvalidVariableLengthArrayRankMismatch"
	ConstantEvaluationOverflow          Kind = "ConstantEvaluationOverflow"
	ConstantEvaluationCycle             Kind = "ConstantEvaluationCycle"
	InvalidGenericInstantiation         Kind = "InvalidGenericInstantiation"
	InvalidPointerArithmetic            Kind = "InvalidPointerArithmetic"
	InvalidRangeAssignment              Kind = "InvalidRangeAssignment"
	IoReadError                         Kind = "IoReadError"
	ParamError                          Kind = "ParamError"
)

// Severity grades a diagnostic. Any Error-severity diagnostic terminates
// the pipeline before emission.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Location is a source span participating in a diagnostic.
type Location struct {
	File string
	Pos  lexer.Position
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Pos.Line, l.Pos.Column)
}

// Diagnostic is one reportable finding. Secondary locations reference the
// other participants of a collision.
type Diagnostic struct {
	Kind      Kind
	Severity  Severity
	Message   string
	Location  Location
	Secondary []Location
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s] %s: %s", d.Location, d.Severity, d.Kind, d.Message)
}

// Error creates an error-severity diagnostic.
func Error(kind Kind, message string, location Location) Diagnostic {
	return Diagnostic{Kind: kind, Severity: SeverityError, Message: message, Location: location}
}

// Warning creates a warning-severity diagnostic.
func Warning(kind Kind, message string, location Location) Diagnostic {
	return Diagnostic{Kind: kind, Severity: SeverityWarning, Message: message, Location: location}
}

// WithSecondary attaches related locations.
func (d Diagnostic) WithSecondary(locations ...Location) Diagnostic {
	d.Secondary = append(d.Secondary, locations...)
	return d
}

// HasErrors reports whether any diagnostic in the slice is error severity.
func HasErrors(diagnostics []Diagnostic) bool {
	for _, d := range diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
