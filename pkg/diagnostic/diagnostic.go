package diagnostic

import (
	"encoding/json"
	"fmt"
	"sort"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/position"
)

// Severity represents the severity level of a diagnostic
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityHint    Severity = "hint"
)

// Diagnostic is one message attached to a range of a file.
type Diagnostic struct {
	File     string
	Message  string
	Severity Severity
	Range    position.Range
	// Code identifies the producer, e.g. "macro-expansion" or "expansion-cycle".
	Code string
}

func (d Diagnostic) String() string {
	file := d.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%s: %s: %s", file, d.Range.Start, d.Severity, d.Message)
}

func Errorf(file string, rng position.Range, code string, format string, args ...any) Diagnostic {
	return Diagnostic{File: file, Range: rng, Code: code, Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

func Warningf(file string, rng position.Range, code string, format string, args ...any) Diagnostic {
	return Diagnostic{File: file, Range: rng, Code: code, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}

// List is an ordered set of diagnostics.
type List []Diagnostic

func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (l List) Filter(sev Severity) List {
	var out List
	for _, d := range l {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Sorted returns a copy ordered by file and position.
func (l List) Sorted() List {
	out := append(List(nil), l...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Range.Start.Before(out[j].Range.Start)
	})
	return out
}

// Formatter formats diagnostics into different output formats
type Formatter interface {
	Format(diagnostics List) ([]byte, error)
}

// LSPFormatter formats diagnostics the way language servers publish them.
type LSPFormatter struct{}

func NewLSPFormatter() *LSPFormatter {
	return &LSPFormatter{}
}

type lspPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type lspRange struct {
	Start lspPosition `json:"start"`
	End   lspPosition `json:"end"`
}

type lspDiagnostic struct {
	Severity int      `json:"severity"`
	Message  string   `json:"message"`
	Range    lspRange `json:"range"`
	Code     string   `json:"code,omitempty"`
	Source   string   `json:"source,omitempty"`
}

func lspSeverity(s Severity) int {
	switch s {
	case SeverityError:
		return 1
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 3
	default:
		return 4
	}
}

// Format implements Formatter. Positions are already zero-based.
func (f *LSPFormatter) Format(diagnostics List) ([]byte, error) {
	if diagnostics == nil {
		return nil, errors.Errorf("diagnostics is nil")
	}

	result := make([]lspDiagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		result = append(result, lspDiagnostic{
			Severity: lspSeverity(d.Severity),
			Message:  d.Message,
			Code:     d.Code,
			Source:   d.File,
			Range: lspRange{
				Start: lspPosition{Line: d.Range.Start.Line, Character: d.Range.Start.Character},
				End:   lspPosition{Line: d.Range.End.Line, Character: d.Range.End.Character},
			},
		})
	}

	return json.Marshal(result)
}
