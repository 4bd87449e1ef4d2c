package diagnostic

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"github.com/fatih/color"

	"github.com/walteh/tsmacro/pkg/position"
)

// TextFormatter renders diagnostics for a terminal, with the offending source
// line and a caret marker under the range.
type TextFormatter struct {
	// Sources maps a diagnostic's File to its text. Files without a source
	// are rendered as a single header line.
	Sources map[string]string
	Color   bool
}

func (f *TextFormatter) style(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if f.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (f *TextFormatter) severityStyle(s Severity) *color.Color {
	switch s {
	case SeverityError:
		return f.style(color.FgHiRed, color.Bold)
	case SeverityWarning:
		return f.style(color.FgYellow, color.Bold)
	default:
		return f.style(color.FgCyan)
	}
}

func (f *TextFormatter) Format(diagnostics List) ([]byte, error) {
	var buf bytes.Buffer
	indexes := map[string]*position.LineIndex{}

	for _, d := range diagnostics {
		file := d.File
		if file == "" {
			file = "<input>"
		}
		fmt.Fprintf(&buf, "%s%s %s %s",
			f.style(color.Bold).Sprint(file),
			f.style(color.Faint).Sprintf(":%s:", d.Range.Start),
			f.severityStyle(d.Severity).Sprintf("%s:", d.Severity),
			d.Message)
		if d.Code != "" {
			buf.WriteString(f.style(color.Faint).Sprintf(" [%s]", d.Code))
		}
		buf.WriteByte('\n')

		src, ok := f.Sources[d.File]
		if !ok {
			continue
		}
		idx, ok := indexes[d.File]
		if !ok {
			idx = position.NewLineIndex(src)
			indexes[d.File] = idx
		}
		line, pad, width := caret(src, idx, d.Range)
		gutter := fmt.Sprintf("%d", d.Range.Start.Line+1)
		blank := strings.Repeat(" ", len(gutter))
		fmt.Fprintf(&buf, " %s %s %s\n", f.style(color.Faint).Sprint(gutter), f.style(color.Faint).Sprint("|"), line)
		fmt.Fprintf(&buf, " %s %s %s%s\n", blank, f.style(color.Faint).Sprint("|"), strings.Repeat(" ", pad), f.severityStyle(d.Severity).Sprint(strings.Repeat("^", width)))
	}

	return buf.Bytes(), nil
}

// caret returns the text of the range's first line, the number of columns
// before the range and the range width on that line, both counted in grapheme
// clusters so the marker lines up in a terminal.
func caret(src string, idx *position.LineIndex, rng position.Range) (string, int, int) {
	lineStart := idx.LineStart(rng.Start.Line)
	lineEnd := idx.LineStart(rng.Start.Line + 1)
	if lineEnd > lineStart && src[lineEnd-1] == '\n' {
		lineEnd--
	}
	line := strings.TrimSuffix(src[lineStart:lineEnd], "\r")

	start := idx.Offset(rng.Start) - lineStart
	end := len(line)
	if rng.End.Line == rng.Start.Line {
		end = idx.Offset(rng.End) - lineStart
	}
	start = clamp(start, 0, len(line))
	end = clamp(end, start, len(line))

	pad := graphemes(line[:start])
	width := graphemes(line[start:end])
	if width == 0 {
		width = 1
	}
	return line, pad, width
}

func graphemes(s string) int {
	n, err := textseg.TokenCount([]byte(s), textseg.ScanGraphemeClusters)
	if err != nil {
		return len([]rune(s))
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
