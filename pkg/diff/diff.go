// Package diff renders line diffs between a file and its transformed text.
package diff

import (
	"strings"

	"github.com/fatih/color"
	"github.com/kylelemons/godebug/diff"
)

// Lines diffs before against after line by line. It returns "" when the two
// are equal.
func Lines(before, after string) string {
	if before == after {
		return ""
	}
	return diff.Diff(before, after)
}

// Unified prefixes the diff of before and after with file headers, coloring
// added and removed lines when colorize is set.
func Unified(name, before, after string, colorize bool) string {
	d := Lines(before, after)
	if d == "" {
		return ""
	}

	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	var b strings.Builder
	b.WriteString("--- " + name + "\n")
	b.WriteString("+++ " + name + " (transformed)\n")
	for _, line := range strings.Split(d, "\n") {
		switch {
		case colorize && strings.HasPrefix(line, "+"):
			line = add.Sprint(line)
		case colorize && strings.HasPrefix(line, "-"):
			line = del.Sprint(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
