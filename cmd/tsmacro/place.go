package main

import (
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/position"
)

var ErrDiagnostics = errors.New("macro expansion reported errors")

// parsePlace reads a one-based "line:col".
func parsePlace(s string) (position.Place, error) {
	l, c, ok := strings.Cut(s, ":")
	if !ok {
		return position.Place{}, errors.Errorf("place %q is not line:col", s)
	}
	line, err := strconv.Atoi(l)
	if err != nil || line < 1 {
		return position.Place{}, errors.Errorf("place %q has a bad line", s)
	}
	col, err := strconv.Atoi(c)
	if err != nil || col < 1 {
		return position.Place{}, errors.Errorf("place %q has a bad column", s)
	}
	return position.Place{Line: line - 1, Character: col - 1}, nil
}
