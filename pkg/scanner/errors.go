package scanner

import (
	"fmt"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/position"
)

var (
	ErrUnterminated = errors.New("unterminated literal")
	ErrUnbalanced   = errors.New("unbalanced bracket")
)

// Error is a lexical failure. Tokenizing stops at the first one; there is no
// partial token stream.
type Error struct {
	File   string
	Offset int
	Place  position.Place
	Msg    string
	Kind   error
}

func (e *Error) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%s: %s", file, e.Place, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}
