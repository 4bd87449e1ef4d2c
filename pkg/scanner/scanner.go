// Package scanner turns source text into a position- and nesting-annotated
// token stream.
//
//	source text
//	     |
//	     v
//	+-----------+   strings, templates, comments and regex literals are
//	|  scanner  |   consumed whole, so operator-like text inside them never
//	+-----------+   surfaces as a token
//	     |
//	     v
//	[]Token{Kind, Text, Start, End, Depth}
//
// A '/' is a regex start when an expression may begin at that point and a
// division operator otherwise; the scanner carries that flag from token to
// token.
package scanner

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/position"
)

type Options struct {
	// FileName only labels errors.
	FileName string
}

type bracket struct {
	char   byte
	offset int
}

type scanner struct {
	src         string
	pos         int
	file        string
	stack       []bracket
	exprAllowed bool
	newline     bool
}

// Tokenize scans text completely. Any unterminated string, template, comment,
// regex or bracket fails the whole call with an *Error.
func Tokenize(text string, opts Options) ([]Token, error) {
	s := &scanner{src: text, file: opts.FileName, exprAllowed: true}

	tokens := make([]Token, 0, len(text)/4)
	for {
		s.skipSpace()
		if s.pos >= len(s.src) {
			break
		}
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}

	if len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]
		return nil, s.fail(top.offset, ErrUnbalanced, "unclosed %q", string(top.char))
	}

	return tokens, nil
}

func (s *scanner) fail(offset int, kind error, format string, args ...any) error {
	return errors.WithStack(&Error{
		File:   s.file,
		Offset: offset,
		Place:  position.NewLineIndex(s.src).Place(offset),
		Msg:    fmt.Sprintf(format, args...),
		Kind:   kind,
	})
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case '\n':
			s.newline = true
			s.pos++
		case ' ', '\t', '\r', '\v', '\f':
			s.pos++
		default:
			if c < utf8.RuneSelf {
				return
			}
			r, size := utf8.DecodeRuneInString(s.src[s.pos:])
			if r == '\u2028' || r == '\u2029' {
				s.newline = true
			} else if r != '\uFEFF' && !unicode.IsSpace(r) {
				return
			}
			s.pos += size
		}
	}
}

func (s *scanner) next() (Token, error) {
	start := s.pos
	newline := s.newline
	s.newline = false

	kind, err := s.scanToken()
	if err != nil {
		return Token{}, err
	}

	tok := Token{
		Kind:          kind,
		Text:          s.src[start:s.pos],
		Start:         start,
		End:           s.pos,
		Depth:         len(s.stack),
		NewlineBefore: newline,
	}

	if kind == KindPunct {
		switch tok.Text {
		case "(", "[", "{":
			s.stack = append(s.stack, bracket{char: tok.Text[0], offset: start})
		case ")", "]", "}":
			if len(s.stack) == 0 {
				return Token{}, s.fail(start, ErrUnbalanced, "unexpected %q", tok.Text)
			}
			top := s.stack[len(s.stack)-1]
			if closerFor(top.char) != tok.Text[0] {
				return Token{}, s.fail(start, ErrUnbalanced, "%q does not close %q opened at offset %d", tok.Text, string(top.char), top.offset)
			}
			s.stack = s.stack[:len(s.stack)-1]
			tok.Depth = len(s.stack)
		}
	}

	s.updateExprAllowed(tok)

	return tok, nil
}

func closerFor(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}

func (s *scanner) updateExprAllowed(tok Token) {
	switch tok.Kind {
	case KindLineComment, KindBlockComment:
		// comments do not change what may follow
	case KindIdent:
		s.exprAllowed = exprKeywords[tok.Text]
	case KindNumber, KindString, KindTemplate, KindRegex:
		s.exprAllowed = false
	case KindPunct:
		switch tok.Text {
		case ")", "]", "}", "++", "--":
			s.exprAllowed = false
		default:
			s.exprAllowed = true
		}
	}
}

func (s *scanner) scanToken() (Kind, error) {
	c := s.src[s.pos]

	switch {
	case c == '/':
		return s.scanSlash()
	case c == '"' || c == '\'':
		return KindString, s.scanString(c)
	case c == '`':
		return KindTemplate, s.scanTemplate()
	case isDigit(c) || (c == '.' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1])):
		s.scanNumber()
		return KindNumber, nil
	case c == '#' && s.pos+1 < len(s.src) && isIdentStartAt(s.src, s.pos+1):
		s.pos++
		s.scanIdent()
		return KindIdent, nil
	case isIdentStartAt(s.src, s.pos):
		s.scanIdent()
		return KindIdent, nil
	}

	for _, p := range punctuators {
		if strings.HasPrefix(s.src[s.pos:], p) {
			s.pos += len(p)
			return KindPunct, nil
		}
	}

	_, size := utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += size
	return KindPunct, nil
}

func (s *scanner) scanSlash() (Kind, error) {
	start := s.pos
	if s.pos+1 < len(s.src) {
		switch s.src[s.pos+1] {
		case '/':
			end := strings.IndexByte(s.src[s.pos:], '\n')
			if end < 0 {
				s.pos = len(s.src)
			} else {
				s.pos += end
			}
			return KindLineComment, nil
		case '*':
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				return 0, s.fail(start, ErrUnterminated, "unterminated block comment")
			}
			s.pos += 2 + end + 2
			return KindBlockComment, nil
		}
	}

	if !s.exprAllowed {
		s.pos++
		if s.pos < len(s.src) && s.src[s.pos] == '=' {
			s.pos++
		}
		return KindPunct, nil
	}

	s.pos++
	inClass := false
	for {
		if s.pos >= len(s.src) || s.src[s.pos] == '\n' {
			return 0, s.fail(start, ErrUnterminated, "unterminated regular expression")
		}
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.pos += 2
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			s.pos++
			for s.pos < len(s.src) && isIdentPartAt(s.src, s.pos) {
				s.pos++
			}
			return KindRegex, nil
		}
		s.pos++
	}
}

func (s *scanner) scanString(quote byte) error {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			if s.pos > len(s.src) {
				s.pos = len(s.src)
			}
		case quote:
			s.pos++
			return nil
		case '\n':
			return s.fail(start, ErrUnterminated, "unterminated string literal")
		default:
			s.pos++
		}
	}
	return s.fail(start, ErrUnterminated, "unterminated string literal")
}

func (s *scanner) scanTemplate() error {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '`':
			s.pos++
			return nil
		case '$':
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '{' {
				s.pos += 2
				if err := s.skipInterpolation(start); err != nil {
					return err
				}
				continue
			}
			s.pos++
		default:
			s.pos++
		}
	}
	return s.fail(start, ErrUnterminated, "unterminated template literal")
}

// skipInterpolation consumes the code of a ${...} part. The code is tokenized
// (so strings and nested templates inside it are honoured) but the tokens are
// discarded: the whole template is a single token.
func (s *scanner) skipInterpolation(templateStart int) error {
	savedStack, savedExpr, savedNewline := s.stack, s.exprAllowed, s.newline
	s.stack, s.exprAllowed = nil, true
	defer func() {
		s.stack, s.exprAllowed, s.newline = savedStack, savedExpr, savedNewline
	}()

	for {
		s.skipSpace()
		if s.pos >= len(s.src) {
			return s.fail(templateStart, ErrUnterminated, "unterminated template literal")
		}
		if s.src[s.pos] == '}' && len(s.stack) == 0 {
			s.pos++
			return nil
		}
		if _, err := s.next(); err != nil {
			return err
		}
	}
}

func (s *scanner) scanNumber() {
	if s.src[s.pos] == '0' && s.pos+1 < len(s.src) && strings.ContainsRune("xXoObB", rune(s.src[s.pos+1])) {
		s.pos += 2
		for s.pos < len(s.src) && (isHexDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
			s.pos++
		}
	} else {
		for s.pos < len(s.src) && (isDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
			s.pos++
		}
		if s.pos < len(s.src) && s.src[s.pos] == '.' {
			s.pos++
			for s.pos < len(s.src) && (isDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
				s.pos++
			}
		}
		if s.pos < len(s.src) && (s.src[s.pos] == 'e' || s.src[s.pos] == 'E') {
			s.pos++
			if s.pos < len(s.src) && (s.src[s.pos] == '+' || s.src[s.pos] == '-') {
				s.pos++
			}
			for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
				s.pos++
			}
		}
	}
	if s.pos < len(s.src) && s.src[s.pos] == 'n' {
		s.pos++
	}
}

func (s *scanner) scanIdent() {
	for s.pos < len(s.src) && isIdentPartAt(s.src, s.pos) {
		_, size := utf8.DecodeRuneInString(s.src[s.pos:])
		s.pos += size
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStartAt(src string, i int) bool {
	c := src[i]
	if c < utf8.RuneSelf {
		return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	r, _ := utf8.DecodeRuneInString(src[i:])
	return unicode.IsLetter(r)
}

func isIdentPartAt(src string, i int) bool {
	if isIdentStartAt(src, i) {
		return true
	}
	c := src[i]
	if c < utf8.RuneSelf {
		return isDigit(c)
	}
	r, _ := utf8.DecodeRuneInString(src[i:])
	return unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}
