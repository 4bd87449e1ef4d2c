package lite

import (
	"io"

	"github.com/alecthomas/participle/v2/lexer"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tsmacro/pkg/position"
	"github.com/walteh/tsmacro/pkg/scanner"
)

const (
	tokenIdent lexer.TokenType = iota + 1
	tokenNumber
	tokenPunct
	tokenString
	tokenTemplate
	tokenRegex
	tokenComment
)

func tokenType(k scanner.Kind) lexer.TokenType {
	switch k {
	case scanner.KindIdent:
		return tokenIdent
	case scanner.KindNumber:
		return tokenNumber
	case scanner.KindString:
		return tokenString
	case scanner.KindTemplate:
		return tokenTemplate
	case scanner.KindRegex:
		return tokenRegex
	case scanner.KindLineComment, scanner.KindBlockComment:
		return tokenComment
	default:
		return tokenPunct
	}
}

// definition feeds the grammar from the shared scanner, so the parser sees
// exactly the tokens the syntax extensions saw.
type definition struct{}

var _ lexer.StringDefinition = definition{}

// Symbols is called while the package-level parsers are built, so it must
// not depend on other package state.
func (definition) Symbols() map[string]lexer.TokenType {
	return map[string]lexer.TokenType{
		"EOF":      lexer.EOF,
		"Ident":    tokenIdent,
		"Number":   tokenNumber,
		"Punct":    tokenPunct,
		"String":   tokenString,
		"Template": tokenTemplate,
		"Regex":    tokenRegex,
		"Comment":  tokenComment,
	}
}

func (d definition) Lex(filename string, r io.Reader) (lexer.Lexer, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", filename, err)
	}
	return d.LexString(filename, string(b))
}

func (definition) LexString(filename string, text string) (lexer.Lexer, error) {
	toks, err := scanner.Tokenize(text, scanner.Options{FileName: filename})
	if err != nil {
		return nil, err
	}
	return newTokenLexer(filename, text, toks), nil
}

type tokenLexer struct {
	tokens []lexer.Token
	next   int
	eof    lexer.Token
}

func newTokenLexer(filename, text string, toks []scanner.Token) *tokenLexer {
	idx := position.NewLineIndex(text)
	pos := func(offset int) lexer.Position {
		p := idx.Place(offset)
		return lexer.Position{Filename: filename, Offset: offset, Line: p.Line + 1, Column: p.Character + 1}
	}
	l := &tokenLexer{
		tokens: make([]lexer.Token, 0, len(toks)),
		eof:    lexer.Token{Type: lexer.EOF, Pos: pos(len(text))},
	}
	for _, t := range toks {
		l.tokens = append(l.tokens, lexer.Token{Type: tokenType(t.Kind), Value: t.Text, Pos: pos(t.Start)})
	}
	return l
}

func (l *tokenLexer) Next() (lexer.Token, error) {
	if l.next >= len(l.tokens) {
		return l.eof, nil
	}
	t := l.tokens[l.next]
	l.next++
	return t, nil
}
