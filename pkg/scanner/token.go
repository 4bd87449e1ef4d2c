package scanner

import (
	"fmt"

	"github.com/walteh/tsmacro/pkg/position"
)

// Kind classifies a token.
type Kind int

const (
	KindIdent Kind = iota + 1
	KindNumber
	KindPunct
	KindString
	// KindTemplate covers a whole template literal, interpolations included.
	KindTemplate
	KindRegex
	KindLineComment
	KindBlockComment
)

func (k Kind) String() string {
	switch k {
	case KindIdent:
		return "Ident"
	case KindNumber:
		return "Number"
	case KindPunct:
		return "Punct"
	case KindString:
		return "String"
	case KindTemplate:
		return "Template"
	case KindRegex:
		return "Regex"
	case KindLineComment:
		return "LineComment"
	case KindBlockComment:
		return "BlockComment"
	default:
		return "Unknown"
	}
}

// Token is one lexical unit of the source. Start and End are byte offsets into
// the scanned text; the bytes between two adjacent tokens are whitespace.
type Token struct {
	Kind  Kind
	Text  string
	Start int
	End   int
	// Depth is the number of open (, [ or { brackets enclosing the token. A
	// bracket token carries the depth of the text outside of it.
	Depth int
	// NewlineBefore is set when a line break separates the token from the
	// previous one.
	NewlineBefore bool
}

func (t Token) Span() position.Span {
	return position.Span{Start: t.Start, End: t.End}
}

func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

func (t Token) IsPunct(text string) bool {
	return t.Is(KindPunct, text)
}

// IsTrivia reports whether the token is a comment.
func (t Token) IsTrivia() bool {
	return t.Kind == KindLineComment || t.Kind == KindBlockComment
}

func (t Token) IsOpen() bool {
	return t.Kind == KindPunct && (t.Text == "(" || t.Text == "[" || t.Text == "{")
}

func (t Token) IsClose() bool {
	return t.Kind == KindPunct && (t.Text == ")" || t.Text == "]" || t.Text == "}")
}

// IsExprKeyword reports whether the token is a keyword that must be followed
// by an expression, so it can never end one.
func (t Token) IsExprKeyword() bool {
	return t.Kind == KindIdent && exprKeywords[t.Text]
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Start)
}

// punctuators ordered longest first for maximal munch. '<' and '>' only ever
// combine with '=' so that nested generic delimiters stay separate tokens.
var punctuators = []string{
	"...", "===", "!==", "**=", "&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**", "|>", "::",
}

// keywords after which an expression (and thus a regex literal) may start.
var exprKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true, "extends": true,
}
