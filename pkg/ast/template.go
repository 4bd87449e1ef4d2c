package ast

import (
	"gitlab.com/tozd/go/errors"
)

var ErrMalformedTemplate = errors.New("malformed template literal")

// TemplateParts splits a raw template literal into its text chunks and the
// source of its ${} interpolations. There is always one more chunk than
// there are interpolations.
func TemplateParts(raw string) (chunks []string, exprs []string, err error) {
	if len(raw) < 2 || raw[0] != '`' || raw[len(raw)-1] != '`' {
		return nil, nil, errors.Errorf("%w: %q", ErrMalformedTemplate, raw)
	}
	body := raw[1 : len(raw)-1]
	start := 0
	for i := 0; i < len(body); i++ {
		switch {
		case body[i] == '\\':
			i++
		case body[i] == '$' && i+1 < len(body) && body[i+1] == '{':
			end, err := interpolationEnd(body, i+2)
			if err != nil {
				return nil, nil, err
			}
			chunks = append(chunks, body[start:i])
			exprs = append(exprs, body[i+2:end])
			start = end + 1
			i = end
		}
	}
	return append(chunks, body[start:]), exprs, nil
}

// interpolationEnd returns the index of the brace closing an interpolation
// that starts at from.
func interpolationEnd(s string, from int) (int, error) {
	depth := 0
	for i := from; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i, nil
			}
			depth--
		case '"', '\'':
			for i++; i < len(s) && s[i] != c; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		case '`':
			for i++; i < len(s) && s[i] != '`'; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		}
	}
	return 0, errors.Errorf("%w: unclosed interpolation", ErrMalformedTemplate)
}
