package scanner

// angleAllowed lists the punctuation that may appear at the nesting level of
// a generic argument list. Anything else (';', '&&', '+', ...) means the '<'
// was a comparison.
var angleAllowed = map[string]bool{
	"<": true, ">": true, ",": true, ".": true, "|": true, "&": true, "?": true,
	":": true, "=>": true, "=": true, "(": true, ")": true, "[": true, "]": true,
	"{": true, "}": true, "...": true, "-": true, "?.": true,
}

// GetMatchingClose returns the index of the token that closes the bracket at
// openIndex, or -1. Round, square and curly brackets always match since the
// scanner guarantees balance. An angle bracket only matches when the tokens
// up to its '>' can form a generic argument list.
func GetMatchingClose(tokens []Token, openIndex int) int {
	if openIndex < 0 || openIndex >= len(tokens) {
		return -1
	}
	open := tokens[openIndex]
	if open.Kind != KindPunct {
		return -1
	}

	switch open.Text {
	case "(", "[", "{":
		want := string(closerFor(open.Text[0]))
		for j := openIndex + 1; j < len(tokens); j++ {
			t := tokens[j]
			if t.Depth == open.Depth && t.IsClose() {
				if t.Text == want {
					return j
				}
				return -1
			}
		}
		return -1
	case "<":
		return matchAngle(tokens, openIndex)
	}

	return -1
}

func matchAngle(tokens []Token, openIndex int) int {
	open := tokens[openIndex]
	level := 0
	for j := openIndex; j < len(tokens); j++ {
		t := tokens[j]
		if t.Depth < open.Depth {
			return -1
		}
		if t.Depth > open.Depth || t.IsTrivia() {
			continue
		}
		switch t.Kind {
		case KindIdent, KindNumber, KindString, KindTemplate:
			continue
		case KindPunct:
			if !angleAllowed[t.Text] {
				return -1
			}
			switch t.Text {
			case "<":
				level++
			case ">":
				level--
				if level == 0 {
					return j
				}
			}
		default:
			return -1
		}
	}
	return -1
}

// glueable punctuation can touch an operator without extending it.
func glueable(t Token) bool {
	if t.Kind != KindPunct {
		return true
	}
	switch t.Text {
	case "(", ")", "[", "]", "{", "}", ",", ";":
		return true
	}
	return false
}

// IsBoundaryToken reports whether the punctuation token at i stands on its
// own: it is not directly glued to other operator characters that would make
// it part of a longer operator run (as in "|>>" or "::=").
func IsBoundaryToken(tokens []Token, i int) bool {
	if i < 0 || i >= len(tokens) || tokens[i].Kind != KindPunct {
		return false
	}
	t := tokens[i]
	if i > 0 {
		prev := tokens[i-1]
		if prev.End == t.Start && !glueable(prev) {
			return false
		}
	}
	if i+1 < len(tokens) {
		next := tokens[i+1]
		if next.Start == t.End && !glueable(next) {
			return false
		}
	}
	return true
}

// PrevSignificant returns the index of the closest non-comment token before i, or -1.
func PrevSignificant(tokens []Token, i int) int {
	for j := i - 1; j >= 0; j-- {
		if !tokens[j].IsTrivia() {
			return j
		}
	}
	return -1
}

// NextSignificant returns the index of the closest non-comment token after i, or -1.
func NextSignificant(tokens []Token, i int) int {
	for j := i + 1; j < len(tokens); j++ {
		if !tokens[j].IsTrivia() {
			return j
		}
	}
	return -1
}
