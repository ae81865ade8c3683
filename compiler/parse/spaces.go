package parse

type (
	// Spaces is a set of byte codes below 64.
	Spaces uint64
)

var (
	Space    = NewSpaces(' ')
	SpaceTab = NewSpaces(' ', '\t')
	SpaceAll = NewSpaces(' ', '\t', '\r', '\n', '\v', '\f')
)

func NewSpaces(skip ...byte) (ss Spaces) {
	for _, q := range skip {
		if q >= 64 {
			panic("too high char code")
		}

		ss |= 1 << q
	}

	return
}

func (s Spaces) Skip(b []byte, st int) (i int) {
	i = st

	for i < len(b) && b[i] < 64 && s&(1<<b[i]) != 0 {
		i++
	}

	return
}

// SkipComments skips spaces and // and /* */ comments.
// ok is false if a block comment is not closed.
func (s Spaces) SkipComments(b []byte, st int) (i int, ok bool) {
	i = st

	for {
		i = s.Skip(b, i)

		if i+1 >= len(b) || b[i] != '/' {
			return i, true
		}

		switch b[i+1] {
		case '/':
			i = skipLine(b, i)
		case '*':
			end := skipBlockComment(b, i+2)
			if end < 0 {
				return i, false
			}

			i = end
		default:
			return i, true
		}
	}
}

func skipLine(b []byte, i int) int {
	for i < len(b) && b[i] != '\n' {
		i++
	}

	return i
}

func skipBlockComment(b []byte, i int) int {
	for i+1 < len(b) {
		if b[i] == '*' && b[i+1] == '/' {
			return i + 2
		}

		i++
	}

	return -1
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && isIdent(b[i]) {
		i++
	}

	return i
}

func isIdentStart(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_'
}

func isIdent(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
