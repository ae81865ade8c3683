package parse

import (
	"strconv"
)

type (
	tokKind int

	token struct {
		Kind tokKind
		Text string
		Pos  int
		End  int

		Num int32
	}
)

const (
	tEOF tokKind = iota
	tIdent
	tNumber
	tPunct
)

var puncts2 = []string{"<=", ">=", "==", "!=", "&&", "||"}

const puncts1 = "+-*/%<>!=(){}[],;"

var keywords = map[string]bool{
	"const":    true,
	"int":      true,
	"void":     true,
	"if":       true,
	"else":     true,
	"while":    true,
	"break":    true,
	"continue": true,
	"return":   true,
}

// lex splits b into tokens. The last token is always tEOF.
func (p *parser) lex() (ts []token, err error) {
	b := p.b
	i := 0

	for {
		var ok bool

		i, ok = SpaceAll.SkipComments(b, i)
		if !ok {
			return nil, p.errorf(i, "unterminated comment")
		}

		if i == len(b) {
			return append(ts, token{Kind: tEOF, Pos: i, End: i}), nil
		}

		st := i
		c := b[i]

		switch {
		case isIdentStart(c):
			i = skipIdent(b, i)

			ts = append(ts, token{Kind: tIdent, Text: string(b[st:i]), Pos: st, End: i})
		case isDigit(c):
			var t token

			t, i, err = p.number(st)
			if err != nil {
				return nil, err
			}

			ts = append(ts, t)
		default:
			t, ok := punct(b, st)
			if !ok {
				return nil, p.errorf(st, "unexpected character %q", c)
			}

			i = t.End
			ts = append(ts, t)
		}
	}
}

func punct(b []byte, st int) (token, bool) {
	if st+1 < len(b) {
		two := string(b[st : st+2])

		for _, q := range puncts2 {
			if q == two {
				return token{Kind: tPunct, Text: q, Pos: st, End: st + 2}, true
			}
		}
	}

	for j := 0; j < len(puncts1); j++ {
		if puncts1[j] == b[st] {
			return token{Kind: tPunct, Text: puncts1[j : j+1], Pos: st, End: st + 1}, true
		}
	}

	return token{}, false
}

// number scans decimal, octal (leading 0) and hex (0x) literals.
// Values up to 2^32-1 are accepted and wrap into int32.
func (p *parser) number(st int) (t token, i int, err error) {
	b := p.b
	i = st
	base := 10
	dst := i

	switch {
	case b[i] == '0' && i+1 < len(b) && (b[i+1] == 'x' || b[i+1] == 'X'):
		base = 16
		i += 2
		dst = i

		for i < len(b) && isHex(b[i]) {
			i++
		}

		if i == dst {
			return t, st, p.errorf(st, "malformed hex literal")
		}
	case b[i] == '0':
		base = 8
		i++
		dst = i

		for i < len(b) && isDigit(b[i]) {
			i++
		}
	default:
		for i < len(b) && isDigit(b[i]) {
			i++
		}
	}

	if i < len(b) && isIdentStart(b[i]) {
		return t, st, p.errorf(st, "malformed number %q", b[st:skipIdent(b, i)])
	}

	digits := string(b[dst:i])
	if digits == "" {
		digits = "0"
	}

	v, err := strconv.ParseUint(digits, base, 32)
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return t, st, p.errorf(st, "number %s out of range", b[st:i])
	}
	if err != nil {
		return t, st, p.errorf(st, "malformed number %q", b[st:i])
	}

	return token{
		Kind: tNumber,
		Text: string(b[st:i]),
		Pos:  st,
		End:  i,
		Num:  int32(uint32(v)),
	}, i, nil
}
