package preprocess

import (
	"strconv"
	"strings"
	"unicode"
)

// evalExpr evaluates a #if / #elif expression against the current
// macro table. Supported grammar, smallest to largest binding:
//
//	or   := and { "||" and }
//	and  := cmp { "&&" cmp }
//	cmp  := unary { ("=="|"!="|"<="|">="|"<"|">") unary }
//	unary:= "!" unary | "defined" ["("] ident [")"] | "(" or ")"
//	     | ident | integer
//
// Undefined identifiers evaluate to 0, mirroring the preprocessor.
// Malformed expressions evaluate to 0 rather than failing the header:
// the fixed macro set the generator is configured with never reaches
// the exotic corners of real preprocessor arithmetic.
func (s *runState) evalExpr(expr string) int64 {
	toks := tokenizeExpr(expr)
	p := &exprParser{s: s, toks: toks}
	v := p.parseOr()
	return v
}

type exprParser struct {
	s    *runState
	toks []string
	pos  int
}

func (p *exprParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *exprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) parseOr() int64 {
	v := p.parseAnd()
	for p.peek() == "||" {
		p.next()
		rhs := p.parseAnd()
		if v != 0 || rhs != 0 {
			v = 1
		} else {
			v = 0
		}
	}
	return v
}

func (p *exprParser) parseAnd() int64 {
	v := p.parseCmp()
	for p.peek() == "&&" {
		p.next()
		rhs := p.parseCmp()
		if v != 0 && rhs != 0 {
			v = 1
		} else {
			v = 0
		}
	}
	return v
}

func (p *exprParser) parseCmp() int64 {
	v := p.parseUnary()
	for {
		op := p.peek()
		switch op {
		case "==", "!=", "<=", ">=", "<", ">":
			p.next()
			rhs := p.parseUnary()
			v = boolToInt(compare(v, rhs, op))
		default:
			return v
		}
	}
}

func (p *exprParser) parseUnary() int64 {
	switch tok := p.next(); {
	case tok == "!":
		return boolToInt(p.parseUnary() == 0)
	case tok == "(":
		v := p.parseOr()
		if p.peek() == ")" {
			p.next()
		}
		return v
	case tok == "defined":
		name := p.next()
		if name == "(" {
			name = p.next()
			if p.peek() == ")" {
				p.next()
			}
		}
		return boolToInt(p.s.isDefined(name))
	case tok == "":
		return 0
	case isIdentStart(tok):
		value, ok := p.s.defines[tok]
		if !ok {
			return 0
		}
		if _, forced := p.s.undefined[tok]; forced {
			return 0
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(value), 0, 64); err == nil {
			return n
		}
		// Defined but non-numeric (or empty) expands to a truthy 1,
		// which is what the fixed documentation-exclusion guard needs.
		return 1
	default:
		n, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			return 0
		}
		return n
	}
}

func compare(a, b int64, op string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	case "<":
		return a < b
	default:
		return a > b
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func isIdentStart(tok string) bool {
	r := rune(tok[0])
	return r == '_' || unicode.IsLetter(r)
}

func tokenizeExpr(expr string) []string {
	var toks []string
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '_' || unicode.IsLetter(rune(c)):
			j := i
			for j < len(expr) && (expr[j] == '_' || unicode.IsLetter(rune(expr[j])) || unicode.IsDigit(rune(expr[j]))) {
				j++
			}
			toks = append(toks, expr[i:j])
			i = j
		case unicode.IsDigit(rune(c)):
			j := i
			for j < len(expr) && (unicode.IsDigit(rune(expr[j])) || expr[j] == 'x' || expr[j] == 'X' ||
				('a' <= expr[j] && expr[j] <= 'f') || ('A' <= expr[j] && expr[j] <= 'F') ||
				expr[j] == 'L' || expr[j] == 'U' || expr[j] == 'l' || expr[j] == 'u') {
				j++
			}
			toks = append(toks, strings.TrimRight(expr[i:j], "LUlu"))
			i = j
		default:
			matched := false
			for _, op := range []string{"&&", "||", "==", "!=", "<=", ">="} {
				if strings.HasPrefix(expr[i:], op) {
					toks = append(toks, op)
					i += 2
					matched = true
					break
				}
			}
			if !matched {
				toks = append(toks, string(c))
				i++
			}
		}
	}
	return toks
}
