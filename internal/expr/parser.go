package expr

import (
	"fmt"
	"strconv"
)

const (
	// MaxSourceLen caps the size of a generated expression or program.
	MaxSourceLen = 8192
	maxDepth     = 100
)

// SyntaxError reports where parsing stopped.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid syntax at offset %d: %s", e.Pos, e.Msg)
}

type parser struct {
	toks  []token
	i     int
	depth int
}

// Parse parses a single expression.
func Parse(src string) (Node, error) {
	stmts, err := ParseProgram(src)
	if err != nil {
		return nil, err
	}
	switch {
	case len(stmts) == 0:
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	case len(stmts) > 1:
		return nil, &SyntaxError{Pos: 0, Msg: "expected a single expression"}
	case stmts[0].Target != "":
		return nil, &SyntaxError{Pos: 0, Msg: "assignment is not allowed in a query"}
	}
	return stmts[0].Value, nil
}

// ParseProgram parses newline or ';' separated statements. A statement is
// an expression or a single-name assignment.
func ParseProgram(src string) ([]Stmt, error) {
	if len(src) > MaxSourceLen {
		return nil, &SyntaxError{Pos: MaxSourceLen, Msg: fmt.Sprintf("source longer than %d bytes", MaxSourceLen)}
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	var out []Stmt
	for {
		for p.peek().kind == tokNewline {
			p.next()
		}
		if p.peek().kind == tokEOF {
			return out, nil
		}
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
		if t := p.peek(); t.kind != tokNewline && t.kind != tokEOF {
			return nil, p.errorf(t, "unexpected %s", t)
		}
	}
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekAt(k int) token {
	if p.i+k < len(p.toks) {
		return p.toks[p.i+k]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

func (p *parser) isKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == word
}

func (p *parser) expectOp(text string) (token, error) {
	t := p.next()
	if t.kind != tokOp || t.text != text {
		return t, p.errorf(t, "expected %q, found %s", text, t)
	}
	return t, nil
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.errorf(p.peek(), "expression nested too deeply")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) statement() (Stmt, error) {
	if t := p.peek(); t.kind == tokIdent && p.peekAt(1).kind == tokOp && p.peekAt(1).text == "=" {
		if reservedWords[t.text] {
			return Stmt{}, p.errorf(t, "cannot assign to %s", t.text)
		}
		p.next()
		p.next()
		v, err := p.expr()
		if err != nil {
			return Stmt{}, err
		}
		return Stmt{Target: t.text, Value: v}, nil
	}
	v, err := p.expr()
	if err != nil {
		return Stmt{}, err
	}
	return Stmt{Value: v}, nil
}

var reservedWords = map[string]bool{
	"True": true, "False": true, "None": true, "and": true, "or": true,
	"not": true, "in": true, "is": true, "lambda": true, "if": true, "else": true,
	"for": true, "import": true, "from": true, "def": true, "class": true,
}

func (p *parser) expr() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	if p.isKeyword("lambda") {
		return nil, p.errorf(p.peek(), "lambda expressions are not supported")
	}
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("if") || p.isKeyword("for") {
		return nil, p.errorf(p.peek(), "%s expressions are not supported", p.peek().text)
	}
	return n, nil
}

func (p *parser) or() (Node, error) {
	l, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		t := p.next()
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		l = &BoolOp{Op: "or", L: l, R: r, At: t.pos}
	}
	return l, nil
}

func (p *parser) and() (Node, error) {
	l, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		t := p.next()
		r, err := p.not()
		if err != nil {
			return nil, err
		}
		l = &BoolOp{Op: "and", L: l, R: r, At: t.pos}
	}
	return l, nil
}

func (p *parser) not() (Node, error) {
	if p.isKeyword("not") {
		t := p.next()
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "not", X: x, At: t.pos}, nil
	}
	return p.comparison()
}

func (p *parser) compareOp() (string, bool) {
	t := p.peek()
	switch {
	case t.kind == tokOp:
		switch t.text {
		case "==", "!=", "<", "<=", ">", ">=":
			p.next()
			return t.text, true
		}
	case t.kind == tokIdent && t.text == "in":
		p.next()
		return "in", true
	case t.kind == tokIdent && t.text == "not" && p.peekAt(1).kind == tokIdent && p.peekAt(1).text == "in":
		p.next()
		p.next()
		return "not in", true
	case t.kind == tokIdent && t.text == "is":
		p.next()
		if p.isKeyword("not") {
			p.next()
			return "is not", true
		}
		return "is", true
	}
	return "", false
}

func (p *parser) comparison() (Node, error) {
	l, err := p.bitOr()
	if err != nil {
		return nil, err
	}
	at := p.peek().pos
	op, ok := p.compareOp()
	if !ok {
		return l, nil
	}
	r, err := p.bitOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); p.isChainedCompare() {
		return nil, p.errorf(t, "chained comparisons are not supported")
	}
	return &Compare{Op: op, L: l, R: r, At: at}, nil
}

func (p *parser) isChainedCompare() bool {
	t := p.peek()
	if t.kind == tokOp {
		switch t.text {
		case "==", "!=", "<", "<=", ">", ">=":
			return true
		}
	}
	return t.kind == tokIdent && (t.text == "in" || t.text == "is" || (t.text == "not" && p.peekAt(1).text == "in"))
}

// binaryLevel parses a left-associative chain of ops over sub.
func (p *parser) binaryLevel(sub func() (Node, error), ops ...string) (Node, error) {
	l, err := sub()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		matched := false
		if t.kind == tokOp {
			for _, op := range ops {
				if t.text == op {
					matched = true
					break
				}
			}
		}
		if !matched {
			return l, nil
		}
		p.next()
		r, err := sub()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: t.text, L: l, R: r, At: t.pos}
	}
}

func (p *parser) bitOr() (Node, error)  { return p.binaryLevel(p.bitXor, "|") }
func (p *parser) bitXor() (Node, error) { return p.binaryLevel(p.bitAnd, "^") }
func (p *parser) bitAnd() (Node, error) { return p.binaryLevel(p.arith, "&") }
func (p *parser) arith() (Node, error)  { return p.binaryLevel(p.term, "+", "-") }
func (p *parser) term() (Node, error)   { return p.binaryLevel(p.factor, "*", "/", "//", "%") }

func (p *parser) factor() (Node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+" || t.text == "~") {
		p.next()
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: t.text, X: x, At: t.pos}, nil
	}
	return p.power()
}

func (p *parser) power() (Node, error) {
	base, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if p.isOp("**") {
		t := p.next()
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		exp, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: "**", L: base, R: exp, At: t.pos}, nil
	}
	return base, nil
}

func (p *parser) postfix() (Node, error) {
	x, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return x, nil
		}
		switch t.text {
		case ".":
			p.next()
			name := p.next()
			if name.kind != tokIdent {
				return nil, p.errorf(name, "expected attribute name, found %s", name)
			}
			x = &Attr{X: x, Name: name.text, At: name.pos}
		case "(":
			p.next()
			call, err := p.callArgs(x, t.pos)
			if err != nil {
				return nil, err
			}
			x = call
		case "[":
			p.next()
			key, err := p.subscript()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectOp("]"); err != nil {
				return nil, err
			}
			x = &Index{X: x, Key: key, At: t.pos}
		default:
			return x, nil
		}
	}
}

func (p *parser) callArgs(fn Node, at int) (Node, error) {
	call := &Call{Fn: fn, At: at}
	for !p.isOp(")") {
		if p.isOp("*") || p.isOp("**") {
			return nil, p.errorf(p.peek(), "argument unpacking is not supported")
		}
		if t := p.peek(); t.kind == tokIdent && p.peekAt(1).kind == tokOp && p.peekAt(1).text == "=" {
			p.next()
			p.next()
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			for _, kw := range call.Kwargs {
				if kw.Name == t.text {
					return nil, p.errorf(t, "keyword argument repeated: %s", t.text)
				}
			}
			call.Kwargs = append(call.Kwargs, Kwarg{Name: t.text, Value: v})
		} else {
			if len(call.Kwargs) > 0 {
				return nil, p.errorf(p.peek(), "positional argument follows keyword argument")
			}
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, v)
		}
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	if _, err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *parser) subscript() (Node, error) {
	at := p.peek().pos
	var lo Node
	if !p.isOp(":") {
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if !p.isOp(":") {
			if p.isOp(",") {
				return nil, p.errorf(p.peek(), "multi-axis indexing is not supported")
			}
			return x, nil
		}
		lo = x
	}
	s := &SliceExpr{Lo: lo, At: at}
	p.next() // ':'
	if !p.isOp("]") && !p.isOp(":") {
		hi, err := p.expr()
		if err != nil {
			return nil, err
		}
		s.Hi = hi
	}
	if p.isOp(":") {
		p.next()
		if !p.isOp("]") {
			step, err := p.expr()
			if err != nil {
				return nil, err
			}
			s.Step = step
		}
	}
	return s, nil
}

func (p *parser) atom() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	t := p.next()
	switch t.kind {
	case tokIdent:
		switch t.text {
		case "True":
			return &Literal{Value: true, At: t.pos}, nil
		case "False":
			return &Literal{Value: false, At: t.pos}, nil
		case "None":
			return &Literal{Value: nil, At: t.pos}, nil
		}
		if reservedWords[t.text] {
			return nil, p.errorf(t, "unexpected keyword %s", t.text)
		}
		return &Name{ID: t.text, At: t.pos}, nil
	case tokInt:
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf(t, "integer literal out of range: %s", t.text)
		}
		return &Literal{Value: n, At: t.pos}, nil
	case tokFloat:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid float literal: %s", t.text)
		}
		return &Literal{Value: f, At: t.pos}, nil
	case tokString:
		s := t.str
		for p.peek().kind == tokString {
			s += p.next().str
		}
		return &Literal{Value: s, At: t.pos}, nil
	case tokOp:
		switch t.text {
		case "(":
			return p.parenthesized(t)
		case "[":
			elems, err := p.elements("]")
			if err != nil {
				return nil, err
			}
			return &ListExpr{Elems: elems, At: t.pos}, nil
		case "{":
			return nil, p.errorf(t, "dict and set displays are not supported")
		}
	}
	return nil, p.errorf(t, "unexpected %s", t)
}

func (p *parser) parenthesized(open token) (Node, error) {
	if p.isOp(")") {
		p.next()
		return &ListExpr{Tuple: true, At: open.pos}, nil
	}
	first, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.isOp(")") {
		p.next()
		return first, nil
	}
	if !p.isOp(",") {
		return nil, p.errorf(p.peek(), "expected ')' or ',', found %s", p.peek())
	}
	p.next()
	rest, err := p.elements(")")
	if err != nil {
		return nil, err
	}
	return &ListExpr{Elems: append([]Node{first}, rest...), Tuple: true, At: open.pos}, nil
}

// elements parses a comma-separated list up to and including close.
func (p *parser) elements(close string) ([]Node, error) {
	var out []Node
	for !p.isOp(close) {
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.isKeyword("for") {
			return nil, p.errorf(p.peek(), "comprehensions are not supported")
		}
		out = append(out, x)
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	if _, err := p.expectOp(close); err != nil {
		return nil, err
	}
	return out, nil
}
