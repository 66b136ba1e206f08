package formula

import (
	"fmt"
	"sort"
)

var keywords = map[string]struct{}{
	"if": {}, "else": {}, "and": {}, "or": {}, "not": {},
}

var comparisons = map[string]struct{}{
	"<": {}, "<=": {}, ">": {}, ">=": {}, "==": {}, "!=": {},
}

// Expr is a parsed, reusable formula.
type Expr struct {
	src  string
	root node
}

// Parse compiles src into an Expr.
//
// Errors:
//   - *SyntaxError for malformed input (including empty text).
//   - ErrUnknownFunction / ErrArity for bad calls, wrapped with position.
func Parse(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}
	root, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}

	return &Expr{src: src, root: root}, nil
}

// MustParse is Parse that panics on error. Intended for tests and constants.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}

	return e
}

// String returns the source text.
func (e *Expr) String() string { return e.src }

// Symbols returns the sorted, de-duplicated identifiers referenced by the
// expression. Function names are not included; constant names (pi, e) are,
// since a scope may shadow them.
func (e *Expr) Symbols() []string {
	set := make(map[string]struct{})
	e.root.symbols(set)
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)

	return out
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}

	return t
}

func (p *parser) isKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == word
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}

	return false
}

// expr := or ['if' or 'else' expr]
func (p *parser) expr() (node, error) {
	then, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("if") {
		return then, nil
	}
	p.next()
	cond, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("else") {
		t := p.peek()
		return nil, &SyntaxError{Pos: t.pos, Msg: "expected 'else'"}
	}
	p.next()
	otherwise, err := p.expr()
	if err != nil {
		return nil, err
	}

	return condNode{cond: cond, then: then, otherwise: otherwise}, nil
}

func (p *parser) or() (node, error) {
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
		l = binaryNode{op: "or", l: l, r: r, pos: t.pos}
	}

	return l, nil
}

func (p *parser) and() (node, error) {
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
		l = binaryNode{op: "and", l: l, r: r, pos: t.pos}
	}

	return l, nil
}

func (p *parser) not() (node, error) {
	if p.isKeyword("not") {
		p.next()
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "not", x: x}, nil
	}

	return p.comparison()
}

func (p *parser) comparison() (node, error) {
	l, err := p.additive()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp {
		if _, ok := comparisons[t.text]; ok {
			p.next()
			r, err := p.additive()
			if err != nil {
				return nil, err
			}
			l = binaryNode{op: t.text, l: l, r: r, pos: t.pos}
		}
	}

	return l, nil
}

func (p *parser) additive() (node, error) {
	l, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		t := p.next()
		r, err := p.term()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: t.text, l: l, r: r, pos: t.pos}
	}

	return l, nil
}

func (p *parser) term() (node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/", "%") {
		t := p.next()
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: t.text, l: l, r: r, pos: t.pos}
	}

	return l, nil
}

// unary binds looser than power, so -2**2 == -4.
func (p *parser) unary() (node, error) {
	if p.isOp("+", "-") {
		t := p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: t.text, x: x}, nil
	}

	return p.power()
}

// power is right-associative: 2**3**2 == 2**9.
func (p *parser) power() (node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.isOp("**", "^") {
		t := p.next()
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: "**", l: base, r: exp, pos: t.pos}, nil
	}

	return base, nil
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numberNode{v: t.num}, nil
	case tokLParen:
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, &SyntaxError{Pos: c.pos, Msg: "expected ')'"}
		}
		return x, nil
	case tokIdent:
		if _, ok := keywords[t.text]; ok {
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected keyword %q", t.text)}
		}
		if p.peek().kind == tokLParen {
			return p.call(t)
		}
		return identNode{name: t.text, pos: t.pos}, nil
	case tokEOF:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected end of expression"}
	}

	return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
}

func (p *parser) call(name token) (node, error) {
	fn, ok := builtins[name.text]
	if !ok {
		return nil, fmt.Errorf("%w %q at offset %d", ErrUnknownFunction, name.text, name.pos)
	}
	p.next() // (
	var args []node
	if p.peek().kind != tokRParen {
		for {
			a, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if c := p.next(); c.kind != tokRParen {
		return nil, &SyntaxError{Pos: c.pos, Msg: "expected ')' or ','"}
	}
	if len(args) < fn.minArgs || (fn.maxArgs != variadic && len(args) > fn.maxArgs) {
		return nil, fmt.Errorf("%w: %s got %d at offset %d", ErrArity, name.text, len(args), name.pos)
	}

	return callNode{name: name.text, fn: fn, args: args, pos: name.pos}, nil
}
