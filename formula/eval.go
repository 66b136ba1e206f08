package formula

import "math"

// Scope resolves identifiers to values.
type Scope interface {
	Lookup(name string) (float64, bool)
}

// Map is the simplest Scope.
type Map map[string]float64

// Lookup implements Scope.
func (m Map) Lookup(name string) (float64, bool) {
	v, ok := m[name]
	return v, ok
}

// Chain resolves a name in the first scope that defines it. Parameter
// resolution passes the innermost scope first so that local names shadow
// outer ones.
type Chain []Scope

// Lookup implements Scope.
func (c Chain) Lookup(name string) (float64, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}

	return 0, false
}

// Eval evaluates e against s. A nil scope only resolves the constants.
func (e *Expr) Eval(s Scope) (float64, error) {
	if s == nil {
		s = Map(nil)
	}

	return e.root.eval(s)
}

// Eval parses and evaluates src in one step.
func Eval(src string, s Scope) (float64, error) {
	e, err := Parse(src)
	if err != nil {
		return 0, err
	}

	return e.Eval(s)
}

func (n numberNode) eval(Scope) (float64, error) { return n.v, nil }

func (n identNode) eval(s Scope) (float64, error) {
	if v, ok := s.Lookup(n.name); ok {
		return v, nil
	}
	if v, ok := constants[n.name]; ok {
		return v, nil
	}

	return 0, &MissingSymbolError{Name: n.name, Pos: n.pos}
}

func (n unaryNode) eval(s Scope) (float64, error) {
	x, err := n.x.eval(s)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "-":
		return -x, nil
	case "not":
		return boolean(!truthy(x)), nil
	}

	return x, nil
}

func (n binaryNode) eval(s Scope) (float64, error) {
	l, err := n.l.eval(s)
	if err != nil {
		return 0, err
	}
	// Short-circuit like the boolean operators of most scripting languages:
	// the result is the deciding operand, not a coerced 0/1.
	switch n.op {
	case "and":
		if !truthy(l) {
			return l, nil
		}
		return n.r.eval(s)
	case "or":
		if truthy(l) {
			return l, nil
		}
		return n.r.eval(s)
	}
	r, err := n.r.eval(s)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return math.NaN(), nil
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return math.NaN(), nil
		}
		m := math.Mod(l, r)
		// The result takes the sign of the divisor.
		if m != 0 && (m < 0) != (r < 0) {
			m += r
		}
		return m, nil
	case "**":
		return math.Pow(l, r), nil
	case "<":
		return boolean(l < r), nil
	case "<=":
		return boolean(l <= r), nil
	case ">":
		return boolean(l > r), nil
	case ">=":
		return boolean(l >= r), nil
	case "==":
		return boolean(l == r), nil
	case "!=":
		return boolean(l != r), nil
	}

	return 0, &SyntaxError{Pos: n.pos, Msg: "unknown operator " + n.op}
}

func (n condNode) eval(s Scope) (float64, error) {
	c, err := n.cond.eval(s)
	if err != nil {
		return 0, err
	}
	if truthy(c) {
		return n.then.eval(s)
	}

	return n.otherwise.eval(s)
}

func (n callNode) eval(s Scope) (float64, error) {
	args := make([]float64, len(n.args))
	var err error
	for i, a := range n.args {
		if args[i], err = a.eval(s); err != nil {
			return 0, err
		}
	}

	return n.fn.call(args), nil
}

// truthy treats NaN as false.
func truthy(x float64) bool { return x != 0 && !math.IsNaN(x) }

func boolean(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
