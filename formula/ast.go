package formula

// node is one element of a parsed expression tree.
type node interface {
	eval(s Scope) (float64, error)
	symbols(out map[string]struct{})
}

type numberNode struct{ v float64 }

type identNode struct {
	name string
	pos  int
}

type unaryNode struct {
	op string // "-", "+", "not"
	x  node
}

type binaryNode struct {
	op   string
	l, r node
	pos  int
}

// condNode is `then if cond else otherwise`.
type condNode struct {
	cond, then, otherwise node
}

type callNode struct {
	name string
	fn   function
	args []node
	pos  int
}

func (n numberNode) symbols(map[string]struct{}) {}

func (n identNode) symbols(out map[string]struct{}) { out[n.name] = struct{}{} }

func (n unaryNode) symbols(out map[string]struct{}) { n.x.symbols(out) }

func (n binaryNode) symbols(out map[string]struct{}) {
	n.l.symbols(out)
	n.r.symbols(out)
}

func (n condNode) symbols(out map[string]struct{}) {
	n.cond.symbols(out)
	n.then.symbols(out)
	n.otherwise.symbols(out)
}

func (n callNode) symbols(out map[string]struct{}) {
	for _, a := range n.args {
		a.symbols(out)
	}
}
