package expr

// Node is an expression in the restricted grammar.
type Node interface {
	Pos() int
}

type (
	// Name is a bare identifier.
	Name struct {
		ID string
		At int
	}
	// Literal is a number, string, True/False or None.
	Literal struct {
		Value any
		At    int
	}
	// ListExpr is a list or tuple display.
	ListExpr struct {
		Elems []Node
		Tuple bool
		At    int
	}
	// Attr is X.Name.
	Attr struct {
		X    Node
		Name string
		At   int
	}
	// Index is X[Key]; Key may be a *SliceExpr.
	Index struct {
		X   Node
		Key Node
		At  int
	}
	// SliceExpr is lo:hi:step inside an index; parts may be nil.
	SliceExpr struct {
		Lo, Hi, Step Node
		At           int
	}
	// Call is Fn(args..., name=value...).
	Call struct {
		Fn     Node
		Args   []Node
		Kwargs []Kwarg
		At     int
	}
	// Unary is one of - + ~ not.
	Unary struct {
		Op string
		X  Node
		At int
	}
	// Binary covers arithmetic and the element-wise & | ^ operators.
	Binary struct {
		Op   string
		L, R Node
		At   int
	}
	// Compare is a single comparison; chains are rejected at parse time.
	Compare struct {
		Op   string
		L, R Node
		At   int
	}
	// BoolOp is short-circuit and/or.
	BoolOp struct {
		Op   string
		L, R Node
		At   int
	}
)

// Kwarg is a keyword argument in a call.
type Kwarg struct {
	Name  string
	Value Node
}

// Stmt is one line of a program: an expression, or Target = Value.
type Stmt struct {
	Target string
	Value  Node
}

func (n *Name) Pos() int      { return n.At }
func (n *Literal) Pos() int   { return n.At }
func (n *ListExpr) Pos() int  { return n.At }
func (n *Attr) Pos() int      { return n.At }
func (n *Index) Pos() int     { return n.At }
func (n *SliceExpr) Pos() int { return n.At }
func (n *Call) Pos() int      { return n.At }
func (n *Unary) Pos() int     { return n.At }
func (n *Binary) Pos() int    { return n.At }
func (n *Compare) Pos() int   { return n.At }
func (n *BoolOp) Pos() int    { return n.At }
