// expr.go - Unveraenderliche Ausdrucksknoten des Relay-IR
// Hauptfunktionen: Var, Const, CallOp, CallFunc, TupleOf, Composite
package relay

// Expr is an immutable expression node. Rewrites never mutate a node in
// place; they build replacement nodes bottom-up so that shared subtrees
// referenced from other call sites stay valid.
type Expr interface {
	// Checked returns the statically known type of the expression.
	// Every node entering the legalization pipeline is fully typed.
	Checked() Type
	isExpr()
}

// Var is a named function input.
type Var struct {
	Name string
	T    *TensorType
}

func (*Var) isExpr()         {}
func (v *Var) Checked() Type { return v.T }

// NewVar creates a typed variable.
func NewVar(name string, t *TensorType) *Var {
	return &Var{Name: name, T: t}
}

// Constant holds tensor data inline. Data is the flat backing slice in
// row-major order ([]int8, []uint8, []int16, []int32 or []float32,
// matching T.DType).
type Constant struct {
	Data any
	T    *TensorType
}

func (*Constant) isExpr()         {}
func (c *Constant) Checked() Type { return c.T }

// Const creates a constant from a backing slice and its tensor type.
func Const(data any, t *TensorType) *Constant {
	return &Constant{Data: data, T: t}
}

// Op is a reference to a named primitive operator. It only ever appears
// as the target of a Call and carries no type of its own.
type Op struct {
	Name string
}

func (*Op) isExpr()         {}
func (o *Op) Checked() Type { return nil }

// Call applies an operator (an *Op) or a composite function (a
// *Function) to an ordered argument list. Attrs is the operator's typed
// attribute struct, nil when the operator has none.
type Call struct {
	Op    Expr
	Args  []Expr
	Attrs any
	T     Type
}

func (*Call) isExpr()         {}
func (c *Call) Checked() Type { return c.T }

// OpName returns the primitive operator name, or "" when the call
// targets a composite function.
func (c *Call) OpName() string {
	if op, ok := c.Op.(*Op); ok {
		return op.Name
	}
	return ""
}

// CompositeName returns the composite marker of the called function, or
// "" when the call does not target a composite function.
func (c *Call) CompositeName() string {
	if fn, ok := c.Op.(*Function); ok {
		return fn.Attrs[CompositeAttr]
	}
	return ""
}

// CallOp builds a call to a named primitive operator.
func CallOp(name string, args []Expr, attrs any, t Type) *Call {
	return &Call{Op: &Op{Name: name}, Args: args, Attrs: attrs, T: t}
}

// CallFunc builds a call to a composite function. The result type is
// the function body's checked type.
func CallFunc(fn *Function, args ...Expr) *Call {
	return &Call{Op: fn, Args: args, T: fn.Body.Checked()}
}

// Tuple groups expressions, e.g. the sections produced by a split.
type Tuple struct {
	Fields []Expr
}

func (*Tuple) isExpr() {}

func (t *Tuple) Checked() Type {
	fields := make([]Type, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = f.Checked()
	}
	return &TupleType{Fields: fields}
}

// TupleOf creates a tuple from the given fields.
func TupleOf(fields ...Expr) *Tuple {
	return &Tuple{Fields: fields}
}

// CompositeAttr is the function attribute the partitioner uses to tag a
// function as a recognized fusion of one operator family.
const CompositeAttr = "Composite"

// Function is a function value: parameters, a body and a string
// attribute map. Partitioned composite subgraphs are functions whose
// attribute map carries a Composite marker.
type Function struct {
	Params []*Var
	Body   Expr
	Attrs  map[string]string
}

func (*Function) isExpr()         {}
func (f *Function) Checked() Type { return f.Body.Checked() }

// Composite wraps a body into a function tagged with the given
// composite name.
func Composite(name string, params []*Var, body Expr) *Function {
	return &Function{
		Params: params,
		Body:   body,
		Attrs:  map[string]string{CompositeAttr: name},
	}
}

// WithBody returns a copy of the function with a new body. The
// parameter list and attributes are shared; both are read-only after
// construction.
func (f *Function) WithBody(body Expr) *Function {
	return &Function{Params: f.Params, Body: body, Attrs: f.Attrs}
}
