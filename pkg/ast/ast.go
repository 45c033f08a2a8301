// Package ast defines the Abstract Syntax Tree nodes for Kaleidoscope.
//
// The AST is pure data: no node knows how to lower itself, print
// itself, or talk to the lexer/parser that built it. pkg/codegen is
// the only consumer that interprets these nodes.
package ast

// Expr is any Kaleidoscope expression node.
type Expr interface {
	exprNode()
}

// NumberExpr is a floating point literal, e.g. `3.14`.
type NumberExpr struct {
	Value float64
}

func (*NumberExpr) exprNode() {}

// VariableExpr is a reference to a named value: a function parameter
// or a loop induction variable (Kaleidoscope has no other bindings).
type VariableExpr struct {
	Name string
}

func (*VariableExpr) exprNode() {}

// UnaryExpr applies a user-defined unary operator to its operand.
type UnaryExpr struct {
	Op      string
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// BinaryExpr applies an operator — built-in (+, -, *, <) or
// user-defined — to two operands.
type BinaryExpr struct {
	Op       string
	LHS, RHS Expr
}

func (*BinaryExpr) exprNode() {}

// CallExpr calls a named function with a fixed argument list.
type CallExpr struct {
	Callee string
	Args   []Expr
}

func (*CallExpr) exprNode() {}

// IfExpr is `if Cond then Then else Else`. Both arms are mandatory and
// the expression always yields a value via a phi node.
type IfExpr struct {
	Cond, Then, Else Expr
}

func (*IfExpr) exprNode() {}

// LoopExpr is `for Var = Start, End[, Step] in Body`. Step defaults to
// the literal 1.0 when the source omits it. The loop always evaluates
// to 0.0, discarding the body's value on every iteration.
type LoopExpr struct {
	Var                     string
	Start, End, Step, Body Expr
}

func (*LoopExpr) exprNode() {}

// Prototype is a function signature: a name and its parameter names.
// Kaleidoscope has exactly one scalar type (double), so only the
// parameter count and names are tracked.
//
// A Prototype whose Name is empty denotes the anonymous top-level
// expression the parser synthesizes for every bare expression typed
// at the REPL — that emptiness is what makes the resulting function
// immediately runnable (see Function.IsAnonymous).
type Prototype struct {
	Name string
	Args []string

	// IsOperator is true when this prototype was introduced by a
	// `binary`/`unary` declaration rather than a plain function name.
	IsOperator bool
	// IsUnary distinguishes `unary Op` from `binary Op Prec` when
	// IsOperator is true.
	IsUnary bool
	// Precedence is the user-assigned precedence for a `binary`
	// declaration; meaningless when IsUnary or !IsOperator.
	Precedence int
}

// OperatorName returns the bare operator symbol this prototype
// declares (e.g. "+" for `binary+ 10 (a b) ...`), and false if this
// prototype does not declare an operator.
func (p *Prototype) OperatorName() (string, bool) {
	if !p.IsOperator || len(p.Name) == 0 {
		return "", false
	}
	prefixLen := len("binary")
	if p.IsUnary {
		prefixLen = len("unary")
	}
	if len(p.Name) <= prefixLen {
		return "", false
	}
	return p.Name[prefixLen:], true
}

// TopLevel is a node that can appear at the top level of a program:
// an extern declaration or a function (including the REPL's anonymous
// wrapper function for a bare expression).
type TopLevel interface {
	topLevelNode()
}

// ExternDecl declares a function without defining it.
type ExternDecl struct {
	Proto *Prototype
}

func (*ExternDecl) topLevelNode() {}

// Function defines a function: a prototype plus its body expression.
type Function struct {
	Proto *Prototype
	Body  Expr
}

func (*Function) topLevelNode() {}

// IsAnonymous reports whether this is the anonymous wrapper function
// synthesized around a bare top-level expression.
func (f *Function) IsAnonymous() bool {
	return f.Proto.Name == ""
}
