// Package codegen is the IR Emitter: it lowers Kaleidoscope AST nodes
// (pkg/ast) into LLVM IR against the current module owned by a
// pkg/jit.Manager, using tinygo.org/x/go-llvm as the concrete IR
// builder. Every codegen decision here — what gets an error versus
// what is a fatal, process-aborting condition, the exact shape of
// conditional and loop lowering, which bugs are load-bearing quirks of
// the reference implementation rather than defects — follows the
// original Kaleidoscope builder one to one; see DESIGN.md for the
// specific Open Questions this preserves rather than "fixes".
package codegen

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/kristofer/kaleidoscope/pkg/ast"
	"github.com/kristofer/kaleidoscope/pkg/jit"
)

// Emitter lowers top-level AST nodes one at a time against a single
// Manager. It keeps no state of its own beyond the current function's
// named-value bindings (Context), which it clears at function
// boundaries.
type Emitter struct {
	mgr *jit.Manager
	ctx *Context
}

// New creates an Emitter targeting mgr.
func New(mgr *jit.Manager) *Emitter {
	return &Emitter{mgr: mgr, ctx: NewContext()}
}

// Codegen lowers one top-level node. The bool result is "runnable":
// true exactly when node is the anonymous wrapper function around a
// bare top-level expression, i.e. when the driver should immediately
// pass the result to the JIT engine's Run.
func (e *Emitter) Codegen(node ast.TopLevel) (llvm.Value, bool, error) {
	switch n := node.(type) {
	case *ast.ExternDecl:
		fn, err := e.lowerPrototype(n.Proto)
		if err != nil {
			return llvm.Value{}, false, wrapEmitError(err, fmt.Sprintf("extern %s", n.Proto.Name))
		}
		return fn, false, nil
	case *ast.Function:
		return e.lowerFunction(n)
	default:
		return llvm.Value{}, false, fmt.Errorf("codegen: unknown top-level node %T", node)
	}
}

// lowerPrototype declares or reuses a function matching proto,
// rejecting an arity mismatch or an attempt to redefine an existing
// body. A binary/unary operator prototype's precedence was already
// registered by the parser, before this ever runs.
func (e *Emitter) lowerPrototype(proto *ast.Prototype) (llvm.Value, error) {
	if fn, hasBody, found := e.mgr.Lookup(proto.Name); found {
		arity, _ := e.mgr.Arity(proto.Name)
		if arity != len(proto.Args) {
			return llvm.Value{}, fmt.Errorf("redefinition of function %q with different number of args", proto.Name)
		}
		if hasBody {
			return llvm.Value{}, fmt.Errorf("redefinition of function %q", proto.Name)
		}
		e.nameParams(fn, proto.Args)
		return fn, nil
	}

	fn := e.mgr.DeclareFunction(proto.Name, len(proto.Args))
	e.nameParams(fn, proto.Args)
	return fn, nil
}

func (e *Emitter) nameParams(fn llvm.Value, args []string) {
	for i, name := range args {
		fn.Param(i).SetName(name)
	}
}

// lowerFunction lowers a full function definition: prototype, entry
// block, parameter bindings, body, return, verification, and the
// per-function optimization pipeline. On any failure the
// partially-built function is erased from the module rather than left
// half-built, and the error propagates with the function's name
// attached.
func (e *Emitter) lowerFunction(fn *ast.Function) (llvm.Value, bool, error) {
	e.ctx.Clear()

	fv, err := e.lowerPrototype(fn.Proto)
	if err != nil {
		return llvm.Value{}, false, wrapEmitError(err, fmt.Sprintf("function %s", fn.Proto.Name))
	}

	entry := llvm.AddBasicBlock(fv, "entry")
	e.mgr.Builder().SetInsertPointAtEnd(entry)

	for i, name := range fn.Proto.Args {
		e.ctx.Bind(name, fv.Param(i))
	}

	bodyVal, err := e.lowerExpr(fn.Body)
	if err != nil {
		fv.EraseFromParentAsFunction()
		return llvm.Value{}, false, wrapEmitError(err, fmt.Sprintf("function %s", fn.Proto.Name))
	}

	e.mgr.Builder().CreateRet(bodyVal)

	llvm.VerifyFunction(fv, llvm.AbortProcessAction)
	e.mgr.PassManager().RunFunc(fv)

	if !fn.IsAnonymous() {
		e.mgr.MarkBody(fn.Proto.Name)
	}
	e.ctx.Clear()
	return fv, fn.IsAnonymous(), nil
}

func (e *Emitter) lowerExpr(expr ast.Expr) (llvm.Value, error) {
	switch n := expr.(type) {
	case *ast.NumberExpr:
		return llvm.ConstFloat(e.mgr.DoubleType(), n.Value), nil
	case *ast.VariableExpr:
		v, ok := e.ctx.Lookup(n.Name)
		if !ok {
			return llvm.Value{}, fmt.Errorf("unknown variable name %q", n.Name)
		}
		return v, nil
	case *ast.BinaryExpr:
		return e.lowerBinary(n)
	case *ast.UnaryExpr:
		return e.lowerUnary(n)
	case *ast.CallExpr:
		return e.lowerCall(n)
	case *ast.IfExpr:
		return e.lowerIf(n)
	case *ast.LoopExpr:
		return e.lowerLoop(n)
	default:
		return llvm.Value{}, fmt.Errorf("codegen: unknown expression %T", expr)
	}
}

func (e *Emitter) lowerBinary(n *ast.BinaryExpr) (llvm.Value, error) {
	lhs, err := e.lowerExpr(n.LHS)
	if err != nil {
		return llvm.Value{}, err
	}
	rhs, err := e.lowerExpr(n.RHS)
	if err != nil {
		return llvm.Value{}, err
	}

	b := e.mgr.Builder()
	switch n.Op {
	case "+":
		return b.CreateFAdd(lhs, rhs, "addtmp"), nil
	case "-":
		return b.CreateFSub(lhs, rhs, "subtmp"), nil
	case "*":
		return b.CreateFMul(lhs, rhs, "multmp"), nil
	case "<":
		cmp := b.CreateFCmp(llvm.FloatOLT, lhs, rhs, "cmptmp")
		return b.CreateUIToFP(cmp, e.mgr.DoubleType(), "booltmp"), nil
	default:
		name := "binary" + n.Op
		fn, _, found := e.mgr.Lookup(name)
		if !found {
			return llvm.Value{}, fmt.Errorf("binary operator %q not found", n.Op)
		}
		return b.CreateCall(fn, []llvm.Value{lhs, rhs}, "binop"), nil
	}
}

// lowerUnary calls the user-defined "unary"+op function. The original
// reference implementation's equivalent path returns a "runnable"
// flag of true here, a value that (per Open Question #1) looks like a
// copy-paste artifact rather than intentional behavior: no caller
// above the top-level Function ever inspects an expression-level
// runnable flag, only the function's own name-is-empty check matters
// for whether the driver treats a definition as immediately
// executable. That makes the stray flag unobservable, so there is
// nothing here to preserve it as — lowerExpr simply has no
// expression-level runnable result to carry. See DESIGN.md.
func (e *Emitter) lowerUnary(n *ast.UnaryExpr) (llvm.Value, error) {
	operand, err := e.lowerExpr(n.Operand)
	if err != nil {
		return llvm.Value{}, err
	}
	name := "unary" + n.Op
	fn, _, found := e.mgr.Lookup(name)
	if !found {
		return llvm.Value{}, fmt.Errorf("unary operator %q not found", n.Op)
	}
	return e.mgr.Builder().CreateCall(fn, []llvm.Value{operand}, "unop"), nil
}

func (e *Emitter) lowerCall(n *ast.CallExpr) (llvm.Value, error) {
	fn, _, found := e.mgr.Lookup(n.Callee)
	if !found {
		return llvm.Value{}, fmt.Errorf("unknown function referenced: %q", n.Callee)
	}
	if arity, ok := e.mgr.Arity(n.Callee); ok && arity != len(n.Args) {
		return llvm.Value{}, fmt.Errorf("incorrect number of arguments passed to %q", n.Callee)
	}

	args := make([]llvm.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.lowerExpr(a)
		if err != nil {
			return llvm.Value{}, err
		}
		args[i] = v
	}
	return e.mgr.Builder().CreateCall(fn, args, "calltmp"), nil
}

// lowerIf lowers `if cond then t else f` into a three-block diamond
// joined by a phi node. The phi's incoming blocks are the blocks the
// builder is positioned in at the *end* of each arm, not the arm's
// entry block — an arm may itself contain nested control flow that
// appends further blocks before the branch back to the merge block.
func (e *Emitter) lowerIf(n *ast.IfExpr) (llvm.Value, error) {
	b := e.mgr.Builder()
	condVal, err := e.lowerExpr(n.Cond)
	if err != nil {
		return llvm.Value{}, err
	}
	zero := llvm.ConstFloat(e.mgr.DoubleType(), 0.0)
	cond := b.CreateFCmp(llvm.FloatONE, condVal, zero, "ifcond")

	fn := b.GetInsertBlock().Parent()
	thenBlock := llvm.AddBasicBlock(fn, "then")
	elseBlock := llvm.AddBasicBlock(fn, "else")
	mergeBlock := llvm.AddBasicBlock(fn, "ifcont")
	b.CreateCondBr(cond, thenBlock, elseBlock)

	b.SetInsertPointAtEnd(thenBlock)
	thenVal, err := e.lowerExpr(n.Then)
	if err != nil {
		return llvm.Value{}, err
	}
	b.CreateBr(mergeBlock)
	thenEnd := b.GetInsertBlock()

	b.SetInsertPointAtEnd(elseBlock)
	elseVal, err := e.lowerExpr(n.Else)
	if err != nil {
		return llvm.Value{}, err
	}
	b.CreateBr(mergeBlock)
	elseEnd := b.GetInsertBlock()

	b.SetInsertPointAtEnd(mergeBlock)
	phi := b.CreatePHI(e.mgr.DoubleType(), "iftmp")
	phi.AddIncoming([]llvm.Value{thenVal, elseVal}, []llvm.BasicBlock{thenEnd, elseEnd})
	return phi, nil
}

// lowerLoop lowers `for var = start, end[, step] in body`. The
// continuation test uses the value of the end expression itself as the
// per-iteration predicate (`end != 0.0`), rather than comparing the
// induction variable against it — that is Open Question #2, preserved
// unchanged rather than rewritten into the comparison a reader would
// expect. The end expression is lowered inside the preloop block, so it
// is re-evaluated on every trip, with the current value of the
// induction variable, before the body runs.
// for loops always evaluate to 0.0, discarding whatever the body
// computed on every iteration.
func (e *Emitter) lowerLoop(n *ast.LoopExpr) (llvm.Value, error) {
	b := e.mgr.Builder()
	startVal, err := e.lowerExpr(n.Start)
	if err != nil {
		return llvm.Value{}, err
	}

	preheader := b.GetInsertBlock()
	fn := preheader.Parent()

	preloop := llvm.AddBasicBlock(fn, "preloop")
	b.CreateBr(preloop)
	b.SetInsertPointAtEnd(preloop)

	phi := b.CreatePHI(e.mgr.DoubleType(), n.Var)
	phi.AddIncoming([]llvm.Value{startVal}, []llvm.BasicBlock{preheader})

	oldVal, hadOld := e.ctx.Lookup(n.Var)
	e.ctx.Bind(n.Var, phi)

	endVal, err := e.lowerExpr(n.End)
	if err != nil {
		return llvm.Value{}, err
	}
	zero := llvm.ConstFloat(e.mgr.DoubleType(), 0.0)
	endCond := b.CreateFCmp(llvm.FloatONE, endVal, zero, "loopcond")

	afterBlock := llvm.AddBasicBlock(fn, "afterloop")
	loopBlock := llvm.AddBasicBlock(fn, "loop")
	b.CreateCondBr(endCond, loopBlock, afterBlock)

	b.SetInsertPointAtEnd(loopBlock)
	if _, err := e.lowerExpr(n.Body); err != nil {
		return llvm.Value{}, err
	}

	stepVal, err := e.lowerExpr(n.Step)
	if err != nil {
		return llvm.Value{}, err
	}
	next := b.CreateFAdd(phi, stepVal, "nextvar")
	loopEnd := b.GetInsertBlock()
	phi.AddIncoming([]llvm.Value{next}, []llvm.BasicBlock{loopEnd})

	b.CreateBr(preloop)
	b.SetInsertPointAtEnd(afterBlock)

	if hadOld {
		e.ctx.Bind(n.Var, oldVal)
	} else {
		e.ctx.Unbind(n.Var)
	}

	return zero, nil
}
