package driver

import (
	"fmt"
	"strings"

	"github.com/kristofer/kaleidoscope/pkg/ast"
)

// dumpTopLevel renders one top-level AST node as an s-expression-ish
// string for the -p stage. ast nodes carry no printing logic of their
// own (see pkg/ast's package doc), so this lives here instead.
func dumpTopLevel(node ast.TopLevel) string {
	switch n := node.(type) {
	case *ast.ExternDecl:
		return fmt.Sprintf("(extern %s)", dumpProto(n.Proto))
	case *ast.Function:
		if n.IsAnonymous() {
			return fmt.Sprintf("(toplevel %s)", dumpExpr(n.Body))
		}
		return fmt.Sprintf("(def %s %s)", dumpProto(n.Proto), dumpExpr(n.Body))
	default:
		return fmt.Sprintf("(unknown %T)", node)
	}
}

func dumpProto(p *ast.Prototype) string {
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(p.Args, " "))
}

func dumpExpr(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.NumberExpr:
		return fmt.Sprintf("%v", n.Value)
	case *ast.VariableExpr:
		return n.Name
	case *ast.UnaryExpr:
		return fmt.Sprintf("(%s %s)", n.Op, dumpExpr(n.Operand))
	case *ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", n.Op, dumpExpr(n.LHS), dumpExpr(n.RHS))
	case *ast.CallExpr:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = dumpExpr(a)
		}
		return fmt.Sprintf("(call %s %s)", n.Callee, strings.Join(args, " "))
	case *ast.IfExpr:
		return fmt.Sprintf("(if %s %s %s)", dumpExpr(n.Cond), dumpExpr(n.Then), dumpExpr(n.Else))
	case *ast.LoopExpr:
		return fmt.Sprintf("(for %s = %s, %s, %s in %s)",
			n.Var, dumpExpr(n.Start), dumpExpr(n.End), dumpExpr(n.Step), dumpExpr(n.Body))
	default:
		return fmt.Sprintf("(unknown %T)", e)
	}
}
