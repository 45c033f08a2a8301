package codegen

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/kaleidoscope/pkg/ast"
	"github.com/kristofer/kaleidoscope/pkg/jit"
)

func newTestManager(t *testing.T) *jit.Manager {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	return jit.NewManager("codegen_test", l)
}

func TestCodegen_ExternDeclaration(t *testing.T) {
	mgr := newTestManager(t)
	e := New(mgr)

	fn, runnable, err := e.Codegen(&ast.ExternDecl{Proto: &ast.Prototype{Name: "sin", Args: []string{"x"}}})
	require.NoError(t, err)
	assert.False(t, runnable)
	assert.False(t, fn.IsNil())
}

func TestCodegen_SimpleFunctionIsNotRunnable(t *testing.T) {
	mgr := newTestManager(t)
	e := New(mgr)

	function := &ast.Function{
		Proto: &ast.Prototype{Name: "add", Args: []string{"a", "b"}},
		Body:  &ast.BinaryExpr{Op: "+", LHS: &ast.VariableExpr{Name: "a"}, RHS: &ast.VariableExpr{Name: "b"}},
	}
	fn, runnable, err := e.Codegen(function)
	require.NoError(t, err)
	assert.False(t, runnable)
	assert.False(t, fn.IsNil())
}

func TestCodegen_AnonymousTopLevelExpressionIsRunnable(t *testing.T) {
	mgr := newTestManager(t)
	e := New(mgr)

	function := &ast.Function{
		Proto: &ast.Prototype{},
		Body:  &ast.NumberExpr{Value: 42},
	}
	fn, runnable, err := e.Codegen(function)
	require.NoError(t, err)
	assert.True(t, runnable)
	assert.False(t, fn.IsNil())
}

func TestCodegen_UnknownVariableIsAnError(t *testing.T) {
	mgr := newTestManager(t)
	e := New(mgr)

	function := &ast.Function{
		Proto: &ast.Prototype{Name: "bad"},
		Body:  &ast.VariableExpr{Name: "nope"},
	}
	_, _, err := e.Codegen(function)
	assert.Error(t, err)
}

func TestCodegen_RedefinitionWithDifferentArityIsAnError(t *testing.T) {
	mgr := newTestManager(t)
	e := New(mgr)

	_, _, err := e.Codegen(&ast.ExternDecl{Proto: &ast.Prototype{Name: "f", Args: []string{"a"}}})
	require.NoError(t, err)

	_, _, err = e.Codegen(&ast.ExternDecl{Proto: &ast.Prototype{Name: "f", Args: []string{"a", "b"}}})
	assert.ErrorContains(t, err, "different number of args")
}

func TestCodegen_RedefinitionOfExistingBodyIsAnError(t *testing.T) {
	mgr := newTestManager(t)
	e := New(mgr)

	fn := &ast.Function{Proto: &ast.Prototype{Name: "f"}, Body: &ast.NumberExpr{Value: 1}}
	_, _, err := e.Codegen(fn)
	require.NoError(t, err)

	_, _, err = e.Codegen(fn)
	assert.ErrorContains(t, err, "redefinition of function")
}

func TestCodegen_IfAndLoopExpressions(t *testing.T) {
	mgr := newTestManager(t)
	e := New(mgr)

	ifFn := &ast.Function{
		Proto: &ast.Prototype{Name: "choose", Args: []string{"x"}},
		Body: &ast.IfExpr{
			Cond: &ast.VariableExpr{Name: "x"},
			Then: &ast.NumberExpr{Value: 1},
			Else: &ast.NumberExpr{Value: 2},
		},
	}
	_, _, err := e.Codegen(ifFn)
	require.NoError(t, err)

	loopFn := &ast.Function{
		Proto: &ast.Prototype{Name: "count", Args: []string{"n"}},
		Body: &ast.LoopExpr{
			Var:   "i",
			Start: &ast.NumberExpr{Value: 1},
			End:   &ast.VariableExpr{Name: "n"},
			Step:  &ast.NumberExpr{Value: 1},
			Body:  &ast.VariableExpr{Name: "i"},
		},
	}
	_, _, err = e.Codegen(loopFn)
	require.NoError(t, err)
}

func TestCodegen_UnknownFunctionCallIsAnError(t *testing.T) {
	mgr := newTestManager(t)
	e := New(mgr)

	fn := &ast.Function{
		Proto: &ast.Prototype{Name: "caller"},
		Body:  &ast.CallExpr{Callee: "nope", Args: nil},
	}
	_, _, err := e.Codegen(fn)
	assert.Error(t, err)
}
