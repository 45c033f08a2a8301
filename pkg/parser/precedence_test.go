package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/kaleidoscope/pkg/ast"
	"github.com/kristofer/kaleidoscope/pkg/lexer"
)

func mustParseExpr(t *testing.T, settings *Settings, src string) ast.Expr {
	t.Helper()
	toks, err := lexer.Tokenize(src + ";")
	require.NoError(t, err)
	results, remainder, err := New(settings, toks).Parse()
	require.NoError(t, err)
	require.Empty(t, remainder)
	require.Len(t, results, 1)
	fn, ok := results[0].(*ast.Function)
	require.True(t, ok)
	return fn.Body
}

func TestPrecedence_MulBindsTighterThanAdd(t *testing.T) {
	body := mustParseExpr(t, NewSettings(), "1 + 2 * 3")
	bin, ok := body.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)

	rhs, ok := bin.RHS.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", rhs.Op)
}

func TestPrecedence_SameLevelIsLeftAssociative(t *testing.T) {
	body := mustParseExpr(t, NewSettings(), "1 - 2 - 3")
	top, ok := body.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "-", top.Op)

	lhs, ok := top.LHS.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "-", lhs.Op)
	assert.IsType(t, &ast.NumberExpr{}, top.RHS)
}

func TestPrecedence_UserBinaryOperatorRegisteredBeforeBody(t *testing.T) {
	settings := NewSettings()
	toks, err := lexer.Tokenize("def binary| 5 (a b) a + b;")
	require.NoError(t, err)
	results, remainder, err := New(settings, toks).Parse()
	require.NoError(t, err)
	require.Empty(t, remainder)
	require.Len(t, results, 1)

	fn := results[0].(*ast.Function)
	assert.Equal(t, "binary|", fn.Proto.Name)
	assert.True(t, fn.Proto.IsOperator)
	assert.False(t, fn.Proto.IsUnary)
	assert.Equal(t, 5, fn.Proto.Precedence)

	prec, ok := settings.Precedence("|")
	require.True(t, ok)
	assert.Equal(t, 5, prec)
}

func TestPrecedence_UserBinaryOperatorUsableImmediatelyAfter(t *testing.T) {
	settings := NewSettings()
	toks, err := lexer.Tokenize("def binary| 5 (a b) a + b; 1 | 2 * 3;")
	require.NoError(t, err)
	results, remainder, err := New(settings, toks).Parse()
	require.NoError(t, err)
	require.Empty(t, remainder)
	require.Len(t, results, 2)

	body := results[1].(*ast.Function).Body
	top, ok := body.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "|", top.Op)

	rhs, ok := top.RHS.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", rhs.Op)
}

func TestPrecedence_ParensOverridePrecedence(t *testing.T) {
	body := mustParseExpr(t, NewSettings(), "(1 + 2) * 3")
	top, ok := body.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", top.Op)
	assert.IsType(t, &ast.BinaryExpr{}, top.LHS)
}
