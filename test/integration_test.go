// Package test holds cross-package, end-to-end Kaleidoscope programs
// driven through the full pipeline (lex, parse, codegen, JIT) via
// pkg/driver — whole-program scenarios, as distinct from the
// package-level unit tests living alongside each package.
package test

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/kaleidoscope/pkg/driver"
)

func newDriver(t *testing.T) *driver.Driver {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	return driver.New("integration", driver.StageExec, l)
}

func run(t *testing.T, d *driver.Driver, source string) []string {
	t.Helper()
	out, err := d.RunSource(source)
	require.NoError(t, err)
	return out
}

func TestIntegration_ArithmeticAndUserFunction(t *testing.T) {
	d := newDriver(t)
	out := run(t, d, `
def avg(a b)
  (a+b)*0.5;
avg(4, 8);
`)
	require.Len(t, out, 2)
	assert.Equal(t, "=> 6", out[1])
}

func TestIntegration_RecursiveFunctionAndIf(t *testing.T) {
	d := newDriver(t)
	out := run(t, d, `
def fib(n)
  if n < 2 then
    n
  else
    fib(n-1) + fib(n-2);
fib(10);
`)
	require.Len(t, out, 2)
	assert.Equal(t, "=> 55", out[1])
}

func TestIntegration_ForLoopAccumulatesViaUserBinaryOperator(t *testing.T) {
	d := newDriver(t)
	out := run(t, d, `
def binary : 1 (x y) y;

extern putchard(char);

def printstar(n)
  for i = 1, i < n, 1.0 in
    putchard(42.0) : 0;

printstar(5);
`)
	require.Len(t, out, 4)
	assert.Equal(t, "=> 0", out[3])
}

// square is defined, then a throwaway runnable expression forces a
// promotion that freezes it into a closed module before it is ever
// called. The later call only succeeds if the JIT engine resolves
// "square" across module boundaries (§8 property 5).
func TestIntegration_CrossModuleCallAfterPromotion(t *testing.T) {
	d := newDriver(t)

	_, err := d.Feed("def square(x) x*x")
	require.NoError(t, err)

	warm, err := d.Feed("0")
	require.NoError(t, err)
	require.Len(t, warm, 1)
	assert.Equal(t, "=> 0", warm[0])

	call, err := d.Feed("square(7)")
	require.NoError(t, err)
	require.Len(t, call, 1)
	assert.Equal(t, "=> 49", call[0])
}

func TestIntegration_ExternRedefinitionWithDifferentArityIsRecoverable(t *testing.T) {
	d := newDriver(t)

	_, err := d.Feed("extern foo(a)")
	require.NoError(t, err)

	_, err = d.Feed("extern foo(a b)")
	assert.ErrorContains(t, err, "different number of args")

	// The REPL keeps working after a recoverable error.
	out, err := d.Feed("1+1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "=> 2", out[0])
}
