package codegen

import "tinygo.org/x/go-llvm"

// Context is the compilation context threaded through one function's
// worth of codegen: the bindings from source names (parameters, loop
// induction variables) to the LLVM values that currently hold them.
// It is cleared at the start and end of every top-level function —
// Kaleidoscope has no globals, so nothing needs to survive a function
// boundary.
type Context struct {
	named map[string]llvm.Value
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{named: make(map[string]llvm.Value)}
}

// Bind associates name with v for the remainder of the current scope.
func (c *Context) Bind(name string, v llvm.Value) { c.named[name] = v }

// Lookup returns the value currently bound to name, if any.
func (c *Context) Lookup(name string) (llvm.Value, bool) {
	v, ok := c.named[name]
	return v, ok
}

// Unbind removes name's binding, restoring the "no such variable"
// state — used when a for-loop's induction variable goes out of scope.
func (c *Context) Unbind(name string) { delete(c.named, name) }

// Clear removes every binding.
func (c *Context) Clear() { c.named = make(map[string]llvm.Value) }
