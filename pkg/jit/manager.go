// Package jit owns the two collaborators that sit downstream of code
// generation: the Module Manager, which tracks the single mutable
// "current" LLVM module plus every module that has since been frozen
// ("closed"), and the JIT Engine, which promotes the current module
// and executes functions out of it. They share one struct (Manager)
// because every closed module and its execution engine must stay
// alive and mutually reachable for the lifetime of the session — a
// function defined three REPL lines ago must still be callable.
//
// Like any interpreter's persistent runtime state, this object is
// threaded through a whole REPL session rather than rebuilt per line.
package jit

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/go-llvm"
)

// closedModule is a module that has been frozen and JIT-compiled. It
// can no longer gain new functions, but its engine stays alive so
// later modules can resolve symbols against it.
type closedModule struct {
	module llvm.Module
	engine llvm.ExecutionEngine
	bodies map[string]bool
	arity  map[string]int
}

// Manager is the Module Manager and JIT Engine combined (§4.E, §4.F).
type Manager struct {
	llctx    llvm.Context
	builder  llvm.Builder
	doubleTy llvm.Type
	baseName string

	current llvm.Module
	fpm     llvm.PassManager
	bodies  map[string]bool
	arity   map[string]int

	closed []*closedModule

	log logrus.FieldLogger
}

// NewManager creates a Manager with a fresh current module named
// baseName (each subsequent promoted module reuses the same name,
// since only one module is ever "current" and its identity doesn't
// need to be unique — functions are disambiguated by name, not by
// which module declared them).
func NewManager(baseName string, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	llvm.LinkInMCJIT()
	llvm.InitializeNativeTarget()
	llvm.InitializeNativeAsmPrinter()
	registerIntrinsics()

	llctx := llvm.NewContext()
	m := &Manager{
		llctx:    llctx,
		builder:  llctx.NewBuilder(),
		doubleTy: llctx.DoubleType(),
		baseName: baseName,
		log:      log,
	}
	m.resetCurrent()
	return m
}

func (m *Manager) resetCurrent() {
	m.current = m.llctx.NewModule(m.baseName)
	m.fpm = llvm.NewFunctionPassManagerForModule(m.current)
	m.fpm.AddInstructionCombiningPass()
	m.fpm.AddReassociatePass()
	m.fpm.AddGVNPass()
	m.fpm.AddCFGSimplificationPass()
	m.fpm.InitializeFunc()
	m.bodies = make(map[string]bool)
	m.arity = make(map[string]int)
}

// Context, Builder, DoubleType and PassManager expose the pieces
// pkg/codegen needs to build IR against the current module.
func (m *Manager) Context() llvm.Context      { return m.llctx }
func (m *Manager) Builder() llvm.Builder      { return m.builder }
func (m *Manager) DoubleType() llvm.Type      { return m.doubleTy }
func (m *Manager) PassManager() llvm.PassManager { return m.fpm }

// DeclareFunction adds a new (double, ..., double) -> double function
// named name with the given arity to the current module.
func (m *Manager) DeclareFunction(name string, arity int) llvm.Value {
	params := make([]llvm.Type, arity)
	for i := range params {
		params[i] = m.doubleTy
	}
	fnTy := llvm.FunctionType(m.doubleTy, params, false)
	fn := llvm.AddFunction(m.current, name, fnTy)
	m.arity[name] = arity
	return fn
}

// MarkBody records that name now has a body in the current module.
func (m *Manager) MarkBody(name string) { m.bodies[name] = true }

// Arity reports the parameter count a name was declared with,
// whether in the current module or a closed one.
func (m *Manager) Arity(name string) (int, bool) {
	if a, ok := m.arity[name]; ok {
		return a, true
	}
	for i := len(m.closed) - 1; i >= 0; i-- {
		if a, ok := m.closed[i].arity[name]; ok {
			return a, true
		}
	}
	return 0, false
}

// Lookup resolves a function name against the current module and
// every closed module, synthesizing a current-module declaration when
// only a closed module defines a body for it (§4.E). It returns the
// function value, whether a body exists for it anywhere visible, and
// whether anything was found at all.
//
// Seeing a body in the current module AND a body for the same name in
// a closed module at the same time is a bug, not a recoverable parse
// error — ordinary redefinition is already rejected earlier, in
// pkg/codegen's prototype lowering, before a second body could ever be
// attached. This is the safety net for that invariant, so it aborts
// the process rather than returning an error.
func (m *Manager) Lookup(name string) (fn llvm.Value, hasBody bool, found bool) {
	currentFn := m.current.NamedFunction(name)
	currentHasBody := m.bodies[name]

	for i := len(m.closed) - 1; i >= 0; i-- {
		cm := m.closed[i]
		if !cm.bodies[name] {
			continue
		}
		if currentHasBody {
			m.log.WithField("function", name).Error("function defined in both a closed module and the current module")
			panic(fmt.Sprintf("kaleidoscope: function redefinition across modules: %s", name))
		}
		if currentFn.IsNil() {
			currentFn = m.DeclareFunction(name, cm.arity[name])
		}
		return currentFn, true, true
	}

	if currentFn.IsNil() {
		return llvm.Value{}, false, false
	}
	return currentFn, currentHasBody, true
}
