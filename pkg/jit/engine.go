package jit

import (
	"fmt"
	"unsafe"

	"tinygo.org/x/go-llvm"
)

// Promote freezes the current module, builds an MCJIT execution
// engine for it, resolves any of its unresolved external declarations
// against earlier closed modules (so back-references to
// already-defined functions keep working), and starts a fresh current
// module in its place. Every previously closed module and its engine
// stay alive: a function defined several REPL lines ago must remain
// callable (§4.E/§4.F).
func (m *Manager) Promote() {
	frozen := &closedModule{
		module: m.current,
		bodies: m.bodies,
		arity:  m.arity,
	}

	engine, err := llvm.NewMCJITCompiler(frozen.module, llvm.NewMCJITCompilerOptions())
	if err != nil {
		m.log.WithError(err).Error("failed to construct JIT engine")
		panic(fmt.Sprintf("kaleidoscope: JIT engine construction failed: %v", err))
	}
	frozen.engine = engine

	for name := range frozen.arity {
		if frozen.bodies[name] {
			continue
		}
		if addr := m.resolveAcrossClosed(name); addr != nil {
			engine.AddGlobalMapping(frozen.module.NamedFunction(name), addr)
		}
	}

	m.closed = append(m.closed, frozen)
	m.resetCurrent()
}

// resolveAcrossClosed walks closed modules from most to least
// recently promoted, looking for one that defines name, and returns a
// pointer to its compiled body. This, together with the native
// process-symbol resolver MCJIT consults automatically for anything
// not found in a module (which is how printd/putchard resolve), is
// the full symbol-resolution chain §4.F describes.
func (m *Manager) resolveAcrossClosed(name string) unsafe.Pointer {
	for i := len(m.closed) - 1; i >= 0; i-- {
		cm := m.closed[i]
		if cm.bodies[name] {
			return cm.engine.PointerToGlobal(cm.module.NamedFunction(name))
		}
	}
	return nil
}

// Run promotes the current module and invokes fn, which must belong
// to the module that was just promoted, with no arguments, returning
// its result as a float64 (§4.F). Every top-level expression the
// driver evaluates — whether from a file or a REPL line — goes
// through Run exactly once, right after its anonymous wrapper
// function is code-generated.
func (m *Manager) Run(fn llvm.Value) float64 {
	m.Promote()
	cm := m.closed[len(m.closed)-1]
	result := cm.engine.RunFunction(fn, nil)
	return result.Float(m.doubleTy)
}
