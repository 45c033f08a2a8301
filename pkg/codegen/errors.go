// A plain message plus a stack of frames describing where it
// happened, formatted innermost frame first — the
// same shape as a runtime call-stack trace, adapted here to trace
// lowering context instead of call frames.
package codegen

import (
	"fmt"
	"strings"
)

// EmitFrame names one level of nesting being lowered when a codegen
// error occurred — a function definition, an if-branch, a loop body.
type EmitFrame struct {
	Construct string
}

// EmitError wraps an underlying lowering failure with the chain of
// constructs the emitter was inside of when it happened, so a
// "redefinition of function" or "unknown variable name" error reads
// with context instead of floating free.
type EmitError struct {
	Message string
	Frames  []EmitFrame
}

func (e *EmitError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	// wrapEmitError appends each enclosing construct after the ones
	// inside it, so Frames[0] is the innermost.
	for _, f := range e.Frames {
		b.WriteString(fmt.Sprintf("\n  while compiling %s", f.Construct))
	}
	return b.String()
}

func wrapEmitError(err error, construct string) error {
	if err == nil {
		return nil
	}
	if ee, ok := err.(*EmitError); ok {
		ee.Frames = append(ee.Frames, EmitFrame{Construct: construct})
		return ee
	}
	return &EmitError{Message: err.Error(), Frames: []EmitFrame{{Construct: construct}}}
}
