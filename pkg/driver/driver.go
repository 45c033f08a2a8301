// Package driver wires the lexer, parser, emitter and JIT manager into
// the single pipeline the CLI and REPL both drive: tokenize, parse
// (resumably), lower to IR, and — unless a stop-stage flag says
// otherwise — run.
//
// A Driver owns exactly the state that must survive across a whole
// session: the operator precedence table, the Emitter's LLVM context
// and module manager, and the token remainder left over from a
// partially-typed construct.
package driver

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kristofer/kaleidoscope/pkg/ast"
	"github.com/kristofer/kaleidoscope/pkg/codegen"
	"github.com/kristofer/kaleidoscope/pkg/jit"
	"github.com/kristofer/kaleidoscope/pkg/lexer"
	"github.com/kristofer/kaleidoscope/pkg/parser"
)

// Stage selects where the pipeline stops, matching the CLI's mutually
// exclusive -l/-p/-i flags (no flag selects StageExec).
type Stage int

const (
	StageExec Stage = iota
	StageTokens
	StageAST
	StageIR
)

// Driver is the persistent session state threaded through a REPL run
// or a single whole-file run.
type Driver struct {
	stage    Stage
	settings *parser.Settings
	mgr      *jit.Manager
	emitter  *codegen.Emitter
	pending  []lexer.Token
	log      logrus.FieldLogger
}

// New creates a Driver. name becomes the JIT manager's module name.
func New(name string, stage Stage, log logrus.FieldLogger) *Driver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	mgr := jit.NewManager(name, log)
	return &Driver{
		stage:    stage,
		settings: parser.NewSettings(),
		mgr:      mgr,
		emitter:  codegen.New(mgr),
		log:      log,
	}
}

// Pending reports whether a partially-typed construct is awaiting more
// input — the REPL uses this to switch from the "> " prompt to the
// ".\t" continuation prompt (§6 REPL protocol).
func (d *Driver) Pending() bool { return len(d.pending) > 0 }

// Reset discards any partially-typed construct, the way the REPL does
// after a recoverable parse or emitter error (§7 level 1).
func (d *Driver) Reset() { d.pending = nil }

// Feed processes one line of input according to the Driver's stage and
// returns the text the caller should print, one string per line of
// output. In StageTokens, every line is tokenized and printed
// immediately with no parsing or accumulation at all. In every other
// stage, the line's tokens are appended to whatever remainder is
// pending from an earlier, incomplete call; each top-level construct
// the parser manages to complete is then lowered and processed
// according to the stage.
func (d *Driver) Feed(line string) ([]string, error) {
	toks, err := lexer.Tokenize(line)
	if err != nil {
		return nil, fmt.Errorf("lex error: %w", err)
	}
	// Tokenize terminates every fragment with its own TokenEOF; strip it
	// before accumulating so pending never contains a spurious internal
	// end-of-stream marker. Parser.cur() synthesizes EOF itself once pos
	// runs past the end of whatever tokens are available so far.
	if n := len(toks); n > 0 && toks[n-1].Kind == lexer.TokenEOF {
		toks = toks[:n-1]
	}

	if d.stage == StageTokens {
		var out []string
		for _, t := range toks {
			out = append(out, t.String())
		}
		out = append(out, lexer.Token{Kind: lexer.TokenEOF}.String())
		return out, nil
	}

	d.pending = append(d.pending, toks...)

	p := parser.New(d.settings, d.pending)
	results, remainder, err := p.Parse()
	if err != nil {
		d.pending = nil
		d.log.WithError(err).Warn("parse error, resuming at a fresh prompt")
		return nil, fmt.Errorf("parse error: %w", err)
	}
	d.pending = remainder

	var out []string
	for _, node := range results {
		lines, err := d.process(node)
		if err != nil {
			d.log.WithError(err).Warn("codegen error, resuming at a fresh prompt")
			return out, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

// RunSource parses a complete source string in one pass with
// parser.ParseAll (panic-mode recovery across malformed constructs,
// the whole-file counterpart to Feed's line-oriented resumability) and
// processes every construct it recovers. Parse errors from individual
// malformed constructs are collected and returned alongside whatever
// output the well-formed constructs produced.
func (d *Driver) RunSource(source string) ([]string, error) {
	toks, err := lexer.Tokenize(source)
	if err != nil {
		return nil, fmt.Errorf("lex error: %w", err)
	}

	nodes, perr := parser.ParseAll(d.settings, toks)

	var out []string
	for _, node := range nodes {
		lines, err := d.process(node)
		if err != nil {
			out = append(out, fmt.Sprintf("error: %v", err))
			continue
		}
		out = append(out, lines...)
	}
	return out, perr
}

// process lowers one already-parsed top-level construct according to
// the Driver's stage.
func (d *Driver) process(node ast.TopLevel) ([]string, error) {
	if d.stage == StageAST {
		return []string{dumpTopLevel(node)}, nil
	}

	fn, runnable, err := d.emitter.Codegen(node)
	if err != nil {
		return nil, fmt.Errorf("codegen error: %w", err)
	}

	switch d.stage {
	case StageIR:
		return []string{strings.TrimRight(fn.String(), "\n")}, nil
	default: // StageExec
		if !runnable {
			return []string{strings.TrimRight(fn.String(), "\n")}, nil
		}
		result := d.mgr.Run(fn)
		return []string{fmt.Sprintf("=> %v", result)}, nil
	}
}
