package parser

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/kristofer/kaleidoscope/pkg/ast"
	"github.com/kristofer/kaleidoscope/pkg/lexer"
)

// ParseAll parses every top-level construct out of a complete token
// stream — a whole source file, not one REPL line. Unlike Parse, a
// malformed construct here does not abort the call: the error is
// recorded and parsing resumes just past the next delimiter, the way
// rami3l/golox's panic-mode parser keeps going after a bad statement
// so a single mistake doesn't hide every other error in the file.
func ParseAll(settings *Settings, toks []lexer.Token) ([]ast.TopLevel, error) {
	p := New(settings, toks)
	var out []ast.TopLevel
	var errs *multierror.Error

	for {
		for p.cur().Kind == lexer.TokenDelimiter {
			p.advance()
		}
		if p.cur().Kind == lexer.TokenEOF {
			return out, errs.ErrorOrNil()
		}

		m := p.mark()
		node, err := p.parseTopLevel()
		if err == errNotComplete {
			p.rewind(m)
			errs = multierror.Append(errs, fmt.Errorf("unexpected end of input"))
			return out, errs.ErrorOrNil()
		}
		if err != nil {
			errs = multierror.Append(errs, err)
			p.skipToNextDelimiter()
			continue
		}
		out = append(out, node)
	}
}
