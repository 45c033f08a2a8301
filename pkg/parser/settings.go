package parser

// Settings holds the mutable operator-precedence table. It starts out
// with the five built-in binary operators and grows as the program
// declares `binary OP PREC (...)` operators; see Parser.parsePrototype,
// which registers a new operator's precedence before parsing that
// operator's own body, so a user operator may call itself recursively.
//
// The table never shrinks: a precedence once registered stays
// registered even across a REPL's incomplete/retried parses, because
// Settings is shared by the whole session, not owned by one Parser.
type Settings struct {
	precedence map[string]int
}

// NewSettings returns a Settings seeded with the five built-in binary
// operators and their classic Kaleidoscope precedences.
func NewSettings() *Settings {
	return &Settings{
		precedence: map[string]int{
			"=": 2,
			"<": 10,
			"+": 20,
			"-": 20,
			"*": 40,
		},
	}
}

// Precedence reports the precedence of a binary operator symbol, and
// whether it is registered at all (an unregistered symbol is not a
// valid binary operator in the current program).
func (s *Settings) Precedence(op string) (int, bool) {
	p, ok := s.precedence[op]
	return p, ok
}

// SetPrecedence registers or overwrites the precedence of op. Called
// while parsing a `binary OP PREC (...)` prototype, before its body.
func (s *Settings) SetPrecedence(op string, prec int) {
	s.precedence[op] = prec
}
