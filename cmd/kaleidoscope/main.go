package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kristofer/kaleidoscope/pkg/driver"
)

var (
	blueColor   = color.New(color.FgBlue)
	cyanColor   = color.New(color.FgCyan)
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
)

func main() {
	var (
		tokensFlag bool
		astFlag    bool
		irFlag     bool
		noColor    bool
	)

	root := &cobra.Command{
		Use:   "kaleidoscope [file]",
		Short: "Kaleidoscope compiler and interactive JIT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := 0
			for _, f := range []bool{tokensFlag, astFlag, irFlag} {
				if f {
					set++
				}
			}
			if set > 1 {
				return fmt.Errorf("only one of -l, -p, -i may be given")
			}
			color.NoColor = noColor || !isatty()

			stage := driver.StageExec
			switch {
			case tokensFlag:
				stage = driver.StageTokens
			case astFlag:
				stage = driver.StageAST
			case irFlag:
				stage = driver.StageIR
			}

			log := logrus.StandardLogger()
			log.SetLevel(logrus.WarnLevel)

			if len(args) == 1 {
				return runFile(args[0], stage, log)
			}
			return runREPL(stage, log)
		},
	}

	root.Flags().BoolVarP(&tokensFlag, "tokens", "l", false, "stop after lexing and print the token stream")
	root.Flags().BoolVarP(&astFlag, "ast", "p", false, "stop after parsing and print the AST")
	root.Flags().BoolVarP(&irFlag, "ir", "i", false, "stop after codegen and print the IR")
	root.Flags().BoolVar(&noColor, "no-color", false, "disable colored REPL output")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func isatty() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// runFile runs a whole source file through the pipeline in one pass,
// using the panic-mode ParseAll path so one malformed construct does
// not hide the errors or output of every other one in the file.
func runFile(path string, stage driver.Stage, log logrus.FieldLogger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	d := driver.New(path, stage, log)
	lines, err := d.RunSource(string(data))
	for _, l := range lines {
		fmt.Println(l)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// runREPL starts an interactive session: "> " at the start of a new
// top-level construct, ".\t" while a construct remains incomplete
// (§6 REPL protocol), following akashmaji946/go-mix's repl package for
// the readline+color wiring.
func runREPL(stage driver.Stage, log logrus.FieldLogger) error {
	blueColor.Println("kaleidoscope")
	cyanColor.Println("Enter top-level definitions, externs, or expressions.")
	cyanColor.Println("Type 'quit', 'q', 'exit', or press Ctrl-D to leave.")

	rl, err := readline.New("> ")
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()

	d := driver.New("repl", stage, log)

	for {
		line, err := rl.Readline()
		if err != nil {
			fmt.Println()
			return nil
		}

		trimmed := strings.TrimSpace(line)
		if !d.Pending() {
			switch trimmed {
			case "quit", "q", "exit":
				return nil
			case "":
				continue
			}
		}

		rl.SaveHistory(line)

		out, err := d.Feed(line)
		for _, o := range out {
			yellowColor.Println(o)
		}
		if err != nil {
			redColor.Printf("%v\n", err)
		}

		if d.Pending() {
			rl.SetPrompt(".\t")
		} else {
			rl.SetPrompt("> ")
		}
	}
}
