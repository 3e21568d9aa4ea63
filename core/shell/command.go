package shell

import (
	"fmt"
	"io"

	"github.com/josephlewis42/pipesh/core/engine"
	getopt "github.com/pborman/getopt/v2"
)

// SimpleCommand parses the flags of a builtin and prints its help.
type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// Args returns the arguments left after flag parsing.
func (s *SimpleCommand) Args() []string {
	return s.Flags().Args()
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was successful call the callback.
func (s *SimpleCommand) Run(inv *engine.Invocation, callback func() int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	if err := opts.Getopt(inv.Args, nil); err != nil {
		fmt.Fprintf(inv.Stderr, "%s: %s\n", inv.Args[0], err)
		s.PrintHelp(inv.Stderr)
		return engine.StatusUsage
	}

	if *s.ShowHelp {
		s.PrintHelp(inv.Stdout)
		return engine.StatusSuccess
	}

	return callback()
}
