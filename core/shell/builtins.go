package shell

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/josephlewis42/pipesh/core/engine"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

// ShellBuiltin is a command that runs inside the shell process so it can
// change the shell's own state.
type ShellBuiltin interface {
	Main(s *Shell, inv *engine.Invocation) int
}

type ShellBuiltinFunc func(s *Shell, inv *engine.Invocation) int

func (f ShellBuiltinFunc) Main(s *Shell, inv *engine.Invocation) int {
	return f(s, inv)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// BuiltinNames returns the sorted names of every builtin.
func BuiltinNames() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cd is the cd shell builtin
func Cd(s *Shell, inv *engine.Invocation) int {
	cmd := &SimpleCommand{
		Use:   "cd [DIR|-]",
		Short: "Change the shell working directory, HOME by default.",
	}

	return cmd.Run(inv, func() int {
		args := cmd.Args()

		var dir string
		switch len(args) {
		case 0:
			home, err := os.UserHomeDir()
			if err != nil {
				fmt.Fprintf(inv.Stderr, "cd: %v\n", err)
				return 1
			}
			dir = home
		case 1:
			dir = args[0]
		default:
			fmt.Fprintln(inv.Stderr, "cd: too many arguments")
			return 1
		}

		if dir == "-" {
			dir = os.Getenv(EnvOldPWD)
			if dir == "" {
				fmt.Fprintln(inv.Stderr, "cd: OLDPWD not set")
				return 1
			}
			fmt.Fprintln(inv.Stdout, dir)
		}

		if err := s.Chdir(dir); err != nil {
			fmt.Fprintf(inv.Stderr, "cd: %v\n", err)
			return 1
		}
		return 0
	})
}

// Exit quits the shell with the given status or the status of the last
// command.
func Exit(s *Shell, inv *engine.Invocation) int {
	cmd := &SimpleCommand{
		Use:   "exit [N]",
		Short: "Exit the shell with a status of N.",
	}

	return cmd.Run(inv, func() int {
		args := cmd.Args()
		status := s.ExitCode

		switch len(args) {
		case 0:
		case 1:
			n, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintf(inv.Stderr, "exit: %s: numeric argument required\n", args[0])
				status = engine.StatusUsage
				break
			}
			status = n & 0xff
		default:
			fmt.Fprintln(inv.Stderr, "exit: too many arguments")
			return 1
		}

		s.Quit = true
		s.ExitCode = status
		return status
	})
}

// Pwd prints the working directory.
func Pwd(s *Shell, inv *engine.Invocation) int {
	cmd := &SimpleCommand{
		Use:   "pwd",
		Short: "Print the name of the current working directory.",
	}

	return cmd.Run(inv, func() int {
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(inv.Stderr, "pwd: %v\n", err)
			return 1
		}
		fmt.Fprintln(inv.Stdout, wd)
		return 0
	})
}

// Env prints the environment commands are started with.
func Env(s *Shell, inv *engine.Invocation) int {
	cmd := &SimpleCommand{
		Use:   "env",
		Short: "Print the environment for command invocation.",
	}

	return cmd.Run(inv, func() int {
		env := os.Environ()
		sort.Strings(env)
		for _, envDef := range env {
			fmt.Fprintln(inv.Stdout, envDef)
		}

		return 0
	})
}

// History lists or clears the lines entered in this shell.
func History(s *Shell, inv *engine.Invocation) int {
	cmd := &SimpleCommand{
		Use:   "history [-c]",
		Short: "Display or manipulate the history list.",
	}
	clear := cmd.Flags().Bool('c', "clear the history by deleting all entries")

	return cmd.Run(inv, func() int {
		if *clear {
			s.ClearHistory()
			return 0
		}

		for i, line := range s.History() {
			fmt.Fprintf(inv.Stdout, "% 5d  %s\n", i+1, line)
		}
		return 0
	})
}

// Help lists the builtins, or shows the help of one.
func Help(s *Shell, inv *engine.Invocation) int {
	if len(inv.Args) > 1 {
		status := 0
		for _, name := range inv.Args[1:] {
			builtin, ok := AllBuiltins[name]
			if !ok {
				fmt.Fprintf(inv.Stderr, "help: no help topics match `%s'\n", name)
				status = 1
				continue
			}
			builtin.Main(s, &engine.Invocation{
				Args:   []string{name, "--help"},
				Stdin:  inv.Stdin,
				Stdout: inv.Stdout,
				Stderr: inv.Stderr,
			})
		}
		return status
	}

	w := inv.Stdout
	fmt.Fprintf(w, "%s, a command pipeline shell\n", engine.ProgramName)
	fmt.Fprintln(w, "These shell commands are defined internally.  Type `help' to see this list.")
	fmt.Fprintln(w, "Type `help name' to find out more about the function `name'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(BuiltinNames(), "\n"))

	return 0
}

// Type tells how each name would be interpreted as a command.
func Type(s *Shell, inv *engine.Invocation) int {
	cmd := &SimpleCommand{
		Use:   "type NAME...",
		Short: "Display information about command type.",
	}

	return cmd.Run(inv, func() int {
		status := 0
		for _, name := range cmd.Args() {
			if _, ok := AllBuiltins[name]; ok {
				fmt.Fprintf(inv.Stdout, "%s is a shell builtin\n", name)
				continue
			}

			path, err := exec.LookPath(name)
			if err != nil {
				fmt.Fprintf(inv.Stderr, "type: %s: not found\n", name)
				status = 1
				continue
			}
			fmt.Fprintf(inv.Stdout, "%s is %s\n", name, path)
		}
		return status
	})
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["pwd"] = ShellBuiltinFunc(Pwd)
	AllBuiltins["env"] = ShellBuiltinFunc(Env)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["type"] = ShellBuiltinFunc(Type)
}
