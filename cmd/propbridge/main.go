// Command propbridge inspects property buffers and declaration files.
//
//	propbridge --schema game.yaml decode --property Player.Inventory buf.bin
//	propbridge --schema game.yaml encode --type 'dict<string,int32>' '{"a":1}'
//	propbridge --schema game.yaml manifest
//	propbridge --schema game.yaml calls --direction inbound
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	flagSet := pflag.NewFlagSet("propbridge", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.SetInterspersed(false)
	flagSet.StringSliceVar(&a.schemaPaths, "schema", nil, "declaration file (.yaml, .yml, .json, .jsonc); repeatable")
	flagSet.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
	flagSet.BoolVar(&a.noColor, "no-color", false, "disable styled output")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stderr, flagSet)
			return nil
		}
		return fmt.Errorf("%w\n\nRun 'propbridge --help' for usage.", err)
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return fmt.Errorf("command required")
	}

	a.init()
	defer a.close()

	cmd := findCommand(rest[0])
	if cmd == nil {
		return fmt.Errorf("unknown command %q\n\nRun 'propbridge --help' for usage.", rest[0])
	}
	return cmd.execute(a, rest[1:])
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `propbridge inspects property buffers and declaration files.

Usage:
  propbridge [global flags] <command> [flags] [args]

Commands:
`)
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(w, "\nGlobal flags:\n%s\nRun 'propbridge <command> --help' for command flags.\n", flagSet.FlagUsages())
}
