// Command fcc compiles one source file into a 32-bit x86 AT&T assembly
// file. Structured as a single cobra command, the way the pack's goat CLI
// wires a one-positional-argument source compiler (spec.md §6).
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fcc/pkg/compiler"
)

var outFlag string

var command = &cobra.Command{
	Use:  "fcc FILE",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0], outFlag)
	},
}

func init() {
	command.PersistentFlags().StringVarP(&outFlag, "out", "o", "", "output path (default: input name with .S extension, in the current directory)")
}

func main() {
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(input, out string) error {
	src, filename, err := readSource(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	if out == "" {
		out = defaultOutputPath(filename)
	}

	result, err := compiler.Compile(src, filename, out)
	if err != nil {
		return err
	}
	if result.Sink.HasErrors() {
		return fmt.Errorf("compilation failed with %d error(s)", result.Sink.ErrorCount)
	}
	return nil
}

// readSource reads the whole of input, honoring the "-" stdin convention
// from spec.md §6.
func readSource(input string) (src, filename string, err error) {
	if input == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), "<stdin>", nil
	}

	b, err := os.ReadFile(input)
	if err != nil {
		return "", "", fmt.Errorf("opening %s: %w", input, err)
	}
	return string(b), input, nil
}

// defaultOutputPath replaces the input's last extension with .S and
// strips its directory component, placing the result in the current
// working directory, per spec.md §6.
func defaultOutputPath(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = base
	}
	return stem + ".S"
}
