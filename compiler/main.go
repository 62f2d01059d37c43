package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/xiaobogaga/trac42/assembler"
	"github.com/xiaobogaga/trac42/casebook"
	"github.com/xiaobogaga/trac42/compiler/internal"
	"github.com/xiaobogaga/trac42/vm"
)

var (
	path      = flag.String("path", "", "the path of the trac42 source file to compile")
	output    = flag.String("o", "", "where to save the listing, stdout when empty")
	optimize  = flag.Bool("O", true, "whether to run the optimizer")
	run       = flag.Bool("run", false, "run the program after compiling it")
	printAST  = flag.Bool("ast", false, "print the program handed to the code generator")
	listing   = flag.String("listing", "", "run a saved listing instead of compiling")
	book      = flag.String("book", "", "compile and check every case of a markdown casebook")
	verbose   = flag.Bool("v", false, "log every compiler stage")
	stepLimit = flag.Int("steps", 0, "bound the number of executed instructions, 0 for no bound")
)

func main() {
	flag.Parse()
	var err error
	switch {
	case *book != "":
		err = runBook(*book)
	case *listing != "":
		err = runListing(*listing)
	case *path != "":
		err = compile(*path)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Printf("Error: %+v\n", err)
		os.Exit(1)
	}
}

func options() internal.Options {
	opts := internal.Options{Optimize: *optimize}
	if *verbose {
		opts.Logger = log.New(os.Stderr, "", 0)
	}
	return opts
}

func compile(filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	result, err := internal.Compile(f, options())
	if err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	if *printAST {
		fmt.Print(internal.Format(result.AST))
	}
	switch {
	case *output != "":
		if err = result.Program.SaveTo(*output); err != nil {
			return err
		}
	case !*run:
		fmt.Print(result.Program.String())
	}
	if *run {
		return execute(result.Program)
	}
	return nil
}

func runListing(filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	program, err := assembler.Parse(f)
	if err != nil {
		return err
	}
	return execute(program)
}

func execute(program *assembler.Program) error {
	opts := []vm.Option{vm.WithStepLimit(*stepLimit)}
	if *verbose {
		opts = append(opts, vm.WithTracer(log.New(os.Stderr, "", 0)))
	}
	machine := vm.NewMachine(program, opts...)
	if err := machine.Run(); err != nil {
		return err
	}
	if value, ok := machine.ExitValue(); ok && *verbose {
		log.Printf("vm: exit value %d after %d steps", value, machine.Steps())
	}
	return nil
}

// runBook checks every case of a casebook and reports the failing ones.
func runBook(filePath string) error {
	cases, err := casebook.Load(filePath)
	if err != nil {
		return err
	}
	failed := 0
	for _, c := range cases {
		if msg := checkCase(&c); msg != "" {
			failed++
			fmt.Printf("FAIL %s (line %d): %s\n", c.Name, c.Line, msg)
			continue
		}
		fmt.Printf("ok   %s\n", c.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, len(cases))
	}
	return nil
}

func checkCase(c *casebook.Case) string {
	result, err := internal.Compile(strings.NewReader(c.Source), options())
	if want, ok := c.Expect(casebook.KindError); ok {
		if err == nil || !strings.Contains(err.Error(), want) {
			return fmt.Sprintf("expected error %q, got %v", want, err)
		}
		return ""
	}
	if err != nil {
		return err.Error()
	}
	if want := strings.Join(c.Lines(casebook.KindWarnings), "\n"); want != strings.Join(result.Warnings, "\n") {
		return fmt.Sprintf("expected warnings %q, got %q", want, result.Warnings)
	}
	if want, ok := c.Expect(casebook.KindAST); ok && want != strings.TrimRight(internal.Format(result.AST), "\n") {
		return "optimized program differs"
	}
	if want, ok := c.Expect(casebook.KindListing); ok && want != strings.TrimRight(result.Program.String(), "\n") {
		return "listing differs"
	}
	if want, ok := c.Expect(casebook.KindOutput); ok {
		out := &bytes.Buffer{}
		machine := vm.NewMachine(result.Program, vm.WithOutput(out), vm.WithStepLimit(*stepLimit))
		if err := machine.Run(); err != nil {
			return err.Error()
		}
		if got := strings.TrimRight(out.String(), "\n"); got != want {
			return fmt.Sprintf("expected output %q, got %q", want, got)
		}
	}
	return ""
}
