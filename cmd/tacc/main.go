// Command tacc is the compiler driver: source file in, executable out
// (with --save-asm, the assembly text is kept too). It mirrors
// skx-math-compiler/main.go's flag-parse-then-invoke-external-tools
// shape, extended with the diagnostic dump flags of spec.md section 6.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dholloway/tacc/compiler"
)

func main() {
	output := flag.String("o", "program", "Name of the executable to write.")
	noOptimize := flag.Bool("no-optimize", false, "Disable the optimizer stage.")
	saveAsm := flag.String("save-asm", "", "Keep the generated assembly at this path instead of a scratch file.")
	printTokens := flag.Bool("print-tokens", false, "Print the token stream and exit.")
	printAST := flag.Bool("print-ast", false, "Print the parsed AST and exit.")
	printTAC := flag.Bool("print-tac", false, "Print the unoptimized three-address code and exit.")
	printOptimizedTAC := flag.Bool("print-optimized-tac", false, "Print the optimized three-address code and exit.")
	verbose := flag.Bool("verbose", false, "Trace each compile stage to stderr.")
	flag.Parse()

	if len(flag.Args()) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: tacc [flags] <source-file>\n")
		os.Exit(1)
	}

	src, err := os.ReadFile(flag.Args()[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading source: %s\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	comp := compiler.New(string(src))
	comp.SetLogger(log)
	comp.SetOptimize(!*noOptimize)

	asm, err := comp.Compile()

	if *printTokens {
		fmt.Print(compiler.DumpTokens(comp.Tokens()))
	}
	if *printAST {
		fmt.Printf("%#v\n", comp.Program())
	}
	if *printTAC {
		fmt.Print(compiler.DumpTAC(comp.TAC()))
	}
	if *printOptimizedTAC {
		fmt.Print(compiler.DumpTAC(comp.OptimizedTAC()))
	}
	if *printTokens || *printAST || *printTAC || *printOptimizedTAC {
		return
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error compiling: %s\n", err)
		os.Exit(1)
	}

	asmPath := *saveAsm
	cleanup := func() {}
	if asmPath == "" {
		asmPath = filepath.Join(os.TempDir(), "tacc-"+uuid.NewString()+".s")
		cleanup = func() { os.Remove(asmPath) }
	} else if filepath.Ext(asmPath) == "" {
		asmPath += ".asm"
	}
	defer cleanup()

	if err := os.WriteFile(asmPath, []byte(asm), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing assembly: %s\n", err)
		os.Exit(1)
	}

	objPath := filepath.Join(os.TempDir(), "tacc-"+uuid.NewString()+".o")
	defer os.Remove(objPath)

	if err := runTool("nasm", "-f", "elf32", "-o", objPath, asmPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error assembling: %s\n", err)
		os.Exit(1)
	}

	if err := runTool("ld", "-m", "elf_i386", "-o", *output, objPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error linking: %s\n", err)
		os.Exit(1)
	}
}

func runTool(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
