// Package compiler wires together the lexer, parser, analyzer, TAC
// generator, optimizer, and backend into the single pipeline spec.md
// section 6 describes: source text in, NASM-compatible x86 assembly
// text out. It mirrors the orchestration shape of
// skx-math-compiler/compiler/compiler.go (a Compiler struct built with
// New, configured with SetDebug/SetOptimize, run with Compile), but
// every internal stage is this language's own rather than the
// teacher's RPN tokenizer/internal-form/output trio.
package compiler

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dholloway/tacc/analyzer"
	"github.com/dholloway/tacc/ast"
	"github.com/dholloway/tacc/backend"
	"github.com/dholloway/tacc/lexer"
	"github.com/dholloway/tacc/optimizer"
	"github.com/dholloway/tacc/parser"
	"github.com/dholloway/tacc/runtime"
	"github.com/dholloway/tacc/tac"
	"github.com/dholloway/tacc/token"
)

// Compiler drives one source program through every pipeline stage.
// Each stage's intermediate result is kept on the struct so the
// --print-* diagnostics (spec.md section 6) can dump it after Compile
// returns, win or lose.
type Compiler struct {
	source string
	log    *logrus.Logger

	optimize bool

	tokens       []token.Token
	program      *ast.Program
	flatTAC      []tac.Instruction
	optimizedTAC []tac.Instruction
	splitTAC     *tac.Program
	asm          string
}

// New creates a Compiler for source. Optimization is on by default,
// matching spec.md section 6's "-O" being implied unless
// --no-optimize is given.
func New(source string) *Compiler {
	return &Compiler{
		source:   source,
		log:      disabledLogger(),
		optimize: true,
	}
}

func disabledLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// SetLogger installs log for tracing compile stages. A nil logger
// is ignored.
func (c *Compiler) SetLogger(log *logrus.Logger) {
	if log != nil {
		c.log = log
	}
}

// SetOptimize toggles the optimizer stage. Passing false reproduces
// the --no-optimize CLI flag of spec.md section 6.
func (c *Compiler) SetOptimize(on bool) {
	c.optimize = on
}

// Tokens returns the token stream produced by the most recent Compile,
// for --print-tokens.
func (c *Compiler) Tokens() []token.Token { return c.tokens }

// Program returns the parsed AST of the most recent Compile, for
// --print-ast.
func (c *Compiler) Program() *ast.Program { return c.program }

// TAC returns the flat three-address code emitted before optimization,
// for --print-tac.
func (c *Compiler) TAC() []tac.Instruction { return c.flatTAC }

// OptimizedTAC returns the three-address code after the optimizer
// stage (or, if optimization was disabled, the same stream returned by
// TAC), for --print-optimized-tac.
func (c *Compiler) OptimizedTAC() []tac.Instruction { return c.optimizedTAC }

// Compile runs the full pipeline and returns the generated assembly
// text, ready to hand to nasm.
func (c *Compiler) Compile() (string, error) {
	lx, err := lexer.New(c.source)
	if err != nil {
		return "", errors.Wrap(err, "building lexer")
	}

	toks, err := lx.Tokenize()
	if err != nil {
		return "", errors.Wrap(err, "tokenizing")
	}
	c.tokens = toks

	prog, err := parser.Parse(toks)
	if err != nil {
		return "", errors.Wrap(err, "parsing")
	}
	c.program = prog

	if err := analyzer.Analyze(prog, c.log); err != nil {
		return "", errors.Wrap(err, "analyzing")
	}

	flat, err := tac.GenerateFlat(prog, c.log)
	if err != nil {
		return "", errors.Wrap(err, "generating TAC")
	}
	c.flatTAC = flat

	optimized := flat
	if c.optimize {
		optimized, err = optimizer.Optimize(flat, c.log)
		if err != nil {
			return "", errors.Wrap(err, "optimizing")
		}
	}
	c.optimizedTAC = optimized

	split := tac.Split(optimized)
	c.splitTAC = split

	asm, err := backend.Generate(split, runtime.Source(), c.log)
	if err != nil {
		return "", errors.Wrap(err, "generating assembly")
	}
	c.asm = asm

	return asm, nil
}

// DumpTokens renders the token stream one per line, for --print-tokens.
func DumpTokens(toks []token.Token) string {
	var b strings.Builder
	for _, t := range toks {
		fmt.Fprintln(&b, t.String())
	}
	return b.String()
}

// DumpTAC renders an instruction stream one per line, for --print-tac
// and --print-optimized-tac.
func DumpTAC(instructions []tac.Instruction) string {
	var b strings.Builder
	for _, instr := range instructions {
		fmt.Fprintln(&b, instr.String())
	}
	return b.String()
}
