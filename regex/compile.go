package regex

import (
	"github.com/dholloway/tacc/internal/cerrors"
)

// patch names one dangling output slot (0 = Out, 1 = Out1) of a state
// still awaiting its target, the classic Thompson-construction
// technique for stitching fragments together without a second pass.
type patch struct {
	state int
	slot  int
}

// fragment is a partially built piece of NFA: a start state, and the
// list of dangling output slots that must be patched to wherever this
// fragment is joined next.
type fragment struct {
	start   int
	dangles []patch
}

// builder threads an NFA under construction through the recursive
// descent over the pattern's AST.
type builder struct {
	nfa *NFA
}

func newBuilder() *builder {
	return &builder{nfa: &NFA{}}
}

func (b *builder) patchTo(dangles []patch, target int) {
	for _, p := range dangles {
		st := &b.nfa.states[p.state]
		if p.slot == 0 {
			st.Out = target
		} else {
			st.Out1 = target
		}
	}
}

// lit creates a single-state fragment that consumes one rune matching m.
func (b *builder) lit(m matcher) fragment {
	id := b.nfa.newState()
	b.nfa.states[id].Char = m
	return fragment{start: id, dangles: []patch{{state: id, slot: 0}}}
}

func (b *builder) concat(f1, f2 fragment) fragment {
	b.patchTo(f1.dangles, f2.start)
	return fragment{start: f1.start, dangles: f2.dangles}
}

func (b *builder) alt(f1, f2 fragment) fragment {
	id := b.nfa.newState()
	b.nfa.states[id].Split = true
	b.nfa.states[id].Out = f1.start
	b.nfa.states[id].Out1 = f2.start
	dangles := append(append([]patch{}, f1.dangles...), f2.dangles...)
	return fragment{start: id, dangles: dangles}
}

// star builds f* : zero or more repetitions.
func (b *builder) star(f fragment) fragment {
	id := b.nfa.newState()
	b.nfa.states[id].Split = true
	b.nfa.states[id].Out = f.start
	b.patchTo(f.dangles, id)
	return fragment{start: id, dangles: []patch{{state: id, slot: 1}}}
}

// plus builds f+ : one or more repetitions.
func (b *builder) plus(f fragment) fragment {
	id := b.nfa.newState()
	b.nfa.states[id].Split = true
	b.nfa.states[id].Out = f.start
	b.patchTo(f.dangles, id)
	return fragment{start: f.start, dangles: []patch{{state: id, slot: 1}}}
}

// quest builds f? : zero or one repetitions.
func (b *builder) quest(f fragment) fragment {
	id := b.nfa.newState()
	b.nfa.states[id].Split = true
	b.nfa.states[id].Out = f.start
	dangles := append(append([]patch{}, f.dangles...), patch{state: id, slot: 1})
	return fragment{start: id, dangles: dangles}
}

// emptyMatch builds a fragment matching the empty string (used as the
// identity element when a concatenation has no operands to combine,
// as in the empty pattern, "()" or an empty alternative such as "a|").
func (b *builder) emptyMatch() fragment {
	id := b.nfa.newState()
	b.nfa.states[id].Split = true
	return fragment{start: id, dangles: []patch{{state: id, slot: 0}}}
}

// Compile parses pattern and compiles it to an NFA, or fails with
// *cerrors.MalformedRegex on an unknown escape, unmatched bracket, or
// empty range.
func Compile(pattern string) (*NFA, error) {
	p := &parser{input: []rune(pattern)}
	node, err := p.parseAlt()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.input) {
		return nil, &cerrors.MalformedRegex{Pattern: pattern, Reason: "unmatched ')'"}
	}

	b := newBuilder()
	frag, err := node.build(b)
	if err != nil {
		return nil, err
	}
	accept := b.nfa.newState()
	b.nfa.states[accept].Accept = true
	b.patchTo(frag.dangles, accept)
	b.nfa.start = frag.start
	return b.nfa, nil
}
