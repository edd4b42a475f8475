// Package regex implements the small regular-expression surface the
// tokenizer's patterns are written in: concatenation, alternation (|),
// the repetition operators * + ?, grouping (...), character classes
// ([a-z] with ranges), and the escapes \( \) \\ \+ \* \? \| \[ \].
//
// Construction follows Thompson's algorithm: a pattern is parsed into a
// small AST and compiled into an NFA with epsilon transitions. Matching
// runs the NFA by subset simulation, one input rune at a time, and
// reports the longest prefix for which an accepting state was present
// in the current state set (see FindLongestMatch).
package regex

// matcher decides whether a single input rune is consumed by a state.
type matcher func(r rune) bool

// state is one NFA node. A state either:
//   - consumes a rune via Char and transitions to Out, or
//   - is an epsilon split to Out and Out1 (Char == nil, Split == true), or
//   - is the unique accepting state (Accept == true, no outgoing edges).
type state struct {
	Char   matcher
	Split  bool
	Accept bool
	Out    int
	Out1   int
}

// NFA is a compiled pattern, ready to match.
type NFA struct {
	states []state
	start  int
}

const noState = -1

func (n *NFA) newState() int {
	n.states = append(n.states, state{Out: noState, Out1: noState})
	return len(n.states) - 1
}

// epsilonClosure returns every state reachable from the given set via
// zero or more epsilon (split) transitions, as a deduplicated set.
func (n *NFA) epsilonClosure(seed []int) map[int]bool {
	seen := make(map[int]bool, len(seed)*2)
	stack := append([]int{}, seed...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		st := n.states[id]
		if st.Split {
			if st.Out != noState && !seen[st.Out] {
				stack = append(stack, st.Out)
			}
			if st.Out1 != noState && !seen[st.Out1] {
				stack = append(stack, st.Out1)
			}
		}
	}
	return seen
}

func (n *NFA) hasAccept(set map[int]bool) bool {
	for id := range set {
		if n.states[id].Accept {
			return true
		}
	}
	return false
}

// FindLongestMatch runs the NFA against text starting at its first
// rune, and returns the longest accepting prefix. If no prefix is
// accepted, matched is false.
func (n *NFA) FindLongestMatch(text []rune) (lexeme string, length int, matched bool) {
	current := n.epsilonClosure([]int{n.start})

	longest := -1
	if n.hasAccept(current) {
		longest = 0
	}

	for i, r := range text {
		var next []int
		for id := range current {
			st := n.states[id]
			if !st.Split && !st.Accept && st.Char != nil && st.Char(r) {
				next = append(next, st.Out)
			}
		}
		if len(next) == 0 {
			break
		}
		current = n.epsilonClosure(next)
		if n.hasAccept(current) {
			longest = i + 1
		}
	}

	if longest < 0 {
		return "", 0, false
	}
	return string(text[:longest]), longest, true
}
