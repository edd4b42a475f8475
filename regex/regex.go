package regex

// Pattern is a compiled regular expression, ready to match against a
// rune slice via FindLongestMatch.
type Pattern struct {
	source string
	nfa    *NFA
}

// New compiles pattern, per the surface documented on the package, or
// fails with *cerrors.MalformedRegex.
func New(pattern string) (*Pattern, error) {
	nfa, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Pattern{source: pattern, nfa: nfa}, nil
}

// Source returns the pattern text the Pattern was compiled from.
func (p *Pattern) Source() string {
	return p.source
}

// FindLongestMatch reports the longest prefix of text accepted by the
// pattern starting at text[0]. matched is false only if no prefix, the
// empty prefix included, reaches an accepting state; a pattern like
// "a*" therefore matches "bbb" with length 0.
func (p *Pattern) FindLongestMatch(text []rune) (lexeme string, length int, matched bool) {
	return p.nfa.FindLongestMatch(text)
}
