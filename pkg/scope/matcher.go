package scope

// Candidate pairs a selector with the value it resolves to.
type Candidate[V any] struct {
	Selector *Selector
	Value    V
}

// Matcher accumulates candidates offered for a single scope string and keeps
// the best one.  The order in which candidates are offered matters: see Offer.
type Matcher[V any] struct {
	scope   string
	value   V
	matched string
	found   bool
}

// NewMatcher returns a Matcher for the given scope string.
func NewMatcher[V any](scope string) *Matcher[V] {
	return &Matcher[V]{scope: scope}
}

// Offer considers a candidate and reports whether it became the current best
// match.  A candidate is eligible when its selector matches the scope.  It
// replaces the current match only when its selector text is strictly longer
// than the text of the selector that produced the current match, so the first
// of several equal-length candidates wins.
//
// FIXME: selector length is a stand-in for specificity and is not correct
// for selectors in general (e.g. "a b" vs "a.b").
func (m *Matcher[V]) Offer(c Candidate[V]) bool {
	if c.Selector == nil || !c.Selector.Matches(m.scope) {
		return false
	}
	text := c.Selector.String()
	if m.found && len(text) <= len(m.matched) {
		return false
	}
	m.value = c.Value
	m.matched = text
	m.found = true
	return true
}

// Result returns the best match so far.  The boolean is false when no
// candidate matched.
func (m *Matcher[V]) Result() (V, bool) {
	return m.value, m.found
}

// MatchedSelector returns the text of the selector that produced the current
// match, or "" when none matched.
func (m *Matcher[V]) MatchedSelector() string {
	return m.matched
}

// BestMatch offers every candidate, in order, to a new Matcher for scope and
// returns the result.
func BestMatch[V any](scope string, candidates []Candidate[V]) (V, bool) {
	m := NewMatcher[V](scope)
	for _, c := range candidates {
		m.Offer(c)
	}
	return m.Result()
}
