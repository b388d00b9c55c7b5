package bundle

import "github.com/stackb/scriptbundles/pkg/scope"

// ModelFilter selects elements.
type ModelFilter interface {
	Include(e Element) bool
}

// FilterFunc adapts a function to the ModelFilter interface.
type FilterFunc func(e Element) bool

// Include implements ModelFilter.
func (f FilterFunc) Include(e Element) bool {
	return f(e)
}

// And returns a filter that includes an element when every non-nil filter
// does.
func And(filters ...ModelFilter) ModelFilter {
	return FilterFunc(func(e Element) bool {
		for _, f := range filters {
			if f != nil && !f.Include(e) {
				return false
			}
		}
		return true
	})
}

// AcceptAll includes every element.
var AcceptAll ModelFilter = FilterFunc(func(Element) bool { return true })

// IsExecutableCommandFilter includes commands that run on the current
// platform.
var IsExecutableCommandFilter ModelFilter = FilterFunc(func(e Element) bool {
	c, ok := e.(*CommandElement)
	return ok && c.IsExecutable()
})

// ContentAssistFilter includes content assist commands.
var ContentAssistFilter ModelFilter = FilterFunc(func(e Element) bool {
	c, ok := e.(*CommandElement)
	return ok && c.IsContentAssist()
})

type scoped interface {
	ScopeSelector() *scope.Selector
}

// ScopeFilter includes elements whose scope selector matches the given scope
// string.  Elements without a scope match any scope.
func ScopeFilter(scopeName string) ModelFilter {
	return FilterFunc(func(e Element) bool {
		s, ok := e.(scoped)
		if !ok {
			return true
		}
		sel := s.ScopeSelector()
		return sel.IsEmpty() || sel.Matches(scopeName)
	})
}
