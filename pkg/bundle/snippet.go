package bundle

import "github.com/stackb/scriptbundles/pkg/scope"

// SnippetElement is a text expansion triggered by a tab trigger.
type SnippetElement struct {
	member

	Trigger   string
	Expansion string
	Scope     string
}

// NewSnippetElement creates a snippet.
func NewSnippetElement(name, path string) *SnippetElement {
	return &SnippetElement{member: newMember(name, path)}
}

// ScopeSelector returns the parsed Scope.
func (s *SnippetElement) ScopeSelector() *scope.Selector {
	return scope.ParseSelector(s.Scope)
}
