package bundle

import "github.com/stackb/scriptbundles/pkg/scope"

// MenuItem is an entry of a menu.  A separator is an item named "-".
type MenuItem struct {
	Name     string
	Command  string
	Children []*MenuItem
}

// IsSeparator reports whether the item is a separator.
func (m *MenuItem) IsSeparator() bool {
	return m.Name == "-"
}

// MenuElement is a top-level menu contributed by a bundle.
type MenuElement struct {
	member

	Scope    string
	Children []*MenuItem
}

// NewMenuElement creates a menu.
func NewMenuElement(name, path string) *MenuElement {
	return &MenuElement{member: newMember(name, path)}
}

// ScopeSelector returns the parsed Scope.
func (m *MenuElement) ScopeSelector() *scope.Selector {
	return scope.ParseSelector(m.Scope)
}

// Commands returns the command names referenced anywhere in the menu tree, in
// depth-first order.
func (m *MenuElement) Commands() []string {
	var names []string
	var walk func(items []*MenuItem)
	walk = func(items []*MenuItem) {
		for _, item := range items {
			if item.Command != "" {
				names = append(names, item.Command)
			}
			walk(item.Children)
		}
	}
	walk(m.Children)
	return names
}
