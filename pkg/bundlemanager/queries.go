package bundlemanager

import (
	"github.com/dlclark/regexp2"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/scope"
)

// GetAllCommands returns the merged commands of every bundle, ordered by
// bundle name.
func (m *Manager) GetAllCommands() []*bundle.CommandElement {
	var commands []*bundle.CommandElement
	for _, name := range m.GetBundleNames() {
		commands = append(commands, m.GetBundleCommands(name)...)
	}
	return commands
}

// GetCommands returns the commands accepted by filter that can run on this
// platform.  A nil filter selects nothing.
func (m *Manager) GetCommands(filter bundle.ModelFilter) []*bundle.CommandElement {
	if filter == nil {
		return nil
	}
	filter = bundle.And(filter, bundle.IsExecutableCommandFilter)
	var commands []*bundle.CommandElement
	for _, c := range m.GetAllCommands() {
		if filter.Include(c) {
			commands = append(commands, c)
		}
	}
	return commands
}

// GetContentAssists returns the content assists accepted by filter.  A nil
// filter selects every content assist.
func (m *Manager) GetContentAssists(filter bundle.ModelFilter) []*bundle.CommandElement {
	filter = bundle.And(filter, bundle.ContentAssistFilter)
	var assists []*bundle.CommandElement
	for _, c := range m.GetAllCommands() {
		if filter.Include(c) {
			assists = append(assists, c)
		}
	}
	return assists
}

// GetMenus returns the menus accepted by filter.  A nil filter selects
// nothing.
func (m *Manager) GetMenus(filter bundle.ModelFilter) []*bundle.MenuElement {
	if filter == nil {
		return nil
	}
	var menus []*bundle.MenuElement
	for _, name := range m.GetBundleNames() {
		for _, menu := range m.GetBundleMenus(name) {
			if filter.Include(menu) {
				menus = append(menus, menu)
			}
		}
	}
	return menus
}

// GetSnippets returns the snippets accepted by filter.  A nil filter selects
// every snippet.
func (m *Manager) GetSnippets(filter bundle.ModelFilter) []*bundle.SnippetElement {
	var snippets []*bundle.SnippetElement
	for _, name := range m.GetBundleNames() {
		for _, s := range m.GetBundleSnippets(name) {
			if filter == nil || filter.Include(s) {
				snippets = append(snippets, s)
			}
		}
	}
	return snippets
}

// GetMarkerRegexp returns the marker of the given kind whose selector best
// matches scopeName across all bundles, or nil.
func (m *Manager) GetMarkerRegexp(kind bundle.MarkerKind, scopeName string) *regexp2.Regexp {
	matcher := scope.NewMatcher[*regexp2.Regexp](scopeName)
	for _, name := range m.GetBundleNames() {
		entry := m.GetBundleEntry(name)
		if entry == nil {
			continue
		}
		for _, marker := range entry.Markers(kind) {
			matcher.Offer(marker)
		}
	}
	re, _ := matcher.Result()
	return re
}

// GetIncreaseIndentRegexp returns the best increase-indent marker for
// scopeName, or nil.
func (m *Manager) GetIncreaseIndentRegexp(scopeName string) *regexp2.Regexp {
	return m.GetMarkerRegexp(bundle.IncreaseIndent, scopeName)
}

// GetDecreaseIndentRegexp returns the best decrease-indent marker for
// scopeName, or nil.
func (m *Manager) GetDecreaseIndentRegexp(scopeName string) *regexp2.Regexp {
	return m.GetMarkerRegexp(bundle.DecreaseIndent, scopeName)
}

// GetFoldingStartRegexp returns the best folding-start marker for
// scopeName, or nil.
func (m *Manager) GetFoldingStartRegexp(scopeName string) *regexp2.Regexp {
	return m.GetMarkerRegexp(bundle.FoldingStart, scopeName)
}

// GetFoldingStopRegexp returns the best folding-stop marker for scopeName,
// or nil.
func (m *Manager) GetFoldingStopRegexp(scopeName string) *regexp2.Regexp {
	return m.GetMarkerRegexp(bundle.FoldingStop, scopeName)
}

// GetTopLevelScope returns the scope name registered for fileName by any
// bundle.  The boolean is false when no file type matches.
func (m *Manager) GetTopLevelScope(fileName string) (string, bool) {
	matcher := scope.NewFileTypeMatcher(fileName)
	for _, name := range m.GetBundleNames() {
		entry := m.GetBundleEntry(name)
		if entry == nil {
			continue
		}
		for _, ft := range entry.FileTypes() {
			matcher.Offer(ft)
		}
	}
	return matcher.Result()
}
