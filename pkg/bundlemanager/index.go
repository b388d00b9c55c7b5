package bundlemanager

import (
	"sort"
	"strings"

	"github.com/stackb/scriptbundles/pkg/bundle"
)

// AddBundle indexes b by directory and by name.  It fires BundleAdded and,
// when b shadows the previously visible bundle of its name,
// BundleBecameHidden and BundleBecameVisible.
func (m *Manager) AddBundle(b *bundle.BundleElement) {
	if b == nil {
		return
	}
	dir := b.BundleDirectory()
	name := b.DisplayName()

	m.mu.Lock()
	m.bundlesByPath[dir] = append(m.bundlesByPath[dir], b)
	entry, ok := m.entriesByName[name]
	if !ok {
		entry = bundle.NewBundleEntry(name)
		m.entriesByName[name] = entry
	}
	before, after := entry.AddBundle(b)
	m.mu.Unlock()

	m.logger.Debug().
		Str("name", name).
		Str("dir", dir).
		Stringer("precedence", b.Precedence()).
		Msg("bundle added")

	m.events.FireBundleAdded(b)
	if before != after {
		if before != nil {
			m.events.FireBundleBecameHidden(entry, before)
		}
		m.events.FireBundleBecameVisible(entry, after)
	}
}

// RemoveBundle removes b from both indexes and unregisters it.  It fires
// BundleDeleted and, when b was visible, BundleBecameHidden followed by
// BundleBecameVisible for the member that takes its place.
func (m *Manager) RemoveBundle(b *bundle.BundleElement) {
	if b == nil {
		return
	}
	dir := b.BundleDirectory()
	name := b.DisplayName()

	m.mu.Lock()
	if list, ok := m.bundlesByPath[dir]; ok {
		for i, other := range list {
			if other == b {
				list = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(m.bundlesByPath, dir)
		} else {
			m.bundlesByPath[dir] = list
		}
	}
	var before, after *bundle.BundleElement
	entry, ok := m.entriesByName[name]
	if ok {
		before, after, _ = entry.RemoveBundle(b)
		if entry.Size() == 0 {
			delete(m.entriesByName, name)
		}
	}
	m.mu.Unlock()

	m.registry.UnregisterElement(b)

	m.logger.Debug().
		Str("name", name).
		Str("dir", dir).
		Msg("bundle removed")

	m.events.FireBundleDeleted(b)
	if entry != nil && before == b {
		m.events.FireBundleBecameHidden(entry, b)
		if after != nil {
			m.events.FireBundleBecameVisible(entry, after)
		}
	}
}

// Reset clears both indexes without firing events or touching the element
// registry.  It is meant for full rebuilds.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.bundlesByPath = make(map[string][]*bundle.BundleElement)
	m.entriesByName = make(map[string]*bundle.BundleEntry)
	m.loadedScripts = make(map[string]bool)
	m.mu.Unlock()
}

// GetBundleFromPath returns the most recently added bundle for dir, or nil.
func (m *Manager) GetBundleFromPath(dir string) *bundle.BundleElement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.bundlesByPath[dir]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

// HasBundleAtPath reports whether any bundle is indexed for dir.
func (m *Manager) HasBundleAtPath(dir string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bundlesByPath[dir]) > 0
}

// GetApplicationBundles returns, for every indexed directory under the
// application bundles root, its most recently added bundle, ordered by
// directory.
func (m *Manager) GetApplicationBundles() []*bundle.BundleElement {
	root := m.applicationBundlesPath
	if root == "" {
		return nil
	}
	m.mu.RLock()
	dirs := make([]string, 0, len(m.bundlesByPath))
	for dir := range m.bundlesByPath {
		if strings.HasPrefix(dir, root) {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	bundles := make([]*bundle.BundleElement, 0, len(dirs))
	for _, dir := range dirs {
		list := m.bundlesByPath[dir]
		bundles = append(bundles, list[len(list)-1])
	}
	m.mu.RUnlock()
	return bundles
}

// GetBundleEntry returns the entry for name, or nil.
func (m *Manager) GetBundleEntry(name string) *bundle.BundleEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesByName[name]
}

// GetBundleNames returns the indexed display names in ascending order.
func (m *Manager) GetBundleNames() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.entriesByName))
	for name := range m.entriesByName {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}

// GetBundleCommands returns the merged commands of the named bundle.
func (m *Manager) GetBundleCommands(name string) []*bundle.CommandElement {
	if entry := m.GetBundleEntry(name); entry != nil {
		return entry.Commands()
	}
	return nil
}

// GetBundleMenus returns the merged menus of the named bundle.
func (m *Manager) GetBundleMenus(name string) []*bundle.MenuElement {
	if entry := m.GetBundleEntry(name); entry != nil {
		return entry.Menus()
	}
	return nil
}

// GetBundleSnippets returns the merged snippets of the named bundle.
func (m *Manager) GetBundleSnippets(name string) []*bundle.SnippetElement {
	if entry := m.GetBundleEntry(name); entry != nil {
		return entry.Snippets()
	}
	return nil
}

// GetBundleLoadPathsByName returns the load paths of every bundle with the
// given name followed by the engine's contributed load paths, without
// duplicates.
func (m *Manager) GetBundleLoadPathsByName(name string) []string {
	var paths []string
	if entry := m.GetBundleEntry(name); entry != nil {
		paths = append(paths, entry.LoadPaths()...)
	}
	return dedupe(append(paths, m.contributedLoadPaths()...))
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// IsScriptLoaded reports whether path ran successfully and has not been
// unloaded since.
func (m *Manager) IsScriptLoaded(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadedScripts[path]
}

func (m *Manager) setScriptLoaded(path string, loaded bool) {
	m.mu.Lock()
	if loaded {
		m.loadedScripts[path] = true
	} else {
		delete(m.loadedScripts, path)
	}
	m.mu.Unlock()
}

func (m *Manager) contributedLoadPaths() []string {
	if e := m.scriptEngine(); e != nil {
		return e.ContributedLoadPaths()
	}
	return nil
}
