package bundlemanager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/manifest"
)

// LoadBundles clears the index and loads application, user and project
// bundles, in that order.  Script failures do not stop the load; they are
// joined into the returned error.
func (m *Manager) LoadBundles() error {
	m.Reset()
	return errors.Join(
		m.LoadApplicationBundles(),
		m.LoadUserBundles(),
		m.LoadProjectBundles(),
	)
}

// LoadApplicationBundles loads every bundle under the application root.
func (m *Manager) LoadApplicationBundles() error {
	return m.loadBundlesUnder(m.applicationBundlesPath)
}

// LoadUserBundles loads every bundle under the user root.
func (m *Manager) LoadUserBundles() error {
	return m.loadBundlesUnder(m.userBundlesPath)
}

// LoadProjectBundles loads the bundles of every project root.
func (m *Manager) LoadProjectBundles() error {
	var errs []error
	for _, root := range m.projects.ProjectRoots() {
		errs = append(errs, m.loadBundlesUnder(filepath.Join(root, ProjectBundlesDirectoryName)))
	}
	return errors.Join(errs...)
}

func (m *Manager) loadBundlesUnder(root string) error {
	var errs []error
	for _, dir := range m.GetBundleDirectories(root) {
		errs = append(errs, m.LoadBundle(dir))
	}
	return errors.Join(errs...)
}

// LoadBundle runs every script of the bundle in dir with the bundle's load
// paths.  An invalid directory is reported and skipped.
func (m *Manager) LoadBundle(dir string) error {
	scripts := m.GetBundleScripts(dir)
	if len(scripts) == 0 {
		return nil
	}
	loadPaths := m.GetBundleLoadPaths(dir)

	m.logger.Debug().Str("dir", dir).Int("scripts", len(scripts)).Msg("loading bundle")

	var errs []error
	for _, script := range scripts {
		errs = append(errs, m.LoadScriptWithPaths(script, true, loadPaths))
	}
	return errors.Join(errs...)
}

// LoadScript runs a single script and fires ScriptLoaded.
func (m *Manager) LoadScript(path string) error {
	return m.LoadScriptWithEvent(path, true)
}

// LoadScriptWithEvent runs a single script with the load paths of its
// bundle.
func (m *Manager) LoadScriptWithEvent(path string, fireEvent bool) error {
	if path == "" {
		m.sink.LogError(msgEmptyScriptLoad)
		return nil
	}
	loadPaths := m.GetBundleLoadPaths(m.GetBundleDirectory(path))
	return m.LoadScriptWithPaths(path, fireEvent, loadPaths)
}

// LoadScriptWithPaths runs a single script with the given load paths.  An
// empty or unreadable path is reported and skipped.  ScriptLoaded is fired
// only when the script ran without error.
func (m *Manager) LoadScriptWithPaths(path string, fireEvent bool, loadPaths []string) error {
	if path == "" {
		m.sink.LogError(msgEmptyScriptLoad)
		return nil
	}
	if !isReadableFile(path) {
		m.sink.LogError(fmt.Sprintf(msgUnreadableScript, path))
		return nil
	}
	engine := m.scriptEngine()
	if engine == nil {
		m.sink.LogError(fmt.Sprintf(msgNoScriptEngine, path))
		return fmt.Errorf("%s: %w", path, errNoScriptEngine)
	}

	m.logger.Debug().Str("script", path).Strs("load_paths", loadPaths).Msg("loading script")

	if err := engine.RunScript(path, loadPaths); err != nil {
		m.sink.LogError(fmt.Sprintf(msgScriptFailed, path, err))
		return fmt.Errorf("loading %s: %w", path, err)
	}
	m.setScriptLoaded(path, true)

	if fireEvent {
		m.events.FireScriptLoaded(path)
	}
	return nil
}

// ReloadScript unloads path without an event, runs it again in reload mode
// and fires ScriptReloaded.
func (m *Manager) ReloadScript(path string) error {
	if path == "" {
		m.sink.LogError(msgEmptyScriptReload)
		return nil
	}
	m.UnloadScript(path, false)

	engine := m.scriptEngine()
	if engine == nil {
		m.sink.LogError(fmt.Sprintf(msgNoScriptEngine, path))
		return fmt.Errorf("%s: %w", path, errNoScriptEngine)
	}
	loadPaths := m.GetBundleLoadPaths(m.GetBundleDirectory(path))

	m.logger.Debug().Str("script", path).Msg("reloading script")

	if err := engine.RunScriptWithMode(path, loadPaths, RunThread, true); err != nil {
		m.sink.LogError(fmt.Sprintf(msgScriptFailed, path, err))
		return fmt.Errorf("reloading %s: %w", path, err)
	}
	m.setScriptLoaded(path, true)

	m.events.FireScriptReloaded(path)
	return nil
}

// ReloadBundle unloads and loads the directory of b.
func (m *Manager) ReloadBundle(b *bundle.BundleElement) error {
	if b == nil {
		return nil
	}
	dir := b.BundleDirectory()
	m.UnloadBundle(dir)
	return m.LoadBundle(dir)
}

// UnloadBundle unloads every script that produced an element under dir.
// Manifests are unloaded last so their bundles are empty by then and get
// removed.
func (m *Manager) UnloadBundle(dir string) {
	seen := make(map[string]bool)
	var scripts []string
	for _, e := range m.registry.ElementsByDirectory(dir) {
		if !seen[e.Path()] {
			seen[e.Path()] = true
			scripts = append(scripts, e.Path())
		}
	}
	sort.SliceStable(scripts, func(i, j int) bool {
		mi, mj := manifest.IsManifest(scripts[i]), manifest.IsManifest(scripts[j])
		if mi != mj {
			return mj
		}
		return scripts[i] < scripts[j]
	})
	for _, script := range scripts {
		m.UnloadScript(script, true)
	}
}

// UnloadScript removes everything path contributed.  Members are detached
// from their bundles and unregistered first.  Then each bundle declared by
// path has its metadata cleared and is removed when it has no members left.
func (m *Manager) UnloadScript(path string, fireEvent bool) {
	if path == "" {
		m.sink.LogError(msgEmptyScriptUnload)
		return
	}
	elements := m.registry.ElementsByPath(path)

	for _, e := range elements {
		member, ok := e.(bundle.Member)
		if !ok {
			continue
		}
		if owner := m.owner(member); owner != nil {
			m.events.FireElementDeleted(member)
			owner.RemoveElement(member)
		} else {
			m.sink.LogError(fmt.Sprintf(msgMissingOwner, member.DisplayName(), path))
		}
		m.registry.UnregisterElement(member)
	}

	for _, e := range elements {
		b, ok := e.(*bundle.BundleElement)
		if !ok {
			continue
		}
		b.ClearMetadata()
		if b.IsEmpty() {
			m.RemoveBundle(b)
		}
	}

	m.setScriptLoaded(path, false)

	m.logger.Debug().Str("script", path).Int("elements", len(elements)).Msg("unloaded script")

	if fireEvent {
		m.events.FireScriptUnloaded(path)
	}
}

func (m *Manager) owner(member bundle.Member) *bundle.BundleElement {
	id := member.OwnerID()
	if id == "" {
		return nil
	}
	e, ok := m.registry.Element(id)
	if !ok {
		return nil
	}
	b, _ := e.(*bundle.BundleElement)
	return b
}

func isReadableFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && !info.IsDir()
}
