package bundlemanager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/manifest"
)

const (
	// CommandsDirectoryName holds command scripts.
	CommandsDirectoryName = "commands"
	// SnippetsDirectoryName holds snippet scripts.
	SnippetsDirectoryName = "snippets"
	// TemplatesDirectoryName holds template scripts.
	TemplatesDirectoryName = "templates"
	// ProjectBundlesDirectoryName is the directory under a project root that
	// holds project bundles.
	ProjectBundlesDirectoryName = "bundles"
)

// ScriptDirectoryNames lists the bundle subdirectories scanned for scripts,
// in load order.
var ScriptDirectoryNames = []string{
	CommandsDirectoryName,
	SnippetsDirectoryName,
	TemplatesDirectoryName,
}

// scriptPattern matches script files directly inside a directory.
var scriptPattern = "*" + manifest.ScriptExtension

// GetBundleDirectory returns the bundle directory of a script: the parent of
// a manifest, else the grandparent.
func (m *Manager) GetBundleDirectory(script string) string {
	if manifest.IsManifest(script) {
		return filepath.Dir(script)
	}
	return filepath.Dir(filepath.Dir(script))
}

// GetBundleDirectories returns the non-hidden subdirectories of root, sorted
// by name.  It returns nothing when root cannot be read.
func (m *Manager) GetBundleDirectories(root string) []string {
	if root == "" {
		return nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		m.logger.Debug().Err(err).Str("root", root).Msg("skipping bundles root")
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(root, e.Name())
		if !e.IsDir() {
			// follow symlinks to directories
			info, err := os.Stat(path)
			if err != nil || !info.IsDir() {
				continue
			}
		}
		dirs = append(dirs, path)
	}
	return dirs
}

// IsValidBundleDirectory reports whether dir is a readable directory with a
// manifest.  Otherwise a diagnostic is reported and false returned.
func (m *Manager) IsValidBundleDirectory(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil {
		m.sink.LogError(fmt.Sprintf(msgDirectoryDoesNotExist, dir))
		return false
	}
	if !info.IsDir() {
		m.sink.LogError(fmt.Sprintf(msgNotADirectory, dir))
		return false
	}
	f, err := os.Open(dir)
	if err != nil {
		m.sink.LogError(fmt.Sprintf(msgUnreadableDirectory, dir))
		return false
	}
	f.Close()
	if info, err := os.Stat(manifest.Path(dir)); err != nil || info.IsDir() {
		m.sink.LogError(fmt.Sprintf(msgNoBundleFile, dir, manifest.FileName))
		return false
	}
	return true
}

// GetBundleScripts returns the scripts of a valid bundle directory: the
// manifest, then the scripts directly inside each of ScriptDirectoryNames
// in name order.
func (m *Manager) GetBundleScripts(dir string) []string {
	if !m.IsValidBundleDirectory(dir) {
		return nil
	}
	scripts := []string{manifest.Path(dir)}
	for _, name := range ScriptDirectoryNames {
		scripts = append(scripts, m.scriptsInDirectory(filepath.Join(dir, name))...)
	}
	return scripts
}

func (m *Manager) scriptsInDirectory(dir string) []string {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), scriptPattern,
		doublestar.WithCaseInsensitive(),
		doublestar.WithFilesOnly())
	if err != nil {
		m.logger.Warn().Err(err).Str("dir", dir).Msg("listing scripts")
		return nil
	}
	sort.Strings(matches)
	scripts := make([]string, len(matches))
	for i, match := range matches {
		scripts[i] = filepath.Join(dir, filepath.FromSlash(match))
	}
	return scripts
}

// GetBundleLoadPaths returns the library search paths for scripts of the
// bundle in dir.  The bundle's own lib directory comes first.  When the
// manifest declares a name other than the default one, the load paths of
// the bundles with that name follow, so a bundle can extend another.
// Otherwise the engine's contributed load paths follow.
func (m *Manager) GetBundleLoadPaths(dir string) []string {
	if dir == "" {
		return nil
	}
	var rest []string
	manifestPath := manifest.Path(dir)
	if _, err := os.Stat(manifestPath); err == nil {
		declared, err := manifest.DeclaredName(manifestPath)
		if err != nil {
			m.sink.LogWarning(fmt.Sprintf(msgManifestUnparsable, manifestPath, err))
		} else if declared != manifest.DefaultName(manifestPath) {
			rest = m.GetBundleLoadPathsByName(declared)
		}
	}
	if rest == nil {
		rest = m.contributedLoadPaths()
	}
	return dedupe(append([]string{manifest.LibDirectory(dir)}, rest...))
}

// GetBundlePrecedence returns the precedence of a path by prefix: the
// application root, then the user root, else project.  Empty roots never
// match.
func (m *Manager) GetBundlePrecedence(path string) bundle.Precedence {
	switch {
	case m.applicationBundlesPath != "" && strings.HasPrefix(path, m.applicationBundlesPath):
		return bundle.Application
	case m.userBundlesPath != "" && strings.HasPrefix(path, m.userBundlesPath):
		return bundle.User
	default:
		return bundle.Project
	}
}
