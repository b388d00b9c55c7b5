// Package watch reloads bundles when their files change on disk.
//
// A Watcher monitors bundle roots (directories whose children are bundle
// directories) and, after a quiet period, translates the accumulated
// changes into lifecycle calls: scripts are loaded, reloaded or unloaded,
// a changed lib directory reloads its whole bundle, and new bundle
// directories are loaded.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/bundlemanager"
	"github.com/stackb/scriptbundles/pkg/config"
	"github.com/stackb/scriptbundles/pkg/manifest"
)

// defaultIgnores are always excluded, relative to a watched root.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// Lifecycle is the part of the bundle manager a Watcher drives.
type Lifecycle interface {
	IsScriptLoaded(path string) bool
	LoadScript(path string) error
	ReloadScript(path string) error
	UnloadScript(path string, fireEvent bool)
	LoadBundle(dir string) error
	ReloadBundle(b *bundle.BundleElement) error
	UnloadBundle(dir string)
	GetBundleFromPath(dir string) *bundle.BundleElement
}

// Option configures a Watcher.
type Option func(w *Watcher) *Watcher

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) *Watcher {
		w.logger = l
		return w
	}
}

// WithDebounce sets the quiet period after the last event before changes
// are applied.  Zero or negative values select config.DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) *Watcher {
		w.debounce = d
		return w
	}
}

// WithIgnore adds doublestar patterns, relative to a watched root, whose
// changes are ignored.
func WithIgnore(patterns ...string) Option {
	return func(w *Watcher) *Watcher {
		w.ignores = append(w.ignores, patterns...)
		return w
	}
}

// Watcher monitors bundle roots.  Run must be called once.
type Watcher struct {
	logger    zerolog.Logger
	lifecycle Lifecycle
	fsw       *fsnotify.Watcher
	// roots are the existing bundle roots, cleaned
	roots    []string
	ignores  []string
	debounce time.Duration
	// digests of the scripts under roots
	digests *digests
	started atomic.Bool
}

// New creates a Watcher over the given bundle roots.  Roots that do not
// exist are skipped.
func New(lifecycle Lifecycle, roots []string, options ...Option) (*Watcher, error) {
	w := &Watcher{
		logger:    zerolog.Nop(),
		lifecycle: lifecycle,
		ignores:   append([]string(nil), defaultIgnores...),
		digests:   newDigests(),
	}
	for _, opt := range options {
		w = opt(w)
	}
	if w.debounce <= 0 {
		w.debounce = config.DefaultDebounce
	}
	for _, pat := range w.ignores {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}

	for _, root := range roots {
		if root == "" {
			continue
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			w.logger.Debug().Str("root", root).Msg("not watching missing bundles root")
			continue
		}
		w.roots = append(w.roots, filepath.Clean(root))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w.fsw = fsw
	for _, root := range w.roots {
		if err := w.addDirectories(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Roots returns the watched bundle roots.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Run processes filesystem events until ctx is cancelled.  Changes are
// applied on the goroutine of the debounce timer, one batch at a time.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]fsnotify.Op)
		timer   *time.Timer
		// applying serializes batches
		applying sync.Mutex
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		applying.Lock()
		defer applying.Unlock()

		mu.Lock()
		changes := pending
		pending = make(map[string]fsnotify.Op)
		mu.Unlock()

		if len(changes) > 0 {
			w.apply(changes)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("closing fsnotify watcher")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed")
			}
			if w.isIgnored(evt.Name) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			w.logger.Debug().Str("path", evt.Name).Stringer("op", evt.Op).Msg("change")

			mu.Lock()
			pending[evt.Name] |= evt.Op
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed")
			}
			w.logger.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// change is a path relative to the bundle directory that contains it.
type change struct {
	path      string
	bundleDir string
	// parts of path below bundleDir; empty for the bundle directory itself
	parts []string
}

// apply translates one batch of changes into lifecycle calls.  Bundle
// directory changes come first, then lib changes (one reload per bundle),
// then individual scripts in path order.
func (w *Watcher) apply(changes map[string]fsnotify.Op) {
	paths := make([]string, 0, len(changes))
	for p := range changes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var bundleDirs, libBundles, scripts []change
	for _, p := range paths {
		c, ok := w.classify(p)
		if !ok {
			continue
		}
		switch {
		case len(c.parts) == 0:
			bundleDirs = append(bundleDirs, c)
		case c.parts[0] == manifest.LibDirectoryName:
			libBundles = append(libBundles, c)
		case isBundleScript(c.parts):
			scripts = append(scripts, c)
		}
	}

	handled := make(map[string]bool)

	for _, c := range bundleDirs {
		handled[c.bundleDir] = true
		if isDir(c.bundleDir) {
			if w.lifecycle.GetBundleFromPath(c.bundleDir) != nil {
				continue
			}
			w.logger.Info().Str("dir", c.bundleDir).Msg("loading new bundle")
			w.report(w.lifecycle.LoadBundle(c.bundleDir))
		} else {
			w.logger.Info().Str("dir", c.bundleDir).Msg("unloading removed bundle")
			w.lifecycle.UnloadBundle(c.bundleDir)
		}
	}

	for _, c := range libBundles {
		if handled[c.bundleDir] {
			continue
		}
		handled[c.bundleDir] = true
		w.reloadBundle(c.bundleDir)
	}

	for _, c := range scripts {
		if handled[c.bundleDir] {
			continue
		}
		w.applyScript(c)
	}
}

func (w *Watcher) applyScript(c change) {
	exists := isFile(c.path)
	loaded := w.lifecycle.IsScriptLoaded(c.path)

	if !exists {
		w.digests.forget(c.path)
	}

	switch {
	case !exists && loaded:
		w.logger.Info().Str("script", c.path).Msg("unloading removed script")
		w.lifecycle.UnloadScript(c.path, true)
	case !exists:
	case loaded && !w.digests.update(c.path):
		w.logger.Debug().Str("script", c.path).Msg("script content unchanged")
	case loaded:
		w.logger.Info().Str("script", c.path).Msg("reloading script")
		w.report(w.lifecycle.ReloadScript(c.path))
	case manifest.IsManifest(c.path) && w.lifecycle.GetBundleFromPath(c.bundleDir) == nil:
		w.digests.update(c.path)
		w.logger.Info().Str("dir", c.bundleDir).Msg("loading new bundle")
		w.report(w.lifecycle.LoadBundle(c.bundleDir))
	default:
		w.digests.update(c.path)
		w.logger.Info().Str("script", c.path).Msg("loading script")
		w.report(w.lifecycle.LoadScript(c.path))
	}
}

func (w *Watcher) reloadBundle(dir string) {
	b := w.lifecycle.GetBundleFromPath(dir)
	if b == nil {
		w.logger.Info().Str("dir", dir).Msg("loading bundle")
		w.report(w.lifecycle.LoadBundle(dir))
		return
	}
	w.logger.Info().Str("dir", dir).Msg("reloading bundle")
	w.report(w.lifecycle.ReloadBundle(b))
}

func (w *Watcher) report(err error) {
	if err != nil {
		w.logger.Error().Err(err).Msg("applying change")
	}
}

// classify locates path under a watched root.  The root itself and paths
// outside every root are rejected.
func (w *Watcher) classify(path string) (change, bool) {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		return change{
			path:      path,
			bundleDir: filepath.Join(root, parts[0]),
			parts:     parts[1:],
		}, true
	}
	return change{}, false
}

// isBundleScript reports whether parts, relative to a bundle directory,
// name the manifest or a script directly inside a script directory.
func isBundleScript(parts []string) bool {
	switch len(parts) {
	case 1:
		return parts[0] == manifest.FileName
	case 2:
		if !manifest.IsScript(parts[1]) {
			return false
		}
		for _, name := range bundlemanager.ScriptDirectoryNames {
			if parts[0] == name {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) addDirectories(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("not watching inaccessible path")
			return nil
		}
		if !d.IsDir() {
			if manifest.IsScript(path) && !w.isIgnored(path) {
				w.digests.update(path)
			}
			return nil
		}
		if w.isIgnored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
}

// maybeAddDir watches a directory created after the initial walk, along
// with anything created inside it before the watch was added.
func (w *Watcher) maybeAddDir(path string) {
	if !isDir(path) || w.isIgnored(path) {
		return
	}
	if err := w.addDirectories(path); err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("watching new directory")
	}
}

// isIgnored matches path, made relative to its root, against the ignore
// patterns.  Directories are also tried with a trailing slash.
func (w *Watcher) isIgnored(path string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		for _, pat := range w.ignores {
			if doublestar.MatchUnvalidated(pat, rel) || doublestar.MatchUnvalidated(pat, rel+"/") {
				return true
			}
		}
		return false
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
