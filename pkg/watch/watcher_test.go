package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bazelbuild/bazel-gazelle/testtools"
	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/testutil"
)

// fakeLifecycle records lifecycle calls with paths relative to root.
type fakeLifecycle struct {
	root string

	mu      sync.Mutex
	calls   []string
	loaded  map[string]bool
	bundles map[string]*bundle.BundleElement
}

func newFakeLifecycle(root string) *fakeLifecycle {
	return &fakeLifecycle{
		root:    root,
		loaded:  make(map[string]bool),
		bundles: make(map[string]*bundle.BundleElement),
	}
}

func (f *fakeLifecycle) rel(path string) string {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (f *fakeLifecycle) record(call, path string) {
	f.mu.Lock()
	f.calls = append(f.calls, call+" "+f.rel(path))
	f.mu.Unlock()
}

func (f *fakeLifecycle) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeLifecycle) addBundle(dir string) {
	f.bundles[dir] = bundle.NewBundleElement(filepath.Base(dir), filepath.Join(dir, "bundle.star"), dir, bundle.Application)
}

func (f *fakeLifecycle) IsScriptLoaded(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded[path]
}

func (f *fakeLifecycle) LoadScript(path string) error {
	f.record("load", path)
	return nil
}

func (f *fakeLifecycle) ReloadScript(path string) error {
	f.record("reload", path)
	return nil
}

func (f *fakeLifecycle) UnloadScript(path string, fireEvent bool) {
	f.record("unload", path)
}

func (f *fakeLifecycle) LoadBundle(dir string) error {
	f.record("load bundle", dir)
	return nil
}

func (f *fakeLifecycle) ReloadBundle(b *bundle.BundleElement) error {
	f.record("reload bundle", b.BundleDirectory())
	return nil
}

func (f *fakeLifecycle) UnloadBundle(dir string) {
	f.record("unload bundle", dir)
}

func (f *fakeLifecycle) GetBundleFromPath(dir string) *bundle.BundleElement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bundles[dir]
}

func TestApply(t *testing.T) {
	for name, tc := range map[string]struct {
		files   []testtools.FileSpec
		loaded  []string
		bundles []string
		// modify lists files rewritten after the watcher is created
		modify  []string
		changes map[string]fsnotify.Op
		want    []string
	}{
		"modified script is reloaded": {
			files:   []testtools.FileSpec{{Path: "app/ruby/commands/run.star"}},
			loaded:  []string{"app/ruby/commands/run.star"},
			bundles: []string{"app/ruby"},
			modify:  []string{"app/ruby/commands/run.star"},
			changes: map[string]fsnotify.Op{"app/ruby/commands/run.star": fsnotify.Write},
			want:    []string{"reload app/ruby/commands/run.star"},
		},
		"unchanged script is not reloaded": {
			files:   []testtools.FileSpec{{Path: "app/ruby/commands/run.star", Content: "# same\n"}},
			loaded:  []string{"app/ruby/commands/run.star"},
			bundles: []string{"app/ruby"},
			changes: map[string]fsnotify.Op{"app/ruby/commands/run.star": fsnotify.Write | fsnotify.Chmod},
		},
		"new script is loaded": {
			files:   []testtools.FileSpec{{Path: "app/ruby/snippets/def.star"}},
			bundles: []string{"app/ruby"},
			changes: map[string]fsnotify.Op{"app/ruby/snippets/def.star": fsnotify.Create},
			want:    []string{"load app/ruby/snippets/def.star"},
		},
		"removed script is unloaded": {
			files:   []testtools.FileSpec{{Path: "app/ruby/commands/"}},
			loaded:  []string{"app/ruby/commands/run.star"},
			bundles: []string{"app/ruby"},
			changes: map[string]fsnotify.Op{"app/ruby/commands/run.star": fsnotify.Remove},
			want:    []string{"unload app/ruby/commands/run.star"},
		},
		"removed script never loaded": {
			files:   []testtools.FileSpec{{Path: "app/ruby/commands/"}},
			bundles: []string{"app/ruby"},
			changes: map[string]fsnotify.Op{"app/ruby/commands/run.star": fsnotify.Remove},
		},
		"lib change reloads bundle once": {
			files: []testtools.FileSpec{
				{Path: "app/ruby/lib/a.star"},
				{Path: "app/ruby/lib/b.star"},
				{Path: "app/ruby/commands/run.star"},
			},
			loaded:  []string{"app/ruby/commands/run.star"},
			bundles: []string{"app/ruby"},
			changes: map[string]fsnotify.Op{
				"app/ruby/lib/a.star":        fsnotify.Write,
				"app/ruby/lib/b.star":        fsnotify.Write,
				"app/ruby/commands/run.star": fsnotify.Write,
			},
			want: []string{"reload bundle app/ruby"},
		},
		"new bundle directory is loaded": {
			files: []testtools.FileSpec{
				{Path: "app/go/bundle.star"},
				{Path: "app/go/commands/build.star"},
			},
			changes: map[string]fsnotify.Op{
				"app/go":                     fsnotify.Create,
				"app/go/bundle.star":         fsnotify.Create,
				"app/go/commands/build.star": fsnotify.Create,
			},
			want: []string{"load bundle app/go"},
		},
		"new manifest loads bundle": {
			files:   []testtools.FileSpec{{Path: "app/go/bundle.star"}},
			changes: map[string]fsnotify.Op{"app/go/bundle.star": fsnotify.Create},
			want:    []string{"load bundle app/go"},
		},
		"removed bundle directory is unloaded": {
			files:   []testtools.FileSpec{{Path: "app/"}},
			loaded:  []string{"app/go/bundle.star"},
			bundles: []string{"app/go"},
			changes: map[string]fsnotify.Op{
				"app/go":             fsnotify.Remove,
				"app/go/bundle.star": fsnotify.Remove,
			},
			want: []string{"unload bundle app/go"},
		},
		"other files are ignored": {
			files: []testtools.FileSpec{
				{Path: "app/ruby/README.md"},
				{Path: "app/ruby/commands/notes.txt"},
				{Path: "app/ruby/commands/nested/x.star"},
			},
			bundles: []string{"app/ruby"},
			changes: map[string]fsnotify.Op{
				"app/ruby/README.md":              fsnotify.Write,
				"app/ruby/commands/notes.txt":     fsnotify.Write,
				"app/ruby/commands/nested/x.star": fsnotify.Write,
				"elsewhere/bundle.star":           fsnotify.Write,
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			dir, _ := testutil.MustPrepareTestFiles(t, tc.files)
			lc := newFakeLifecycle(dir)
			for _, p := range tc.loaded {
				lc.loaded[filepath.Join(dir, p)] = true
			}
			for _, p := range tc.bundles {
				lc.addBundle(filepath.Join(dir, p))
			}

			w, err := New(lc, []string{filepath.Join(dir, "app")}, WithLogger(testutil.NewTestLogger(t)))
			require.NoError(t, err)
			defer w.fsw.Close()

			for _, p := range tc.modify {
				require.NoError(t, os.WriteFile(filepath.Join(dir, p), []byte("# modified\n"), 0o644))
			}

			changes := make(map[string]fsnotify.Op, len(tc.changes))
			for p, op := range tc.changes {
				changes[filepath.Join(dir, p)] = op
			}
			w.apply(changes)

			if diff := cmp.Diff(tc.want, lc.Calls()); diff != "" {
				t.Errorf("calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewSkipsMissingRoots(t *testing.T) {
	dir, _ := testutil.MustPrepareTestFiles(t, []testtools.FileSpec{{Path: "app/"}})

	w, err := New(newFakeLifecycle(dir), []string{"", filepath.Join(dir, "app"), filepath.Join(dir, "missing")})
	require.NoError(t, err)
	defer w.fsw.Close()

	if diff := cmp.Diff([]string{filepath.Join(dir, "app")}, w.Roots()); diff != "" {
		t.Errorf("roots (-want +got):\n%s", diff)
	}
}

func TestNewRejectsInvalidIgnore(t *testing.T) {
	_, err := New(newFakeLifecycle("/"), nil, WithIgnore("[unterminated"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid ignore pattern")
}

func TestIsIgnored(t *testing.T) {
	dir, _ := testutil.MustPrepareTestFiles(t, []testtools.FileSpec{{Path: "app/"}})
	w, err := New(newFakeLifecycle(dir), []string{filepath.Join(dir, "app")}, WithIgnore("**/scratch/**"))
	require.NoError(t, err)
	defer w.fsw.Close()

	for name, tc := range map[string]struct {
		path string
		want bool
	}{
		"script":       {path: "app/ruby/commands/run.star"},
		"swap file":    {path: "app/ruby/commands/.run.star.swp", want: true},
		"backup":       {path: "app/ruby/bundle.star~", want: true},
		"git":          {path: "app/ruby/.git/HEAD", want: true},
		"user pattern": {path: "app/ruby/scratch/x.star", want: true},
		"outside root": {path: "other/.git/HEAD"},
	} {
		t.Run(name, func(t *testing.T) {
			if got := w.isIgnored(filepath.Join(dir, tc.path)); got != tc.want {
				t.Errorf("isIgnored(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestRunReloadsChangedScript(t *testing.T) {
	dir, _ := testutil.MustPrepareTestFiles(t, []testtools.FileSpec{
		{Path: "app/ruby/bundle.star", Content: "bundle()\n"},
		{Path: "app/ruby/commands/run.star", Content: "# v1\n"},
	})
	run := filepath.Join(dir, "app/ruby/commands/run.star")
	lc := newFakeLifecycle(dir)
	lc.loaded[run] = true
	lc.addBundle(filepath.Join(dir, "app/ruby"))

	w, err := New(lc, []string{filepath.Join(dir, "app")},
		WithLogger(testutil.NewTestLogger(t)),
		WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(run, []byte("# v2\n"), 0o644))

	require.Eventually(t, func() bool {
		for _, call := range lc.Calls() {
			if strings.HasPrefix(call, "reload app/ruby/commands/run.star") {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
	require.Error(t, w.Run(context.Background()))
}
