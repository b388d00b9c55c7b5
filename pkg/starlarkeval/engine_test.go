package starlarkeval_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bazelbuild/bazel-gazelle/testtools"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/bundlemanager"
	"github.com/stackb/scriptbundles/pkg/registry"
	"github.com/stackb/scriptbundles/pkg/starlarkeval"
	"github.com/stackb/scriptbundles/pkg/testutil"
)

var rubyBundle = []testtools.FileSpec{
	{
		Path: "app/ruby/bundle.star",
		Content: `
bundle(
    name = "Ruby",
    author = "Jane Doe",
    file_types = {
        "*.rb": "source.ruby",
        "Rakefile": "source.ruby.rake",
    },
    increase_indent = {"source.ruby": "^\\s*def\\b"},
)
`,
	},
	{
		Path: "app/ruby/lib/helpers.star",
		Content: `
INTERPRETER = "ruby"

def ruby_command(name):
    command(name = name, scope = "source.ruby", invoke = INTERPRETER + " $FILE")
`,
	},
	{
		Path: "app/ruby/commands/run.star",
		Content: `
load("helpers.star", "ruby_command")

ruby_command("Run")
`,
	},
	{
		Path: "app/ruby/snippets/def.star",
		Content: `
snippet(name = "def", trigger = "def", expansion = "def ${1}\nend", scope = "source.ruby")

menu(
    name = "Ruby",
    children = [
        menu_item(name = "Run", command = "Run"),
        menu_item(name = "-"),
    ],
)
`,
	},
}

type fixture struct {
	dir     string
	manager *bundlemanager.Manager
	engine  *starlarkeval.Engine
	rec     *testutil.RecordingListener
	sink    *testutil.RecordingSink
}

func newFixture(t *testing.T, files []testtools.FileSpec) *fixture {
	t.Helper()
	dir, _ := testutil.MustPrepareTestFiles(t, files)
	log := testutil.NewTestLogger(t)
	reg := registry.New()
	sink := &testutil.RecordingSink{}
	m := bundlemanager.New(
		bundlemanager.WithLogger(log),
		bundlemanager.WithRegistry(reg),
		bundlemanager.WithSink(sink),
		bundlemanager.WithApplicationBundlesPath(filepath.Join(dir, "app")),
		bundlemanager.WithUserBundlesPath(filepath.Join(dir, "user")),
	)
	e := starlarkeval.NewEngine(m, reg, starlarkeval.WithLogger(log))
	m.SetScriptEngine(e)

	rec := testutil.NewRecordingListener()
	m.Events().SubscribeBundleChanges(rec)
	m.Events().SubscribeElementChanges(rec)
	m.Events().SubscribeLoadCycle(rec)

	return &fixture{dir: dir, manager: m, engine: e, rec: rec, sink: sink}
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.dir, filepath.FromSlash(rel))
}

func TestLoadBundles(t *testing.T) {
	f := newFixture(t, rubyBundle)
	ruby := f.path("app/ruby")

	require.NoError(t, f.manager.LoadBundles())

	if diff := cmp.Diff([]string{
		"added Ruby@" + ruby,
		"visible Ruby@" + ruby,
		"loaded " + f.path("app/ruby/bundle.star"),
		"element added Run",
		"loaded " + f.path("app/ruby/commands/run.star"),
		"element added def",
		"element added Ruby",
		"loaded " + f.path("app/ruby/snippets/def.star"),
	}, f.rec.Events()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"Ruby"}, f.manager.GetBundleNames())

	b := f.manager.GetBundleFromPath(ruby)
	require.NotNil(t, b)
	assert.Equal(t, bundle.Application, b.Precedence())
	assert.Equal(t, "Jane Doe", b.Metadata().Author)
	assert.Equal(t, []string{f.path("app/ruby/lib")}, b.LoadPaths())

	cmds := f.manager.GetBundleCommands("Ruby")
	require.Len(t, cmds, 1)
	assert.Equal(t, "ruby $FILE", cmds[0].Invoke)
	assert.Equal(t, b.ID(), cmds[0].OwnerID())

	snippets := f.manager.GetBundleSnippets("Ruby")
	require.Len(t, snippets, 1)
	assert.Equal(t, "def ${1}\nend", snippets[0].Expansion)

	menus := f.manager.GetBundleMenus("Ruby")
	require.Len(t, menus, 1)
	assert.Equal(t, []string{"Run"}, menus[0].Commands())
	assert.True(t, menus[0].Children[1].IsSeparator())

	scope, ok := f.manager.GetTopLevelScope("Rakefile")
	assert.True(t, ok)
	assert.Equal(t, "source.ruby.rake", scope)

	re := f.manager.GetIncreaseIndentRegexp("source.ruby meta.function.ruby")
	require.NotNil(t, re)
	matched, err := re.MatchString("  def foo")
	require.NoError(t, err)
	assert.True(t, matched)

	assert.Empty(t, f.sink.ErrorMessages())
}

func TestUnloadBundleRemovesEverything(t *testing.T) {
	f := newFixture(t, rubyBundle)
	ruby := f.path("app/ruby")
	require.NoError(t, f.manager.LoadBundles())

	f.manager.UnloadBundle(ruby)

	assert.Nil(t, f.manager.GetBundleFromPath(ruby))
	assert.Empty(t, f.manager.GetBundleNames())
	assert.Empty(t, f.manager.Registry().ElementsByDirectory(ruby))
	assert.False(t, f.manager.IsScriptLoaded(f.path("app/ruby/commands/run.star")))
}

func TestReloadScriptEvictsLoadedModules(t *testing.T) {
	f := newFixture(t, rubyBundle)
	require.NoError(t, f.manager.LoadBundles())

	helpers := f.path("app/ruby/lib/helpers.star")
	data, err := os.ReadFile(helpers)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(helpers, []byte(strings.Replace(string(data), `"ruby"`, `"jruby"`, 1)), 0o644))

	f.rec.Reset()
	run := f.path("app/ruby/commands/run.star")
	require.NoError(t, f.manager.ReloadScript(run))

	if diff := cmp.Diff([]string{
		"element deleted Run",
		"element added Run",
		"reloaded " + run,
	}, f.rec.Events()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	cmds := f.manager.GetBundleCommands("Ruby")
	require.Len(t, cmds, 1)
	assert.Equal(t, "jruby $FILE", cmds[0].Invoke)
}

func TestReloadManifestKeepsBundle(t *testing.T) {
	f := newFixture(t, rubyBundle)
	require.NoError(t, f.manager.LoadBundles())
	ruby := f.path("app/ruby")
	before := f.manager.GetBundleFromPath(ruby)

	f.rec.Reset()
	manifest := f.path("app/ruby/bundle.star")
	require.NoError(t, f.manager.ReloadScript(manifest))

	assert.Same(t, before, f.manager.GetBundleFromPath(ruby))
	assert.Equal(t, "Jane Doe", before.Metadata().Author)
	if diff := cmp.Diff([]string{
		"element deleted Ruby",
		"element added Ruby",
		"reloaded " + manifest,
	}, f.rec.Events()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestRunModes(t *testing.T) {
	for name, mode := range map[string]bundlemanager.RunMode{
		"current thread": bundlemanager.RunCurrentThread,
		"thread":         bundlemanager.RunThread,
		"job":            bundlemanager.RunJob,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, rubyBundle)
			manifest := f.path("app/ruby/bundle.star")
			run := f.path("app/ruby/commands/run.star")
			loadPaths := f.manager.GetBundleLoadPaths(f.path("app/ruby"))

			require.NoError(t, f.engine.RunScriptWithMode(manifest, loadPaths, mode, false))
			f.engine.Wait()
			require.NoError(t, f.engine.RunScriptWithMode(run, loadPaths, mode, false))
			f.engine.Wait()

			assert.Len(t, f.manager.GetBundleCommands("Ruby"), 1)
		})
	}
}

func TestCommandWithoutManifestCreatesDefaultBundle(t *testing.T) {
	f := newFixture(t, []testtools.FileSpec{
		{
			Path:    "user/tools/commands/hello.star",
			Content: `command(name = "Hello", invoke = "echo hello", platforms = ["linux", "darwin"])`,
		},
	})
	hello := f.path("user/tools/commands/hello.star")

	require.NoError(t, f.manager.LoadScript(hello))

	b := f.manager.GetBundleFromPath(f.path("user/tools"))
	require.NotNil(t, b)
	assert.Equal(t, "tools", b.DisplayName())
	assert.Equal(t, bundle.User, b.Precedence())
	cmds := b.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"linux", "darwin"}, cmds[0].Platforms)
}

func TestScriptErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		files  []testtools.FileSpec
		script string
		want   string
	}{
		"bundle outside manifest": {
			files: []testtools.FileSpec{
				{Path: "app/x/bundle.star", Content: `bundle()`},
				{Path: "app/x/commands/a.star", Content: `bundle(name = "x")`},
			},
			script: "app/x/commands/a.star",
			want:   "bundle: may only be called from bundle.star",
		},
		"load cycle": {
			files: []testtools.FileSpec{
				{Path: "app/x/bundle.star", Content: `bundle()`},
				{Path: "app/x/lib/a.star", Content: `load("b.star", "B")` + "\nA = 1\n"},
				{Path: "app/x/lib/b.star", Content: `load("a.star", "A")` + "\nB = 1\n"},
				{Path: "app/x/commands/c.star", Content: `load("a.star", "A")`},
			},
			script: "app/x/commands/c.star",
			want:   "cycle in load graph",
		},
		"missing module": {
			files: []testtools.FileSpec{
				{Path: "app/x/bundle.star", Content: `bundle()`},
				{Path: "app/x/commands/c.star", Content: `load("nope.star", "A")`},
			},
			script: "app/x/commands/c.star",
			want:   `module "nope.star" not found`,
		},
		"bad marker regexp": {
			files: []testtools.FileSpec{
				{Path: "app/x/bundle.star", Content: `bundle(folding_start = {"source.x": "("})`},
			},
			script: "app/x/bundle.star",
			want:   "bundle: folding-start marker for \"source.x\"",
		},
		"menu child is not a menu item": {
			files: []testtools.FileSpec{
				{Path: "app/x/bundle.star", Content: `bundle()`},
				{Path: "app/x/commands/m.star", Content: `menu(name = "M", children = ["Run"])`},
			},
			script: "app/x/commands/m.star",
			want:   "menu: children[0]: want menu_item, got string",
		},
		"platforms not strings": {
			files: []testtools.FileSpec{
				{Path: "app/x/bundle.star", Content: `bundle()`},
				{Path: "app/x/commands/p.star", Content: `command(name = "P", platforms = [1])`},
			},
			script: "app/x/commands/p.star",
			want:   "command: platforms[0]: want string, got int",
		},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, tc.files)
			manifest := f.path("app/x/bundle.star")
			script := f.path(tc.script)
			if script != manifest {
				require.NoError(t, f.manager.LoadScript(manifest))
			}

			err := f.manager.LoadScript(script)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.False(t, f.manager.IsScriptLoaded(script))
			assert.NotEmpty(t, f.sink.ErrorMessages())
		})
	}
}

func TestConcurrentLoadCycle(t *testing.T) {
	f := newFixture(t, []testtools.FileSpec{
		{Path: "app/x/bundle.star", Content: `bundle()`},
		{Path: "app/x/lib/a.star", Content: `load("b.star", "B")` + "\nA = 1\n"},
		{Path: "app/x/lib/b.star", Content: `load("a.star", "A")` + "\nB = 1\n"},
		{Path: "app/x/commands/from_a.star", Content: `load("a.star", "A")`},
		{Path: "app/x/commands/from_b.star", Content: `load("b.star", "B")`},
	})
	require.NoError(t, f.manager.LoadScript(f.path("app/x/bundle.star")))

	for i := 0; i < 20; i++ {
		errs := make(chan error, 2)
		for _, script := range []string{"app/x/commands/from_a.star", "app/x/commands/from_b.star"} {
			go func(path string) {
				errs <- f.manager.LoadScript(path)
			}(f.path(script))
		}
		for j := 0; j < 2; j++ {
			select {
			case err := <-errs:
				require.Error(t, err)
				assert.Contains(t, err.Error(), "cycle in load graph")
			case <-time.After(10 * time.Second):
				t.Fatalf("iteration %d: concurrent cyclic loads did not return", i)
			}
		}
	}
}
