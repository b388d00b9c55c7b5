package bundlemanager_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bazelbuild/bazel-gazelle/testtools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/bundlemanager"
	"github.com/stackb/scriptbundles/pkg/bundlemanager/mocks"
	"github.com/stackb/scriptbundles/pkg/event"
	"github.com/stackb/scriptbundles/pkg/testutil"
)

func TestConcurrentLoadUnloadWithQueries(t *testing.T) {
	const n = 8

	var files []testtools.FileSpec
	for i := 0; i < n; i++ {
		for _, tier := range []string{"app", "user"} {
			files = append(files,
				testtools.FileSpec{Path: fmt.Sprintf("%s/b%d/bundle.star", tier, i)},
				testtools.FileSpec{Path: fmt.Sprintf("%s/b%d/commands/run.star", tier, i)},
			)
		}
	}
	dir, _ := testutil.MustPrepareTestFiles(t, files)

	engine := mocks.NewScriptEngine(t)
	m, reg, _ := newTestManager(t,
		bundlemanager.WithScriptEngine(engine),
		bundlemanager.WithApplicationBundlesPath(filepath.Join(dir, "app")),
		bundlemanager.WithUserBundlesPath(filepath.Join(dir, "user")),
	)
	run := fakeRun(m, reg)
	engine.On("ContributedLoadPaths").Return([]string(nil))
	engine.On("RunScript", mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { run(args.String(0)) }).
		Return(nil)

	// listeners run outside the index lock and may query the manager
	var visible atomic.Int32
	m.Events().SubscribeBundleChanges(event.BundleChangeFuncs{
		BecameVisible: func(entry *bundle.BundleEntry, b *bundle.BundleElement) {
			visible.Add(1)
			m.GetBundleNames()
			m.GetBundleEntry(entry.Name())
			m.HasBundleAtPath(b.BundleDirectory())
		},
	})

	var dirs []string
	for i := 0; i < n; i++ {
		dirs = append(dirs,
			filepath.Join(dir, "app", fmt.Sprintf("b%d", i)),
			filepath.Join(dir, "user", fmt.Sprintf("b%d", i)),
		)
	}

	done := make(chan struct{})
	var queries sync.WaitGroup
	for i := 0; i < 4; i++ {
		queries.Add(1)
		go func() {
			defer queries.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				m.GetIncreaseIndentRegexp("source.ruby")
				m.GetTopLevelScope("main.rb")
				m.GetAllCommands()
				m.GetBundleNames()
			}
		}()
	}

	var loads sync.WaitGroup
	for _, d := range dirs {
		loads.Add(1)
		go func(d string) {
			defer loads.Done()
			assert.NoError(t, m.LoadBundle(d))
		}(d)
	}
	loads.Wait()

	assert.Len(t, m.GetBundleNames(), n)
	for i := 0; i < n; i++ {
		entry := m.GetBundleEntry(fmt.Sprintf("b%d", i))
		if assert.NotNil(t, entry) {
			assert.Equal(t, 2, entry.Size())
			assert.Equal(t, bundle.User, entry.VisibleBundle().Precedence())
		}
	}

	var unloads sync.WaitGroup
	for _, d := range dirs {
		unloads.Add(1)
		go func(d string) {
			defer unloads.Done()
			m.UnloadBundle(d)
		}(d)
	}
	unloads.Wait()
	close(done)
	queries.Wait()

	assert.Empty(t, m.GetBundleNames())
	assert.Empty(t, m.GetAllCommands())
	for _, d := range dirs {
		assert.False(t, m.HasBundleAtPath(d), d)
	}
	assert.Equal(t, 0, reg.Len())
	assert.Positive(t, visible.Load())
}
