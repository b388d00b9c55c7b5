// Package starlarkeval runs bundle scripts written in Starlark.
//
// Scripts call the builtins in builtins.go to declare bundles and their
// members.  load() statements are resolved through the load paths of the
// run, then relative to the loading script.
package starlarkeval

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/bundlemanager"
	"github.com/stackb/scriptbundles/pkg/event"
)

// Host is the part of the bundle manager scripts mutate.
type Host interface {
	GetBundleFromPath(dir string) *bundle.BundleElement
	GetBundleDirectory(script string) string
	GetBundlePrecedence(path string) bundle.Precedence
	AddBundle(b *bundle.BundleElement)
	Events() *event.Bus
}

// ElementRegistrar records elements created by scripts.
type ElementRegistrar interface {
	RegisterElement(e bundle.Element)
}

// EngineOption configures an Engine.
type EngineOption func(e *Engine) *Engine

// WithLogger sets the logger.  Script print() output is logged at info
// level.
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) *Engine {
		e.logger = l
		return e
	}
}

// WithContributedLoadPaths sets library directories available to every
// script.
func WithContributedLoadPaths(paths ...string) EngineOption {
	return func(e *Engine) *Engine {
		e.contributed = append(e.contributed, paths...)
		return e
	}
}

// Engine implements bundlemanager.ScriptEngine.
type Engine struct {
	logger   zerolog.Logger
	host     Host
	registry ElementRegistrar

	mu sync.Mutex
	// contributed load paths, in order
	contributed []string
	// modules caches loaded library modules by absolute path
	modules map[string]*module
	// loadedBy maps a script to the modules its runs loaded
	loadedBy map[string]map[string]bool

	jobs sync.WaitGroup
}

// NewEngine creates an Engine that adds bundles to host and registers
// elements with registry.
func NewEngine(host Host, registry ElementRegistrar, options ...EngineOption) *Engine {
	e := &Engine{
		logger:   zerolog.Nop(),
		host:     host,
		registry: registry,
		modules:  make(map[string]*module),
		loadedBy: make(map[string]map[string]bool),
	}
	for _, opt := range options {
		e = opt(e)
	}
	return e
}

// ContributedLoadPaths implements part of the bundlemanager.ScriptEngine
// interface.
func (e *Engine) ContributedLoadPaths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.contributed...)
}

// AddContributedLoadPath appends a library directory available to every
// script.  Duplicates are ignored.
func (e *Engine) AddContributedLoadPath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.contributed {
		if p == path {
			return
		}
	}
	e.contributed = append(e.contributed, path)
}

// RunScript implements part of the bundlemanager.ScriptEngine interface.
func (e *Engine) RunScript(path string, loadPaths []string) error {
	return e.RunScriptWithMode(path, loadPaths, bundlemanager.RunCurrentThread, false)
}

// RunScriptWithMode implements part of the bundlemanager.ScriptEngine
// interface.  RunJob returns as soon as the run is scheduled; its error is
// logged and Wait blocks until it completes.
func (e *Engine) RunScriptWithMode(path string, loadPaths []string, mode bundlemanager.RunMode, reload bool) error {
	if reload {
		e.evict(path)
	}
	switch mode {
	case bundlemanager.RunThread:
		done := make(chan error, 1)
		go func() {
			done <- e.exec(path, loadPaths)
		}()
		return <-done
	case bundlemanager.RunJob:
		e.jobs.Add(1)
		go func() {
			defer e.jobs.Done()
			if err := e.exec(path, loadPaths); err != nil {
				e.logger.Error().Err(err).Str("script", path).Msg("script job failed")
			}
		}()
		return nil
	default:
		return e.exec(path, loadPaths)
	}
}

// Wait blocks until every RunJob run has completed.
func (e *Engine) Wait() {
	e.jobs.Wait()
}

// scriptKey is the thread local holding the *scriptContext of a run.
const scriptKey = "scriptbundles.script"

// scriptContext describes the script a thread runs on behalf of.
type scriptContext struct {
	// path is the top-level script being run.
	path string
	// loadPaths are the library search paths of the run.
	loadPaths []string
	// loading is the chain of modules currently being loaded, for cycle
	// detection.
	loading []string
	// run is shared by the script and every module it loads.
	run *loadRun
}

func (e *Engine) exec(path string, loadPaths []string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ctx := &scriptContext{path: path, loadPaths: loadPaths, run: &loadRun{}}
	thread := e.newThread(path, ctx)

	e.logger.Debug().Str("script", path).Msg("exec")

	if _, err := starlark.ExecFileOptions(fileOptions, thread, path, src, e.predeclared()); err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			e.logger.Debug().Str("script", path).Msg(evalErr.Backtrace())
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

func (e *Engine) newThread(name string, ctx *scriptContext) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Info().Str("script", ctx.path).Msg(msg)
		},
		Load: e.load,
	}
	thread.SetLocal(scriptKey, ctx)
	return thread
}

func contextOf(thread *starlark.Thread) (*scriptContext, error) {
	ctx, ok := thread.Local(scriptKey).(*scriptContext)
	if !ok {
		return nil, fmt.Errorf("%s: not running a bundle script", thread.Name)
	}
	return ctx, nil
}

// evict drops the modules loaded by previous runs of path.
func (e *Engine) evict(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for mod := range e.loadedBy[path] {
		delete(e.modules, mod)
	}
	delete(e.loadedBy, path)
}

// resolveModule finds a module named in a load() statement.  Absolute names
// are used as is; relative ones are tried against each load path and then
// the directory of the loading file.  A missing extension is added.
func resolveModule(module string, loadPaths []string, fromDir string) (string, error) {
	candidates := []string{module}
	if filepath.Ext(module) == "" {
		candidates = append(candidates, module+".star")
	}
	if filepath.IsAbs(module) {
		for _, c := range candidates {
			if isFile(c) {
				return c, nil
			}
		}
		return "", fmt.Errorf("module not found: %s", module)
	}
	for _, dir := range append(append([]string(nil), loadPaths...), fromDir) {
		for _, c := range candidates {
			p := filepath.Join(dir, c)
			if isFile(p) {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("module %q not found in %v or %s", module, loadPaths, fromDir)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
