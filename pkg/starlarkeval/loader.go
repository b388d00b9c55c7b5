package starlarkeval

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"
)

// module is a cache entry for a loaded library module.  ready is closed
// once globals and err are set.
type module struct {
	ready   chan struct{}
	globals starlark.StringDict
	err     error
	// owner is the run executing the module.
	owner *loadRun
}

// loadRun tracks the module a top-level run is blocked on while another run
// executes it.  Fields are guarded by Engine.mu.
type loadRun struct {
	waiting *module
}

// waitsOnItself reports whether run blocking on mod would close a cycle of
// runs each waiting for a module the next one is executing.
func waitsOnItself(run *loadRun, mod *module) bool {
	for m := mod; m != nil && m.owner != nil; m = m.owner.waiting {
		select {
		case <-m.ready:
			return false
		default:
		}
		if m.owner == run {
			return true
		}
	}
	return false
}

// load implements starlark.Thread.Load.
func (e *Engine) load(thread *starlark.Thread, name string) (starlark.StringDict, error) {
	ctx, err := contextOf(thread)
	if err != nil {
		return nil, err
	}
	fromDir := filepath.Dir(ctx.path)
	if n := len(ctx.loading); n > 0 {
		fromDir = filepath.Dir(ctx.loading[n-1])
	}
	path, err := resolveModule(name, ctx.loadPaths, fromDir)
	if err != nil {
		return nil, err
	}
	for _, p := range append([]string{ctx.path}, ctx.loading...) {
		if p == path {
			return nil, fmt.Errorf("cycle in load graph: %s -> %s", strings.Join(ctx.loading, " -> "), path)
		}
	}

	e.mu.Lock()
	if e.loadedBy[ctx.path] == nil {
		e.loadedBy[ctx.path] = make(map[string]bool)
	}
	e.loadedBy[ctx.path][path] = true
	mod, ok := e.modules[path]
	if !ok {
		mod = &module{ready: make(chan struct{}), owner: ctx.run}
		e.modules[path] = mod
	} else if waitsOnItself(ctx.run, mod) {
		e.mu.Unlock()
		return nil, fmt.Errorf("cycle in load graph: %s -> %s (loading concurrently)", strings.Join(append([]string{ctx.path}, ctx.loading...), " -> "), path)
	} else {
		ctx.run.waiting = mod
	}
	e.mu.Unlock()

	if ok {
		<-mod.ready
		e.mu.Lock()
		ctx.run.waiting = nil
		e.mu.Unlock()
		return mod.globals, mod.err
	}

	mod.globals, mod.err = e.execModule(path, ctx)
	close(mod.ready)
	if mod.err != nil {
		// failed loads are retried by the next run
		e.mu.Lock()
		delete(e.modules, path)
		e.mu.Unlock()
	}
	return mod.globals, mod.err
}

func (e *Engine) execModule(path string, parent *scriptContext) (starlark.StringDict, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ctx := &scriptContext{
		path:      parent.path,
		loadPaths: parent.loadPaths,
		loading:   append(append([]string(nil), parent.loading...), path),
		run:       parent.run,
	}
	thread := e.newThread(path, ctx)

	e.logger.Debug().Str("module", path).Str("script", parent.path).Msg("load")

	globals, err := starlark.ExecFileOptions(fileOptions, thread, path, src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	globals.Freeze()
	return globals, nil
}
