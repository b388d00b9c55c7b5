package bundlemanager

import "github.com/stackb/scriptbundles/pkg/bundle"

// RunMode selects how a script engine schedules a run.
type RunMode int

const (
	// RunCurrentThread runs the script on the calling goroutine.
	RunCurrentThread RunMode = iota
	// RunThread runs the script on its own goroutine and waits for it.
	RunThread
	// RunJob runs the script as a background job.  The engine decides
	// whether the caller waits.
	RunJob
)

func (m RunMode) String() string {
	switch m {
	case RunCurrentThread:
		return "current-thread"
	case RunThread:
		return "thread"
	case RunJob:
		return "job"
	}
	return "unknown"
}

// ScriptEngine executes bundle scripts.  Running a script creates elements
// and adds bundles through the manager.
type ScriptEngine interface {
	// RunScript runs path on the calling goroutine.
	RunScript(path string, loadPaths []string) error
	// RunScriptWithMode runs path with the given mode.  reload is true when
	// the script ran before and cached state derived from it must be
	// discarded.
	RunScriptWithMode(path string, loadPaths []string, mode RunMode, reload bool) error
	// ContributedLoadPaths are library directories available to every
	// script.
	ContributedLoadPaths() []string
}

// ElementRegistry finds elements by originating script.
type ElementRegistry interface {
	ElementsByPath(path string) []bundle.Element
	ElementsByDirectory(dir string) []bundle.Element
	UnregisterElement(e bundle.Element) bool
	Element(id string) (bundle.Element, bool)
}

// ProjectSource lists the project roots whose bundles are loaded.
type ProjectSource interface {
	ProjectRoots() []string
}

// StaticProjects is a fixed list of project roots.
type StaticProjects []string

// ProjectRoots implements ProjectSource.
func (p StaticProjects) ProjectRoots() []string {
	return p
}
