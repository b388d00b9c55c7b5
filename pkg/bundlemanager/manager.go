// Package bundlemanager indexes loaded bundles and drives their lifecycle.
//
// Bundles are indexed by directory and by display name.  Bundles that share
// a name across precedences are grouped in a bundle.BundleEntry, where the
// most specific one is visible and shadows the others.
package bundlemanager

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stackb/scriptbundles/pkg/bundle"
	"github.com/stackb/scriptbundles/pkg/event"
	"github.com/stackb/scriptbundles/pkg/logger"
	"github.com/stackb/scriptbundles/pkg/registry"
)

var errNoScriptEngine = errors.New("no script engine configured")

// Option configures a Manager.
type Option func(m *Manager) *Manager

// WithLogger sets the logger used for debug traces.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) *Manager {
		m.logger = l
		return m
	}
}

// WithSink sets the diagnostics sink.
func WithSink(sink logger.Sink) Option {
	return func(m *Manager) *Manager {
		m.sink = sink
		return m
	}
}

// WithRegistry sets the element registry.
func WithRegistry(r ElementRegistry) Option {
	return func(m *Manager) *Manager {
		m.registry = r
		return m
	}
}

// WithScriptEngine sets the script engine.
func WithScriptEngine(e ScriptEngine) Option {
	return func(m *Manager) *Manager {
		m.engine = e
		return m
	}
}

// WithEventBus sets the bus events are fired on.
func WithEventBus(bus *event.Bus) Option {
	return func(m *Manager) *Manager {
		m.events = bus
		return m
	}
}

// WithApplicationBundlesPath sets the application bundles root.
func WithApplicationBundlesPath(path string) Option {
	return func(m *Manager) *Manager {
		m.applicationBundlesPath = path
		return m
	}
}

// WithUserBundlesPath sets the user bundles root.
func WithUserBundlesPath(path string) Option {
	return func(m *Manager) *Manager {
		m.userBundlesPath = path
		return m
	}
}

// WithProjectSource sets where project roots come from.
func WithProjectSource(p ProjectSource) Option {
	return func(m *Manager) *Manager {
		m.projects = p
		return m
	}
}

// Manager is the bundle index and lifecycle controller.  It is safe for
// concurrent use.
type Manager struct {
	logger zerolog.Logger
	// sink receives diagnostics that are reported rather than returned.
	sink logger.Sink
	// registry resolves elements by script path and owner ID.
	registry ElementRegistry
	// engine runs scripts.  It is set after construction when the engine
	// itself needs the manager.
	engine ScriptEngine
	events *event.Bus
	// projects supplies project roots for LoadProjectBundles.
	projects ProjectSource

	applicationBundlesPath string
	userBundlesPath        string

	// mu guards the fields below.  Events are never fired while it is held.
	mu sync.RWMutex
	// bundlesByPath maps a bundle directory to the bundles loaded from it,
	// in load order.
	bundlesByPath map[string][]*bundle.BundleElement
	// entriesByName maps a display name to its entry.
	entriesByName map[string]*bundle.BundleEntry
	// loadedScripts is the set of scripts that ran successfully and have
	// not been unloaded.
	loadedScripts map[string]bool
}

// New creates a Manager.  Without options it uses a new in-memory registry,
// a new event bus, a discarding sink and no script engine.
func New(options ...Option) *Manager {
	m := &Manager{
		logger:        zerolog.Nop(),
		bundlesByPath: make(map[string][]*bundle.BundleElement),
		entriesByName: make(map[string]*bundle.BundleEntry),
		loadedScripts: make(map[string]bool),
	}
	for _, opt := range options {
		m = opt(m)
	}
	if m.sink == nil {
		m.sink = logger.NewZerologSink(m.logger)
	}
	if m.registry == nil {
		m.registry = registry.New()
	}
	if m.events == nil {
		m.events = event.NewBus()
	}
	if m.projects == nil {
		m.projects = StaticProjects(nil)
	}
	return m
}

// SetScriptEngine sets the script engine.
func (m *Manager) SetScriptEngine(e ScriptEngine) {
	m.mu.Lock()
	m.engine = e
	m.mu.Unlock()
}

func (m *Manager) scriptEngine() ScriptEngine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine
}

// Events returns the bus the manager fires events on.
func (m *Manager) Events() *event.Bus {
	return m.events
}

// Registry returns the element registry.
func (m *Manager) Registry() ElementRegistry {
	return m.registry
}

// ApplicationBundlesPath returns the application bundles root.
func (m *Manager) ApplicationBundlesPath() string {
	return m.applicationBundlesPath
}

// UserBundlesPath returns the user bundles root.
func (m *Manager) UserBundlesPath() string {
	return m.userBundlesPath
}

// ProjectRoots returns the current project roots.
func (m *Manager) ProjectRoots() []string {
	return m.projects.ProjectRoots()
}
