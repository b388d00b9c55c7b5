package event

import "github.com/stackb/scriptbundles/pkg/bundle"

// BundleChangeListener observes bundles entering and leaving the index.
type BundleChangeListener interface {
	BundleAdded(b *bundle.BundleElement)
	BundleDeleted(b *bundle.BundleElement)
	// BundleBecameVisible is called when b starts shadowing the other members
	// of entry.
	BundleBecameVisible(entry *bundle.BundleEntry, b *bundle.BundleElement)
	// BundleBecameHidden is called when b stops being the visible member of
	// entry.
	BundleBecameHidden(entry *bundle.BundleEntry, b *bundle.BundleElement)
}

// ElementChangeListener observes members being attached and detached.
type ElementChangeListener interface {
	ElementAdded(e bundle.Element)
	ElementDeleted(e bundle.Element)
}

// LoadCycleListener observes script execution.
type LoadCycleListener interface {
	ScriptLoaded(path string)
	ScriptReloaded(path string)
	ScriptUnloaded(path string)
}

// BundleChangeFuncs implements BundleChangeListener with optional funcs.
type BundleChangeFuncs struct {
	Added         func(b *bundle.BundleElement)
	Deleted       func(b *bundle.BundleElement)
	BecameVisible func(entry *bundle.BundleEntry, b *bundle.BundleElement)
	BecameHidden  func(entry *bundle.BundleEntry, b *bundle.BundleElement)
}

func (f BundleChangeFuncs) BundleAdded(b *bundle.BundleElement) {
	if f.Added != nil {
		f.Added(b)
	}
}

func (f BundleChangeFuncs) BundleDeleted(b *bundle.BundleElement) {
	if f.Deleted != nil {
		f.Deleted(b)
	}
}

func (f BundleChangeFuncs) BundleBecameVisible(entry *bundle.BundleEntry, b *bundle.BundleElement) {
	if f.BecameVisible != nil {
		f.BecameVisible(entry, b)
	}
}

func (f BundleChangeFuncs) BundleBecameHidden(entry *bundle.BundleEntry, b *bundle.BundleElement) {
	if f.BecameHidden != nil {
		f.BecameHidden(entry, b)
	}
}

// ElementChangeFuncs implements ElementChangeListener with optional funcs.
type ElementChangeFuncs struct {
	Added   func(e bundle.Element)
	Deleted func(e bundle.Element)
}

func (f ElementChangeFuncs) ElementAdded(e bundle.Element) {
	if f.Added != nil {
		f.Added(e)
	}
}

func (f ElementChangeFuncs) ElementDeleted(e bundle.Element) {
	if f.Deleted != nil {
		f.Deleted(e)
	}
}

// LoadCycleFuncs implements LoadCycleListener with optional funcs.
type LoadCycleFuncs struct {
	Loaded   func(path string)
	Reloaded func(path string)
	Unloaded func(path string)
}

func (f LoadCycleFuncs) ScriptLoaded(path string) {
	if f.Loaded != nil {
		f.Loaded(path)
	}
}

func (f LoadCycleFuncs) ScriptReloaded(path string) {
	if f.Reloaded != nil {
		f.Reloaded(path)
	}
}

func (f LoadCycleFuncs) ScriptUnloaded(path string) {
	if f.Unloaded != nil {
		f.Unloaded(path)
	}
}
