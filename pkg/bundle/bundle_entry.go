package bundle

import (
	"sync"

	"github.com/stackb/scriptbundles/pkg/scope"
)

// BundleEntry aggregates the bundles that share a display name.  Members are
// kept per precedence in load order; the visible bundle is the last member of
// the highest non-empty precedence.
type BundleEntry struct {
	name string

	mu    sync.RWMutex
	tiers [NumPrecedences][]*BundleElement
}

// NewBundleEntry creates an empty entry.
func NewBundleEntry(name string) *BundleEntry {
	return &BundleEntry{name: name}
}

// Name returns the shared display name.
func (e *BundleEntry) Name() string {
	return e.name
}

// AddBundle appends b to its precedence tier and returns the visible bundle
// before and after the change.
func (e *BundleEntry) AddBundle(b *BundleElement) (before, after *BundleElement) {
	p := b.Precedence()
	if !p.valid() {
		p = Project
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	before = e.visible()
	e.tiers[p] = append(e.tiers[p], b)
	after = e.visible()
	return
}

// RemoveBundle removes b and returns the visible bundle before and after the
// change.  removed is false when b was not a member.
func (e *BundleEntry) RemoveBundle(b *BundleElement) (before, after *BundleElement, removed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	before = e.visible()
	for p, tier := range e.tiers {
		for i, member := range tier {
			if member == b {
				e.tiers[p] = append(tier[:i:i], tier[i+1:]...)
				removed = true
				break
			}
		}
		if removed {
			break
		}
	}
	after = e.visible()
	return
}

// Size returns the number of members.
func (e *BundleEntry) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, tier := range e.tiers {
		n += len(tier)
	}
	return n
}

// Bundles returns the members from least to most specific.  The last one is
// the visible bundle.
func (e *BundleEntry) Bundles() []*BundleElement {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.flatten()
}

// VisibleBundle returns the member that shadows all others, or nil when the
// entry is empty.
func (e *BundleEntry) VisibleBundle() *BundleElement {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.visible()
}

// Commands returns the commands of all members.  A command defined by a more
// specific member replaces the same-named command of a less specific one.
func (e *BundleEntry) Commands() []*CommandElement {
	var all []*CommandElement
	for _, b := range e.Bundles() {
		all = append(all, b.Commands()...)
	}
	return lastByName(all)
}

// ContentAssists returns the merged commands that are content assists.
func (e *BundleEntry) ContentAssists() []*CommandElement {
	var assists []*CommandElement
	for _, c := range e.Commands() {
		if c.IsContentAssist() {
			assists = append(assists, c)
		}
	}
	return assists
}

// Menus returns the merged menus of all members.
func (e *BundleEntry) Menus() []*MenuElement {
	var all []*MenuElement
	for _, b := range e.Bundles() {
		all = append(all, b.Menus()...)
	}
	return lastByName(all)
}

// Snippets returns the merged snippets of all members.
func (e *BundleEntry) Snippets() []*SnippetElement {
	var all []*SnippetElement
	for _, b := range e.Bundles() {
		all = append(all, b.Snippets()...)
	}
	return lastByName(all)
}

// Markers returns the merged markers of the given kind.  A more specific
// member overrides a marker with the same selector text.
func (e *BundleEntry) Markers(kind MarkerKind) []Marker {
	var merged []Marker
	for _, b := range e.Bundles() {
		for _, m := range b.Markers(kind) {
			merged = putMarker(merged, m)
		}
	}
	return merged
}

// FileTypes returns the merged file type mappings.  A more specific member
// overrides a mapping for the same pattern.
func (e *BundleEntry) FileTypes() []scope.FileType {
	var merged []scope.FileType
	for _, b := range e.Bundles() {
		for _, ft := range b.FileTypes() {
			merged = putFileType(merged, ft)
		}
	}
	return merged
}

// LoadPaths returns the load paths of all members in order, without
// duplicates.
func (e *BundleEntry) LoadPaths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, b := range e.Bundles() {
		for _, p := range b.LoadPaths() {
			if seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

func (e *BundleEntry) flatten() []*BundleElement {
	var all []*BundleElement
	for _, tier := range e.tiers {
		all = append(all, tier...)
	}
	return all
}

func (e *BundleEntry) visible() *BundleElement {
	for p := NumPrecedences - 1; p >= 0; p-- {
		if tier := e.tiers[p]; len(tier) > 0 {
			return tier[len(tier)-1]
		}
	}
	return nil
}

func lastByName[T Member](list []T) []T {
	index := make(map[string]int)
	var out []T
	for _, m := range list {
		if i, ok := index[m.DisplayName()]; ok {
			out[i] = m
			continue
		}
		index[m.DisplayName()] = len(out)
		out = append(out, m)
	}
	return out
}
