package bundle

import (
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/stackb/scriptbundles/pkg/scope"
)

// MarkerKind names one of the scope-keyed regexp tables of a bundle.
type MarkerKind int

const (
	IncreaseIndent MarkerKind = iota
	DecreaseIndent
	FoldingStart
	FoldingStop
	numMarkerKinds
)

func (k MarkerKind) String() string {
	switch k {
	case IncreaseIndent:
		return "increase-indent"
	case DecreaseIndent:
		return "decrease-indent"
	case FoldingStart:
		return "folding-start"
	case FoldingStop:
		return "folding-stop"
	}
	return "unknown"
}

// MarkerKinds lists every marker table.
var MarkerKinds = []MarkerKind{IncreaseIndent, DecreaseIndent, FoldingStart, FoldingStop}

// Marker is a scope selector paired with a compiled regexp.
type Marker = scope.Candidate[*regexp2.Regexp]

// Metadata holds the descriptive fields of a bundle.
type Metadata struct {
	Author      string
	Copyright   string
	Description string
	Repository  string
	License     string
}

// BundleElement is one loaded instance of a bundle, bound to a single
// directory and precedence.  It is safe for concurrent use.
type BundleElement struct {
	element
	directory  string
	precedence Precedence

	mu        sync.RWMutex
	metadata  Metadata
	commands  []*CommandElement
	menus     []*MenuElement
	snippets  []*SnippetElement
	markers   [numMarkerKinds][]Marker
	fileTypes []scope.FileType
	loadPaths []string
}

// NewBundleElement creates an empty bundle named name.  path is the script
// that declared it and directory the bundle directory it belongs to.
func NewBundleElement(name, path, directory string, precedence Precedence) *BundleElement {
	return &BundleElement{
		element:    newElement(name, path),
		directory:  directory,
		precedence: precedence,
	}
}

// BundleDirectory is the identity of the bundle.
func (b *BundleElement) BundleDirectory() string {
	return b.directory
}

// Precedence returns the tier the bundle was loaded from.
func (b *BundleElement) Precedence() Precedence {
	return b.precedence
}

// Metadata returns the descriptive fields.
func (b *BundleElement) Metadata() Metadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metadata
}

// SetMetadata replaces the descriptive fields.
func (b *BundleElement) SetMetadata(m Metadata) {
	b.mu.Lock()
	b.metadata = m
	b.mu.Unlock()
}

// AddElement attaches a member to the bundle and sets its owner.  A member
// with the same ID is replaced.
func (b *BundleElement) AddElement(m Member) {
	b.mu.Lock()
	switch t := m.(type) {
	case *CommandElement:
		b.commands = appendOrReplace(b.commands, t)
	case *MenuElement:
		b.menus = appendOrReplace(b.menus, t)
	case *SnippetElement:
		b.snippets = appendOrReplace(b.snippets, t)
	default:
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	m.SetOwnerID(b.ID())
}

// RemoveElement detaches a member and clears its owner.  It reports whether
// the member was attached.
func (b *BundleElement) RemoveElement(m Member) bool {
	var removed bool
	b.mu.Lock()
	switch t := m.(type) {
	case *CommandElement:
		b.commands, removed = remove(b.commands, t)
	case *MenuElement:
		b.menus, removed = remove(b.menus, t)
	case *SnippetElement:
		b.snippets, removed = remove(b.snippets, t)
	}
	b.mu.Unlock()
	if removed && m.OwnerID() == b.ID() {
		m.SetOwnerID("")
	}
	return removed
}

// Commands returns the commands, content assists included, in the order
// they were added.
func (b *BundleElement) Commands() []*CommandElement {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*CommandElement(nil), b.commands...)
}

// Menus returns the menus in the order they were added.
func (b *BundleElement) Menus() []*MenuElement {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*MenuElement(nil), b.menus...)
}

// Snippets returns the snippets in the order they were added.
func (b *BundleElement) Snippets() []*SnippetElement {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*SnippetElement(nil), b.snippets...)
}

// Members returns every attached member.
func (b *BundleElement) Members() []Member {
	b.mu.RLock()
	defer b.mu.RUnlock()
	members := make([]Member, 0, len(b.commands)+len(b.menus)+len(b.snippets))
	for _, c := range b.commands {
		members = append(members, c)
	}
	for _, m := range b.menus {
		members = append(members, m)
	}
	for _, s := range b.snippets {
		members = append(members, s)
	}
	return members
}

// SetMarker records a marker regexp for selector, replacing an existing one
// for the same selector text in place.
func (b *BundleElement) SetMarker(kind MarkerKind, selector string, re *regexp2.Regexp) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markers[kind] = putMarker(b.markers[kind], Marker{Selector: scope.ParseSelector(selector), Value: re})
}

// Markers returns the markers of the given kind in declaration order.
func (b *BundleElement) Markers(kind MarkerKind) []Marker {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Marker(nil), b.markers[kind]...)
}

// AddFileType maps a file name pattern to a scope name, replacing an existing
// mapping for the same pattern in place.
func (b *BundleElement) AddFileType(pattern, scopeName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fileTypes = putFileType(b.fileTypes, scope.FileType{Pattern: pattern, Scope: scopeName})
}

// FileTypes returns the file type mappings in declaration order.
func (b *BundleElement) FileTypes() []scope.FileType {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]scope.FileType(nil), b.fileTypes...)
}

// SetLoadPaths records the library search paths the bundle was loaded with.
func (b *BundleElement) SetLoadPaths(paths []string) {
	b.mu.Lock()
	b.loadPaths = append([]string(nil), paths...)
	b.mu.Unlock()
}

// LoadPaths returns the library search paths.
func (b *BundleElement) LoadPaths() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.loadPaths...)
}

// ClearMetadata clears descriptive fields, markers and file types.  The name,
// directory and members are kept.
func (b *BundleElement) ClearMetadata() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metadata = Metadata{}
	b.markers = [numMarkerKinds][]Marker{}
	b.fileTypes = nil
}

// IsEmpty reports whether the bundle has no members.
func (b *BundleElement) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.commands) == 0 && len(b.menus) == 0 && len(b.snippets) == 0
}

func appendOrReplace[T Member](list []T, m T) []T {
	for i, e := range list {
		if e.ID() == m.ID() {
			list[i] = m
			return list
		}
	}
	return append(list, m)
}

func remove[T Member](list []T, m T) ([]T, bool) {
	for i, e := range list {
		if e.ID() == m.ID() {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}

func putMarker(list []Marker, m Marker) []Marker {
	for i, e := range list {
		if e.Selector.String() == m.Selector.String() {
			list[i] = m
			return list
		}
	}
	return append(list, m)
}

func putFileType(list []scope.FileType, ft scope.FileType) []scope.FileType {
	for i, e := range list {
		if e.Pattern == ft.Pattern {
			list[i] = ft
			return list
		}
	}
	return append(list, ft)
}
