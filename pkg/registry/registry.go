// Package registry indexes elements produced by bundle scripts by ID and by
// originating script path.
package registry

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dghubble/trie"

	"github.com/stackb/scriptbundles/pkg/bundle"
)

// pathEntry holds the elements that originated at one script path.
type pathEntry struct {
	path     string
	elements []bundle.Element
}

// Registry is an in-memory element registry.  It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]bundle.Element
	byPath *trie.PathTrie
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byID:   make(map[string]bundle.Element),
		byPath: trie.NewPathTrie(),
	}
}

// RegisterElement adds an element.  Registering the same element twice is a
// no-op.
func (r *Registry) RegisterElement(e bundle.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID()]; ok {
		return
	}
	r.byID[e.ID()] = e
	key := cleanKey(e.Path())
	entry, _ := r.byPath.Get(key).(*pathEntry)
	if entry == nil {
		entry = &pathEntry{path: key}
		r.byPath.Put(key, entry)
	}
	entry.elements = append(entry.elements, e)
}

// UnregisterElement removes an element.  It reports whether the element was
// registered.
func (r *Registry) UnregisterElement(e bundle.Element) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID()]; !ok {
		return false
	}
	delete(r.byID, e.ID())
	key := cleanKey(e.Path())
	entry, _ := r.byPath.Get(key).(*pathEntry)
	if entry == nil {
		return true
	}
	for i, other := range entry.elements {
		if other.ID() == e.ID() {
			entry.elements = append(entry.elements[:i:i], entry.elements[i+1:]...)
			break
		}
	}
	if len(entry.elements) == 0 {
		r.byPath.Delete(key)
	}
	return true
}

// Element returns the element with the given ID.
func (r *Registry) Element(id string) (bundle.Element, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

// ElementsByPath returns the elements that originated at the given script,
// in registration order.
func (r *Registry) ElementsByPath(path string) []bundle.Element {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, _ := r.byPath.Get(cleanKey(path)).(*pathEntry)
	if entry == nil {
		return nil
	}
	return append([]bundle.Element(nil), entry.elements...)
}

// ElementsByDirectory returns the elements whose script lives anywhere under
// dir, ordered by script path.
func (r *Registry) ElementsByDirectory(dir string) []bundle.Element {
	prefix := cleanKey(dir)
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	r.mu.RLock()
	var entries []*pathEntry
	// PathTrie has no subtree walk, so every script is visited.
	r.byPath.Walk(func(key string, value interface{}) error {
		entry := value.(*pathEntry)
		if strings.HasPrefix(entry.path, prefix) {
			entries = append(entries, entry)
		}
		return nil
	})
	var elements []bundle.Element
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].path < entries[j].path
	})
	for _, entry := range entries {
		elements = append(elements, entry.elements...)
	}
	r.mu.RUnlock()

	return elements
}

// Len returns the number of registered elements.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func cleanKey(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}
