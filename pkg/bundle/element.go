package bundle

import (
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Element is anything produced by running a bundle script.
type Element interface {
	// ID is a unique, stable identifier.
	ID() string
	// DisplayName is the user visible name.
	DisplayName() string
	// Path is the script the element originated from.
	Path() string
	// Directory is the directory of Path.
	Directory() string
}

// Member is an element owned by a bundle.  The owner is referenced by ID
// and resolved through an element registry; the empty ID means detached.
type Member interface {
	Element
	OwnerID() string
	SetOwnerID(id string)
}

type element struct {
	id   string
	name string
	path string
}

func newElement(name, path string) element {
	return element{id: uuid.NewString(), name: name, path: path}
}

func (e *element) ID() string          { return e.id }
func (e *element) DisplayName() string { return e.name }
func (e *element) Path() string        { return e.path }
func (e *element) Directory() string   { return filepath.Dir(e.path) }

type member struct {
	element

	mu      sync.RWMutex
	ownerID string
}

func newMember(name, path string) member {
	return member{element: newElement(name, path)}
}

// OwnerID implements part of the Member interface.
func (m *member) OwnerID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ownerID
}

// SetOwnerID implements part of the Member interface.
func (m *member) SetOwnerID(id string) {
	m.mu.Lock()
	m.ownerID = id
	m.mu.Unlock()
}
