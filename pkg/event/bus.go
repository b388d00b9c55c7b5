// Package event dispatches bundle, element and load-cycle notifications.
//
// Dispatch is synchronous, in subscription order, on the goroutine that
// fires the event.  Listeners run without any bus lock held and may
// subscribe, unsubscribe or query the bundle index.
package event

import (
	"sync"

	"github.com/stackb/scriptbundles/pkg/bundle"
)

// Subscription is returned by the Subscribe methods.
type Subscription interface {
	// Unsubscribe removes the listener.  Calling it more than once is a
	// no-op.
	Unsubscribe()
}

type subscriptionFunc struct {
	once sync.Once
	fn   func()
}

func (s *subscriptionFunc) Unsubscribe() {
	s.once.Do(s.fn)
}

var noopSubscription = &subscriptionFunc{fn: func() {}}

type registration[L any] struct {
	listener L
}

// listeners is an ordered list of registrations.
type listeners[L any] struct {
	list []*registration[L]
}

func (ls *listeners[L]) add(l L) *registration[L] {
	r := &registration[L]{listener: l}
	ls.list = append(ls.list, r)
	return r
}

func (ls *listeners[L]) remove(r *registration[L]) {
	for i, other := range ls.list {
		if other == r {
			ls.list = append(ls.list[:i:i], ls.list[i+1:]...)
			return
		}
	}
}

// Bus holds the three listener registries.
type Bus struct {
	mu       sync.Mutex
	bundles  listeners[BundleChangeListener]
	elements listeners[ElementChangeListener]
	cycles   listeners[LoadCycleListener]
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeBundleChanges registers a bundle change listener.  A nil listener
// is ignored.
func (b *Bus) SubscribeBundleChanges(l BundleChangeListener) Subscription {
	if l == nil {
		return noopSubscription
	}
	return subscribe(b, &b.bundles, l)
}

// SubscribeElementChanges registers an element change listener.  A nil
// listener is ignored.
func (b *Bus) SubscribeElementChanges(l ElementChangeListener) Subscription {
	if l == nil {
		return noopSubscription
	}
	return subscribe(b, &b.elements, l)
}

// SubscribeLoadCycle registers a load cycle listener.  A nil listener is
// ignored.
func (b *Bus) SubscribeLoadCycle(l LoadCycleListener) Subscription {
	if l == nil {
		return noopSubscription
	}
	return subscribe(b, &b.cycles, l)
}

func subscribe[L any](b *Bus, ls *listeners[L], l L) Subscription {
	b.mu.Lock()
	r := ls.add(l)
	b.mu.Unlock()
	return &subscriptionFunc{fn: func() {
		b.mu.Lock()
		ls.remove(r)
		b.mu.Unlock()
	}}
}

func snapshot[L any](b *Bus, ls *listeners[L]) []L {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]L, len(ls.list))
	for i, r := range ls.list {
		out[i] = r.listener
	}
	return out
}

// FireBundleAdded notifies bundle listeners that be was indexed.
func (b *Bus) FireBundleAdded(be *bundle.BundleElement) {
	for _, l := range snapshot(b, &b.bundles) {
		l.BundleAdded(be)
	}
}

// FireBundleDeleted notifies bundle listeners that be was removed.
func (b *Bus) FireBundleDeleted(be *bundle.BundleElement) {
	for _, l := range snapshot(b, &b.bundles) {
		l.BundleDeleted(be)
	}
}

// FireBundleBecameVisible notifies bundle listeners of a visibility gain.
func (b *Bus) FireBundleBecameVisible(entry *bundle.BundleEntry, be *bundle.BundleElement) {
	for _, l := range snapshot(b, &b.bundles) {
		l.BundleBecameVisible(entry, be)
	}
}

// FireBundleBecameHidden notifies bundle listeners of a visibility loss.
func (b *Bus) FireBundleBecameHidden(entry *bundle.BundleEntry, be *bundle.BundleElement) {
	for _, l := range snapshot(b, &b.bundles) {
		l.BundleBecameHidden(entry, be)
	}
}

// FireElementAdded notifies element listeners.  Members without an owner are
// not reported.
func (b *Bus) FireElementAdded(e bundle.Element) {
	if detached(e) {
		return
	}
	for _, l := range snapshot(b, &b.elements) {
		l.ElementAdded(e)
	}
}

// FireElementDeleted notifies element listeners.  Members without an owner
// are not reported.
func (b *Bus) FireElementDeleted(e bundle.Element) {
	if detached(e) {
		return
	}
	for _, l := range snapshot(b, &b.elements) {
		l.ElementDeleted(e)
	}
}

// FireElementModified reports a modification as ElementDeleted followed by
// ElementAdded on each listener.
func (b *Bus) FireElementModified(e bundle.Element) {
	if detached(e) {
		return
	}
	for _, l := range snapshot(b, &b.elements) {
		l.ElementDeleted(e)
		l.ElementAdded(e)
	}
}

// FireScriptLoaded notifies load cycle listeners.
func (b *Bus) FireScriptLoaded(path string) {
	for _, l := range snapshot(b, &b.cycles) {
		l.ScriptLoaded(path)
	}
}

// FireScriptReloaded notifies load cycle listeners.
func (b *Bus) FireScriptReloaded(path string) {
	for _, l := range snapshot(b, &b.cycles) {
		l.ScriptReloaded(path)
	}
}

// FireScriptUnloaded notifies load cycle listeners.
//
// NOTE: listeners receive ScriptReloaded, not ScriptUnloaded.
func (b *Bus) FireScriptUnloaded(path string) {
	for _, l := range snapshot(b, &b.cycles) {
		l.ScriptReloaded(path)
	}
}

func detached(e bundle.Element) bool {
	m, ok := e.(bundle.Member)
	return ok && m.OwnerID() == ""
}
