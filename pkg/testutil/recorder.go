package testutil

import (
	"fmt"
	"sync"

	"github.com/stackb/scriptbundles/pkg/bundle"
)

// RecordingListener implements every event listener interface and records
// each callback as a string such as "added ruby@/app/ruby".
type RecordingListener struct {
	mu     sync.Mutex
	events []string
}

// NewRecordingListener creates an empty RecordingListener.
func NewRecordingListener() *RecordingListener {
	return &RecordingListener{}
}

func (r *RecordingListener) record(format string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// Events returns the recorded events in order.
func (r *RecordingListener) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Reset clears the recorded events.
func (r *RecordingListener) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *RecordingListener) BundleAdded(b *bundle.BundleElement) {
	r.record("added %s", bundleKey(b))
}

func (r *RecordingListener) BundleDeleted(b *bundle.BundleElement) {
	r.record("deleted %s", bundleKey(b))
}

func (r *RecordingListener) BundleBecameVisible(entry *bundle.BundleEntry, b *bundle.BundleElement) {
	r.record("visible %s", bundleKey(b))
}

func (r *RecordingListener) BundleBecameHidden(entry *bundle.BundleEntry, b *bundle.BundleElement) {
	r.record("hidden %s", bundleKey(b))
}

func (r *RecordingListener) ElementAdded(e bundle.Element) {
	r.record("element added %s", e.DisplayName())
}

func (r *RecordingListener) ElementDeleted(e bundle.Element) {
	r.record("element deleted %s", e.DisplayName())
}

func (r *RecordingListener) ScriptLoaded(path string) {
	r.record("loaded %s", path)
}

func (r *RecordingListener) ScriptReloaded(path string) {
	r.record("reloaded %s", path)
}

func (r *RecordingListener) ScriptUnloaded(path string) {
	r.record("unloaded %s", path)
}

func bundleKey(b *bundle.BundleElement) string {
	return b.DisplayName() + "@" + b.BundleDirectory()
}

// RecordingSink collects diagnostics.
type RecordingSink struct {
	mu       sync.Mutex
	Errors   []string
	Warnings []string
	Infos    []string
}

func (s *RecordingSink) LogError(message string) {
	s.mu.Lock()
	s.Errors = append(s.Errors, message)
	s.mu.Unlock()
}

func (s *RecordingSink) LogWarning(message string) {
	s.mu.Lock()
	s.Warnings = append(s.Warnings, message)
	s.mu.Unlock()
}

func (s *RecordingSink) LogInfo(message string) {
	s.mu.Lock()
	s.Infos = append(s.Infos, message)
	s.mu.Unlock()
}

// ErrorMessages returns a copy of the recorded errors.
func (s *RecordingSink) ErrorMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Errors...)
}
