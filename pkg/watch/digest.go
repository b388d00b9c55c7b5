package watch

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"
)

// digests remembers the content hash of each script so that events which
// leave a file unchanged (touch, chmod, editor save without edits) do not
// trigger a reload.
type digests struct {
	mu     sync.Mutex
	byPath map[string]string
}

func newDigests() *digests {
	return &digests{byPath: make(map[string]string)}
}

// update records the current hash of path and reports whether it differs
// from the previous one.  A file that was never recorded counts as changed.
func (d *digests) update(path string) bool {
	sum, err := fileSha256(path)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		delete(d.byPath, path)
		return true
	}
	prev, ok := d.byPath[path]
	d.byPath[path] = sum
	return !ok || prev != sum
}

func (d *digests) forget(path string) {
	d.mu.Lock()
	delete(d.byPath, path)
	d.mu.Unlock()
}

func fileSha256(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
