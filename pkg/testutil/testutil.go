package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bazelbuild/bazel-gazelle/testtools"
	"github.com/bazelbuild/rules_go/go/tools/bazel"
)

// MustPrepareTestFiles writes files into a new temporary directory that is
// removed when the test finishes.
func MustPrepareTestFiles(t *testing.T, files []testtools.FileSpec) (tmpDir string, filenames []string) {
	t.Helper()
	tmpDir, err := bazel.NewTmpDir("bundles")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})
	// bundle paths are compared by prefix, so resolve symlinked temp roots
	if resolved, err := filepath.EvalSymlinks(tmpDir); err == nil {
		tmpDir = resolved
	}

	filenames = MustWriteTestFiles(t, tmpDir, files)

	return tmpDir, filenames
}

// MustWriteTestFiles writes files relative to tmpDir.  A FileSpec with a
// trailing slash creates a directory; NotExist entries only create the parent
// directory.
func MustWriteTestFiles(t *testing.T, tmpDir string, files []testtools.FileSpec) []string {
	t.Helper()
	var filenames []string
	for _, file := range files {
		abs := filepath.Join(tmpDir, file.Path)
		if file.Path != "" && file.Path[len(file.Path)-1] == '/' {
			if err := os.MkdirAll(abs, os.ModePerm); err != nil {
				t.Fatal(err)
			}
			filenames = append(filenames, abs)
			continue
		}
		dir := filepath.Dir(abs)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			t.Fatal(err)
		}
		if !file.NotExist {
			if err := os.WriteFile(abs, []byte(file.Content), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		filenames = append(filenames, abs)
	}
	return filenames
}

// MustReadTestFile returns the content of dir/filename.
func MustReadTestFile(t *testing.T, dir string, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		ListFiles(t, dir)
		t.Fatal("reading", filename, ":", err)
	}
	return string(data)
}

// ExpectError asserts that the errors are equal.  Return value is true
// if the "want" argument is non-nil.
func ExpectError(t *testing.T, want, got error) bool {
	t.Helper()
	if !(want == nil && got == nil || want != nil && got != nil && want.Error() == got.Error()) {
		t.Fatal("errors: want:", want, "got:", got)
	}
	return want != nil
}

// ListFiles is a convenience debugging function to log the files under a given dir.
func ListFiles(t *testing.T, dir string) {
	t.Log("Listing files under:", dir)
	if err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		t.Log(path)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}
