package scope

import (
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

// FileType maps a file name pattern such as "*.html" to a top-level scope
// name such as "text.html.basic".
type FileType struct {
	Pattern string
	Scope   string
}

// patternCache holds compiled file name patterns keyed by expression.
var patternCache sync.Map

// PatternExpression converts a file name pattern into a regular expression.
// Literal dots are escaped and each '*' becomes ".+?" (one or more of any
// character, non-greedy).  No other characters are rewritten.
func PatternExpression(pattern string) string {
	expr := strings.ReplaceAll(pattern, ".", `\.`)
	return strings.ReplaceAll(expr, "*", ".+?")
}

// FileTypeMatcher accumulates file type mappings offered for one file name
// and keeps the most specific one.
type FileTypeMatcher struct {
	fileName string
	scope    string
	matched  string
	found    bool
}

// NewFileTypeMatcher returns a FileTypeMatcher for the given file name.
func NewFileTypeMatcher(fileName string) *FileTypeMatcher {
	return &FileTypeMatcher{fileName: fileName}
}

// Offer considers a file type mapping and reports whether it became the
// current match.  A mapping is eligible when its pattern matches the whole
// file name.  An eligible mapping replaces the current one when its scope has
// more dot-separated segments, or the same number of segments and a longer
// pattern expression.  Otherwise the first match is kept.
func (m *FileTypeMatcher) Offer(ft FileType) bool {
	expr := PatternExpression(ft.Pattern)
	if !matchesWhole(expr, m.fileName) {
		return false
	}
	if m.found {
		existing := segmentCount(m.scope)
		candidate := segmentCount(ft.Scope)
		if candidate < existing {
			return false
		}
		// FIXME: pattern length is a rough measure of specificity.
		if candidate == existing && len(expr) <= len(m.matched) {
			return false
		}
	}
	m.scope = ft.Scope
	m.matched = expr
	m.found = true
	return true
}

// Result returns the matched scope name.  The boolean is false when nothing
// matched.
func (m *FileTypeMatcher) Result() (string, bool) {
	return m.scope, m.found
}

// TopLevelScope offers every mapping, in order, to a new FileTypeMatcher and
// returns the result.
func TopLevelScope(fileName string, fileTypes []FileType) (string, bool) {
	m := NewFileTypeMatcher(fileName)
	for _, ft := range fileTypes {
		m.Offer(ft)
	}
	return m.Result()
}

func matchesWhole(expr, s string) bool {
	re, err := compilePattern(expr)
	if err != nil {
		return false
	}
	ok, err := re.MatchString(s)
	return err == nil && ok
}

func compilePattern(expr string) (*regexp2.Regexp, error) {
	if re, ok := patternCache.Load(expr); ok {
		return re.(*regexp2.Regexp), nil
	}
	re, err := regexp2.Compile(`\A(?:`+expr+`)\z`, regexp2.None)
	if err != nil {
		return nil, err
	}
	patternCache.Store(expr, re)
	return re, nil
}

// segmentCount counts the dot-separated segments of a scope name, ignoring
// trailing empty segments.
func segmentCount(name string) int {
	parts := strings.Split(name, ".")
	for len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return len(parts)
}
