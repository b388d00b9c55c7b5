package scope

import "strings"

// Selector matches scope strings such as "source.ruby meta.function.ruby".
//
// A selector is a comma-separated list of alternatives.  Each alternative is
// a space-separated descendant path of dotted scope names.  The selector
// element "source.ruby" matches the scope segment "source.ruby" and any
// segment below it, such as "source.ruby.rails", but not "source.rubyx".
type Selector struct {
	text         string
	alternatives [][]string
}

// ParseSelector parses the given selector text.  Parsing never fails: blank
// alternatives are dropped and a selector without alternatives matches
// nothing.
func ParseSelector(text string) *Selector {
	s := &Selector{text: text}
	for _, alt := range strings.Split(text, ",") {
		path := strings.Fields(alt)
		if len(path) == 0 {
			continue
		}
		s.alternatives = append(s.alternatives, path)
	}
	return s
}

// String returns the selector text as it was written.
func (s *Selector) String() string {
	return s.text
}

// IsEmpty reports whether the selector has no alternatives.
func (s *Selector) IsEmpty() bool {
	return len(s.alternatives) == 0
}

// Matches reports whether any alternative of the selector matches the given
// space-separated scope string.
func (s *Selector) Matches(scope string) bool {
	segments := strings.Fields(scope)
	for _, path := range s.alternatives {
		if matchPath(path, segments) {
			return true
		}
	}
	return false
}

// matchPath reports whether the elements of path match segments in order.
// Matched segments need not be adjacent.
func matchPath(path, segments []string) bool {
	i := 0
	for _, segment := range segments {
		if i == len(path) {
			break
		}
		if matchSegment(path[i], segment) {
			i++
		}
	}
	return i == len(path)
}

func matchSegment(element, segment string) bool {
	if element == segment {
		return true
	}
	return strings.HasPrefix(segment, element) && segment[len(element)] == '.'
}
