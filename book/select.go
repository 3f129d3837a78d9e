package book

import (
	"errors"

	"github.com/gobwas/glob"
)

// ErrNoChapterMatched reports a non-empty selector that matched no chapter.
var ErrNoChapterMatched = errors.New("selection did not match any chapter")

// Selector picks chapters by glob patterns matched against the chapter
// name or number. The zero Selector selects everything.
type Selector struct {
	globs   []glob.Glob
	ignored []string
}

// NewSelector compiles patterns. Invalid patterns are skipped and reported
// by Ignored.
func NewSelector(patterns ...string) Selector {
	var s Selector
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			s.ignored = append(s.ignored, p)
			continue
		}
		s.globs = append(s.globs, g)
	}
	return s
}

// Empty reports whether the selector holds no valid pattern.
func (s Selector) Empty() bool {
	return len(s.globs) == 0
}

// Ignored returns the patterns that failed to compile.
func (s Selector) Ignored() []string {
	return s.ignored
}

// Match reports whether c is selected.
func (s Selector) Match(c Chapter) bool {
	if s.Empty() {
		return true
	}
	for _, g := range s.globs {
		if g.Match(c.Name) || (c.Number != "" && g.Match(c.Number)) {
			return true
		}
	}
	return false
}
