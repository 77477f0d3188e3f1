// Package redact scrubs sensitive substrings from log output using an
// ordered set of regular expressions loaded from a patterns file.
package redact

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
)

// Marker replaces every match of every pattern.
const Marker = "[REDACTED]"

// Patterns is an ordered set of compiled matchers. Order is the line order
// of the file it was loaded from; later patterns see the output of earlier
// ones, so reordering the file can change the result when patterns overlap.
type Patterns []*regexp.Regexp

// LoadPatterns reads and compiles the patterns file at path.
// A missing file is an error (wrapping fs.ErrNotExist), never an empty set.
func LoadPatterns(path string) (Patterns, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("redact: opening patterns file: %w", err)
	}
	defer f.Close()

	patterns, err := ParsePatterns(f)
	if err != nil {
		return nil, fmt.Errorf("redact: %s: %w", path, err)
	}
	return patterns, nil
}

// ParsePatterns compiles one pattern per line. Everything from the first
// '#' onwards is a comment; blank lines are skipped. Any line that fails to
// compile aborts the whole load.
func ParsePatterns(r io.Reader) (Patterns, error) {
	var patterns Patterns

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		re, err := regexp.Compile(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		patterns = append(patterns, re)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading patterns: %w", err)
	}

	return patterns, nil
}

// Record is a log message with optional positional arguments.
type Record struct {
	Message string
	Args    []any
}

// Filter redacts records. It is safe for concurrent use; Swap replaces the
// whole pattern set at once, so a message never sees a mix of two sets.
type Filter struct {
	patterns atomic.Pointer[Patterns]
	observe  func(n int)
}

// Option configures a Filter.
type Option func(*Filter)

// WithObserver registers fn to be called with the number of substitutions
// made whenever a message is redacted.
func WithObserver(fn func(n int)) Option {
	return func(f *Filter) { f.observe = fn }
}

// NewFilter loads the patterns file at path and returns a Filter over it.
func NewFilter(path string, opts ...Option) (*Filter, error) {
	patterns, err := LoadPatterns(path)
	if err != nil {
		return nil, err
	}
	return NewFilterFromPatterns(patterns, opts...), nil
}

// NewFilterFromPatterns returns a Filter over an already compiled set.
func NewFilterFromPatterns(patterns Patterns, opts ...Option) *Filter {
	f := &Filter{}
	f.patterns.Store(&patterns)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Filter) current() Patterns { return *f.patterns.Load() }

// Len returns the number of patterns.
func (f *Filter) Len() int { return len(f.current()) }

// Patterns returns a copy of the pattern set in application order.
func (f *Filter) Patterns() Patterns {
	cur := f.current()
	out := make(Patterns, len(cur))
	copy(out, cur)
	return out
}

// Swap installs a new pattern set and returns the previous one.
func (f *Filter) Swap(patterns Patterns) Patterns {
	return *f.patterns.Swap(&patterns)
}

// Apply interpolates rec.Args into rec.Message (printf-style), clears the
// arguments so nothing downstream formats them twice, and then redacts the
// resulting message. It always keeps the record.
func (f *Filter) Apply(rec *Record) bool {
	if len(rec.Args) > 0 {
		rec.Message = fmt.Sprintf(rec.Message, rec.Args...)
		rec.Args = nil
	}
	rec.Message = f.Redact(rec.Message)
	return true
}

// Redact replaces every match of every pattern, in order, with Marker.
func (f *Filter) Redact(s string) string {
	if s == "" {
		return s
	}

	hits := 0
	for _, p := range f.current() {
		if f.observe != nil {
			hits += len(p.FindAllStringIndex(s, -1))
		}
		s = p.ReplaceAllLiteralString(s, Marker)
	}

	if hits > 0 {
		f.observe(hits)
	}
	return s
}
