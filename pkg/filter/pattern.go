// Package filter provides class name matching for entry-point patterns and
// package-based classification of discovered dependencies.
package filter

import (
	"fmt"
	"sort"
	"strings"
)

// Wildcard is the trailing character that turns a pattern into a prefix match.
const Wildcard = "*"

// Filter selects classes by internal (slashed) name.
type Filter interface {
	// Match reports whether the class is selected.
	Match(internalName string) bool
	// String describes the filter for diagnostics.
	String() string
}

// ExactFilter matches a fixed set of class names.
type ExactFilter struct {
	names map[string]struct{}
}

// NewExactFilter creates a filter for dotted or slashed class names.
func NewExactFilter(names ...string) *ExactFilter {
	f := &ExactFilter{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		f.names[toInternal(n)] = struct{}{}
	}
	return f
}

// Match reports whether the name is one of the configured names.
func (f *ExactFilter) Match(internalName string) bool {
	_, ok := f.names[internalName]
	return ok
}

// Names returns the configured names sorted.
func (f *ExactFilter) Names() []string {
	out := make([]string, 0, len(f.names))
	for n := range f.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (f *ExactFilter) String() string {
	return strings.Join(f.Names(), ",")
}

// WildcardFilter matches every class whose name starts with one of its
// prefixes. An empty prefix matches everything.
type WildcardFilter struct {
	prefixes []string
}

// NewWildcardFilter creates a filter from prefixes, without the trailing "*".
func NewWildcardFilter(prefixes ...string) *WildcardFilter {
	f := &WildcardFilter{}
	for _, p := range prefixes {
		f.prefixes = append(f.prefixes, toInternal(p))
	}
	return f
}

// Match reports whether the name starts with any prefix.
func (f *WildcardFilter) Match(internalName string) bool {
	for _, p := range f.prefixes {
		if strings.HasPrefix(internalName, p) {
			return true
		}
	}
	return false
}

func (f *WildcardFilter) String() string {
	parts := make([]string, len(f.prefixes))
	for i, p := range f.prefixes {
		parts[i] = p + Wildcard
	}
	return strings.Join(parts, ",")
}

// ParsePattern builds the filter for one entry-point pattern. "com.acme.*"
// selects everything under com/acme/, "*" selects every class and anything
// else is an exact class name.
func ParsePattern(pattern string) (Filter, error) {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return nil, fmt.Errorf("empty entry point pattern")
	}
	if strings.HasSuffix(p, Wildcard) {
		prefix := strings.TrimSuffix(p, Wildcard)
		if strings.Contains(prefix, Wildcard) {
			return nil, fmt.Errorf("entry point pattern %q: wildcard is only allowed at the end", pattern)
		}
		return NewWildcardFilter(prefix), nil
	}
	if strings.Contains(p, Wildcard) {
		return nil, fmt.Errorf("entry point pattern %q: wildcard is only allowed at the end", pattern)
	}
	return NewExactFilter(p), nil
}

// ExactName returns the single internal name selected by f, if f is an
// exact filter over one name.
func ExactName(f Filter) (string, bool) {
	ef, ok := f.(*ExactFilter)
	if !ok || len(ef.names) != 1 {
		return "", false
	}
	for n := range ef.names {
		return n, true
	}
	return "", false
}

func toInternal(name string) string {
	return strings.ReplaceAll(strings.TrimSuffix(name, ".class"), ".", "/")
}
