// Package sources holds the named byte sources available to a conversion run
// and resolves manifest-declared paths against them. Export archives rarely
// preserve the exact folder structure the manifest declares, so resolution
// falls back from the full path to looser matches.
package sources

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrMediaNotFound is returned when no source matches the declared path.
// Callers treat it as a skip of that media item, not a fatal error.
var ErrMediaNotFound = errors.New("media file not found")

// MatchKind records which resolution rule produced a match.
type MatchKind string

const (
	// MatchExact means the full declared path matched a source name.
	MatchExact MatchKind = "exact"
	// MatchBasename means only the final path segment matched.
	MatchBasename MatchKind = "basename"
	// MatchSuffix means a source name merely ends with the basename.
	MatchSuffix MatchKind = "suffix"
)

// Resolved binds a declared path to the source bytes that matched it.
type Resolved struct {
	// Name is the source name that matched.
	Name string
	// Data is the source content. The caller owns it for the duration of
	// the entry being processed.
	Data []byte
	// Kind is the resolution rule that produced the match.
	Kind MatchKind
	// Candidates is the number of sources that satisfied the suffix rule.
	// A value above 1 signals an ambiguous match worth warning about.
	Candidates int
}

// Set is an ordered name->bytes mapping. Insertion order is preserved so
// that fallback matching is deterministic.
type Set struct {
	names []string
	data  map[string][]byte
}

// NewSet creates an empty source set.
func NewSet() *Set {
	return &Set{data: make(map[string][]byte)}
}

// Add registers a named source. Re-adding a name replaces its content but
// keeps its original position.
func (s *Set) Add(name string, data []byte) {
	if _, ok := s.data[name]; !ok {
		s.names = append(s.names, name)
	}
	s.data[name] = data
}

// Len returns the number of sources in the set.
func (s *Set) Len() int {
	return len(s.names)
}

// Names returns the source names in insertion order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Locate resolves a manifest-declared path to a source.
//
// Resolution order, first match wins:
//  1. exact match on the full declared path
//  2. exact match on the path's basename
//  3. any source whose name ends with the basename, first in insertion order
//
// A miss returns ErrMediaNotFound.
func (s *Set) Locate(declared string) (Resolved, error) {
	if data, ok := s.data[declared]; ok {
		return Resolved{Name: declared, Data: data, Kind: MatchExact, Candidates: 1}, nil
	}

	base := path.Base(declared)
	if data, ok := s.data[base]; ok {
		return Resolved{Name: base, Data: data, Kind: MatchBasename, Candidates: 1}, nil
	}

	var match Resolved
	candidates := 0
	for _, name := range s.names {
		if strings.HasSuffix(name, base) {
			if candidates == 0 {
				match = Resolved{Name: name, Data: s.data[name], Kind: MatchSuffix}
			}
			candidates++
		}
	}
	if candidates > 0 {
		match.Candidates = candidates
		return match, nil
	}

	return Resolved{}, fmt.Errorf("%w: %s", ErrMediaNotFound, declared)
}
