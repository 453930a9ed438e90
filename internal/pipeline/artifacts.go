package pipeline

import (
	"sync"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/naming"
)

// Artifact is one finished output file.
type Artifact struct {
	// Filename is the output name derived by the naming engine.
	Filename string
	// Data is the finished file content.
	Data []byte
	// Role records which capture the artifact came from.
	Role naming.Role
}

// ArtifactSet is an ordered, concurrency-safe name->artifact collection.
// Putting an existing name replaces its content but keeps its original
// position, giving deterministic iteration and overwrite-last semantics
// for colliding output names.
type ArtifactSet struct {
	mu    sync.RWMutex
	names []string
	data  map[string]Artifact
}

// NewArtifactSet creates an empty ArtifactSet.
func NewArtifactSet() *ArtifactSet {
	return &ArtifactSet{data: make(map[string]Artifact)}
}

// Put stores an artifact under its filename. The later write wins.
func (s *ArtifactSet) Put(a Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[a.Filename]; !ok {
		s.names = append(s.names, a.Filename)
	}
	s.data[a.Filename] = a
}

// Get returns the artifact stored under name.
func (s *ArtifactSet) Get(name string) (Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[name]
	return a, ok
}

// Names returns the artifact names in first-insertion order.
func (s *ArtifactSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of stored artifacts.
func (s *ArtifactSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.names)
}
