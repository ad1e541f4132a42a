package attachment

import (
	"iter"
)

// Source resolves attachments that a Set does not hold yet.
type Source interface {
	// Attachment returns the attachment with the given content-id, or nil.
	Attachment(contentID string) (Attachment, error)
	// Attachments returns every attachment the source can provide.
	Attachments() ([]Attachment, error)
}

// Set is an ordered collection of attachments keyed by content-id.
type Set struct {
	order  []string
	byID   map[string]Attachment
	source Source
	loaded bool
	// err is the sticky failure of the last Load.
	err error
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{byID: make(map[string]Attachment), loaded: true}
}

// NewLazySet creates a set that consults src for attachments it has not seen.
func NewLazySet(src Source) *Set {
	return &Set{byID: make(map[string]Attachment), source: src}
}

// Add appends an attachment. An attachment with the same content-id replaces
// the previous one but keeps its position.
func (s *Set) Add(a Attachment) {
	id := a.ContentID()
	if _, ok := s.byID[id]; !ok {
		s.order = append(s.order, id)
	}
	s.byID[id] = a
}

// Get returns the attachment with the given content-id. A miss is not an
// error: nil is returned.
func (s *Set) Get(contentID string) (Attachment, error) {
	contentID = trimBrackets(contentID)
	if a, ok := s.byID[contentID]; ok {
		return a, nil
	}
	if s.source == nil || s.loaded {
		return nil, nil
	}
	a, err := s.source.Attachment(contentID)
	if err != nil || a == nil {
		return nil, err
	}
	s.Add(a)
	return a, nil
}

// Load pulls every attachment from the backing source. A failure is kept
// and returned by later calls.
func (s *Set) Load() error {
	if s.loaded || s.source == nil {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	all, err := s.source.Attachments()
	if err != nil {
		s.err = err
		return err
	}
	for _, a := range all {
		if _, ok := s.byID[a.ContentID()]; !ok {
			s.Add(a)
		}
	}
	s.loaded = true
	return nil
}

// All iterates the set in insertion order. The backing source is loaded
// first; a load failure ends the iteration early. Use List to observe it.
func (s *Set) All() iter.Seq[Attachment] {
	return func(yield func(Attachment) bool) {
		if err := s.Load(); err != nil {
			return
		}
		for _, id := range s.order {
			if !yield(s.byID[id]) {
				return
			}
		}
	}
}

// List returns the attachments in insertion order.
func (s *Set) List() ([]Attachment, error) {
	if err := s.Load(); err != nil {
		return nil, err
	}
	out := make([]Attachment, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// Len returns the number of attachments, loading the source if needed. When
// the load fails only the attachments already resolved are counted; Err
// reports the failure.
func (s *Set) Len() int {
	s.Load()
	return len(s.order)
}

// Err returns the error of a failed Load, if any.
func (s *Set) Err() error {
	return s.err
}

// IsEmpty reports whether the set holds no attachments.
func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}
