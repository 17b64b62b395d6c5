package dlfl

import "fmt"

// Kind enumerates the entity types that receive IDs.
type Kind int

const (
	KindVertex Kind = iota
	KindEdge
	KindFace
	KindCorner
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	case KindFace:
		return "face"
	case KindCorner:
		return "corner"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Session owns the ID counters shared by every mesh built on it. Counters are
// monotonic and never hand out an ID twice until Reset is called.
type Session struct {
	last [numKinds]uint64
}

// NewSession returns a session whose counters start at zero.
func NewSession() *Session {
	return &Session{}
}

// NextID returns a fresh ID for the given kind.
func (s *Session) NextID(k Kind) uint64 {
	id := s.last[k]
	s.last[k]++
	return id
}

// Last returns the next ID that would be handed out for k.
func (s *Session) Last(k Kind) uint64 {
	return s.last[k]
}

// SetLast raises the counter for k to id. Lower values are ignored so the
// counter never moves backwards; this is used when importing entities whose
// IDs were assigned elsewhere.
func (s *Session) SetLast(k Kind, id uint64) {
	if id > s.last[k] {
		s.last[k] = id
	}
}

// Reset zeroes all counters. Meshes built before the reset keep their IDs,
// so mixing them with meshes built after it can produce duplicates.
func (s *Session) Reset() {
	s.last = [numKinds]uint64{}
}
