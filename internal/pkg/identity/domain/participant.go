package identity

import "errors"

// Kind discriminates the two participant collections.
type Kind string

const (
	KindUser   Kind = "User"
	KindExpert Kind = "Expert"
)

// Valid reports whether k is one of the known participant kinds.
func (k Kind) Valid() bool {
	return k == KindUser || k == KindExpert
}

var (
	ErrInvalidKind        = errors.New("identity: invalid participant kind")
	ErrUnknownParticipant = errors.New("identity: unknown participant")
)

// Ref is a polymorphic participant reference: an id plus the collection it
// belongs to. Participants are always carried by reference, never by value.
type Ref struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
}

// NewRef validates and builds a participant reference.
func NewRef(id string, kind Kind) (Ref, error) {
	if id == "" {
		return Ref{}, ErrUnknownParticipant
	}
	if !kind.Valid() {
		return Ref{}, ErrInvalidKind
	}
	return Ref{ID: id, Kind: kind}, nil
}

// Key returns a stable string form usable as a map key or a room/cache key.
func (r Ref) Key() string {
	return string(r.Kind) + ":" + r.ID
}

// Equal compares by id and kind.
func (r Ref) Equal(other Ref) bool {
	return r.ID == other.ID && r.Kind == other.Kind
}

// Zero reports whether the reference is unset.
func (r Ref) Zero() bool {
	return r.ID == "" && r.Kind == ""
}

// Profile is the lightweight public projection of a participant.
type Profile struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}
