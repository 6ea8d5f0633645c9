package blacklist

import "github.com/nekogravitycat/visitor-parking-backend/internal/pkg/apperror"

var ErrBlocked = apperror.New(apperror.KindForbidden, "blocked_entity", "booking is not allowed for this visitor")

// Subject is what an admission request reveals about the people involved.
// NationalID is the raw document number and is only ever stored hashed.
type Subject struct {
	Email      string
	NationalID string
	Plate      string
}

// Probe is the normalized form of a Subject used for lookups.
type Probe struct {
	Email  string
	IDHash string
	Plate  string
}

// Empty reports whether the probe has nothing to match on.
func (p Probe) Empty() bool {
	return p.Email == "" && p.IDHash == "" && p.Plate == ""
}

// Match is one active entry that matched a probe.
type Match struct {
	EntryID string
	Global  bool
	Reason  string
}
