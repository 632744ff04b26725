package model

// Role is the fixed set of account roles.  A user's role is assigned at
// creation and never changes afterwards.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleOrganizer   Role = "organizer"
	RoleParticipant Role = "participant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleParticipant:
		return true
	}
	return false
}

// SelfServiceRole maps the role requested on the public registration
// form to the role actually granted.  Only participant and organizer may
// be chosen there; anything else (including admin) falls back to
// participant.  The second return value is false when the fallback was
// applied so callers can record it.
func SelfServiceRole(requested string) (Role, bool) {
	switch Role(requested) {
	case RoleParticipant, RoleOrganizer:
		return Role(requested), true
	}
	return RoleParticipant, false
}
