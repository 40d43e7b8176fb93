package experiment

// Role is the kind of person taking part.
type Role string

const (
	RoleTester      Role = "tester"
	RoleParticipant Role = "participant"
	RoleUnspecified Role = "unspecified"
	RoleUnknown     Role = "unknown"
)

// ValidateRole maps a raw role string to a Role. An empty string is
// unspecified; anything unrecognised is unknown.
func ValidateRole(s string) Role {
	switch Role(s) {
	case RoleTester, RoleParticipant, RoleUnspecified:
		return Role(s)
	case "":
		return RoleUnspecified
	default:
		return RoleUnknown
	}
}

// Identity names the participant a session belongs to.
type Identity struct {
	ParticipantID string
	Role          Role
}

// Claims are unvalidated identity values from one source, such as a cookie
// or a query string.
type Claims struct {
	ParticipantID string
	Role          string
}

// ResolveIdentity takes each value from primary, falling back to fallback
// when primary leaves it empty.
func ResolveIdentity(primary, fallback Claims) Identity {
	pid := primary.ParticipantID
	if pid == "" {
		pid = fallback.ParticipantID
	}
	role := primary.Role
	if role == "" {
		role = fallback.Role
	}
	return Identity{ParticipantID: pid, Role: ValidateRole(role)}
}
