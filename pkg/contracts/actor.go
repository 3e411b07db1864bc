package contracts

// Role identifies who is acting on a case. The transport layer resolves
// the role from the request; workflow and export consult it for
// transition permission and redaction mode.
type Role string

const (
	RoleSubmitter  Role = "submitter"
	RoleVerifier   Role = "verifier"
	RoleAdmin      Role = "admin"
	RoleDevSupport Role = "devsupport"
	RoleSystem     Role = "system"
)

// ParseRole maps a header value to a role; unknown values are rejected
// by returning false.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSubmitter, RoleVerifier, RoleAdmin, RoleDevSupport:
		return Role(s), true
	}
	return "", false
}

// Actor is the identity attached to a request. ID is optional; system
// actors carry none.
type Actor struct {
	Role Role   `json:"role"`
	ID   string `json:"id,omitempty"`
}

// SystemActor is used for background work: scheduled recomputes, the
// retention sweeper, and cascade side effects.
var SystemActor = Actor{Role: RoleSystem}

// CanViewFullPayload reports whether this actor may request full
// (unredacted) exports. Verifiers are always forced into safe mode.
func (a Actor) CanViewFullPayload() bool {
	return a.Role == RoleAdmin || a.Role == RoleDevSupport
}
