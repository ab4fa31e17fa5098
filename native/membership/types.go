package membership

// Role identifies the single active role held by a ledger identity.
type Role string

const (
	RoleUnspecified Role = ""
	RoleAdmin       Role = "admin"
	RoleBorrower    Role = "borrower"
	RoleDepositor   Role = "depositor"
	RoleValidator   Role = "validator"
)

// Valid reports whether the role is one of the supported registrations.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBorrower, RoleDepositor, RoleValidator:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for logging and event emission.
func (r Role) String() string { return string(r) }

// ParseRole normalises a textual role name into a Role value.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	if !role.Valid() {
		return RoleUnspecified, false
	}
	return role, true
}

// Member captures the active registration for one identity. Exactly one role
// is held at a time; a pending role recorded by an admin pre-registration is
// tracked separately until the member accepts it.
type Member struct {
	Address [20]byte `json:"address"`
	Role    Role     `json:"role"`
}

// Clone returns a copy safe for the caller to mutate.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}
