package state

import "crp/native/membership"

// MembershipGetMember loads the active registration for the address.
func (m *Manager) MembershipGetMember(addr [20]byte) (*membership.Member, bool, error) {
	member := &membership.Member{}
	ok, err := m.getJSON(stateKey("membership", "member", addrHex(addr)), member)
	if err != nil || !ok {
		return nil, false, err
	}
	return member, true, nil
}

// MembershipPutMember persists the registration keyed by its address.
func (m *Manager) MembershipPutMember(member *membership.Member) error {
	return m.putJSON(stateKey("membership", "member", addrHex(member.Address)), member)
}

// MembershipRemoveMember deletes the registration.
func (m *Manager) MembershipRemoveMember(addr [20]byte) error {
	return m.db.Delete(stateKey("membership", "member", addrHex(addr)))
}

// MembershipGetPending loads a pre-registered role awaiting acceptance.
func (m *Manager) MembershipGetPending(addr [20]byte) (membership.Role, bool, error) {
	var role membership.Role
	ok, err := m.getJSON(stateKey("membership", "pending", addrHex(addr)), &role)
	if err != nil || !ok {
		return membership.RoleUnspecified, false, err
	}
	return role, true, nil
}

// MembershipPutPending records a pre-registered role.
func (m *Manager) MembershipPutPending(addr [20]byte, role membership.Role) error {
	return m.putJSON(stateKey("membership", "pending", addrHex(addr)), role)
}

// MembershipRemovePending clears the pre-registration.
func (m *Manager) MembershipRemovePending(addr [20]byte) error {
	return m.db.Delete(stateKey("membership", "pending", addrHex(addr)))
}

// ComplianceGetWhitelisted reports the stored whitelist flag.
func (m *Manager) ComplianceGetWhitelisted(addr [20]byte) (bool, error) {
	var whitelisted bool
	if _, err := m.getJSON(stateKey("compliance", "whitelist", addrHex(addr)), &whitelisted); err != nil {
		return false, err
	}
	return whitelisted, nil
}

// CompliancePutWhitelisted persists the whitelist flag.
func (m *Manager) CompliancePutWhitelisted(addr [20]byte, whitelisted bool) error {
	return m.putJSON(stateKey("compliance", "whitelist", addrHex(addr)), whitelisted)
}
