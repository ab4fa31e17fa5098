package membership

import (
	"errors"
	"testing"

	nativecommon "crp/native/common"
)

type mockMembershipState struct {
	members map[[20]byte]*Member
	pending map[[20]byte]Role
}

func newMockMembershipState() *mockMembershipState {
	return &mockMembershipState{
		members: make(map[[20]byte]*Member),
		pending: make(map[[20]byte]Role),
	}
}

func (m *mockMembershipState) MembershipGetMember(addr [20]byte) (*Member, bool, error) {
	member, ok := m.members[addr]
	if !ok {
		return nil, false, nil
	}
	return member.Clone(), true, nil
}

func (m *mockMembershipState) MembershipPutMember(member *Member) error {
	m.members[member.Address] = member.Clone()
	return nil
}

func (m *mockMembershipState) MembershipRemoveMember(addr [20]byte) error {
	delete(m.members, addr)
	return nil
}

func (m *mockMembershipState) MembershipGetPending(addr [20]byte) (Role, bool, error) {
	role, ok := m.pending[addr]
	return role, ok, nil
}

func (m *mockMembershipState) MembershipPutPending(addr [20]byte, role Role) error {
	m.pending[addr] = role
	return nil
}

func (m *mockMembershipState) MembershipRemovePending(addr [20]byte) error {
	delete(m.pending, addr)
	return nil
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func newTestEngine(t *testing.T) (*Engine, *mockMembershipState, [20]byte) {
	t.Helper()
	state := newMockMembershipState()
	admin := addr(0x01)
	state.members[admin] = &Member{Address: admin, Role: RoleAdmin}
	engine := NewEngine()
	engine.SetState(state)
	return engine, state, admin
}

func TestRegisterRoleRequiresAdmin(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	outsider := addr(0x02)
	if err := engine.RegisterRole(outsider, addr(0x03), RoleDepositor); !errors.Is(err, nativecommon.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestRegisterRoleAssigns(t *testing.T) {
	engine, _, admin := newTestEngine(t)
	target := addr(0x04)
	if err := engine.RegisterRole(admin, target, RoleBorrower); err != nil {
		t.Fatalf("register role: %v", err)
	}
	role, ok, err := engine.GetRole(target)
	if err != nil || !ok {
		t.Fatalf("get role: ok=%v err=%v", ok, err)
	}
	if role != RoleBorrower {
		t.Fatalf("expected borrower, got %s", role)
	}
}

func TestPreRegisterAndAccept(t *testing.T) {
	engine, _, admin := newTestEngine(t)
	target := addr(0x05)
	if err := engine.PreRegister(admin, target, RoleDepositor); err != nil {
		t.Fatalf("pre-register: %v", err)
	}
	if _, ok, _ := engine.GetRole(target); ok {
		t.Fatalf("role should not be active before acceptance")
	}
	role, err := engine.AcceptRole(target)
	if err != nil {
		t.Fatalf("accept role: %v", err)
	}
	if role != RoleDepositor {
		t.Fatalf("expected depositor, got %s", role)
	}
	if _, ok, _ := engine.state.MembershipGetPending(target); ok {
		t.Fatalf("pending registration should be cleared")
	}
}

func TestAcceptRoleWithoutPending(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.AcceptRole(addr(0x06)); err == nil {
		t.Fatalf("expected error for missing pending registration")
	}
}

func TestUpdateRoleMissingMember(t *testing.T) {
	engine, _, admin := newTestEngine(t)
	if err := engine.UpdateRole(admin, addr(0x07), RoleValidator); !errors.Is(err, nativecommon.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeRole(t *testing.T) {
	engine, state, admin := newTestEngine(t)
	target := addr(0x08)
	state.members[target] = &Member{Address: target, Role: RoleDepositor}
	if err := engine.RevokeRole(admin, target); err != nil {
		t.Fatalf("revoke role: %v", err)
	}
	if _, ok, _ := engine.GetRole(target); ok {
		t.Fatalf("role should be removed after revocation")
	}
}

func TestRequireRoleGate(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	depositor := addr(0x09)
	state.members[depositor] = &Member{Address: depositor, Role: RoleDepositor}
	if err := engine.RequireRole(depositor, RoleDepositor, RoleValidator); err != nil {
		t.Fatalf("require role: %v", err)
	}
	if err := engine.RequireRole(depositor, RoleBorrower); !errors.Is(err, nativecommon.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestTransferAdmin(t *testing.T) {
	engine, _, admin := newTestEngine(t)
	next := addr(0x0a)
	if err := engine.TransferAdmin(admin, next); err != nil {
		t.Fatalf("transfer admin: %v", err)
	}
	if err := engine.RequireAdmin(next); err != nil {
		t.Fatalf("new admin should pass the gate: %v", err)
	}
	if err := engine.RequireAdmin(admin); !errors.Is(err, nativecommon.ErrNotAuthorized) {
		t.Fatalf("old admin should fail the gate, got %v", err)
	}
}
