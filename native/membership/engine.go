package membership

import (
	"errors"
	"fmt"

	"crp/core/events"
	"crp/core/types"
	nativecommon "crp/native/common"
)

var (
	errNilState      = errors.New("membership engine: state not configured")
	errInvalidRole   = errors.New("membership engine: invalid role")
	errNoPendingRole = errors.New("membership engine: no pending registration")
)

type engineState interface {
	MembershipGetMember(addr [20]byte) (*Member, bool, error)
	MembershipPutMember(member *Member) error
	MembershipRemoveMember(addr [20]byte) error
	MembershipGetPending(addr [20]byte) (Role, bool, error)
	MembershipPutPending(addr [20]byte, role Role) error
	MembershipRemovePending(addr [20]byte) error
}

// Engine owns the role registry backing every authorization gate. Admin
// bootstrap happens out-of-band (genesis seeding); afterwards every mutation
// is itself role-gated.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine constructs a membership engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Nil resets to a no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(membershipEvent{evt: event})
}

// GetRole returns the active role for the identity, if any.
func (e *Engine) GetRole(addr [20]byte) (Role, bool, error) {
	if e == nil || e.state == nil {
		return RoleUnspecified, false, errNilState
	}
	member, ok, err := e.state.MembershipGetMember(addr)
	if err != nil {
		return RoleUnspecified, false, err
	}
	if !ok || member == nil {
		return RoleUnspecified, false, nil
	}
	return member.Role, true, nil
}

// HasRole reports whether the identity holds one of the given roles.
func (e *Engine) HasRole(addr [20]byte, roles ...Role) (bool, error) {
	current, ok, err := e.GetRole(addr)
	if err != nil || !ok {
		return false, err
	}
	for _, role := range roles {
		if current == role {
			return true, nil
		}
	}
	return false, nil
}

// IsMember reports whether the identity holds any registered role.
func (e *Engine) IsMember(addr [20]byte) (bool, error) {
	_, ok, err := e.GetRole(addr)
	return ok, err
}

// RequireRole fails with ErrNotAuthorized unless the identity's registered
// role is in the given set. It is a pure check with no side effects.
func (e *Engine) RequireRole(addr [20]byte, roles ...Role) error {
	ok, err := e.HasRole(addr, roles...)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("membership engine: %w", nativecommon.ErrNotAuthorized)
	}
	return nil
}

// RequireAdmin is shorthand for the admin gate used by most engines.
func (e *Engine) RequireAdmin(addr [20]byte) error {
	return e.RequireRole(addr, RoleAdmin)
}

// RegisterRole assigns a role directly. Caller must be an admin.
func (e *Engine) RegisterRole(caller, addr [20]byte, role Role) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.RequireAdmin(caller); err != nil {
		return err
	}
	if !role.Valid() {
		return errInvalidRole
	}
	member := &Member{Address: addr, Role: role}
	if err := e.state.MembershipPutMember(member); err != nil {
		return err
	}
	e.emit(newRoleRegisteredEvent(caller, addr, role))
	return nil
}

// PreRegister records a pending role the target identity must accept before
// it becomes active. Caller must be an admin.
func (e *Engine) PreRegister(caller, addr [20]byte, role Role) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.RequireAdmin(caller); err != nil {
		return err
	}
	if !role.Valid() {
		return errInvalidRole
	}
	if err := e.state.MembershipPutPending(addr, role); err != nil {
		return err
	}
	e.emit(newRolePreRegisteredEvent(caller, addr, role))
	return nil
}

// AcceptRole promotes the caller's pending registration into the active role.
func (e *Engine) AcceptRole(caller [20]byte) (Role, error) {
	if e == nil || e.state == nil {
		return RoleUnspecified, errNilState
	}
	role, ok, err := e.state.MembershipGetPending(caller)
	if err != nil {
		return RoleUnspecified, err
	}
	if !ok {
		return RoleUnspecified, errNoPendingRole
	}
	member := &Member{Address: caller, Role: role}
	if err := e.state.MembershipPutMember(member); err != nil {
		return RoleUnspecified, err
	}
	if err := e.state.MembershipRemovePending(caller); err != nil {
		return RoleUnspecified, err
	}
	e.emit(newRoleAcceptedEvent(caller, role))
	return role, nil
}

// UpdateRole replaces the active role for an identity. Caller must be an
// admin; the target must already be registered.
func (e *Engine) UpdateRole(caller, addr [20]byte, role Role) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.RequireAdmin(caller); err != nil {
		return err
	}
	if !role.Valid() {
		return errInvalidRole
	}
	_, ok, err := e.state.MembershipGetMember(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("membership engine: %w", nativecommon.ErrNotFound)
	}
	if err := e.state.MembershipPutMember(&Member{Address: addr, Role: role}); err != nil {
		return err
	}
	e.emit(newRoleUpdatedEvent(caller, addr, role))
	return nil
}

// RevokeRole removes the active registration for an identity. Caller must be
// an admin.
func (e *Engine) RevokeRole(caller, addr [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.RequireAdmin(caller); err != nil {
		return err
	}
	member, ok, err := e.state.MembershipGetMember(addr)
	if err != nil {
		return err
	}
	if !ok || member == nil {
		return fmt.Errorf("membership engine: %w", nativecommon.ErrNotFound)
	}
	if err := e.state.MembershipRemoveMember(addr); err != nil {
		return err
	}
	e.emit(newRoleRevokedEvent(caller, addr, member.Role))
	return nil
}

// TransferAdmin moves the admin registration from one identity to another.
// It backs the governance admin-transfer action, so the authorization check
// happened upstream when the proposal passed.
func (e *Engine) TransferAdmin(from, to [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	current, ok, err := e.state.MembershipGetMember(from)
	if err != nil {
		return err
	}
	if !ok || current == nil || current.Role != RoleAdmin {
		return fmt.Errorf("membership engine: %w", nativecommon.ErrNotAuthorized)
	}
	if err := e.state.MembershipPutMember(&Member{Address: to, Role: RoleAdmin}); err != nil {
		return err
	}
	if err := e.state.MembershipRemoveMember(from); err != nil {
		return err
	}
	e.emit(newAdminTransferredEvent(from, to))
	return nil
}
