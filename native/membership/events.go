package membership

import (
	"encoding/hex"

	"crp/core/types"
)

const (
	// EventTypeRoleRegistered is emitted when an admin assigns a role directly.
	EventTypeRoleRegistered = "membership.registered"
	// EventTypeRolePreRegistered is emitted for a pending registration awaiting acceptance.
	EventTypeRolePreRegistered = "membership.preregistered"
	// EventTypeRoleAccepted is emitted when a member accepts a pending role.
	EventTypeRoleAccepted = "membership.accepted"
	// EventTypeRoleUpdated is emitted when an active role is replaced.
	EventTypeRoleUpdated = "membership.updated"
	// EventTypeRoleRevoked is emitted when a registration is removed.
	EventTypeRoleRevoked = "membership.revoked"
	// EventTypeAdminTransferred is emitted when admin rights move between identities.
	EventTypeAdminTransferred = "membership.adminTransferred"
)

type membershipEvent struct {
	evt *types.Event
}

func (m membershipEvent) EventType() string {
	if m.evt == nil {
		return ""
	}
	return m.evt.Type
}

func (m membershipEvent) Event() *types.Event { return m.evt }

func roleAttrs(actor, target [20]byte, role Role) map[string]string {
	return map[string]string{
		"actor":  hex.EncodeToString(actor[:]),
		"target": hex.EncodeToString(target[:]),
		"role":   role.String(),
	}
}

func newRoleRegisteredEvent(actor, target [20]byte, role Role) *types.Event {
	return &types.Event{Type: EventTypeRoleRegistered, Attributes: roleAttrs(actor, target, role)}
}

func newRolePreRegisteredEvent(actor, target [20]byte, role Role) *types.Event {
	return &types.Event{Type: EventTypeRolePreRegistered, Attributes: roleAttrs(actor, target, role)}
}

func newRoleAcceptedEvent(target [20]byte, role Role) *types.Event {
	return &types.Event{Type: EventTypeRoleAccepted, Attributes: map[string]string{
		"actor": hex.EncodeToString(target[:]),
		"role":  role.String(),
	}}
}

func newRoleUpdatedEvent(actor, target [20]byte, role Role) *types.Event {
	return &types.Event{Type: EventTypeRoleUpdated, Attributes: roleAttrs(actor, target, role)}
}

func newRoleRevokedEvent(actor, target [20]byte, role Role) *types.Event {
	return &types.Event{Type: EventTypeRoleRevoked, Attributes: roleAttrs(actor, target, role)}
}

func newAdminTransferredEvent(from, to [20]byte) *types.Event {
	return &types.Event{Type: EventTypeAdminTransferred, Attributes: map[string]string{
		"from": hex.EncodeToString(from[:]),
		"to":   hex.EncodeToString(to[:]),
	}}
}
