package compliance

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"crp/core/events"
	"crp/core/types"
	nativecommon "crp/native/common"
)

const (
	// EventTypeWhitelistUpdated is emitted whenever an admin flips a
	// whitelist entry.
	EventTypeWhitelistUpdated = "compliance.whitelistUpdated"
)

var errNilState = errors.New("compliance engine: state not configured")

type engineState interface {
	ComplianceGetWhitelisted(addr [20]byte) (bool, error)
	CompliancePutWhitelisted(addr [20]byte, whitelisted bool) error
}

// AdminGate authorizes whitelist mutations. The membership engine satisfies it.
type AdminGate interface {
	RequireAdmin(addr [20]byte) error
}

// Engine maintains the KYC whitelist. The engine only stores the boolean
// clearance signal; identity verification itself happens off-ledger.
type Engine struct {
	state   engineState
	admins  AdminGate
	emitter events.Emitter
}

// NewEngine constructs a compliance engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAdminGate wires the role registry used to authorize mutations.
func (e *Engine) SetAdminGate(gate AdminGate) { e.admins = gate }

// SetEmitter configures the event emitter. Nil resets to a no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetWhitelisted sets or clears the whitelist entry for an identity. Caller
// must be an admin.
func (e *Engine) SetWhitelisted(caller, addr [20]byte, whitelisted bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.admins == nil {
		return fmt.Errorf("compliance engine: %w", nativecommon.ErrNotAuthorized)
	}
	if err := e.admins.RequireAdmin(caller); err != nil {
		return err
	}
	if err := e.state.CompliancePutWhitelisted(addr, whitelisted); err != nil {
		return err
	}
	e.emitter.Emit(complianceEvent{evt: &types.Event{
		Type: EventTypeWhitelistUpdated,
		Attributes: map[string]string{
			"actor":       hex.EncodeToString(caller[:]),
			"target":      hex.EncodeToString(addr[:]),
			"whitelisted": strconv.FormatBool(whitelisted),
		},
	}})
	return nil
}

// IsWhitelisted reports the clearance flag. Absence of an entry means false.
func (e *Engine) IsWhitelisted(addr [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.ComplianceGetWhitelisted(addr)
}

// RequireWhitelisted fails with ErrNotCompliant unless the identity is
// cleared. It is a pure check with no side effects.
func (e *Engine) RequireWhitelisted(addr [20]byte) error {
	ok, err := e.IsWhitelisted(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("compliance engine: %w", nativecommon.ErrNotCompliant)
	}
	return nil
}

type complianceEvent struct {
	evt *types.Event
}

func (c complianceEvent) EventType() string {
	if c.evt == nil {
		return ""
	}
	return c.evt.Type
}

func (c complianceEvent) Event() *types.Event { return c.evt }
