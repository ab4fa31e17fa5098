package registry

import (
	"errors"
	"fmt"
	"strings"

	"crp/core/events"
	"crp/core/types"
	nativecommon "crp/native/common"
)

var errNilState = errors.New("registry: state not configured")

const (
	// EventTypeRegistered is emitted when a community is bound to an address.
	EventTypeRegistered = "registry.registered"
	// EventTypeRemoved is emitted when a binding is deleted.
	EventTypeRemoved = "registry.removed"
)

type hubState interface {
	RegistryGet(name string) ([20]byte, bool, error)
	RegistryPut(name string, addr [20]byte) error
	RegistryDelete(name string) error
	RegistryNames() ([]string, error)
}

// AdminGate authorizes mutations of the hub.
type AdminGate interface {
	RequireAdmin(addr [20]byte) error
}

// Hub maps community names to the address anchoring their on-ledger state.
// It is the discovery point clients resolve before talking to a community's
// pools or proposals.
type Hub struct {
	state   hubState
	roles   AdminGate
	emitter events.Emitter
}

// NewHub constructs a hub with a no-op emitter.
func NewHub() *Hub {
	return &Hub{emitter: events.NoopEmitter{}}
}

// SetState wires the hub to the persistence layer.
func (h *Hub) SetState(state hubState) { h.state = state }

// SetAdminGate wires the admin check applied to mutations.
func (h *Hub) SetAdminGate(gate AdminGate) { h.roles = gate }

// SetEmitter configures the event emitter. Nil resets to a no-op emitter.
func (h *Hub) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		h.emitter = events.NoopEmitter{}
		return
	}
	h.emitter = emitter
}

type hubEvent struct {
	evt *types.Event
}

func (h hubEvent) EventType() string {
	if h.evt == nil {
		return ""
	}
	return h.evt.Type
}

func (h hubEvent) Event() *types.Event { return h.evt }

func (h *Hub) emit(event *types.Event) {
	if h == nil || h.emitter == nil || event == nil {
		return
	}
	h.emitter.Emit(hubEvent{evt: event})
}

func (h *Hub) ready() error {
	if h == nil || h.state == nil {
		return errNilState
	}
	if h.roles == nil {
		return errors.New("registry: admin gate not configured")
	}
	return nil
}

// NormalizeName lowercases and trims a community name. Empty results are
// rejected by Register.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register binds a community name to its ledger address, overwriting any
// previous binding. Admin only.
func (h *Hub) Register(caller [20]byte, name string, addr [20]byte) error {
	if err := h.ready(); err != nil {
		return err
	}
	if err := h.roles.RequireAdmin(caller); err != nil {
		return err
	}
	name = NormalizeName(name)
	if name == "" {
		return fmt.Errorf("registry: empty name: %w", nativecommon.ErrInvalidState)
	}
	if addr == ([20]byte{}) {
		return fmt.Errorf("registry: zero address: %w", nativecommon.ErrInvalidState)
	}
	if err := h.state.RegistryPut(name, addr); err != nil {
		return err
	}
	h.emit(&types.Event{Type: EventTypeRegistered, Attributes: map[string]string{
		"name":    name,
		"address": fmt.Sprintf("%x", addr),
	}})
	return nil
}

// Resolve returns the address bound to the community name.
func (h *Hub) Resolve(name string) ([20]byte, error) {
	if h == nil || h.state == nil {
		return [20]byte{}, errNilState
	}
	addr, ok, err := h.state.RegistryGet(NormalizeName(name))
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, fmt.Errorf("registry: %q: %w", name, nativecommon.ErrNotFound)
	}
	return addr, nil
}

// Remove deletes the binding for the community name. Admin only.
func (h *Hub) Remove(caller [20]byte, name string) error {
	if err := h.ready(); err != nil {
		return err
	}
	if err := h.roles.RequireAdmin(caller); err != nil {
		return err
	}
	name = NormalizeName(name)
	if _, ok, err := h.state.RegistryGet(name); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("registry: %q: %w", name, nativecommon.ErrNotFound)
	}
	if err := h.state.RegistryDelete(name); err != nil {
		return err
	}
	h.emit(&types.Event{Type: EventTypeRemoved, Attributes: map[string]string{"name": name}})
	return nil
}

// List returns the registered community names in state order.
func (h *Hub) List() ([]string, error) {
	if h == nil || h.state == nil {
		return nil, errNilState
	}
	return h.state.RegistryNames()
}
