package registry

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	nativecommon "crp/native/common"
)

type mockHubState struct {
	entries map[string][20]byte
}

func newMockHubState() *mockHubState {
	return &mockHubState{entries: make(map[string][20]byte)}
}

func (m *mockHubState) RegistryGet(name string) ([20]byte, bool, error) {
	addr, ok := m.entries[name]
	return addr, ok, nil
}

func (m *mockHubState) RegistryPut(name string, addr [20]byte) error {
	m.entries[name] = addr
	return nil
}

func (m *mockHubState) RegistryDelete(name string) error {
	delete(m.entries, name)
	return nil
}

func (m *mockHubState) RegistryNames() ([]string, error) {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type mockAdmins struct {
	admin [20]byte
}

func (m *mockAdmins) RequireAdmin(addr [20]byte) error {
	if addr != m.admin {
		return fmt.Errorf("gate: %w", nativecommon.ErrNotAuthorized)
	}
	return nil
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func newHub() (*Hub, [20]byte) {
	admin := addr(0xa0)
	hub := NewHub()
	hub.SetState(newMockHubState())
	hub.SetAdminGate(&mockAdmins{admin: admin})
	return hub, admin
}

func TestRegisterResolveRemove(t *testing.T) {
	hub, admin := newHub()
	anchor := addr(1)

	if err := hub.Register(admin, "Sunrise Collective", anchor); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := hub.Resolve("sunrise collective")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != anchor {
		t.Fatalf("resolved %x, want %x", got, anchor)
	}
	if err := hub.Remove(admin, "SUNRISE COLLECTIVE"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := hub.Resolve("sunrise collective"); !errors.Is(err, nativecommon.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRegisterOverwrites(t *testing.T) {
	hub, admin := newHub()
	if err := hub.Register(admin, "harbor", addr(1)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := hub.Register(admin, "harbor", addr(2)); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	got, err := hub.Resolve("harbor")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != addr(2) {
		t.Fatalf("resolved %x, want %x", got, addr(2))
	}
}

func TestMutationsRequireAdmin(t *testing.T) {
	hub, admin := newHub()
	stranger := addr(9)
	if err := hub.Register(stranger, "harbor", addr(1)); !errors.Is(err, nativecommon.ErrNotAuthorized) {
		t.Fatalf("register err = %v, want not authorized", err)
	}
	if err := hub.Register(admin, "harbor", addr(1)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := hub.Remove(stranger, "harbor"); !errors.Is(err, nativecommon.ErrNotAuthorized) {
		t.Fatalf("remove err = %v, want not authorized", err)
	}
}

func TestRemoveMissingName(t *testing.T) {
	hub, admin := newHub()
	if err := hub.Remove(admin, "ghost"); !errors.Is(err, nativecommon.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestList(t *testing.T) {
	hub, admin := newHub()
	for i, name := range []string{"delta", "alpha", "beta"} {
		if err := hub.Register(admin, name, addr(byte(i+1))); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	names, err := hub.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"alpha", "beta", "delta"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}
