package state

import "sort"

// RegistryGet resolves a community name to its anchor address.
func (m *Manager) RegistryGet(name string) ([20]byte, bool, error) {
	var addr [20]byte
	ok, err := m.getJSON(stateKey("registry", "entry", name), &addr)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	return addr, true, nil
}

// RegistryPut binds a community name to an address and records the name in
// the registry index.
func (m *Manager) RegistryPut(name string, addr [20]byte) error {
	if err := m.putJSON(stateKey("registry", "entry", name), addr); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stateKey("registry", "names")
	var names []string
	if _, err := m.getJSON(key, &names); err != nil {
		return err
	}
	for _, existing := range names {
		if existing == name {
			return nil
		}
	}
	names = append(names, name)
	sort.Strings(names)
	return m.putJSON(key, names)
}

// RegistryDelete removes the binding and drops the name from the index.
func (m *Manager) RegistryDelete(name string) error {
	if err := m.db.Delete(stateKey("registry", "entry", name)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stateKey("registry", "names")
	var names []string
	if _, err := m.getJSON(key, &names); err != nil {
		return err
	}
	kept := names[:0]
	for _, existing := range names {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	return m.putJSON(key, kept)
}

// RegistryNames lists the registered community names in sorted order.
func (m *Manager) RegistryNames() ([]string, error) {
	var names []string
	if _, err := m.getJSON(stateKey("registry", "names"), &names); err != nil {
		return nil, err
	}
	return names, nil
}
