package state

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"crp/core/types"
	"crp/storage"
)

// Manager persists the ledger state in a key-value store. Keys are the
// keccak hash of a readable slash-separated path so every record lands on a
// fixed-width key regardless of backend. Values are JSON. The manager
// satisfies the state interfaces of every native engine; a single mutex
// serialises writers because engines apply one transition at a time.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager creates a state manager on top of the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func stateKey(parts ...string) []byte {
	return ethcrypto.Keccak256([]byte(strings.Join(parts, "/")))
}

func addrHex(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}

func (m *Manager) getJSON(key []byte, out any) (bool, error) {
	ok, err := m.db.Has(key)
	if err != nil || !ok {
		return false, err
	}
	data, err := m.db.Get(key)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("state: decode record: %w", err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return m.db.Put(key, data)
}

// nextID increments and returns the named counter. Counters start at one.
func (m *Manager) nextID(name string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stateKey("counter", name)
	var current uint64
	ok, err := m.db.Has(key)
	if err != nil {
		return 0, err
	}
	if ok {
		raw, err := m.db.Get(key)
		if err != nil {
			return 0, err
		}
		if len(raw) == 8 {
			current = binary.BigEndian.Uint64(raw)
		}
	}
	current++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, current)
	if err := m.db.Put(key, buf); err != nil {
		return 0, err
	}
	return current, nil
}

// appendIndex adds id to the named index list if absent.
func (m *Manager) appendIndex(key []byte, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint64
	if _, err := m.getJSON(key, &ids); err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return m.putJSON(key, append(ids, id))
}

func (m *Manager) readIndex(key []byte) ([]uint64, error) {
	var ids []uint64
	if _, err := m.getJSON(key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// --- Accounts ---

// GetAccount loads the account record, returning a zero-balance account for
// unknown addresses.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	account := &types.Account{}
	ok, err := m.getJSON(stateKey("account", addrHex(addr)), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	return types.EnsureBalance(account), nil
}

// PutAccount persists the account record.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	return m.putJSON(stateKey("account", addrHex(addr)), types.EnsureBalance(account))
}

// --- Pause registry ---

// SetPaused flips the pause flag for an engine module.
func (m *Manager) SetPaused(module string, paused bool) error {
	return m.putJSON(stateKey("pause", module), paused)
}

// IsPaused reports whether the module is paused. Lookup failures read as
// unpaused so a corrupt flag cannot brick every engine.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	ok, err := m.getJSON(stateKey("pause", module), &paused)
	if err != nil || !ok {
		return false
	}
	return paused
}

// --- Parameter store ---

// ParamStoreSet writes a governance-controlled parameter.
func (m *Manager) ParamStoreSet(key string, value []byte) error {
	return m.db.Put(stateKey("param", key), append([]byte(nil), value...))
}

// ParamStoreGet reads a governance-controlled parameter.
func (m *Manager) ParamStoreGet(key string) ([]byte, bool, error) {
	k := stateKey("param", key)
	ok, err := m.db.Has(k)
	if err != nil || !ok {
		return nil, false, err
	}
	value, err := m.db.Get(k)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}
