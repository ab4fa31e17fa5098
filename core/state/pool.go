package state

import (
	"math/big"
	"strconv"

	"crp/native/pool"
)

func poolIDKey(parts ...string) []byte {
	return stateKey(append([]string{"pool"}, parts...)...)
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// PoolNextID allocates the next pool identifier.
func (m *Manager) PoolNextID() (uint64, error) {
	return m.nextID("pool")
}

// PoolGet loads a pool record.
func (m *Manager) PoolGet(id uint64) (*pool.Pool, bool, error) {
	p := &pool.Pool{}
	ok, err := m.getJSON(poolIDKey("record", formatID(id)), p)
	if err != nil || !ok {
		return nil, false, err
	}
	return p, true, nil
}

// PoolPut persists a pool record keyed by its identifier.
func (m *Manager) PoolPut(p *pool.Pool) error {
	return m.putJSON(poolIDKey("record", formatID(p.ID)), p)
}

// PoolContributionGet loads an investor's cumulative contribution.
func (m *Manager) PoolContributionGet(id uint64, investor [20]byte) (*pool.Contribution, bool, error) {
	c := &pool.Contribution{}
	ok, err := m.getJSON(poolIDKey("contribution", formatID(id), addrHex(investor)), c)
	if err != nil || !ok {
		return nil, false, err
	}
	return c, true, nil
}

// PoolContributionPut persists the contribution and indexes the investor as a
// contributor of the pool.
func (m *Manager) PoolContributionPut(c *pool.Contribution) error {
	if err := m.putJSON(poolIDKey("contribution", formatID(c.PoolID), addrHex(c.Investor)), c); err != nil {
		return err
	}
	return m.appendContributor(c.PoolID, c.Investor)
}

func (m *Manager) appendContributor(id uint64, investor [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := poolIDKey("contributors", formatID(id))
	var contributors [][20]byte
	if _, err := m.getJSON(key, &contributors); err != nil {
		return err
	}
	for _, existing := range contributors {
		if existing == investor {
			return nil
		}
	}
	return m.putJSON(key, append(contributors, investor))
}

// PoolContributors lists the investors holding a contribution in the pool,
// in first-contribution order.
func (m *Manager) PoolContributors(id uint64) ([][20]byte, error) {
	var contributors [][20]byte
	if _, err := m.getJSON(poolIDKey("contributors", formatID(id)), &contributors); err != nil {
		return nil, err
	}
	return contributors, nil
}

// PoolClaimed reports whether the investor already claimed their repayment.
func (m *Manager) PoolClaimed(id uint64, investor [20]byte) (bool, error) {
	var claimed bool
	if _, err := m.getJSON(poolIDKey("claimed", formatID(id), addrHex(investor)), &claimed); err != nil {
		return false, err
	}
	return claimed, nil
}

// PoolMarkClaimed records the investor's repayment claim.
func (m *Manager) PoolMarkClaimed(id uint64, investor [20]byte) error {
	return m.putJSON(poolIDKey("claimed", formatID(id), addrHex(investor)), true)
}

// PoolIndexBorrower records the pool in the borrower's loan index.
func (m *Manager) PoolIndexBorrower(borrower [20]byte, id uint64) error {
	return m.appendIndex(poolIDKey("index", "borrower", addrHex(borrower)), id)
}

// PoolsByBorrower lists the pools borrowed against by the address.
func (m *Manager) PoolsByBorrower(borrower [20]byte) ([]uint64, error) {
	return m.readIndex(poolIDKey("index", "borrower", addrHex(borrower)))
}

// PoolIndexInvestor records the pool in the investor's portfolio index.
func (m *Manager) PoolIndexInvestor(investor [20]byte, id uint64) error {
	return m.appendIndex(poolIDKey("index", "investor", addrHex(investor)), id)
}

// PoolsByInvestor lists the pools the address has contributed to.
func (m *Manager) PoolsByInvestor(investor [20]byte) ([]uint64, error) {
	return m.readIndex(poolIDKey("index", "investor", addrHex(investor)))
}

// --- Pool shares ---

// SharesGet returns the holder's share balance in the pool.
func (m *Manager) SharesGet(poolID uint64, holder [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.getJSON(stateKey("shares", "balance", formatID(poolID), addrHex(holder)), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SharesPut persists the holder's share balance.
func (m *Manager) SharesPut(poolID uint64, holder [20]byte, amount *big.Int) error {
	return m.putJSON(stateKey("shares", "balance", formatID(poolID), addrHex(holder)), amount)
}

// SharesTotal returns the outstanding share supply of the pool.
func (m *Manager) SharesTotal(poolID uint64) (*big.Int, error) {
	total := new(big.Int)
	ok, err := m.getJSON(stateKey("shares", "total", formatID(poolID)), total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return total, nil
}

// SharesPutTotal persists the outstanding share supply.
func (m *Manager) SharesPutTotal(poolID uint64, total *big.Int) error {
	return m.putJSON(stateKey("shares", "total", formatID(poolID)), total)
}
