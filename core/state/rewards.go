package state

import "crp/native/rewards"

// RewardPoolNextID allocates the next staking pool identifier.
func (m *Manager) RewardPoolNextID() (uint64, error) {
	return m.nextID("rewards")
}

// RewardPoolGet loads a staking pool record.
func (m *Manager) RewardPoolGet(id uint64) (*rewards.RewardPool, bool, error) {
	p := &rewards.RewardPool{}
	ok, err := m.getJSON(stateKey("rewards", "pool", formatID(id)), p)
	if err != nil || !ok {
		return nil, false, err
	}
	return p, true, nil
}

// RewardPoolPut persists the staking pool record.
func (m *Manager) RewardPoolPut(p *rewards.RewardPool) error {
	return m.putJSON(stateKey("rewards", "pool", formatID(p.ID)), p)
}

// RewardStakeGet loads the holder's position in the staking pool.
func (m *Manager) RewardStakeGet(id uint64, holder [20]byte) (*rewards.Stake, bool, error) {
	s := &rewards.Stake{}
	ok, err := m.getJSON(stateKey("rewards", "stake", formatID(id), addrHex(holder)), s)
	if err != nil || !ok {
		return nil, false, err
	}
	return s, true, nil
}

// RewardStakePut persists the holder's position.
func (m *Manager) RewardStakePut(s *rewards.Stake) error {
	return m.putJSON(stateKey("rewards", "stake", formatID(s.PoolID), addrHex(s.Holder)), s)
}
