package rewards

import "math/big"

// RewardPool aggregates the staking totals and the accumulated reward per
// share for one distribution pool. AccRewardPerShare is a fixed-point value
// scaled by Scale.
type RewardPool struct {
	ID                uint64   `json:"id"`
	TotalStaked       *big.Int `json:"totalStaked"`
	AccRewardPerShare *big.Int `json:"accRewardPerShare"`
	TotalDistributed  *big.Int `json:"totalDistributed"`
}

// Clone returns a deep copy safe for the caller to mutate.
func (p *RewardPool) Clone() *RewardPool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.TotalStaked = cloneBigInt(p.TotalStaked)
	clone.AccRewardPerShare = cloneBigInt(p.AccRewardPerShare)
	clone.TotalDistributed = cloneBigInt(p.TotalDistributed)
	return &clone
}

func (p *RewardPool) normalize() {
	if p.TotalStaked == nil {
		p.TotalStaked = big.NewInt(0)
	}
	if p.AccRewardPerShare == nil {
		p.AccRewardPerShare = big.NewInt(0)
	}
	if p.TotalDistributed == nil {
		p.TotalDistributed = big.NewInt(0)
	}
}

// Stake tracks one holder's position in a reward pool. RewardDebt is the
// portion of the accumulated per-share reward already attributed to the
// current stake; pending reward is Amount*AccRewardPerShare/Scale−RewardDebt.
type Stake struct {
	PoolID     uint64   `json:"poolId"`
	Holder     [20]byte `json:"holder"`
	Amount     *big.Int `json:"amount"`
	RewardDebt *big.Int `json:"rewardDebt"`
}

// Clone returns a deep copy safe for the caller to mutate.
func (s *Stake) Clone() *Stake {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Amount = cloneBigInt(s.Amount)
	clone.RewardDebt = cloneBigInt(s.RewardDebt)
	return &clone
}

func (s *Stake) normalize() {
	if s.Amount == nil {
		s.Amount = big.NewInt(0)
	}
	if s.RewardDebt == nil {
		s.RewardDebt = big.NewInt(0)
	}
}

// StakeResult reports the outcome of one element of a bulk stake/unstake.
type StakeResult struct {
	Holder [20]byte `json:"holder"`
	Err    error    `json:"-"`
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
