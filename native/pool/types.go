package pool

import "math/big"

// Status enumerates the lifecycle states of an investment pool.
type Status uint8

const (
	// StatusPending marks a freshly created pool awaiting its first
	// contribution.
	StatusPending Status = iota
	// StatusActive marks a pool that is accepting contributions.
	StatusActive
	// StatusFunded marks a pool whose raised funds were released to the
	// borrower.
	StatusFunded
	// StatusCompleted marks a pool whose loan was repaid with interest.
	StatusCompleted
	// StatusDefaulted marks a pool whose borrower failed to repay in time.
	StatusDefaulted
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusFunded, StatusCompleted, StatusDefaulted:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for logging and event emission.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusFunded:
		return "funded"
	case StatusCompleted:
		return "completed"
	case StatusDefaulted:
		return "defaulted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further lifecycle transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDefaulted
}

// Pool captures the funding terms and runtime accounting of one investment
// pool. The pool exclusively owns a vault sub-account derived from its ID;
// the vault holds exactly CurrentTotal while raising and the repayment funds
// from completion until the last claim.
type Pool struct {
	ID              uint64   `json:"id"`
	Borrower        [20]byte `json:"borrower"`
	TargetAmount    *big.Int `json:"targetAmount"`
	CurrentTotal    *big.Int `json:"currentTotal"`
	InterestRateBps uint64   `json:"interestRateBps"`
	DurationSeconds uint64   `json:"durationSeconds"`
	Status          Status   `json:"status"`
	CreatedAt       int64    `json:"createdAt"`
	// Repayment is the amount funded by the borrower on completion,
	// principal plus floor interest. Zero until StatusCompleted.
	Repayment *big.Int `json:"repayment,omitempty"`
	// TotalShares snapshots the minted share supply when funding closes so
	// claims keep their proportions after individual burns.
	TotalShares *big.Int `json:"totalShares,omitempty"`
}

// Clone returns a deep copy safe for the caller to mutate.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.TargetAmount = cloneBigInt(p.TargetAmount)
	clone.CurrentTotal = cloneBigInt(p.CurrentTotal)
	clone.Repayment = cloneBigInt(p.Repayment)
	clone.TotalShares = cloneBigInt(p.TotalShares)
	return &clone
}

// Contribution records one investor's cumulative stake in a pool. It stays
// immutable once the pool reaches StatusCompleted so claims remain auditable.
type Contribution struct {
	PoolID   uint64   `json:"poolId"`
	Investor [20]byte `json:"investor"`
	Amount   *big.Int `json:"amount"`
}

// Clone returns a deep copy safe for the caller to mutate.
func (c *Contribution) Clone() *Contribution {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Amount = cloneBigInt(c.Amount)
	return &clone
}

// PortfolioEntry summarises an investor's position in one pool.
type PortfolioEntry struct {
	PoolID       uint64   `json:"poolId"`
	Status       Status   `json:"status"`
	Contribution *big.Int `json:"contribution"`
	Shares       *big.Int `json:"shares"`
	Claimed      bool     `json:"claimed"`
}

// ClaimResult reports the outcome of one element of a bulk claim.
type ClaimResult struct {
	Investor [20]byte `json:"investor"`
	Amount   *big.Int `json:"amount,omitempty"`
	Err      error    `json:"-"`
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
