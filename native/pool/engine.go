package pool

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"crp/core/events"
	"crp/core/types"
	nativecommon "crp/native/common"
	"crp/native/membership"
	"crp/native/shares"
)

const moduleName = "pool"

var basisPoints = big.NewInt(10_000)

var (
	errNilState     = errors.New("pool engine: state not configured")
	errNilRoles     = errors.New("pool engine: role registry not configured")
	errNilShares    = errors.New("pool engine: share ledger not configured")
	errInvalidTerms = errors.New("pool engine: invalid pool terms")
)

type engineState interface {
	PoolNextID() (uint64, error)
	PoolGet(id uint64) (*Pool, bool, error)
	PoolPut(p *Pool) error
	PoolContributionGet(id uint64, investor [20]byte) (*Contribution, bool, error)
	PoolContributionPut(c *Contribution) error
	PoolContributors(id uint64) ([][20]byte, error)
	PoolClaimed(id uint64, investor [20]byte) (bool, error)
	PoolMarkClaimed(id uint64, investor [20]byte) error
	PoolIndexBorrower(borrower [20]byte, id uint64) error
	PoolsByBorrower(borrower [20]byte) ([]uint64, error)
	PoolIndexInvestor(investor [20]byte, id uint64) error
	PoolsByInvestor(investor [20]byte) ([]uint64, error)
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// RoleGate is the slice of the membership engine the pool engine depends on.
type RoleGate interface {
	RequireAdmin(addr [20]byte) error
	RequireRole(addr [20]byte, roles ...membership.Role) error
}

// ComplianceGate is the whitelist check applied before funds move in.
type ComplianceGate interface {
	RequireWhitelisted(addr [20]byte) error
}

// Engine orchestrates the investment pool lifecycle: creation, funding,
// finalization, repayment, and proportional claims. Every mutation
// re-validates the caller's role and whitelist status, applies one atomic
// transition, then emits an event.
type Engine struct {
	state      engineState
	roles      RoleGate
	compliance ComplianceGate
	shares     *shares.Ledger
	emitter    events.Emitter
	pauses     nativecommon.PauseView
	nowFn      func() int64
}

// NewEngine constructs a pool engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRoleGate wires the role registry used by the authorization gates.
func (e *Engine) SetRoleGate(gate RoleGate) { e.roles = gate }

// SetComplianceGate wires the whitelist gate applied to investors.
func (e *Engine) SetComplianceGate(gate ComplianceGate) { e.compliance = gate }

// SetShareLedger hands the engine the mint/burn capability over pool shares.
// The ledger reference must not be shared with publicly reachable code.
func (e *Engine) SetShareLedger(ledger *shares.Ledger) { e.shares = ledger }

// SetPauses wires the governance pause registry.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetNowFunc overrides the time source used to stamp pools. Nil restores the
// default Unix clock.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter. Nil resets to a no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(poolEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// VaultAddress derives the isolated vault sub-account owned by the pool. The
// derivation is deterministic so the vault never needs its own key material.
func VaultAddress(poolID uint64) [20]byte {
	preimage := fmt.Sprintf("pool-vault/%d", poolID)
	hash := ethcrypto.Keccak256([]byte(preimage))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.roles == nil {
		return errNilRoles
	}
	if e.shares == nil {
		return errNilShares
	}
	return nil
}

func (e *Engine) loadPool(id uint64) (*Pool, error) {
	p, ok, err := e.state.PoolGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || p == nil {
		return nil, fmt.Errorf("pool engine: pool %d: %w", id, nativecommon.ErrNotFound)
	}
	return p, nil
}

func (e *Engine) loadAccount(addr [20]byte) (*types.Account, error) {
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return types.EnsureBalance(account), nil
}

// transfer moves value between two accounts, failing when the source lacks
// funds. Both accounts are persisted before returning.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	source, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if source.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("pool engine: %w", nativecommon.ErrInsufficientBalance)
	}
	dest, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	source.Balance = new(big.Int).Sub(source.Balance, amount)
	dest.Balance = new(big.Int).Add(dest.Balance, amount)
	if err := e.state.PutAccount(from, source); err != nil {
		return err
	}
	return e.state.PutAccount(to, dest)
}

// CreatePool allocates a new pool in StatusPending together with its isolated
// vault. Caller must be an admin; the borrower must hold the borrower role.
func (e *Engine) CreatePool(caller, borrower [20]byte, target *big.Int, interestRateBps, durationSeconds uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if err := e.roles.RequireAdmin(caller); err != nil {
		return 0, err
	}
	if target == nil || target.Sign() <= 0 {
		return 0, fmt.Errorf("pool engine: target: %w", nativecommon.ErrZeroAmount)
	}
	if durationSeconds == 0 {
		return 0, errInvalidTerms
	}
	if err := e.roles.RequireRole(borrower, membership.RoleBorrower); err != nil {
		return 0, err
	}

	id, err := e.state.PoolNextID()
	if err != nil {
		return 0, err
	}
	p := &Pool{
		ID:              id,
		Borrower:        borrower,
		TargetAmount:    new(big.Int).Set(target),
		CurrentTotal:    big.NewInt(0),
		InterestRateBps: interestRateBps,
		DurationSeconds: durationSeconds,
		Status:          StatusPending,
		CreatedAt:       e.now(),
	}
	if err := e.state.PoolPut(p); err != nil {
		return 0, err
	}
	if err := e.state.PoolIndexBorrower(borrower, id); err != nil {
		return 0, err
	}
	e.emit(newPoolCreatedEvent(caller, p))
	return id, nil
}

// JoinPool transfers the contribution into the pool vault, records it, and
// mints shares one-to-one with the contributed amount. The first join moves
// the pool from Pending to Active. Reaching the target does NOT finalize the
// pool; funds are only released through an explicit FinalizeFunding.
func (e *Engine) JoinPool(investor [20]byte, poolID uint64, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.roles.RequireRole(investor, membership.RoleDepositor); err != nil {
		return err
	}
	if e.compliance == nil {
		return fmt.Errorf("pool engine: %w", nativecommon.ErrNotCompliant)
	}
	if err := e.compliance.RequireWhitelisted(investor); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("pool engine: %w", nativecommon.ErrZeroAmount)
	}

	p, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if p.Status != StatusPending && p.Status != StatusActive {
		return fmt.Errorf("pool engine: join from %s: %w", p.Status, nativecommon.ErrInvalidState)
	}

	if err := e.transfer(investor, VaultAddress(poolID), amount); err != nil {
		return err
	}

	contribution, ok, err := e.state.PoolContributionGet(poolID, investor)
	if err != nil {
		return err
	}
	if !ok || contribution == nil {
		contribution = &Contribution{PoolID: poolID, Investor: investor, Amount: big.NewInt(0)}
		if err := e.state.PoolIndexInvestor(investor, poolID); err != nil {
			return err
		}
	}
	contribution.Amount = new(big.Int).Add(contribution.Amount, amount)
	if err := e.state.PoolContributionPut(contribution); err != nil {
		return err
	}

	if err := e.shares.Mint(poolID, investor, amount); err != nil {
		return err
	}

	p.CurrentTotal = new(big.Int).Add(p.CurrentTotal, amount)
	if p.Status == StatusPending {
		p.Status = StatusActive
	}
	if err := e.state.PoolPut(p); err != nil {
		return err
	}

	e.emit(newPoolJoinedEvent(investor, p, amount))
	return nil
}

// FinalizeFunding releases the raised funds to the borrower and moves the
// pool to StatusFunded. Caller must be an admin; the raise must have reached
// the target. Keeping this step manual separates funds-raised from
// funds-released so an admin can verify before release.
func (e *Engine) FinalizeFunding(caller [20]byte, poolID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.roles.RequireAdmin(caller); err != nil {
		return err
	}
	p, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if p.Status != StatusActive {
		return fmt.Errorf("pool engine: finalize from %s: %w", p.Status, nativecommon.ErrInvalidState)
	}
	if p.CurrentTotal.Cmp(p.TargetAmount) < 0 {
		return fmt.Errorf("pool engine: target not reached: %w", nativecommon.ErrInvalidState)
	}

	if err := e.transfer(VaultAddress(poolID), p.Borrower, p.CurrentTotal); err != nil {
		return err
	}

	total, err := e.shares.GetTotalShares(poolID)
	if err != nil {
		return err
	}
	p.TotalShares = total
	p.Status = StatusFunded
	if err := e.state.PoolPut(p); err != nil {
		return err
	}

	e.emit(newFundingFinalizedEvent(caller, p))
	return nil
}

// RepaymentDue computes principal plus floor interest for the pool terms.
func RepaymentDue(principal *big.Int, interestRateBps uint64) *big.Int {
	interest := new(big.Int).Mul(principal, new(big.Int).SetUint64(interestRateBps))
	interest = interest.Quo(interest, basisPoints)
	return new(big.Int).Add(principal, interest)
}

// RepayLoan settles the loan: the borrower funds the vault with principal
// plus interest (integer division, rounding down) and the pool moves to
// StatusCompleted.
func (e *Engine) RepayLoan(caller [20]byte, poolID uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	p, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	if caller != p.Borrower {
		return nil, fmt.Errorf("pool engine: %w", nativecommon.ErrNotAuthorized)
	}
	if p.Status != StatusFunded {
		return nil, fmt.Errorf("pool engine: repay from %s: %w", p.Status, nativecommon.ErrInvalidState)
	}

	repayment := RepaymentDue(p.CurrentTotal, p.InterestRateBps)
	if err := e.transfer(caller, VaultAddress(poolID), repayment); err != nil {
		return nil, err
	}

	p.Repayment = repayment
	p.Status = StatusCompleted
	if err := e.state.PoolPut(p); err != nil {
		return nil, err
	}

	e.emit(newLoanRepaidEvent(caller, p, repayment))
	return new(big.Int).Set(repayment), nil
}

// ClaimRepayment pays the investor their floor-rounded proportional cut of
// the repayment and burns their shares. Residual rounding dust stays in the
// vault; it is deliberately not swept to the last claimant.
func (e *Engine) ClaimRepayment(investor [20]byte, poolID uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	p, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusCompleted {
		return nil, fmt.Errorf("pool engine: claim from %s: %w", p.Status, nativecommon.ErrInvalidState)
	}

	claimed, err := e.state.PoolClaimed(poolID, investor)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, fmt.Errorf("pool engine: %w", nativecommon.ErrAlreadyClaimed)
	}

	holding, err := e.shares.GetShares(poolID, investor)
	if err != nil {
		return nil, err
	}
	if holding.Sign() == 0 {
		return nil, fmt.Errorf("pool engine: no shares: %w", nativecommon.ErrInsufficientShares)
	}
	if p.TotalShares == nil || p.TotalShares.Sign() == 0 {
		return nil, fmt.Errorf("pool engine: missing share snapshot: %w", nativecommon.ErrInvalidState)
	}

	// share_amount = floor(holding / totalShares * repayment)
	amount := new(big.Int).Mul(holding, p.Repayment)
	amount = amount.Quo(amount, p.TotalShares)

	if amount.Sign() > 0 {
		if err := e.transfer(VaultAddress(poolID), investor, amount); err != nil {
			return nil, err
		}
	}
	if err := e.shares.Burn(poolID, investor, holding); err != nil {
		return nil, err
	}
	if err := e.state.PoolMarkClaimed(poolID, investor); err != nil {
		return nil, err
	}

	e.emit(newRepaymentClaimedEvent(investor, p, amount))
	return amount, nil
}

// BulkClaimRepayments applies the single-claim contract to each investor
// independently. A failing element does not roll back earlier successes and
// later elements are still attempted; per-item outcomes are returned.
func (e *Engine) BulkClaimRepayments(poolID uint64, investors [][20]byte) []ClaimResult {
	results := make([]ClaimResult, 0, len(investors))
	for _, investor := range investors {
		amount, err := e.ClaimRepayment(investor, poolID)
		results = append(results, ClaimResult{Investor: investor, Amount: amount, Err: err})
	}
	return results
}

// MarkDefaulted records that the borrower failed to repay by the duration
// deadline. The deadline itself is checked by the external trigger; the
// engine only enforces the Funded precondition. No fund movement happens
// here: wind-down is a governance decision.
func (e *Engine) MarkDefaulted(caller [20]byte, poolID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.roles.RequireAdmin(caller); err != nil {
		return err
	}
	p, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if p.Status != StatusFunded {
		return fmt.Errorf("pool engine: default from %s: %w", p.Status, nativecommon.ErrInvalidState)
	}
	p.Status = StatusDefaulted
	if err := e.state.PoolPut(p); err != nil {
		return err
	}
	e.emit(newPoolDefaultedEvent(caller, p))
	return nil
}

// GetPool returns a copy of the pool record. Read-only.
func (e *Engine) GetPool(poolID uint64) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	p, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// GetInvestorPortfolio summarises the investor's position across every pool
// they contributed to. Read-only.
func (e *Engine) GetInvestorPortfolio(investor [20]byte) ([]PortfolioEntry, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ids, err := e.state.PoolsByInvestor(investor)
	if err != nil {
		return nil, err
	}
	entries := make([]PortfolioEntry, 0, len(ids))
	for _, id := range ids {
		p, err := e.loadPool(id)
		if err != nil {
			return nil, err
		}
		contribution, ok, err := e.state.PoolContributionGet(id, investor)
		if err != nil {
			return nil, err
		}
		amount := big.NewInt(0)
		if ok && contribution != nil && contribution.Amount != nil {
			amount = new(big.Int).Set(contribution.Amount)
		}
		holding, err := e.shares.GetShares(id, investor)
		if err != nil {
			return nil, err
		}
		claimed, err := e.state.PoolClaimed(id, investor)
		if err != nil {
			return nil, err
		}
		entries = append(entries, PortfolioEntry{
			PoolID:       id,
			Status:       p.Status,
			Contribution: amount,
			Shares:       holding,
			Claimed:      claimed,
		})
	}
	return entries, nil
}

// GetBorrowerLoans returns every pool borrowed by the identity. Read-only.
func (e *Engine) GetBorrowerLoans(borrower [20]byte) ([]*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ids, err := e.state.PoolsByBorrower(borrower)
	if err != nil {
		return nil, err
	}
	pools := make([]*Pool, 0, len(ids))
	for _, id := range ids {
		p, err := e.loadPool(id)
		if err != nil {
			return nil, err
		}
		pools = append(pools, p.Clone())
	}
	return pools, nil
}

// VaultBalance returns the funds currently held by the pool's vault.
func (e *Engine) VaultBalance(poolID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	account, err := e.loadAccount(VaultAddress(poolID))
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.Balance), nil
}
