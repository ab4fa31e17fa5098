package rewards

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"crp/core/events"
	"crp/core/types"
	nativecommon "crp/native/common"
	"crp/native/membership"
)

const moduleName = "rewards"

// Scale is the fixed-point multiplier applied to AccRewardPerShare so integer
// division loses less than one reward unit per claim.
var Scale = big.NewInt(1_000_000_000_000_000_000)

var (
	errNilState = errors.New("rewards engine: state not configured")
	errNilRoles = errors.New("rewards engine: role registry not configured")
)

type engineState interface {
	RewardPoolNextID() (uint64, error)
	RewardPoolGet(id uint64) (*RewardPool, bool, error)
	RewardPoolPut(p *RewardPool) error
	RewardStakeGet(id uint64, holder [20]byte) (*Stake, bool, error)
	RewardStakePut(s *Stake) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// RoleGate is the slice of the membership engine the rewards engine depends on.
type RoleGate interface {
	RequireAdmin(addr [20]byte) error
	RequireRole(addr [20]byte, roles ...membership.Role) error
}

// Engine implements reward-debt accounting over a shared staking pool:
// distribution is O(1) in the number of stakers and each holder's pending
// reward is derived from the accumulated per-share figure on demand.
type Engine struct {
	state   engineState
	roles   RoleGate
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine constructs a rewards engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRoleGate wires the role registry used by the authorization gates.
func (e *Engine) SetRoleGate(gate RoleGate) { e.roles = gate }

// SetPauses wires the governance pause registry.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
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
	e.emitter.Emit(rewardsEvent{evt: event})
}

// VaultAddress derives the isolated vault sub-account owned by the reward pool.
func VaultAddress(poolID uint64) [20]byte {
	preimage := fmt.Sprintf("reward-vault/%d", poolID)
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
	return nil
}

func (e *Engine) loadPool(id uint64) (*RewardPool, error) {
	p, ok, err := e.state.RewardPoolGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || p == nil {
		return nil, fmt.Errorf("rewards engine: pool %d: %w", id, nativecommon.ErrNotFound)
	}
	p.normalize()
	return p, nil
}

func (e *Engine) loadStake(id uint64, holder [20]byte) (*Stake, error) {
	s, ok, err := e.state.RewardStakeGet(id, holder)
	if err != nil {
		return nil, err
	}
	if !ok || s == nil {
		s = &Stake{PoolID: id, Holder: holder}
	}
	s.normalize()
	return s, nil
}

func (e *Engine) loadAccount(addr [20]byte) (*types.Account, error) {
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return types.EnsureBalance(account), nil
}

func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	source, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if source.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("rewards engine: %w", nativecommon.ErrInsufficientBalance)
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

// pending computes the holder's unclaimed reward under the current index.
func pending(pool *RewardPool, stake *Stake) *big.Int {
	accrued := new(big.Int).Mul(stake.Amount, pool.AccRewardPerShare)
	accrued = accrued.Quo(accrued, Scale)
	return accrued.Sub(accrued, stake.RewardDebt)
}

// settle pays out any pending reward from the vault before the stake changes.
func (e *Engine) settle(pool *RewardPool, stake *Stake) error {
	owed := pending(pool, stake)
	if owed.Sign() <= 0 {
		return nil
	}
	if err := e.transfer(VaultAddress(pool.ID), stake.Holder, owed); err != nil {
		return err
	}
	e.emit(newRewardsClaimedEvent(stake.Holder, pool.ID, owed))
	return nil
}

// CreatePool allocates a new reward pool. Caller must be an admin.
func (e *Engine) CreatePool(caller [20]byte) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if err := e.roles.RequireAdmin(caller); err != nil {
		return 0, err
	}
	id, err := e.state.RewardPoolNextID()
	if err != nil {
		return 0, err
	}
	pool := &RewardPool{
		ID:                id,
		TotalStaked:       big.NewInt(0),
		AccRewardPerShare: big.NewInt(0),
		TotalDistributed:  big.NewInt(0),
	}
	if err := e.state.RewardPoolPut(pool); err != nil {
		return 0, err
	}
	e.emit(newRewardPoolCreatedEvent(caller, id))
	return id, nil
}

// Stake settles any pending reward, then moves the amount from the holder's
// account into the pool vault and resets the reward debt against the new
// stake size.
func (e *Engine) Stake(holder [20]byte, poolID uint64, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.roles.RequireRole(holder, membership.RoleDepositor, membership.RoleValidator); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("rewards engine: %w", nativecommon.ErrZeroAmount)
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	stake, err := e.loadStake(poolID, holder)
	if err != nil {
		return err
	}
	if err := e.settle(pool, stake); err != nil {
		return err
	}
	if err := e.transfer(holder, VaultAddress(poolID), amount); err != nil {
		return err
	}

	stake.Amount = new(big.Int).Add(stake.Amount, amount)
	stake.RewardDebt = new(big.Int).Mul(stake.Amount, pool.AccRewardPerShare)
	stake.RewardDebt = stake.RewardDebt.Quo(stake.RewardDebt, Scale)
	pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, amount)

	if err := e.state.RewardStakePut(stake); err != nil {
		return err
	}
	if err := e.state.RewardPoolPut(pool); err != nil {
		return err
	}
	e.emit(newStakedEvent(holder, poolID, amount))
	return nil
}

// Unstake settles any pending reward, returns the principal from the vault,
// and shrinks the pool total.
func (e *Engine) Unstake(holder [20]byte, poolID uint64, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("rewards engine: %w", nativecommon.ErrZeroAmount)
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	stake, err := e.loadStake(poolID, holder)
	if err != nil {
		return err
	}
	if stake.Amount.Cmp(amount) < 0 {
		return fmt.Errorf("rewards engine: %w", nativecommon.ErrInsufficientBalance)
	}
	if err := e.settle(pool, stake); err != nil {
		return err
	}
	if err := e.transfer(VaultAddress(poolID), holder, amount); err != nil {
		return err
	}

	stake.Amount = new(big.Int).Sub(stake.Amount, amount)
	stake.RewardDebt = new(big.Int).Mul(stake.Amount, pool.AccRewardPerShare)
	stake.RewardDebt = stake.RewardDebt.Quo(stake.RewardDebt, Scale)
	pool.TotalStaked = new(big.Int).Sub(pool.TotalStaked, amount)

	if err := e.state.RewardStakePut(stake); err != nil {
		return err
	}
	if err := e.state.RewardPoolPut(pool); err != nil {
		return err
	}
	e.emit(newUnstakedEvent(holder, poolID, amount))
	return nil
}

// DistributeRewards funds the vault from the distributor's account and folds
// the amount into the accumulated per-share index. Requires at least one
// staker so no value is stranded.
func (e *Engine) DistributeRewards(caller [20]byte, poolID uint64, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.roles.RequireAdmin(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("rewards engine: %w", nativecommon.ErrZeroAmount)
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return err
	}
	if pool.TotalStaked.Sign() == 0 {
		return fmt.Errorf("rewards engine: %w", nativecommon.ErrNoStakers)
	}
	if err := e.transfer(caller, VaultAddress(poolID), amount); err != nil {
		return err
	}

	delta := new(big.Int).Mul(amount, Scale)
	delta = delta.Quo(delta, pool.TotalStaked)
	pool.AccRewardPerShare = new(big.Int).Add(pool.AccRewardPerShare, delta)
	pool.TotalDistributed = new(big.Int).Add(pool.TotalDistributed, amount)

	if err := e.state.RewardPoolPut(pool); err != nil {
		return err
	}
	e.emit(newRewardsDistributedEvent(caller, poolID, amount))
	return nil
}

// ClaimRewards pays the holder's pending reward and resets the reward debt.
func (e *Engine) ClaimRewards(holder [20]byte, poolID uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	stake, err := e.loadStake(poolID, holder)
	if err != nil {
		return nil, err
	}
	owed := pending(pool, stake)
	if owed.Sign() > 0 {
		if err := e.transfer(VaultAddress(poolID), holder, owed); err != nil {
			return nil, err
		}
	}
	stake.RewardDebt = new(big.Int).Mul(stake.Amount, pool.AccRewardPerShare)
	stake.RewardDebt = stake.RewardDebt.Quo(stake.RewardDebt, Scale)
	if err := e.state.RewardStakePut(stake); err != nil {
		return nil, err
	}
	if owed.Sign() > 0 {
		e.emit(newRewardsClaimedEvent(holder, poolID, owed))
	}
	return owed, nil
}

// BulkStake applies the single-stake contract to each element independently.
func (e *Engine) BulkStake(poolID uint64, holders [][20]byte, amounts []*big.Int) []StakeResult {
	results := make([]StakeResult, 0, len(holders))
	for i, holder := range holders {
		var amount *big.Int
		if i < len(amounts) {
			amount = amounts[i]
		}
		err := e.Stake(holder, poolID, amount)
		results = append(results, StakeResult{Holder: holder, Err: err})
	}
	return results
}

// BulkUnstake applies the single-unstake contract to each element independently.
func (e *Engine) BulkUnstake(poolID uint64, holders [][20]byte, amounts []*big.Int) []StakeResult {
	results := make([]StakeResult, 0, len(holders))
	for i, holder := range holders {
		var amount *big.Int
		if i < len(amounts) {
			amount = amounts[i]
		}
		err := e.Unstake(holder, poolID, amount)
		results = append(results, StakeResult{Holder: holder, Err: err})
	}
	return results
}

// GetPendingRewards returns the holder's currently claimable reward. Read-only.
func (e *Engine) GetPendingRewards(holder [20]byte, poolID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	stake, err := e.loadStake(poolID, holder)
	if err != nil {
		return nil, err
	}
	return pending(pool, stake), nil
}

// GetStakedAmount returns the holder's current stake. Read-only.
func (e *Engine) GetStakedAmount(holder [20]byte, poolID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	stake, err := e.loadStake(poolID, holder)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(stake.Amount), nil
}

// GetPool returns a copy of the reward pool record. Read-only.
func (e *Engine) GetPool(poolID uint64) (*RewardPool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.loadPool(poolID)
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}
