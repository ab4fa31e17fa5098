package rewards

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"crp/core/types"
	nativecommon "crp/native/common"
	"crp/native/membership"
)

type mockRewardsState struct {
	nextID   uint64
	pools    map[uint64]*RewardPool
	stakes   map[string]*Stake
	accounts map[[20]byte]*types.Account
}

func newMockRewardsState() *mockRewardsState {
	return &mockRewardsState{
		pools:    make(map[uint64]*RewardPool),
		stakes:   make(map[string]*Stake),
		accounts: make(map[[20]byte]*types.Account),
	}
}

func stakeKey(id uint64, holder [20]byte) string {
	return fmt.Sprintf("%d/%x", id, holder)
}

func (m *mockRewardsState) RewardPoolNextID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockRewardsState) RewardPoolGet(id uint64) (*RewardPool, bool, error) {
	p, ok := m.pools[id]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (m *mockRewardsState) RewardPoolPut(p *RewardPool) error {
	m.pools[p.ID] = p.Clone()
	return nil
}

func (m *mockRewardsState) RewardStakeGet(id uint64, holder [20]byte) (*Stake, bool, error) {
	s, ok := m.stakes[stakeKey(id, holder)]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *mockRewardsState) RewardStakePut(s *Stake) error {
	m.stakes[stakeKey(s.PoolID, s.Holder)] = s.Clone()
	return nil
}

func (m *mockRewardsState) GetAccount(addr [20]byte) (*types.Account, error) {
	if acc, ok := m.accounts[addr]; ok {
		return &types.Account{Nonce: acc.Nonce, Balance: new(big.Int).Set(acc.Balance)}, nil
	}
	return &types.Account{Balance: big.NewInt(0)}, nil
}

func (m *mockRewardsState) PutAccount(addr [20]byte, account *types.Account) error {
	m.accounts[addr] = &types.Account{Nonce: account.Nonce, Balance: new(big.Int).Set(account.Balance)}
	return nil
}

func (m *mockRewardsState) fund(addr [20]byte, amount int64) {
	m.accounts[addr] = &types.Account{Balance: big.NewInt(amount)}
}

func (m *mockRewardsState) balance(addr [20]byte) *big.Int {
	if acc, ok := m.accounts[addr]; ok {
		return new(big.Int).Set(acc.Balance)
	}
	return big.NewInt(0)
}

type mockRoles struct {
	roles map[[20]byte]membership.Role
}

func (m *mockRoles) RequireAdmin(addr [20]byte) error {
	return m.RequireRole(addr, membership.RoleAdmin)
}

func (m *mockRoles) RequireRole(addr [20]byte, roles ...membership.Role) error {
	current, ok := m.roles[addr]
	if !ok {
		return fmt.Errorf("gate: %w", nativecommon.ErrNotAuthorized)
	}
	for _, role := range roles {
		if current == role {
			return nil
		}
	}
	return fmt.Errorf("gate: %w", nativecommon.ErrNotAuthorized)
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

type fixture struct {
	engine *Engine
	state  *mockRewardsState
	admin  [20]byte
}

func newFixture(t *testing.T, stakers ...[20]byte) (*fixture, uint64) {
	t.Helper()
	state := newMockRewardsState()
	admin := addr(0xa0)
	roles := &mockRoles{roles: map[[20]byte]membership.Role{admin: membership.RoleAdmin}}
	for _, staker := range stakers {
		roles.roles[staker] = membership.RoleDepositor
	}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetRoleGate(roles)
	id, err := engine.CreatePool(admin)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	return &fixture{engine: engine, state: state, admin: admin}, id
}

// Scenario C: stakers of 100 and 300, distribute 400 → pending 100 and 300;
// after claims both pendings read zero.
func TestDistributeProportional(t *testing.T) {
	alice, bob := addr(0x01), addr(0x02)
	f, id := newFixture(t, alice, bob)
	f.state.fund(alice, 100)
	f.state.fund(bob, 300)
	f.state.fund(f.admin, 400)

	if err := f.engine.Stake(alice, id, big.NewInt(100)); err != nil {
		t.Fatalf("stake alice: %v", err)
	}
	if err := f.engine.Stake(bob, id, big.NewInt(300)); err != nil {
		t.Fatalf("stake bob: %v", err)
	}
	if err := f.engine.DistributeRewards(f.admin, id, big.NewInt(400)); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	pending, err := f.engine.GetPendingRewards(alice, id)
	if err != nil {
		t.Fatalf("pending alice: %v", err)
	}
	if pending.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("alice pending: expected 100, got %s", pending)
	}
	pending, err = f.engine.GetPendingRewards(bob, id)
	if err != nil {
		t.Fatalf("pending bob: %v", err)
	}
	if pending.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("bob pending: expected 300, got %s", pending)
	}

	claimed, err := f.engine.ClaimRewards(alice, id)
	if err != nil {
		t.Fatalf("claim alice: %v", err)
	}
	if claimed.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("alice claim: expected 100, got %s", claimed)
	}
	claimed, err = f.engine.ClaimRewards(bob, id)
	if err != nil {
		t.Fatalf("claim bob: %v", err)
	}
	if claimed.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("bob claim: expected 300, got %s", claimed)
	}

	for _, holder := range [][20]byte{alice, bob} {
		pending, err := f.engine.GetPendingRewards(holder, id)
		if err != nil {
			t.Fatalf("pending: %v", err)
		}
		if pending.Sign() != 0 {
			t.Fatalf("pending should be zero after claim, got %s", pending)
		}
	}
}

func TestDistributeWithoutStakersFails(t *testing.T) {
	f, id := newFixture(t)
	f.state.fund(f.admin, 100)
	if err := f.engine.DistributeRewards(f.admin, id, big.NewInt(100)); !errors.Is(err, nativecommon.ErrNoStakers) {
		t.Fatalf("expected ErrNoStakers, got %v", err)
	}
}

func TestStakeSettlesBeforeIncrease(t *testing.T) {
	alice := addr(0x03)
	f, id := newFixture(t, alice)
	f.state.fund(alice, 200)
	f.state.fund(f.admin, 100)

	if err := f.engine.Stake(alice, id, big.NewInt(100)); err != nil {
		t.Fatalf("first stake: %v", err)
	}
	if err := f.engine.DistributeRewards(f.admin, id, big.NewInt(100)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	// Second stake settles the 100 pending first.
	if err := f.engine.Stake(alice, id, big.NewInt(100)); err != nil {
		t.Fatalf("second stake: %v", err)
	}
	pending, err := f.engine.GetPendingRewards(alice, id)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending.Sign() != 0 {
		t.Fatalf("pending should be settled, got %s", pending)
	}
	// 200 funded − 200 staked + 100 settled reward.
	if got := f.state.balance(alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("alice balance: expected 100, got %s", got)
	}
	staked, err := f.engine.GetStakedAmount(alice, id)
	if err != nil {
		t.Fatalf("staked: %v", err)
	}
	if staked.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected stake 200, got %s", staked)
	}
}

func TestUnstakeReturnsPrincipalAndSettles(t *testing.T) {
	alice := addr(0x04)
	f, id := newFixture(t, alice)
	f.state.fund(alice, 100)
	f.state.fund(f.admin, 50)

	if err := f.engine.Stake(alice, id, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := f.engine.DistributeRewards(f.admin, id, big.NewInt(50)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if err := f.engine.Unstake(alice, id, big.NewInt(100)); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	// 100 principal + 50 reward.
	if got := f.state.balance(alice); got.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("alice balance: expected 150, got %s", got)
	}
	if vault := f.state.balance(VaultAddress(id)); vault.Sign() != 0 {
		t.Fatalf("vault should be empty, has %s", vault)
	}
}

func TestUnstakeMoreThanStakedFails(t *testing.T) {
	alice := addr(0x05)
	f, id := newFixture(t, alice)
	f.state.fund(alice, 100)
	if err := f.engine.Stake(alice, id, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := f.engine.Unstake(alice, id, big.NewInt(101)); !errors.Is(err, nativecommon.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestDistributionConservation(t *testing.T) {
	// Sum of claims plus remaining pendings equals everything distributed,
	// within fixed-point rounding of under one unit per claim.
	holders := [][20]byte{addr(0x06), addr(0x07), addr(0x08)}
	f, id := newFixture(t, holders...)
	stakes := []int64{7, 13, 29}
	for i, holder := range holders {
		f.state.fund(holder, stakes[i])
		if err := f.engine.Stake(holder, id, big.NewInt(stakes[i])); err != nil {
			t.Fatalf("stake: %v", err)
		}
	}
	f.state.fund(f.admin, 1000)
	distributed := int64(0)
	for _, amount := range []int64{101, 257, 499} {
		if err := f.engine.DistributeRewards(f.admin, id, big.NewInt(amount)); err != nil {
			t.Fatalf("distribute: %v", err)
		}
		distributed += amount
	}

	total := big.NewInt(0)
	for _, holder := range holders {
		claimed, err := f.engine.ClaimRewards(holder, id)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		total.Add(total, claimed)
	}
	diff := new(big.Int).Sub(big.NewInt(distributed), total)
	if diff.Sign() < 0 {
		t.Fatalf("claims exceed distribution by %s", diff.Neg(diff))
	}
	if diff.Cmp(big.NewInt(int64(len(holders)))) > 0 {
		t.Fatalf("rounding loss %s exceeds one unit per claim", diff)
	}
}

func TestBulkStakeIsolatesFailures(t *testing.T) {
	alice := addr(0x09)
	f, id := newFixture(t, alice)
	f.state.fund(alice, 100)
	stranger := addr(0x0a)

	results := f.engine.BulkStake(id, [][20]byte{alice, stranger}, []*big.Int{big.NewInt(100), big.NewInt(50)})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("alice stake should succeed: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Fatalf("stranger stake should fail")
	}
	staked, err := f.engine.GetStakedAmount(alice, id)
	if err != nil {
		t.Fatalf("staked: %v", err)
	}
	if staked.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("alice stake should persist, got %s", staked)
	}
}

func TestDistributeRequiresAdmin(t *testing.T) {
	alice := addr(0x0b)
	f, id := newFixture(t, alice)
	f.state.fund(alice, 10)
	if err := f.engine.Stake(alice, id, big.NewInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := f.engine.DistributeRewards(alice, id, big.NewInt(10)); !errors.Is(err, nativecommon.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}
