package state

import (
	"math/big"
	"testing"

	"crp/core/types"
	"crp/native/governance"
	"crp/native/membership"
	"crp/native/pool"
	"crp/native/rewards"
	"crp/storage"
)

func newManager() *Manager {
	return NewManager(storage.NewMemDB())
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func TestAccountRoundTrip(t *testing.T) {
	m := newManager()
	alice := addr(1)

	account, err := m.GetAccount(alice)
	if err != nil {
		t.Fatalf("get unknown account: %v", err)
	}
	if account.Balance.Sign() != 0 {
		t.Fatalf("unknown account balance = %s, want 0", account.Balance)
	}

	account.Nonce = 3
	account.Balance = big.NewInt(1_000)
	if err := m.PutAccount(alice, account); err != nil {
		t.Fatalf("put account: %v", err)
	}
	loaded, err := m.GetAccount(alice)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Nonce != 3 || loaded.Balance.Int64() != 1_000 {
		t.Fatalf("loaded = %+v, want nonce 3 balance 1000", loaded)
	}
}

func TestPutAccountNormalizesNilBalance(t *testing.T) {
	m := newManager()
	if err := m.PutAccount(addr(1), &types.Account{}); err != nil {
		t.Fatalf("put account: %v", err)
	}
	loaded, err := m.GetAccount(addr(1))
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Balance == nil || loaded.Balance.Sign() != 0 {
		t.Fatalf("balance = %v, want 0", loaded.Balance)
	}
}

func TestCountersAreIndependent(t *testing.T) {
	m := newManager()
	for want := uint64(1); want <= 3; want++ {
		id, err := m.PoolNextID()
		if err != nil {
			t.Fatalf("pool next id: %v", err)
		}
		if id != want {
			t.Fatalf("pool id = %d, want %d", id, want)
		}
	}
	id, err := m.RewardPoolNextID()
	if err != nil {
		t.Fatalf("reward next id: %v", err)
	}
	if id != 1 {
		t.Fatalf("reward id = %d, want 1", id)
	}
	id, err = m.GovernanceNextProposalID()
	if err != nil {
		t.Fatalf("proposal next id: %v", err)
	}
	if id != 1 {
		t.Fatalf("proposal id = %d, want 1", id)
	}
}

func TestMembershipRoundTrip(t *testing.T) {
	m := newManager()
	alice := addr(1)

	if _, ok, err := m.MembershipGetMember(alice); err != nil || ok {
		t.Fatalf("unknown member: ok=%v err=%v", ok, err)
	}
	member := &membership.Member{Address: alice, Role: membership.RoleDepositor}
	if err := m.MembershipPutMember(member); err != nil {
		t.Fatalf("put member: %v", err)
	}
	loaded, ok, err := m.MembershipGetMember(alice)
	if err != nil || !ok {
		t.Fatalf("get member: ok=%v err=%v", ok, err)
	}
	if loaded.Role != membership.RoleDepositor {
		t.Fatalf("role = %s, want depositor", loaded.Role)
	}
	if err := m.MembershipRemoveMember(alice); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if _, ok, _ := m.MembershipGetMember(alice); ok {
		t.Fatal("member survived removal")
	}

	if err := m.MembershipPutPending(alice, membership.RoleBorrower); err != nil {
		t.Fatalf("put pending: %v", err)
	}
	role, ok, err := m.MembershipGetPending(alice)
	if err != nil || !ok || role != membership.RoleBorrower {
		t.Fatalf("pending = %s ok=%v err=%v, want borrower", role, ok, err)
	}
	if err := m.MembershipRemovePending(alice); err != nil {
		t.Fatalf("remove pending: %v", err)
	}
	if _, ok, _ := m.MembershipGetPending(alice); ok {
		t.Fatal("pending survived removal")
	}
}

func TestComplianceFlag(t *testing.T) {
	m := newManager()
	alice := addr(1)
	ok, err := m.ComplianceGetWhitelisted(alice)
	if err != nil || ok {
		t.Fatalf("unknown flag: ok=%v err=%v", ok, err)
	}
	if err := m.CompliancePutWhitelisted(alice, true); err != nil {
		t.Fatalf("put flag: %v", err)
	}
	if ok, _ := m.ComplianceGetWhitelisted(alice); !ok {
		t.Fatal("flag not persisted")
	}
	if err := m.CompliancePutWhitelisted(alice, false); err != nil {
		t.Fatalf("clear flag: %v", err)
	}
	if ok, _ := m.ComplianceGetWhitelisted(alice); ok {
		t.Fatal("flag not cleared")
	}
}

func TestPoolRoundTrip(t *testing.T) {
	m := newManager()
	borrower, investor := addr(1), addr(2)

	p := &pool.Pool{
		ID:              7,
		Borrower:        borrower,
		TargetAmount:    big.NewInt(1_000),
		CurrentTotal:    big.NewInt(400),
		InterestRateBps: 500,
		DurationSeconds: 86_400,
		Status:          pool.StatusActive,
		CreatedAt:       1_700_000_000,
	}
	if err := m.PoolPut(p); err != nil {
		t.Fatalf("put pool: %v", err)
	}
	loaded, ok, err := m.PoolGet(7)
	if err != nil || !ok {
		t.Fatalf("get pool: ok=%v err=%v", ok, err)
	}
	if loaded.Borrower != borrower || loaded.TargetAmount.Int64() != 1_000 || loaded.Status != pool.StatusActive {
		t.Fatalf("loaded = %+v", loaded)
	}

	c := &pool.Contribution{PoolID: 7, Investor: investor, Amount: big.NewInt(400)}
	if err := m.PoolContributionPut(c); err != nil {
		t.Fatalf("put contribution: %v", err)
	}
	if err := m.PoolContributionPut(c); err != nil {
		t.Fatalf("re-put contribution: %v", err)
	}
	contributors, err := m.PoolContributors(7)
	if err != nil {
		t.Fatalf("contributors: %v", err)
	}
	if len(contributors) != 1 || contributors[0] != investor {
		t.Fatalf("contributors = %v, want just %x", contributors, investor)
	}

	if claimed, _ := m.PoolClaimed(7, investor); claimed {
		t.Fatal("fresh contribution reads claimed")
	}
	if err := m.PoolMarkClaimed(7, investor); err != nil {
		t.Fatalf("mark claimed: %v", err)
	}
	if claimed, _ := m.PoolClaimed(7, investor); !claimed {
		t.Fatal("claim mark lost")
	}

	if err := m.PoolIndexBorrower(borrower, 7); err != nil {
		t.Fatalf("index borrower: %v", err)
	}
	if err := m.PoolIndexBorrower(borrower, 7); err != nil {
		t.Fatalf("re-index borrower: %v", err)
	}
	loans, err := m.PoolsByBorrower(borrower)
	if err != nil {
		t.Fatalf("loans: %v", err)
	}
	if len(loans) != 1 || loans[0] != 7 {
		t.Fatalf("loans = %v, want [7]", loans)
	}
	if err := m.PoolIndexInvestor(investor, 7); err != nil {
		t.Fatalf("index investor: %v", err)
	}
	portfolio, err := m.PoolsByInvestor(investor)
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(portfolio) != 1 || portfolio[0] != 7 {
		t.Fatalf("portfolio = %v, want [7]", portfolio)
	}
}

func TestSharesRoundTrip(t *testing.T) {
	m := newManager()
	holder := addr(1)

	balance, err := m.SharesGet(3, holder)
	if err != nil || balance.Sign() != 0 {
		t.Fatalf("fresh balance = %s err=%v", balance, err)
	}
	if err := m.SharesPut(3, holder, big.NewInt(250)); err != nil {
		t.Fatalf("put shares: %v", err)
	}
	if err := m.SharesPutTotal(3, big.NewInt(250)); err != nil {
		t.Fatalf("put total: %v", err)
	}
	balance, err = m.SharesGet(3, holder)
	if err != nil || balance.Int64() != 250 {
		t.Fatalf("balance = %s err=%v, want 250", balance, err)
	}
	total, err := m.SharesTotal(3)
	if err != nil || total.Int64() != 250 {
		t.Fatalf("total = %s err=%v, want 250", total, err)
	}
	if total, _ := m.SharesTotal(4); total.Sign() != 0 {
		t.Fatalf("other pool total = %s, want 0", total)
	}
}

func TestRewardsRoundTrip(t *testing.T) {
	m := newManager()
	holder := addr(1)

	p := &rewards.RewardPool{ID: 2, TotalStaked: big.NewInt(100), AccRewardPerShare: big.NewInt(0), TotalDistributed: big.NewInt(0)}
	if err := m.RewardPoolPut(p); err != nil {
		t.Fatalf("put pool: %v", err)
	}
	loaded, ok, err := m.RewardPoolGet(2)
	if err != nil || !ok || loaded.TotalStaked.Int64() != 100 {
		t.Fatalf("get pool: %+v ok=%v err=%v", loaded, ok, err)
	}

	s := &rewards.Stake{PoolID: 2, Holder: holder, Amount: big.NewInt(100), RewardDebt: big.NewInt(0)}
	if err := m.RewardStakePut(s); err != nil {
		t.Fatalf("put stake: %v", err)
	}
	stake, ok, err := m.RewardStakeGet(2, holder)
	if err != nil || !ok || stake.Amount.Int64() != 100 {
		t.Fatalf("get stake: %+v ok=%v err=%v", stake, ok, err)
	}
}

func TestGovernanceRoundTrip(t *testing.T) {
	m := newManager()
	proposer, voter := addr(1), addr(2)

	p := &governance.Proposal{
		ID:           4,
		Proposer:     proposer,
		Title:        "adjust reserve",
		Threshold:    big.NewInt(100),
		Mechanism:    governance.MechanismTokenWeighted,
		Status:       governance.ProposalStatusActive,
		YesVotes:     big.NewInt(40),
		NoVotes:      big.NewInt(0),
		AbstainVotes: big.NewInt(0),
		Action:       &governance.Action{Kind: governance.ActionPause, Module: "pool"},
	}
	if err := m.GovernancePutProposal(p); err != nil {
		t.Fatalf("put proposal: %v", err)
	}
	loaded, ok, err := m.GovernanceGetProposal(4)
	if err != nil || !ok {
		t.Fatalf("get proposal: ok=%v err=%v", ok, err)
	}
	if loaded.Mechanism != governance.MechanismTokenWeighted || loaded.Action == nil || loaded.Action.Module != "pool" {
		t.Fatalf("loaded = %+v", loaded)
	}

	v := &governance.Vote{ProposalID: 4, Voter: voter, Choice: governance.VoteChoiceYes, Weight: big.NewInt(40)}
	if err := m.GovernancePutVote(v); err != nil {
		t.Fatalf("put vote: %v", err)
	}
	vote, ok, err := m.GovernanceGetVote(4, voter)
	if err != nil || !ok || vote.Weight.Int64() != 40 {
		t.Fatalf("get vote: %+v ok=%v err=%v", vote, ok, err)
	}
}

func TestPauseRegistry(t *testing.T) {
	m := newManager()
	if m.IsPaused("pool") {
		t.Fatal("fresh module reads paused")
	}
	if err := m.SetPaused("pool", true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !m.IsPaused("pool") {
		t.Fatal("pause flag lost")
	}
	if m.IsPaused("rewards") {
		t.Fatal("pause leaked across modules")
	}
	if err := m.SetPaused("pool", false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if m.IsPaused("pool") {
		t.Fatal("unpause flag lost")
	}
}

func TestParamStore(t *testing.T) {
	m := newManager()
	if _, ok, err := m.ParamStoreGet("pool.maxDurationSeconds"); err != nil || ok {
		t.Fatalf("unknown param: ok=%v err=%v", ok, err)
	}
	if err := m.ParamStoreSet("pool.maxDurationSeconds", []byte("31536000")); err != nil {
		t.Fatalf("set param: %v", err)
	}
	value, ok, err := m.ParamStoreGet("pool.maxDurationSeconds")
	if err != nil || !ok || string(value) != "31536000" {
		t.Fatalf("param = %q ok=%v err=%v", value, ok, err)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	m := newManager()
	if err := m.RegistryPut("harbor", addr(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.RegistryPut("alpha", addr(2)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := m.RegistryGet("harbor")
	if err != nil || !ok || got != addr(1) {
		t.Fatalf("get = %x ok=%v err=%v", got, ok, err)
	}
	names, err := m.RegistryNames()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "harbor" {
		t.Fatalf("names = %v, want [alpha harbor]", names)
	}
	if err := m.RegistryDelete("harbor"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := m.RegistryGet("harbor"); ok {
		t.Fatal("entry survived delete")
	}
	names, _ = m.RegistryNames()
	if len(names) != 1 || names[0] != "alpha" {
		t.Fatalf("names = %v, want [alpha]", names)
	}
}
