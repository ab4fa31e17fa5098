package governance

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"crp/core/types"
	nativecommon "crp/native/common"
)

type mockGovernanceState struct {
	nextID    uint64
	proposals map[uint64]*Proposal
	votes     map[string]*Vote
	accounts  map[[20]byte]*types.Account
	paused    map[string]bool
	params    map[string][]byte
}

func newMockGovernanceState() *mockGovernanceState {
	return &mockGovernanceState{
		proposals: make(map[uint64]*Proposal),
		votes:     make(map[string]*Vote),
		accounts:  make(map[[20]byte]*types.Account),
		paused:    make(map[string]bool),
		params:    make(map[string][]byte),
	}
}

func voteKey(id uint64, voter [20]byte) string {
	return fmt.Sprintf("%d/%x", id, voter)
}

func (m *mockGovernanceState) GovernanceNextProposalID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockGovernanceState) GovernanceGetProposal(id uint64) (*Proposal, bool, error) {
	p, ok := m.proposals[id]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (m *mockGovernanceState) GovernancePutProposal(p *Proposal) error {
	m.proposals[p.ID] = p.Clone()
	return nil
}

func (m *mockGovernanceState) GovernanceGetVote(id uint64, voter [20]byte) (*Vote, bool, error) {
	v, ok := m.votes[voteKey(id, voter)]
	if !ok {
		return nil, false, nil
	}
	return v.Clone(), true, nil
}

func (m *mockGovernanceState) GovernancePutVote(v *Vote) error {
	m.votes[voteKey(v.ProposalID, v.Voter)] = v.Clone()
	return nil
}

func (m *mockGovernanceState) GetAccount(addr [20]byte) (*types.Account, error) {
	if acc, ok := m.accounts[addr]; ok {
		return &types.Account{Nonce: acc.Nonce, Balance: new(big.Int).Set(acc.Balance)}, nil
	}
	return &types.Account{Balance: big.NewInt(0)}, nil
}

func (m *mockGovernanceState) SetPaused(module string, paused bool) error {
	m.paused[module] = paused
	return nil
}

func (m *mockGovernanceState) ParamStoreSet(key string, value []byte) error {
	m.params[key] = append([]byte(nil), value...)
	return nil
}

func (m *mockGovernanceState) fund(addr [20]byte, amount int64) {
	m.accounts[addr] = &types.Account{Balance: big.NewInt(amount)}
}

type mockRoles struct {
	admin   [20]byte
	members map[[20]byte]bool
}

func (m *mockRoles) RequireAdmin(addr [20]byte) error {
	if addr != m.admin {
		return fmt.Errorf("gate: %w", nativecommon.ErrNotAuthorized)
	}
	return nil
}

func (m *mockRoles) IsMember(addr [20]byte) (bool, error) {
	if addr == m.admin {
		return true, nil
	}
	return m.members[addr], nil
}

type mockAdminTransferor struct {
	from, to [20]byte
	calls    int
}

func (m *mockAdminTransferor) TransferAdmin(from, to [20]byte) error {
	m.from, m.to = from, to
	m.calls++
	return nil
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

type fixture struct {
	engine *Engine
	state  *mockGovernanceState
	roles  *mockRoles
	admin  [20]byte
}

func newFixture(t *testing.T, members ...[20]byte) *fixture {
	t.Helper()
	state := newMockGovernanceState()
	admin := addr(0xa0)
	roles := &mockRoles{admin: admin, members: make(map[[20]byte]bool)}
	for _, member := range members {
		roles.members[member] = true
	}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetRoleGate(roles)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return &fixture{engine: engine, state: state, roles: roles, admin: admin}
}

func (f *fixture) propose(t *testing.T, proposer [20]byte, mechanism Mechanism, threshold int64, action *Action) uint64 {
	t.Helper()
	id, err := f.engine.CreateProposal(proposer, "raise reserve ratio", "details", big.NewInt(threshold), mechanism, action)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	return id
}

// Scenario: token-weighted proposal with threshold 100. A holder of 50 votes
// yes, a holder of 150 votes no. Yes tally 50 < 100, so finalize rejects.
func TestTokenWeightedRejection(t *testing.T) {
	alice, bob := addr(1), addr(2)
	f := newFixture(t, alice, bob)
	f.state.fund(alice, 50)
	f.state.fund(bob, 150)

	id := f.propose(t, alice, MechanismTokenWeighted, 100, nil)
	if _, err := f.engine.Vote(alice, id, VoteChoiceYes); err != nil {
		t.Fatalf("alice vote: %v", err)
	}
	if _, err := f.engine.Vote(bob, id, VoteChoiceNo); err != nil {
		t.Fatalf("bob vote: %v", err)
	}

	status, err := f.engine.FinalizeProposal(f.admin, id)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if status != ProposalStatusRejected {
		t.Fatalf("status = %s, want rejected", status)
	}
	proposal, err := f.engine.GetProposal(id)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if proposal.YesVotes.Int64() != 50 || proposal.NoVotes.Int64() != 150 {
		t.Fatalf("tallies = %s/%s, want 50/150", proposal.YesVotes, proposal.NoVotes)
	}
}

func TestSimpleMechanismOneMemberOneVote(t *testing.T) {
	alice, bob := addr(1), addr(2)
	f := newFixture(t, alice, bob)
	f.state.fund(alice, 1)
	f.state.fund(bob, 1_000_000)

	id := f.propose(t, alice, MechanismSimple, 2, nil)
	if _, err := f.engine.Vote(alice, id, VoteChoiceYes); err != nil {
		t.Fatalf("alice vote: %v", err)
	}
	if _, err := f.engine.Vote(bob, id, VoteChoiceYes); err != nil {
		t.Fatalf("bob vote: %v", err)
	}

	status, err := f.engine.FinalizeProposal(f.admin, id)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if status != ProposalStatusPassed {
		t.Fatalf("status = %s, want passed", status)
	}
}

func TestQuadraticWeightIsIntegerSqrt(t *testing.T) {
	alice := addr(1)
	f := newFixture(t, alice)
	f.state.fund(alice, 10_000)

	id := f.propose(t, alice, MechanismQuadratic, 1, nil)
	power, err := f.engine.GetVotingPower(id, alice)
	if err != nil {
		t.Fatalf("voting power: %v", err)
	}
	if power.Int64() != 100 {
		t.Fatalf("power = %s, want 100", power)
	}

	// 99 is not a perfect square: weight floors to 9.
	f.state.fund(alice, 99)
	vote, err := f.engine.Vote(alice, id, VoteChoiceYes)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if vote.Weight.Int64() != 9 {
		t.Fatalf("weight = %s, want 9", vote.Weight)
	}
}

func TestConvictionMechanismRejected(t *testing.T) {
	alice := addr(1)
	f := newFixture(t, alice)
	_, err := f.engine.CreateProposal(alice, "title", "", big.NewInt(1), MechanismConviction, nil)
	if !errors.Is(err, nativecommon.ErrUnsupportedMechanism) {
		t.Fatalf("err = %v, want unsupported mechanism", err)
	}
}

func TestVoteActivatesPendingProposal(t *testing.T) {
	alice := addr(1)
	f := newFixture(t, alice)
	f.state.fund(alice, 10)

	id := f.propose(t, alice, MechanismTokenWeighted, 1, nil)
	proposal, err := f.engine.GetProposal(id)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if proposal.Status != ProposalStatusPending {
		t.Fatalf("status = %s, want pending", proposal.Status)
	}
	if _, err := f.engine.Vote(alice, id, VoteChoiceYes); err != nil {
		t.Fatalf("vote: %v", err)
	}
	proposal, err = f.engine.GetProposal(id)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if proposal.Status != ProposalStatusActive {
		t.Fatalf("status = %s, want active", proposal.Status)
	}
}

func TestDoubleVoteRejected(t *testing.T) {
	alice := addr(1)
	f := newFixture(t, alice)
	f.state.fund(alice, 10)

	id := f.propose(t, alice, MechanismSimple, 1, nil)
	if _, err := f.engine.Vote(alice, id, VoteChoiceYes); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if _, err := f.engine.Vote(alice, id, VoteChoiceNo); !errors.Is(err, nativecommon.ErrAlreadyVoted) {
		t.Fatalf("err = %v, want already voted", err)
	}
	proposal, err := f.engine.GetProposal(id)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if proposal.YesVotes.Int64() != 1 || proposal.NoVotes.Sign() != 0 {
		t.Fatalf("tallies = %s/%s, want 1/0", proposal.YesVotes, proposal.NoVotes)
	}
}

func TestAbstainCountsParticipationOnly(t *testing.T) {
	alice, bob := addr(1), addr(2)
	f := newFixture(t, alice, bob)
	f.state.fund(alice, 40)
	f.state.fund(bob, 60)

	id := f.propose(t, alice, MechanismTokenWeighted, 50, nil)
	if _, err := f.engine.Vote(alice, id, VoteChoiceYes); err != nil {
		t.Fatalf("alice vote: %v", err)
	}
	if _, err := f.engine.Vote(bob, id, VoteChoiceAbstain); err != nil {
		t.Fatalf("bob vote: %v", err)
	}

	status, err := f.engine.FinalizeProposal(f.admin, id)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if status != ProposalStatusRejected {
		t.Fatalf("status = %s, want rejected", status)
	}
	proposal, err := f.engine.GetProposal(id)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if proposal.AbstainVotes.Int64() != 60 {
		t.Fatalf("abstain = %s, want 60", proposal.AbstainVotes)
	}
}

func TestNonMemberCannotProposeOrVote(t *testing.T) {
	alice, stranger := addr(1), addr(9)
	f := newFixture(t, alice)
	f.state.fund(alice, 10)

	if _, err := f.engine.CreateProposal(stranger, "title", "", big.NewInt(1), MechanismSimple, nil); !errors.Is(err, nativecommon.ErrNotAuthorized) {
		t.Fatalf("create err = %v, want not authorized", err)
	}
	id := f.propose(t, alice, MechanismSimple, 1, nil)
	if _, err := f.engine.Vote(stranger, id, VoteChoiceYes); !errors.Is(err, nativecommon.ErrNotAuthorized) {
		t.Fatalf("vote err = %v, want not authorized", err)
	}
}

func TestFinalizeRequiresAdmin(t *testing.T) {
	alice := addr(1)
	f := newFixture(t, alice)
	f.state.fund(alice, 10)

	id := f.propose(t, alice, MechanismSimple, 1, nil)
	if err := f.engine.ActivateProposal(alice, id); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := f.engine.FinalizeProposal(alice, id); !errors.Is(err, nativecommon.ErrNotAuthorized) {
		t.Fatalf("err = %v, want not authorized", err)
	}
}

func TestExecutePauseAction(t *testing.T) {
	alice := addr(1)
	f := newFixture(t, alice)
	f.state.fund(alice, 10)

	id := f.propose(t, alice, MechanismSimple, 1, &Action{Kind: ActionPause, Module: "pool"})
	if _, err := f.engine.Vote(alice, id, VoteChoiceYes); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := f.engine.FinalizeProposal(f.admin, id); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.engine.ExecuteProposal(f.admin, id); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !f.state.paused["pool"] {
		t.Fatal("pool module not paused")
	}
	if err := f.engine.ExecuteProposal(f.admin, id); !errors.Is(err, nativecommon.ErrAlreadyExecuted) {
		t.Fatalf("err = %v, want already executed", err)
	}
}

func TestExecuteParamUpdateAction(t *testing.T) {
	alice := addr(1)
	f := newFixture(t, alice)
	f.state.fund(alice, 10)

	action := &Action{Kind: ActionParamUpdate, ParamKey: "pool.maxDurationSeconds", ParamValue: []byte("31536000")}
	id := f.propose(t, alice, MechanismSimple, 1, action)
	if _, err := f.engine.Vote(alice, id, VoteChoiceYes); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := f.engine.FinalizeProposal(f.admin, id); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.engine.ExecuteProposal(f.admin, id); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if string(f.state.params["pool.maxDurationSeconds"]) != "31536000" {
		t.Fatalf("param = %q, want 31536000", f.state.params["pool.maxDurationSeconds"])
	}
}

func TestExecuteAdminTransferAction(t *testing.T) {
	alice, successor := addr(1), addr(7)
	f := newFixture(t, alice)
	f.state.fund(alice, 10)
	transferor := &mockAdminTransferor{}
	f.engine.SetAdminTransferor(transferor)

	id := f.propose(t, alice, MechanismSimple, 1, &Action{Kind: ActionAdminTransfer, From: f.admin, To: successor})
	if _, err := f.engine.Vote(alice, id, VoteChoiceYes); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := f.engine.FinalizeProposal(f.admin, id); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.engine.ExecuteProposal(f.admin, id); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if transferor.calls != 1 || transferor.to != successor {
		t.Fatalf("transfer calls=%d to=%x, want 1 call to %x", transferor.calls, transferor.to, successor)
	}
}

func TestExecuteRejectedProposalFails(t *testing.T) {
	alice := addr(1)
	f := newFixture(t, alice)
	f.state.fund(alice, 10)

	id := f.propose(t, alice, MechanismSimple, 5, nil)
	if _, err := f.engine.Vote(alice, id, VoteChoiceYes); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := f.engine.FinalizeProposal(f.admin, id); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := f.engine.ExecuteProposal(f.admin, id); !errors.Is(err, nativecommon.ErrInvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
}

func TestVoteAfterFinalizationRejected(t *testing.T) {
	alice, bob := addr(1), addr(2)
	f := newFixture(t, alice, bob)
	f.state.fund(alice, 10)
	f.state.fund(bob, 10)

	id := f.propose(t, alice, MechanismSimple, 1, nil)
	if _, err := f.engine.Vote(alice, id, VoteChoiceYes); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := f.engine.FinalizeProposal(f.admin, id); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := f.engine.Vote(bob, id, VoteChoiceYes); !errors.Is(err, nativecommon.ErrInvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
}
