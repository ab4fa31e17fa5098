package governance

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"crp/core/events"
	"crp/core/types"
	nativecommon "crp/native/common"
)

const moduleName = "governance"

var (
	errNilState = errors.New("governance engine: state not configured")
	errNilRoles = errors.New("governance engine: role registry not configured")
)

type engineState interface {
	GovernanceNextProposalID() (uint64, error)
	GovernanceGetProposal(id uint64) (*Proposal, bool, error)
	GovernancePutProposal(p *Proposal) error
	GovernanceGetVote(id uint64, voter [20]byte) (*Vote, bool, error)
	GovernancePutVote(v *Vote) error
	GetAccount(addr [20]byte) (*types.Account, error)
	SetPaused(module string, paused bool) error
	ParamStoreSet(key string, value []byte) error
}

// RoleGate is the slice of the membership engine the governance engine
// depends on for authorization checks.
type RoleGate interface {
	RequireAdmin(addr [20]byte) error
	IsMember(addr [20]byte) (bool, error)
}

// AdminTransferor applies the admin.transfer action when a passed proposal
// carrying one is executed.
type AdminTransferor interface {
	TransferAdmin(from, to [20]byte) error
}

// Engine runs the proposal lifecycle: submission, activation, weighted
// voting, manual finalization, and execution of the attached action.
// Automatic expiry of stale proposals is a policy decision left to an
// operator-driven finalize call; the engine never closes voting on its own.
type Engine struct {
	state   engineState
	roles   RoleGate
	admins  AdminTransferor
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() int64
}

// NewEngine constructs a governance engine with a no-op emitter.
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

// SetAdminTransferor wires the target of admin.transfer actions. Optional:
// executing such an action without it fails with an invalid-state error.
func (e *Engine) SetAdminTransferor(t AdminTransferor) { e.admins = t }

// SetPauses wires the pause registry consulted before every mutation.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetNowFunc overrides the time source used to stamp proposals. Nil restores
// the default Unix clock.
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
	e.emitter.Emit(governanceEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
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

func (e *Engine) loadProposal(id uint64) (*Proposal, error) {
	p, ok, err := e.state.GovernanceGetProposal(id)
	if err != nil {
		return nil, err
	}
	if !ok || p == nil {
		return nil, fmt.Errorf("governance engine: proposal %d: %w", id, nativecommon.ErrNotFound)
	}
	p.normalize()
	return p, nil
}

func (e *Engine) requireMember(addr [20]byte) error {
	ok, err := e.roles.IsMember(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("governance engine: %w", nativecommon.ErrNotAuthorized)
	}
	return nil
}

// CreateProposal records a new proposal in StatusPending. Any registered
// member may propose. Conviction voting parses but is rejected here so a
// future mechanism rollout does not change stored data shapes.
func (e *Engine) CreateProposal(proposer [20]byte, title, description string, threshold *big.Int, mechanism Mechanism, action *Action) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if err := e.requireMember(proposer); err != nil {
		return 0, err
	}
	if strings.TrimSpace(title) == "" {
		return 0, fmt.Errorf("governance engine: empty title: %w", nativecommon.ErrInvalidState)
	}
	if !mechanism.Supported() {
		return 0, fmt.Errorf("governance engine: mechanism %q: %w", mechanism, nativecommon.ErrUnsupportedMechanism)
	}
	if threshold == nil || threshold.Sign() < 0 {
		return 0, fmt.Errorf("governance engine: threshold: %w", nativecommon.ErrInvalidState)
	}
	if action != nil {
		if err := validateAction(action); err != nil {
			return 0, err
		}
	}
	id, err := e.state.GovernanceNextProposalID()
	if err != nil {
		return 0, err
	}
	proposal := &Proposal{
		ID:          id,
		Proposer:    proposer,
		Title:       title,
		Description: description,
		Threshold:   new(big.Int).Set(threshold),
		Mechanism:   mechanism,
		Status:      ProposalStatusPending,
		Action:      action,
		CreatedAt:   e.now(),
	}
	proposal.normalize()
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return 0, err
	}
	e.emit(newProposalCreatedEvent(proposal))
	return id, nil
}

func validateAction(action *Action) error {
	switch action.Kind {
	case ActionNone:
		return nil
	case ActionPause, ActionUnpause:
		if strings.TrimSpace(action.Module) == "" {
			return fmt.Errorf("governance engine: action module: %w", nativecommon.ErrInvalidState)
		}
	case ActionParamUpdate:
		if strings.TrimSpace(action.ParamKey) == "" {
			return fmt.Errorf("governance engine: action param key: %w", nativecommon.ErrInvalidState)
		}
	case ActionAdminTransfer:
		if action.To == ([20]byte{}) {
			return fmt.Errorf("governance engine: action transfer target: %w", nativecommon.ErrInvalidState)
		}
	default:
		return fmt.Errorf("governance engine: action kind %q: %w", action.Kind, nativecommon.ErrInvalidState)
	}
	return nil
}

// ActivateProposal opens a pending proposal for voting. Any member may
// activate; voting against a pending proposal also activates it implicitly.
func (e *Engine) ActivateProposal(caller [20]byte, id uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireMember(caller); err != nil {
		return err
	}
	proposal, err := e.loadProposal(id)
	if err != nil {
		return err
	}
	if proposal.Status != ProposalStatusPending {
		return fmt.Errorf("governance engine: proposal %d is %s: %w", id, proposal.Status, nativecommon.ErrInvalidState)
	}
	proposal.Status = ProposalStatusActive
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return err
	}
	e.emit(newProposalActivatedEvent(caller, proposal))
	return nil
}

// GetVotingPower computes the weight the voter would carry on the proposal
// under its mechanism: one for simple voting, the account balance for
// token-weighted, and the integer square root of the balance for quadratic.
func (e *Engine) GetVotingPower(id uint64, voter [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	proposal, err := e.loadProposal(id)
	if err != nil {
		return nil, err
	}
	return e.votingPower(proposal.Mechanism, voter)
}

func (e *Engine) votingPower(mechanism Mechanism, voter [20]byte) (*big.Int, error) {
	switch mechanism {
	case MechanismSimple:
		return big.NewInt(1), nil
	case MechanismTokenWeighted, MechanismQuadratic:
		account, err := e.state.GetAccount(voter)
		if err != nil {
			return nil, err
		}
		balance := types.EnsureBalance(account).Balance
		if mechanism == MechanismQuadratic {
			return new(big.Int).Sqrt(balance), nil
		}
		return new(big.Int).Set(balance), nil
	default:
		return nil, fmt.Errorf("governance engine: mechanism %q: %w", mechanism, nativecommon.ErrUnsupportedMechanism)
	}
}

// Vote records the member's ballot, weighting it by the proposal mechanism.
// Voting on a pending proposal activates it first. Each voter gets exactly
// one ballot per proposal; the weight is snapshotted at vote time.
func (e *Engine) Vote(voter [20]byte, id uint64, choice VoteChoice) (*Vote, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.requireMember(voter); err != nil {
		return nil, err
	}
	if !choice.Valid() {
		return nil, fmt.Errorf("governance engine: choice %q: %w", choice, nativecommon.ErrInvalidState)
	}
	proposal, err := e.loadProposal(id)
	if err != nil {
		return nil, err
	}
	switch proposal.Status {
	case ProposalStatusPending:
		proposal.Status = ProposalStatusActive
		e.emit(newProposalActivatedEvent(voter, proposal))
	case ProposalStatusActive:
	default:
		return nil, fmt.Errorf("governance engine: proposal %d is %s: %w", id, proposal.Status, nativecommon.ErrInvalidState)
	}
	if _, ok, err := e.state.GovernanceGetVote(id, voter); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("governance engine: proposal %d: %w", id, nativecommon.ErrAlreadyVoted)
	}
	weight, err := e.votingPower(proposal.Mechanism, voter)
	if err != nil {
		return nil, err
	}
	switch choice {
	case VoteChoiceYes:
		proposal.YesVotes = new(big.Int).Add(proposal.YesVotes, weight)
	case VoteChoiceNo:
		proposal.NoVotes = new(big.Int).Add(proposal.NoVotes, weight)
	case VoteChoiceAbstain:
		proposal.AbstainVotes = new(big.Int).Add(proposal.AbstainVotes, weight)
	}
	vote := &Vote{ProposalID: id, Voter: voter, Choice: choice, Weight: weight}
	if err := e.state.GovernancePutVote(vote); err != nil {
		return nil, err
	}
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return nil, err
	}
	e.emit(newVoteCastEvent(proposal, vote))
	return vote.Clone(), nil
}

// FinalizeProposal closes voting and settles the outcome: the proposal
// passes when its yes tally meets or exceeds the threshold, otherwise it is
// rejected. Only admins finalize; there is no automatic expiry.
func (e *Engine) FinalizeProposal(caller [20]byte, id uint64) (ProposalStatus, error) {
	if err := e.ready(); err != nil {
		return ProposalStatusUnspecified, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return ProposalStatusUnspecified, err
	}
	if err := e.roles.RequireAdmin(caller); err != nil {
		return ProposalStatusUnspecified, err
	}
	proposal, err := e.loadProposal(id)
	if err != nil {
		return ProposalStatusUnspecified, err
	}
	if proposal.Status != ProposalStatusActive {
		return ProposalStatusUnspecified, fmt.Errorf("governance engine: proposal %d is %s: %w", id, proposal.Status, nativecommon.ErrInvalidState)
	}
	if proposal.YesVotes.Cmp(proposal.Threshold) >= 0 {
		proposal.Status = ProposalStatusPassed
	} else {
		proposal.Status = ProposalStatusRejected
	}
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return ProposalStatusUnspecified, err
	}
	e.emit(newProposalFinalizedEvent(caller, proposal))
	return proposal.Status, nil
}

// ExecuteProposal applies the action attached to a passed proposal and marks
// it executed. Execution happens at most once.
func (e *Engine) ExecuteProposal(caller [20]byte, id uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.roles.RequireAdmin(caller); err != nil {
		return err
	}
	proposal, err := e.loadProposal(id)
	if err != nil {
		return err
	}
	if proposal.Status == ProposalStatusExecuted {
		return fmt.Errorf("governance engine: proposal %d: %w", id, nativecommon.ErrAlreadyExecuted)
	}
	if proposal.Status != ProposalStatusPassed {
		return fmt.Errorf("governance engine: proposal %d is %s: %w", id, proposal.Status, nativecommon.ErrInvalidState)
	}
	if err := e.applyAction(proposal.Action); err != nil {
		return err
	}
	proposal.Status = ProposalStatusExecuted
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return err
	}
	e.emit(newProposalExecutedEvent(caller, proposal))
	return nil
}

func (e *Engine) applyAction(action *Action) error {
	if action == nil || action.Kind == ActionNone {
		return nil
	}
	switch action.Kind {
	case ActionPause:
		return e.state.SetPaused(action.Module, true)
	case ActionUnpause:
		return e.state.SetPaused(action.Module, false)
	case ActionParamUpdate:
		return e.state.ParamStoreSet(action.ParamKey, action.ParamValue)
	case ActionAdminTransfer:
		if e.admins == nil {
			return fmt.Errorf("governance engine: admin transfer not wired: %w", nativecommon.ErrInvalidState)
		}
		return e.admins.TransferAdmin(action.From, action.To)
	default:
		return fmt.Errorf("governance engine: action kind %q: %w", action.Kind, nativecommon.ErrInvalidState)
	}
}

// GetProposal returns a copy of the stored proposal.
func (e *Engine) GetProposal(id uint64) (*Proposal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	proposal, err := e.loadProposal(id)
	if err != nil {
		return nil, err
	}
	return proposal.Clone(), nil
}

// GetVote returns the recorded ballot for the voter, if any.
func (e *Engine) GetVote(id uint64, voter [20]byte) (*Vote, bool, error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	if _, err := e.loadProposal(id); err != nil {
		return nil, false, err
	}
	vote, ok, err := e.state.GovernanceGetVote(id, voter)
	if err != nil || !ok {
		return nil, false, err
	}
	return vote.Clone(), true, nil
}
