package governance

import "math/big"

// ProposalStatus enumerates the lifecycle phases a proposal transitions
// through from submission to execution.
type ProposalStatus uint8

const (
	// ProposalStatusUnspecified indicates the proposal has not been
	// initialised and should not appear in state.
	ProposalStatusUnspecified ProposalStatus = iota
	// ProposalStatusPending identifies freshly created proposals that are
	// not yet accepting votes.
	ProposalStatusPending
	// ProposalStatusActive identifies proposals actively accepting votes.
	ProposalStatusActive
	// ProposalStatusPassed marks proposals whose yes tally met the
	// threshold at finalization.
	ProposalStatusPassed
	// ProposalStatusRejected marks proposals that fell short of the
	// threshold at finalization.
	ProposalStatusRejected
	// ProposalStatusExecuted indicates the proposal action has been applied.
	ProposalStatusExecuted
)

// Valid reports whether the status value is within the supported range.
func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalStatusPending, ProposalStatusActive, ProposalStatusPassed,
		ProposalStatusRejected, ProposalStatusExecuted:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for logging and event emission.
func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusPending:
		return "pending"
	case ProposalStatusActive:
		return "active"
	case ProposalStatusPassed:
		return "passed"
	case ProposalStatusRejected:
		return "rejected"
	case ProposalStatusExecuted:
		return "executed"
	default:
		return "unspecified"
	}
}

// Mechanism selects how vote weight is derived from the voter's holdings.
type Mechanism string

const (
	// MechanismSimple counts one vote per member.
	MechanismSimple Mechanism = "simple"
	// MechanismTokenWeighted weighs votes by account balance.
	MechanismTokenWeighted Mechanism = "token-weighted"
	// MechanismQuadratic weighs votes by the integer square root of the
	// account balance.
	MechanismQuadratic Mechanism = "quadratic"
	// MechanismConviction is reserved and not yet implemented.
	MechanismConviction Mechanism = "conviction"
)

// Supported reports whether the mechanism can be used for new proposals.
// Conviction voting is reserved: it parses but is rejected at use.
func (m Mechanism) Supported() bool {
	switch m {
	case MechanismSimple, MechanismTokenWeighted, MechanismQuadratic:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (m Mechanism) String() string { return string(m) }

// VoteChoice enumerates the supported ballot selections.
type VoteChoice string

const (
	// VoteChoiceYes signals support for the proposal.
	VoteChoiceYes VoteChoice = "yes"
	// VoteChoiceNo signals opposition to the proposal.
	VoteChoiceNo VoteChoice = "no"
	// VoteChoiceAbstain records participation without taking a side.
	VoteChoiceAbstain VoteChoice = "abstain"
)

// Valid reports whether the vote choice is a supported selection.
func (c VoteChoice) Valid() bool {
	switch c {
	case VoteChoiceYes, VoteChoiceNo, VoteChoiceAbstain:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (c VoteChoice) String() string { return string(c) }

// ActionKind selects the state change applied when a passed proposal executes.
type ActionKind string

const (
	// ActionNone executes without touching state.
	ActionNone ActionKind = "none"
	// ActionPause pauses a named engine module.
	ActionPause ActionKind = "pause"
	// ActionUnpause lifts a module pause.
	ActionUnpause ActionKind = "unpause"
	// ActionParamUpdate writes a named parameter into the parameter store.
	ActionParamUpdate ActionKind = "param.update"
	// ActionAdminTransfer moves admin rights to a new identity.
	ActionAdminTransfer ActionKind = "admin.transfer"
)

// Action is the optional payload applied on execution of a passed proposal.
type Action struct {
	Kind       ActionKind `json:"kind"`
	Module     string     `json:"module,omitempty"`
	ParamKey   string     `json:"paramKey,omitempty"`
	ParamValue []byte     `json:"paramValue,omitempty"`
	From       [20]byte   `json:"from,omitempty"`
	To         [20]byte   `json:"to,omitempty"`
}

// Proposal captures the metadata, tallies, and lifecycle state of one
// governance proposal.
type Proposal struct {
	ID           uint64         `json:"id"`
	Proposer     [20]byte       `json:"proposer"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Threshold    *big.Int       `json:"threshold"`
	Mechanism    Mechanism      `json:"mechanism"`
	Status       ProposalStatus `json:"status"`
	YesVotes     *big.Int       `json:"yesVotes"`
	NoVotes      *big.Int       `json:"noVotes"`
	AbstainVotes *big.Int       `json:"abstainVotes"`
	Action       *Action        `json:"action,omitempty"`
	CreatedAt    int64          `json:"createdAt"`
}

// Clone returns a deep copy safe for the caller to mutate.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Threshold = cloneBigInt(p.Threshold)
	clone.YesVotes = cloneBigInt(p.YesVotes)
	clone.NoVotes = cloneBigInt(p.NoVotes)
	clone.AbstainVotes = cloneBigInt(p.AbstainVotes)
	if p.Action != nil {
		action := *p.Action
		action.ParamValue = append([]byte(nil), p.Action.ParamValue...)
		clone.Action = &action
	}
	return &clone
}

func (p *Proposal) normalize() {
	if p.Threshold == nil {
		p.Threshold = big.NewInt(0)
	}
	if p.YesVotes == nil {
		p.YesVotes = big.NewInt(0)
	}
	if p.NoVotes == nil {
		p.NoVotes = big.NewInt(0)
	}
	if p.AbstainVotes == nil {
		p.AbstainVotes = big.NewInt(0)
	}
}

// Vote describes one member's ballot with its computed weight. Exactly one
// vote per (proposal, voter) is ever recorded.
type Vote struct {
	ProposalID uint64     `json:"proposalId"`
	Voter      [20]byte   `json:"voter"`
	Choice     VoteChoice `json:"choice"`
	Weight     *big.Int   `json:"weight"`
}

// Clone returns a deep copy safe for the caller to mutate.
func (v *Vote) Clone() *Vote {
	if v == nil {
		return nil
	}
	clone := *v
	clone.Weight = cloneBigInt(v.Weight)
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
