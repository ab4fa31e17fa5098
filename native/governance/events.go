package governance

import (
	"encoding/hex"
	"strconv"

	"crp/core/types"
)

const (
	// EventTypeProposalCreated is emitted when a member submits a proposal.
	EventTypeProposalCreated = "governance.proposalCreated"
	// EventTypeProposalActivated is emitted when voting opens.
	EventTypeProposalActivated = "governance.proposalActivated"
	// EventTypeVoteCast is emitted for each accepted ballot.
	EventTypeVoteCast = "governance.voteCast"
	// EventTypeProposalFinalized is emitted when voting is settled.
	EventTypeProposalFinalized = "governance.proposalFinalized"
	// EventTypeProposalExecuted is emitted after the action is applied.
	EventTypeProposalExecuted = "governance.proposalExecuted"
)

type governanceEvent struct {
	evt *types.Event
}

func (g governanceEvent) EventType() string {
	if g.evt == nil {
		return ""
	}
	return g.evt.Type
}

func (g governanceEvent) Event() *types.Event { return g.evt }

func baseAttrs(p *Proposal) map[string]string {
	attrs := map[string]string{}
	if p != nil {
		attrs["id"] = strconv.FormatUint(p.ID, 10)
		attrs["status"] = p.Status.String()
		attrs["mechanism"] = p.Mechanism.String()
	}
	return attrs
}

func newProposalCreatedEvent(p *Proposal) *types.Event {
	attrs := baseAttrs(p)
	if p != nil {
		attrs["proposer"] = hex.EncodeToString(p.Proposer[:])
		attrs["title"] = p.Title
		if p.Threshold != nil {
			attrs["threshold"] = p.Threshold.String()
		}
		if p.Action != nil {
			attrs["action"] = string(p.Action.Kind)
		}
	}
	return &types.Event{Type: EventTypeProposalCreated, Attributes: attrs}
}

func newProposalActivatedEvent(actor [20]byte, p *Proposal) *types.Event {
	attrs := baseAttrs(p)
	attrs["actor"] = hex.EncodeToString(actor[:])
	return &types.Event{Type: EventTypeProposalActivated, Attributes: attrs}
}

func newVoteCastEvent(p *Proposal, v *Vote) *types.Event {
	attrs := baseAttrs(p)
	if v != nil {
		attrs["voter"] = hex.EncodeToString(v.Voter[:])
		attrs["choice"] = v.Choice.String()
		if v.Weight != nil {
			attrs["weight"] = v.Weight.String()
		}
	}
	return &types.Event{Type: EventTypeVoteCast, Attributes: attrs}
}

func newProposalFinalizedEvent(actor [20]byte, p *Proposal) *types.Event {
	attrs := baseAttrs(p)
	attrs["actor"] = hex.EncodeToString(actor[:])
	if p != nil {
		if p.YesVotes != nil {
			attrs["yes"] = p.YesVotes.String()
		}
		if p.NoVotes != nil {
			attrs["no"] = p.NoVotes.String()
		}
		if p.AbstainVotes != nil {
			attrs["abstain"] = p.AbstainVotes.String()
		}
	}
	return &types.Event{Type: EventTypeProposalFinalized, Attributes: attrs}
}

func newProposalExecutedEvent(actor [20]byte, p *Proposal) *types.Event {
	attrs := baseAttrs(p)
	attrs["actor"] = hex.EncodeToString(actor[:])
	return &types.Event{Type: EventTypeProposalExecuted, Attributes: attrs}
}
