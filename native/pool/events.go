package pool

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"crp/core/types"
)

const (
	// EventTypePoolCreated is emitted when an admin allocates a new pool.
	EventTypePoolCreated = "pool.created"
	// EventTypePoolJoined is emitted for each accepted contribution.
	EventTypePoolJoined = "pool.joined"
	// EventTypeFundingFinalized is emitted when raised funds are released.
	EventTypeFundingFinalized = "pool.fundingFinalized"
	// EventTypeLoanRepaid is emitted when the borrower settles the loan.
	EventTypeLoanRepaid = "pool.loanRepaid"
	// EventTypeRepaymentClaimed is emitted for each investor payout.
	EventTypeRepaymentClaimed = "pool.repaymentClaimed"
	// EventTypePoolDefaulted is emitted when a pool is marked defaulted.
	EventTypePoolDefaulted = "pool.defaulted"
)

type poolEvent struct {
	evt *types.Event
}

func (p poolEvent) EventType() string {
	if p.evt == nil {
		return ""
	}
	return p.evt.Type
}

func (p poolEvent) Event() *types.Event { return p.evt }

func baseAttrs(actor [20]byte, p *Pool) map[string]string {
	attrs := map[string]string{
		"actor": hex.EncodeToString(actor[:]),
	}
	if p != nil {
		attrs["id"] = strconv.FormatUint(p.ID, 10)
		attrs["status"] = p.Status.String()
	}
	return attrs
}

func newPoolCreatedEvent(actor [20]byte, p *Pool) *types.Event {
	attrs := baseAttrs(actor, p)
	if p != nil {
		attrs["borrower"] = hex.EncodeToString(p.Borrower[:])
		if p.TargetAmount != nil {
			attrs["target"] = p.TargetAmount.String()
		}
		attrs["interestRateBps"] = strconv.FormatUint(p.InterestRateBps, 10)
		attrs["durationSeconds"] = strconv.FormatUint(p.DurationSeconds, 10)
	}
	return &types.Event{Type: EventTypePoolCreated, Attributes: attrs}
}

func newPoolJoinedEvent(actor [20]byte, p *Pool, amount *big.Int) *types.Event {
	attrs := baseAttrs(actor, p)
	if amount != nil {
		attrs["amount"] = amount.String()
	}
	if p != nil && p.CurrentTotal != nil {
		attrs["currentTotal"] = p.CurrentTotal.String()
	}
	return &types.Event{Type: EventTypePoolJoined, Attributes: attrs}
}

func newFundingFinalizedEvent(actor [20]byte, p *Pool) *types.Event {
	attrs := baseAttrs(actor, p)
	if p != nil && p.CurrentTotal != nil {
		attrs["released"] = p.CurrentTotal.String()
	}
	return &types.Event{Type: EventTypeFundingFinalized, Attributes: attrs}
}

func newLoanRepaidEvent(actor [20]byte, p *Pool, repayment *big.Int) *types.Event {
	attrs := baseAttrs(actor, p)
	if repayment != nil {
		attrs["repayment"] = repayment.String()
	}
	return &types.Event{Type: EventTypeLoanRepaid, Attributes: attrs}
}

func newRepaymentClaimedEvent(actor [20]byte, p *Pool, amount *big.Int) *types.Event {
	attrs := baseAttrs(actor, p)
	if amount != nil {
		attrs["amount"] = amount.String()
	}
	return &types.Event{Type: EventTypeRepaymentClaimed, Attributes: attrs}
}

func newPoolDefaultedEvent(actor [20]byte, p *Pool) *types.Event {
	return &types.Event{Type: EventTypePoolDefaulted, Attributes: baseAttrs(actor, p)}
}
