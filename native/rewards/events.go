package rewards

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"crp/core/types"
)

const (
	// EventTypeRewardPoolCreated is emitted when an admin allocates a pool.
	EventTypeRewardPoolCreated = "rewards.poolCreated"
	// EventTypeStaked is emitted for each accepted stake.
	EventTypeStaked = "rewards.staked"
	// EventTypeUnstaked is emitted when principal returns to the holder.
	EventTypeUnstaked = "rewards.unstaked"
	// EventTypeDistributed is emitted when rewards enter the pool.
	EventTypeDistributed = "rewards.distributed"
	// EventTypeClaimed is emitted for each reward payout, including the
	// implicit settlement that precedes stake changes.
	EventTypeClaimed = "rewards.claimed"
)

type rewardsEvent struct {
	evt *types.Event
}

func (r rewardsEvent) EventType() string {
	if r.evt == nil {
		return ""
	}
	return r.evt.Type
}

func (r rewardsEvent) Event() *types.Event { return r.evt }

func stakeAttrs(actor [20]byte, poolID uint64, amount *big.Int) map[string]string {
	attrs := map[string]string{
		"actor": hex.EncodeToString(actor[:]),
		"id":    strconv.FormatUint(poolID, 10),
	}
	if amount != nil {
		attrs["amount"] = amount.String()
	}
	return attrs
}

func newRewardPoolCreatedEvent(actor [20]byte, poolID uint64) *types.Event {
	return &types.Event{Type: EventTypeRewardPoolCreated, Attributes: stakeAttrs(actor, poolID, nil)}
}

func newStakedEvent(actor [20]byte, poolID uint64, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeStaked, Attributes: stakeAttrs(actor, poolID, amount)}
}

func newUnstakedEvent(actor [20]byte, poolID uint64, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeUnstaked, Attributes: stakeAttrs(actor, poolID, amount)}
}

func newRewardsDistributedEvent(actor [20]byte, poolID uint64, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeDistributed, Attributes: stakeAttrs(actor, poolID, amount)}
}

func newRewardsClaimedEvent(actor [20]byte, poolID uint64, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeClaimed, Attributes: stakeAttrs(actor, poolID, amount)}
}
