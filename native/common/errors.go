package common

import "errors"

// Shared error kinds returned by the native engines. Engines wrap these with
// module-specific context so call sites can classify failures with errors.Is
// while logs still carry the originating engine.
var (
	// ErrNotAuthorized indicates the caller's registered role does not admit
	// the attempted operation.
	ErrNotAuthorized = errors.New("caller role not authorized")
	// ErrNotCompliant indicates the caller is not on the compliance whitelist.
	ErrNotCompliant = errors.New("caller not whitelisted")
	// ErrNotFound indicates the referenced registry, pool, or proposal does
	// not exist.
	ErrNotFound = errors.New("record not found")
	// ErrZeroAmount indicates an amount parameter that must be positive.
	ErrZeroAmount = errors.New("amount must be positive")
	// ErrInsufficientBalance indicates the account or vault lacks funds.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientShares indicates a burn exceeding the holder's balance.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrInvalidState indicates an operation attempted from the wrong
	// lifecycle state.
	ErrInvalidState = errors.New("invalid lifecycle state")
	// ErrAlreadyClaimed indicates a duplicate repayment claim.
	ErrAlreadyClaimed = errors.New("already claimed")
	// ErrAlreadyVoted indicates a duplicate ballot on the same proposal.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrAlreadyExecuted indicates a duplicate proposal execution.
	ErrAlreadyExecuted = errors.New("already executed")
	// ErrNoStakers indicates a reward distribution against zero total stake.
	ErrNoStakers = errors.New("no stakers")
	// ErrUnsupportedMechanism indicates a reserved voting mechanism.
	ErrUnsupportedMechanism = errors.New("unsupported voting mechanism")
)
