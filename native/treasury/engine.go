package treasury

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"crp/core/events"
	"crp/core/types"
	nativecommon "crp/native/common"
)

const (
	// EventTypeDeposit is emitted when external value is credited to an account.
	EventTypeDeposit = "treasury.deposit"
	// EventTypeWithdraw is emitted when an account releases value back out.
	EventTypeWithdraw = "treasury.withdraw"
)

const moduleName = "treasury"

var errNilState = errors.New("treasury engine: state not configured")

type engineState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// ComplianceGate authorizes deposits and withdrawals. The compliance engine
// satisfies it.
type ComplianceGate interface {
	RequireWhitelisted(addr [20]byte) error
}

// Engine is the general-purpose per-identity deposit/withdrawal ledger. Value
// enters the system through Deposit (settlement of an off-ledger transfer)
// and leaves through Withdraw; everything in between moves via the pool and
// reward engines.
type Engine struct {
	state      engineState
	compliance ComplianceGate
	emitter    events.Emitter
	pauses     nativecommon.PauseView
}

// NewEngine constructs a treasury engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetComplianceGate wires the whitelist gate applied to every movement.
func (e *Engine) SetComplianceGate(gate ComplianceGate) { e.compliance = gate }

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
	e.emitter.Emit(treasuryEvent{evt: event})
}

func (e *Engine) requireCompliant(addr [20]byte) error {
	if e.compliance == nil {
		return fmt.Errorf("treasury engine: %w", nativecommon.ErrNotCompliant)
	}
	return e.compliance.RequireWhitelisted(addr)
}

// Deposit credits the identity's account. The caller must be whitelisted.
func (e *Engine) Deposit(addr [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("treasury engine: %w", nativecommon.ErrZeroAmount)
	}
	if err := e.requireCompliant(addr); err != nil {
		return err
	}
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	account = types.EnsureBalance(account)
	account.Balance = new(big.Int).Add(account.Balance, amount)
	if err := e.state.PutAccount(addr, account); err != nil {
		return err
	}
	e.emit(newMovementEvent(EventTypeDeposit, addr, amount))
	return nil
}

// Withdraw debits the identity's account. The caller must be whitelisted and
// hold sufficient balance.
func (e *Engine) Withdraw(addr [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("treasury engine: %w", nativecommon.ErrZeroAmount)
	}
	if err := e.requireCompliant(addr); err != nil {
		return err
	}
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	account = types.EnsureBalance(account)
	if account.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("treasury engine: %w", nativecommon.ErrInsufficientBalance)
	}
	account.Balance = new(big.Int).Sub(account.Balance, amount)
	if err := e.state.PutAccount(addr, account); err != nil {
		return err
	}
	e.emit(newMovementEvent(EventTypeWithdraw, addr, amount))
	return nil
}

// BalanceOf returns the current account balance. Missing accounts read zero.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	account = types.EnsureBalance(account)
	return new(big.Int).Set(account.Balance), nil
}

type treasuryEvent struct {
	evt *types.Event
}

func (t treasuryEvent) EventType() string {
	if t.evt == nil {
		return ""
	}
	return t.evt.Type
}

func (t treasuryEvent) Event() *types.Event { return t.evt }

func newMovementEvent(eventType string, addr [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"actor":  hex.EncodeToString(addr[:]),
		"amount": amount.String(),
	}}
}
