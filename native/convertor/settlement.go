package convertor

import (
	"fmt"
	"math/big"

	"convertord/core/events"
)

// TokenTransferrer dispatches a fungible-token transfer to the external token
// contract. Dispatch is fire-and-forget: the outcome arrives later through
// exactly one ResolveTransfer acknowledgment carrying the same
// (token, receiver, amount) triple.
type TokenTransferrer interface {
	Transfer(token, receiver string, amount *big.Int) error
}

// TransferOutcome is the acknowledged result of a dispatched transfer.
type TransferOutcome uint8

const (
	TransferSucceeded TransferOutcome = iota
	TransferFailed
)

// SettlementCoordinator runs the two-phase transfer saga: value leaves the
// ledger optimistically at dispatch time, the receiver's in-flight counter is
// raised as a lease, and only a reported failure moves value back by
// crediting the receiver's custodial balance. Success changes no balance.
//
// There is no timeout. An acknowledgment that never arrives leaves the
// counter permanently elevated; that liveness gap belongs to the host's
// delivery guarantees, not to the ledger.
type SettlementCoordinator struct {
	ledger      *AccountLedger
	transferrer TokenTransferrer
	emitter     events.Emitter
}

// NewSettlementCoordinator wires the coordinator with a no-op emitter. Callers
// can override the emitter via SetEmitter.
func NewSettlementCoordinator(ledger *AccountLedger, transferrer TokenTransferrer) *SettlementCoordinator {
	return &SettlementCoordinator{
		ledger:      ledger,
		transferrer: transferrer,
		emitter:     events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (c *SettlementCoordinator) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		c.emitter = events.NoopEmitter{}
		return
	}
	c.emitter = emitter
}

func (c *SettlementCoordinator) emit(evt convertorEvent) {
	if c == nil || c.emitter == nil || evt.evt == nil {
		return
	}
	c.emitter.Emit(evt)
}

// Initiate dispatches an external transfer to the receiver. The receiver must
// carry no quota debt; its in-flight counter is raised and persisted before
// the dispatch so unregistration cannot race ahead of the acknowledgment. A
// synchronous dispatch error rolls the counter back and aborts. Zero amounts
// are a no-op.
func (c *SettlementCoordinator) Initiate(receiver, token string, amount *big.Int) error {
	if c == nil || c.ledger == nil || c.transferrer == nil {
		return fmt.Errorf("convertor: settlement coordinator not initialised")
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	account, err := c.ledger.GetOrCreate(receiver)
	if err != nil {
		return err
	}
	if debt := c.ledger.Debt(account); debt.Sign() > 0 {
		return fmt.Errorf("%w: owes %s", ErrQuotaDebt, debt)
	}
	account.incInflight()
	if err := c.ledger.Save(receiver, account, false); err != nil {
		return err
	}
	if err := c.transferrer.Transfer(token, receiver, amount); err != nil {
		// Dispatch never reached the external contract, so no acknowledgment
		// will arrive; release the lease.
		rollbackErr := c.ledger.Apply(receiver, false, func(account *Account) error {
			return account.decInflight()
		})
		if rollbackErr != nil {
			return fmt.Errorf("convertor: dispatch failed (%v) and lease rollback failed: %w", err, rollbackErr)
		}
		return fmt.Errorf("convertor: transfer dispatch failed: %w", err)
	}
	c.emit(convertorEvent{evt: NewTransferDispatchedEvent(receiver, token, amount.String())})
	return nil
}

// Resolve consumes the single acknowledgment expected for a dispatched
// transfer. On success only the lease is released; the external system holds
// the asset. On failure the dispatched amount is credited back to the
// receiver's custodial balance so no value is destroyed. An acknowledgment
// for an account without an outstanding dispatch is a protocol violation.
func (c *SettlementCoordinator) Resolve(token, receiver string, amount *big.Int, outcome TransferOutcome) error {
	if c == nil || c.ledger == nil {
		return fmt.Errorf("convertor: settlement coordinator not initialised")
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	account, ok, err := c.ledger.Get(receiver)
	if err != nil {
		return err
	}
	if !ok || account.InflightTransfers == 0 {
		return fmt.Errorf("%w: no dispatch outstanding for %s", ErrUnexpectedAck, receiver)
	}
	switch outcome {
	case TransferSucceeded:
		if err := account.decInflight(); err != nil {
			return err
		}
		if err := c.ledger.Save(receiver, account, false); err != nil {
			return err
		}
		c.emit(convertorEvent{evt: NewTransferSettledEvent(receiver, token, amount.String())})
		return nil
	case TransferFailed:
		if err := account.DepositToken(token, amount); err != nil {
			return err
		}
		if err := account.decInflight(); err != nil {
			return err
		}
		if err := c.ledger.Save(receiver, account, false); err != nil {
			return err
		}
		c.emit(convertorEvent{evt: NewTransferCompensatedEvent(receiver, token, amount.String())})
		return nil
	default:
		return fmt.Errorf("%w: unknown outcome %d", ErrUnexpectedAck, outcome)
	}
}
