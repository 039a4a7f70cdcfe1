package convertor

import (
	"strconv"

	"convertord/core/types"
)

const (
	EventTypePoolCreated           = "convertor.pool.created"
	EventTypePoolUpdated           = "convertor.pool.updated"
	EventTypePoolDeleted           = "convertor.pool.deleted"
	EventTypeTransferDispatched    = "convertor.transfer.dispatched"
	EventTypeTransferSettled       = "convertor.transfer.settled"
	EventTypeTransferCompensated   = "convertor.transfer.compensated"
	EventTypeAccountUnregistered   = "convertor.account.unregistered"
	EventTypeWhitelistTokenAdded   = "convertor.whitelist.added"
	EventTypeWhitelistTokenRemoved = "convertor.whitelist.removed"
)

type convertorEvent struct {
	evt *types.Event
}

func (e convertorEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e convertorEvent) Event() *types.Event { return e.evt }

// NewPoolCreatedEvent returns the canonical payload for a newly created pool.
func NewPoolCreatedEvent(p *ConversionPool) *types.Event {
	return newPoolEvent(EventTypePoolCreated, p)
}

// NewPoolUpdatedEvent returns the canonical payload emitted whenever pool
// balances change through convert, liquidity or withdraw operations.
func NewPoolUpdatedEvent(p *ConversionPool) *types.Event {
	return newPoolEvent(EventTypePoolUpdated, p)
}

// NewPoolDeletedEvent returns the payload emitted when an empty pool is
// removed from the registry.
func NewPoolDeletedEvent(id PoolID) *types.Event {
	return &types.Event{Type: EventTypePoolDeleted, Attributes: map[string]string{
		"poolId": strconv.FormatUint(uint64(id), 10),
	}}
}

// NewTransferDispatchedEvent records that value left the ledger pending the
// external acknowledgment.
func NewTransferDispatchedEvent(receiver, token, amount string) *types.Event {
	return newTransferEvent(EventTypeTransferDispatched, receiver, token, amount)
}

// NewTransferSettledEvent records a successful external acknowledgment.
func NewTransferSettledEvent(receiver, token, amount string) *types.Event {
	return newTransferEvent(EventTypeTransferSettled, receiver, token, amount)
}

// NewTransferCompensatedEvent records that a failed external transfer was
// credited back into the receiver's custodial balance.
func NewTransferCompensatedEvent(receiver, token, amount string) *types.Event {
	return newTransferEvent(EventTypeTransferCompensated, receiver, token, amount)
}

// NewAccountUnregisteredEvent records the removal of an account record and the
// quota refunded to its owner.
func NewAccountUnregisteredEvent(accountID, refunded string) *types.Event {
	return &types.Event{Type: EventTypeAccountUnregistered, Attributes: map[string]string{
		"account":  accountID,
		"refunded": refunded,
	}}
}

// NewWhitelistTokenAddedEvent records an admin whitelist extension.
func NewWhitelistTokenAddedEvent(info TokenInfo) *types.Event {
	return &types.Event{Type: EventTypeWhitelistTokenAdded, Attributes: map[string]string{
		"token":    info.Token,
		"decimals": strconv.FormatUint(uint64(info.Decimals), 10),
	}}
}

// NewWhitelistTokenRemovedEvent records an admin whitelist removal.
func NewWhitelistTokenRemovedEvent(token string) *types.Event {
	return &types.Event{Type: EventTypeWhitelistTokenRemoved, Attributes: map[string]string{
		"token": token,
	}}
}

func newPoolEvent(eventType string, p *ConversionPool) *types.Event {
	attrs := make(map[string]string)
	if p == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["poolId"] = strconv.FormatUint(uint64(p.ID), 10)
	attrs["creator"] = p.Creator
	attrs["inToken"] = p.InToken
	attrs["inTokenBalance"] = cloneAmount(p.InTokenBalance).String()
	attrs["outToken"] = p.OutToken
	attrs["outTokenBalance"] = cloneAmount(p.OutTokenBalance).String()
	attrs["reversible"] = strconv.FormatBool(p.Reversible)
	attrs["inTokenRate"] = strconv.FormatUint(uint64(p.InTokenRate), 10)
	attrs["outTokenRate"] = strconv.FormatUint(uint64(p.OutTokenRate), 10)
	attrs["depositAmount"] = cloneAmount(p.DepositAmount).String()
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newTransferEvent(eventType, receiver, token, amount string) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"receiver": receiver,
		"token":    token,
		"amount":   amount,
	}}
}
