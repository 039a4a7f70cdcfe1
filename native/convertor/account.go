package convertor

import (
	"fmt"
	"math/big"
)

// Account tracks a participant's storage-quota balance, the custodial token
// balances that could not be delivered externally, and the number of external
// transfers still awaiting acknowledgment.
type Account struct {
	QuotaBalance *big.Int
	// Tokens only ever holds whitelisted assets, keyed by token identifier.
	Tokens            map[string]*big.Int
	InflightTransfers uint32
}

// NewAccount returns an empty account record.
func NewAccount() *Account {
	return &Account{
		QuotaBalance: big.NewInt(0),
		Tokens:       make(map[string]*big.Int),
	}
}

// Clone returns a deep copy to avoid callers mutating shared pointers.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{
		QuotaBalance:      cloneAmount(a.QuotaBalance),
		Tokens:            make(map[string]*big.Int, len(a.Tokens)),
		InflightTransfers: a.InflightTransfers,
	}
	for token, amount := range a.Tokens {
		clone.Tokens[token] = cloneAmount(amount)
	}
	return clone
}

// DepositToken credits the custodial balance for the token, creating the entry
// when absent.
func (a *Account) DepositToken(token string, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	current, ok := a.Tokens[token]
	if !ok {
		current = big.NewInt(0)
	}
	updated, err := checkedAdd(current, amount)
	if err != nil {
		return err
	}
	a.Tokens[token] = updated
	return nil
}

// WithdrawAllToken drains and removes the token entry, returning the prior
// balance. A missing entry fails with ErrNoTokenBalance; a drained entry no
// longer exists, so repeating the call fails the same way.
func (a *Account) WithdrawAllToken(token string) (*big.Int, error) {
	balance, ok := a.Tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTokenBalance, token)
	}
	delete(a.Tokens, token)
	return cloneAmount(balance), nil
}

// TokenEntryCount reports how many distinct custodial assets the account
// holds. The storage quota requirement scales with this count.
func (a *Account) TokenEntryCount() int {
	return len(a.Tokens)
}

func (a *Account) incInflight() {
	a.InflightTransfers++
}

func (a *Account) decInflight() error {
	if a.InflightTransfers == 0 {
		return ErrUnexpectedAck
	}
	a.InflightTransfers--
	return nil
}
