package convertor

import (
	"fmt"
	"math/big"
)

// QuotaParams prices the persistence cost of an account record. The byte
// layout mirrors the stored record: a fixed base covering the keyed record
// itself plus a per-entry cost for every custodial token balance.
type QuotaParams struct {
	// ByteCost is the price of persisting one byte, in quota currency units.
	ByteCost *big.Int
	// BaseBytes covers the account key, envelope tag, quota balance and the
	// token map header.
	BaseBytes uint64
	// EntryBytes covers one token identifier key plus one 128-bit balance.
	EntryBytes uint64
}

// DefaultQuotaParams returns the byte layout of the current account record
// with unit byte pricing. Deployments override ByteCost to match the host's
// storage pricing.
func DefaultQuotaParams() QuotaParams {
	return QuotaParams{
		ByteCost:   big.NewInt(1),
		BaseBytes:  90,
		EntryBytes: 84,
	}
}

// AccountLedger persists account records and enforces the storage-quota
// discipline on every mutation.
type AccountLedger struct {
	store Storage
	quota QuotaParams
}

// NewAccountLedger constructs a ledger bound to the provided storage backend.
func NewAccountLedger(store Storage) *AccountLedger {
	return &AccountLedger{store: store, quota: DefaultQuotaParams()}
}

// SetQuotaParams overrides the storage pricing, primarily for configuration
// and deterministic tests.
func (l *AccountLedger) SetQuotaParams(params QuotaParams) {
	if l == nil {
		return
	}
	if params.ByteCost == nil {
		params.ByteCost = big.NewInt(1)
	}
	l.quota = params
}

// Get retrieves the account record by participant identifier.
func (l *AccountLedger) Get(accountID string) (*Account, bool, error) {
	if l == nil || l.store == nil {
		return nil, false, fmt.Errorf("convertor: account ledger not initialised")
	}
	var env accountEnvelope
	ok, err := l.store.KVGet(accountKey(accountID), &env)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	account, err := upgradeAccount(&env)
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

// GetOrCreate loads the account, returning a fresh empty record when the
// participant has not registered yet. The record is not persisted until the
// caller saves it.
func (l *AccountLedger) GetOrCreate(accountID string) (*Account, error) {
	account, ok, err := l.Get(accountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewAccount(), nil
	}
	return account, nil
}

// Save persists the account. With checkQuota set the write is refused with
// ErrQuotaDebt when the record's storage cost is not covered, leaving the
// stored state unchanged.
func (l *AccountLedger) Save(accountID string, account *Account, checkQuota bool) error {
	if account == nil {
		return fmt.Errorf("convertor: account must not be nil")
	}
	if checkQuota {
		if debt := l.Debt(account); debt.Sign() > 0 {
			return fmt.Errorf("%w: owes %s", ErrQuotaDebt, debt)
		}
	}
	return l.store.KVPut(accountKey(accountID), toStoredAccount(account))
}

// Apply loads the account, runs the mutation closure against an in-memory
// copy and persists the result. Any closure error, or a quota debt when
// checkQuota is set, aborts the whole operation with nothing written.
func (l *AccountLedger) Apply(accountID string, checkQuota bool, fn func(*Account) error) error {
	account, ok, err := l.Get(accountID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	if err := fn(account); err != nil {
		return err
	}
	return l.Save(accountID, account, checkQuota)
}

// ApplyOrCreate behaves like Apply but registers the account lazily when it
// does not exist yet.
func (l *AccountLedger) ApplyOrCreate(accountID string, checkQuota bool, fn func(*Account) error) error {
	account, err := l.GetOrCreate(accountID)
	if err != nil {
		return err
	}
	if err := fn(account); err != nil {
		return err
	}
	return l.Save(accountID, account, checkQuota)
}

// DepositToken credits a custodial token balance, creating the account when
// absent. Compensation credits must never bounce, so no quota check applies.
func (l *AccountLedger) DepositToken(accountID, token string, amount *big.Int) error {
	return l.ApplyOrCreate(accountID, false, func(account *Account) error {
		return account.DepositToken(token, amount)
	})
}

// RequiredQuota computes the persistence cost of the account's current record
// size.
func (l *AccountLedger) RequiredQuota(account *Account) *big.Int {
	bytes := new(big.Int).SetUint64(l.quota.BaseBytes)
	entries := new(big.Int).SetUint64(l.quota.EntryBytes)
	entries.Mul(entries, big.NewInt(int64(account.TokenEntryCount())))
	bytes.Add(bytes, entries)
	return bytes.Mul(bytes, l.quota.ByteCost)
}

// Debt returns max(0, required - held).
func (l *AccountLedger) Debt(account *Account) *big.Int {
	required := l.RequiredQuota(account)
	if account.QuotaBalance.Cmp(required) >= 0 {
		return big.NewInt(0)
	}
	return required.Sub(required, account.QuotaBalance)
}

// Available returns max(0, held - required); the portion of the quota balance
// that may be withdrawn without falling into debt.
func (l *AccountLedger) Available(account *Account) *big.Int {
	required := l.RequiredQuota(account)
	if account.QuotaBalance.Cmp(required) <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(account.QuotaBalance, required)
}

// Unregister removes the account record and returns the quota balance to be
// refunded. Accounts holding custodial tokens or awaiting transfer
// acknowledgments cannot unregister.
func (l *AccountLedger) Unregister(accountID string) (*big.Int, error) {
	account, ok, err := l.Get(accountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	if account.TokenEntryCount() > 0 {
		return nil, ErrAccountNotEmpty
	}
	if account.InflightTransfers > 0 {
		return nil, ErrTransferInFlight
	}
	if err := l.store.KVDelete(accountKey(accountID)); err != nil {
		return nil, err
	}
	return cloneAmount(account.QuotaBalance), nil
}
