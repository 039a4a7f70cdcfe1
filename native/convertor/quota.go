package convertor

import (
	"fmt"
	"math/big"
)

// QuotaDeposit credits funds toward the caller's storage quota, registering
// the account lazily. The resulting balance must clear any outstanding debt.
func (e *Engine) QuotaDeposit(caller string, amount *big.Int) error {
	caller, err := NormalizeToken(caller)
	if err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	return e.ledger.ApplyOrCreate(caller, true, func(account *Account) error {
		updated, err := checkedAdd(account.QuotaBalance, amount)
		if err != nil {
			return err
		}
		account.QuotaBalance = updated
		return nil
	})
}

// QuotaWithdraw returns quota funds to the caller, capped at the available
// balance so the record's persistence cost stays covered. A nil amount
// withdraws everything available. The refund leaves synchronously through the
// QuotaRefunder.
func (e *Engine) QuotaWithdraw(caller string, amount *big.Int) (*big.Int, error) {
	caller, err := NormalizeToken(caller)
	if err != nil {
		return nil, err
	}
	withdrawn := big.NewInt(0)
	err = e.ledger.Apply(caller, true, func(account *Account) error {
		available := e.ledger.Available(account)
		if amount == nil {
			withdrawn = available
		} else {
			if err := checkAmount(amount); err != nil {
				return err
			}
			if amount.Cmp(available) > 0 {
				return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientQuota, available, amount)
			}
			withdrawn = cloneAmount(amount)
		}
		account.QuotaBalance = new(big.Int).Sub(account.QuotaBalance, withdrawn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if withdrawn.Sign() > 0 && e.refunder != nil {
		if err := e.refunder.Refund(caller, withdrawn); err != nil {
			return nil, fmt.Errorf("convertor: quota refund failed: %w", err)
		}
	}
	return withdrawn, nil
}

// WithdrawAccountToken drains the caller's custodial balance of the token and
// releases it through the settlement pipeline. The custodial entry is removed
// before dispatch; a synchronous dispatch failure re-credits it.
func (e *Engine) WithdrawAccountToken(caller, token string) (*big.Int, error) {
	caller, err := NormalizeToken(caller)
	if err != nil {
		return nil, err
	}
	token, err = NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	amount := big.NewInt(0)
	err = e.ledger.Apply(caller, true, func(account *Account) error {
		withdrawn, err := account.WithdrawAllToken(token)
		if err != nil {
			return err
		}
		amount = withdrawn
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := e.settlement.Initiate(caller, token, amount); err != nil {
		if restoreErr := e.ledger.DepositToken(caller, token, amount); restoreErr != nil {
			return nil, fmt.Errorf("convertor: dispatch failed (%v) and custodial restore failed: %w", err, restoreErr)
		}
		return nil, err
	}
	return amount, nil
}

// Unregister removes the caller's account record. The account must hold no
// custodial tokens and have no transfers awaiting acknowledgment; the
// remaining quota balance is refunded.
func (e *Engine) Unregister(caller string) (*big.Int, error) {
	caller, err := NormalizeToken(caller)
	if err != nil {
		return nil, err
	}
	refunded, err := e.ledger.Unregister(caller)
	if err != nil {
		return nil, err
	}
	if refunded.Sign() > 0 && e.refunder != nil {
		if err := e.refunder.Refund(caller, refunded); err != nil {
			return nil, fmt.Errorf("convertor: unregister refund failed: %w", err)
		}
	}
	e.emit(NewAccountUnregisteredEvent(caller, refunded.String()))
	return refunded, nil
}
