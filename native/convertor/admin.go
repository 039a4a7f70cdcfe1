package convertor

import (
	"fmt"
	"math/big"
)

func (e *Engine) assertAdmin(caller string) error {
	caller, err := NormalizeToken(caller)
	if err != nil {
		return err
	}
	if caller != e.admin {
		return ErrNotAdmin
	}
	return nil
}

func (e *Engine) paused() (bool, error) {
	var paused bool
	if _, err := e.store.KVGet(pausedKey, &paused); err != nil {
		return false, err
	}
	return paused, nil
}

// Paused reports whether the ledger is administratively suspended.
func (e *Engine) Paused() (bool, error) {
	return e.paused()
}

// Pause suspends every deposit-driven entry point. Pausing an already paused
// ledger fails.
func (e *Engine) Pause(caller string) error {
	if err := e.assertAdmin(caller); err != nil {
		return err
	}
	paused, err := e.paused()
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return e.store.KVPut(pausedKey, true)
}

// Resume lifts a pause. Resuming a running ledger fails.
func (e *Engine) Resume(caller string) error {
	if err := e.assertAdmin(caller); err != nil {
		return err
	}
	paused, err := e.paused()
	if err != nil {
		return err
	}
	if !paused {
		return ErrNotPaused
	}
	return e.store.KVPut(pausedKey, false)
}

// CreatePoolDeposit returns the collateral currently required to create a
// pool.
func (e *Engine) CreatePoolDeposit() (*big.Int, error) {
	deposit := new(big.Int)
	if _, err := e.store.KVGet(createDepositKey, deposit); err != nil {
		return nil, err
	}
	return deposit, nil
}

// SetCreatePoolDeposit updates the pool-creation collateral requirement.
func (e *Engine) SetCreatePoolDeposit(caller string, amount *big.Int) error {
	if err := e.assertAdmin(caller); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	return e.store.KVPut(createDepositKey, amount)
}

// ExtendWhitelistedTokens admits the supplied tokens, overwriting metadata for
// tokens already admitted.
func (e *Engine) ExtendWhitelistedTokens(caller string, tokens []TokenInfo) error {
	if err := e.assertAdmin(caller); err != nil {
		return err
	}
	for _, info := range tokens {
		token, err := NormalizeToken(info.Token)
		if err != nil {
			return err
		}
		info.Token = token
		if err := e.putWhitelistedToken(info); err != nil {
			return fmt.Errorf("convertor: whitelist %s: %w", token, err)
		}
		e.emit(NewWhitelistTokenAddedEvent(info))
	}
	return nil
}

// RemoveWhitelistedTokens drops the supplied tokens from the whitelist.
// Removing an absent token is a no-op. Existing pools keep operating; the
// whitelist only gates pool creation.
func (e *Engine) RemoveWhitelistedTokens(caller string, tokens []string) error {
	if err := e.assertAdmin(caller); err != nil {
		return err
	}
	for _, token := range tokens {
		token, err := NormalizeToken(token)
		if err != nil {
			return err
		}
		if err := e.removeWhitelistedToken(token); err != nil {
			return fmt.Errorf("convertor: whitelist remove %s: %w", token, err)
		}
		e.emit(NewWhitelistTokenRemovedEvent(token))
	}
	return nil
}
