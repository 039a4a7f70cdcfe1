package convertor

import (
	"fmt"
	"math/big"
)

// Convert swaps input tokens for the opposite side of the pool at the fixed
// rate. It returns the released token and amount. Both balance mutations are
// applied together after every check has passed, so a failed conversion leaves
// the pool untouched.
func (p *ConversionPool) Convert(inputToken string, inputAmount *big.Int) (string, *big.Int, error) {
	if err := p.checkInputTokenLegal(inputToken); err != nil {
		return "", nil, err
	}
	if err := checkAmount(inputAmount); err != nil {
		return "", nil, err
	}
	if inputToken == p.InToken {
		outputAmount, err := ConvertForward(inputAmount, p.InTokenRate, p.OutTokenRate)
		if err != nil {
			return "", nil, err
		}
		if p.OutTokenBalance.Cmp(outputAmount) < 0 {
			return "", nil, fmt.Errorf("%w: pool holds %s %s, conversion needs %s",
				ErrInsufficientPoolBalance, p.OutTokenBalance, p.OutToken, outputAmount)
		}
		newIn, err := checkedAdd(p.InTokenBalance, inputAmount)
		if err != nil {
			return "", nil, err
		}
		newOut, err := checkedSub(p.OutTokenBalance, outputAmount)
		if err != nil {
			return "", nil, err
		}
		p.InTokenBalance, p.OutTokenBalance = newIn, newOut
		return p.OutToken, outputAmount, nil
	}
	outputAmount, err := ConvertReverse(inputAmount, p.InTokenRate, p.OutTokenRate)
	if err != nil {
		return "", nil, err
	}
	if p.InTokenBalance.Cmp(outputAmount) < 0 {
		return "", nil, fmt.Errorf("%w: pool holds %s %s, conversion needs %s",
			ErrInsufficientPoolBalance, p.InTokenBalance, p.InToken, outputAmount)
	}
	newOut, err := checkedAdd(p.OutTokenBalance, inputAmount)
	if err != nil {
		return "", nil, err
	}
	newIn, err := checkedSub(p.InTokenBalance, outputAmount)
	if err != nil {
		return "", nil, err
	}
	p.InTokenBalance, p.OutTokenBalance = newIn, newOut
	return p.InToken, outputAmount, nil
}

// AddLiquidity credits the matching side of the pool. Unlike Convert it
// accepts either token regardless of reversibility.
func (p *ConversionPool) AddLiquidity(token string, amount *big.Int) error {
	if token != p.InToken && token != p.OutToken {
		return fmt.Errorf("%w: %s, pool accepts %s or %s", ErrIllegalToken, token, p.InToken, p.OutToken)
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if token == p.InToken {
		newBalance, err := checkedAdd(p.InTokenBalance, amount)
		if err != nil {
			return err
		}
		p.InTokenBalance = newBalance
		return nil
	}
	newBalance, err := checkedAdd(p.OutTokenBalance, amount)
	if err != nil {
		return err
	}
	p.OutTokenBalance = newBalance
	return nil
}

// Withdraw removes liquidity from the matching side of the pool and returns
// the released amount. Passing a nil amount drains the balance to zero.
func (p *ConversionPool) Withdraw(token string, amount *big.Int) (*big.Int, error) {
	if token != p.InToken && token != p.OutToken {
		return nil, fmt.Errorf("%w: %s, pool accepts %s or %s", ErrIllegalToken, token, p.InToken, p.OutToken)
	}
	balance := p.InTokenBalance
	if token == p.OutToken {
		balance = p.OutTokenBalance
	}
	if amount == nil {
		released := cloneAmount(balance)
		if token == p.InToken {
			p.InTokenBalance = big.NewInt(0)
		} else {
			p.OutTokenBalance = big.NewInt(0)
		}
		return released, nil
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: pool holds %s %s, withdraw requested %s",
			ErrInsufficientPoolBalance, balance, token, amount)
	}
	newBalance, err := checkedSub(balance, amount)
	if err != nil {
		return nil, err
	}
	if token == p.InToken {
		p.InTokenBalance = newBalance
	} else {
		p.OutTokenBalance = newBalance
	}
	return cloneAmount(amount), nil
}

// EnsureDeletable reports whether the pool may be removed from the registry.
// Only pools with both balances at exactly zero qualify.
func (p *ConversionPool) EnsureDeletable() error {
	if p.InTokenBalance.Sign() != 0 || p.OutTokenBalance.Sign() != 0 {
		return ErrPoolNotEmpty
	}
	return nil
}

func (p *ConversionPool) checkInputTokenLegal(token string) error {
	if token != p.InToken && token != p.OutToken {
		return fmt.Errorf("%w: %s, pool accepts %s or %s", ErrIllegalToken, token, p.InToken, p.OutToken)
	}
	if token == p.OutToken && !p.Reversible {
		return ErrDirectionNotAllowed
	}
	return nil
}

// checkedAdd and checkedSub keep every balance inside the unsigned 128-bit
// range. Violations abort the enclosing operation instead of wrapping.
func checkedAdd(balance, amount *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(balance, amount)
	if sum.Cmp(maxUint128) > 0 {
		return nil, ErrBalanceOverflow
	}
	return sum, nil
}

func checkedSub(balance, amount *big.Int) (*big.Int, error) {
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientPoolBalance
	}
	return new(big.Int).Sub(balance, amount), nil
}
