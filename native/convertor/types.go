package convertor

import (
	"fmt"
	"math/big"
	"strings"
)

// PoolID identifies a conversion pool. Identifiers are assigned monotonically
// by the registry and never reused after deletion.
type PoolID uint64

// TokenInfo describes a whitelisted fungible token.
type TokenInfo struct {
	Token    string
	Decimals uint8
}

// ConversionPool holds the custodial balances of one asset pair together with
// the fixed conversion rate between them. Balances only move through Convert,
// AddLiquidity and Withdraw; direct field writes would bypass the checked
// arithmetic.
type ConversionPool struct {
	ID              PoolID
	Creator         string
	InToken         string
	InTokenBalance  *big.Int
	OutToken        string
	OutTokenBalance *big.Int
	// Reversible pools additionally permit out-token -> in-token conversion.
	Reversible   bool
	InTokenRate  uint32
	OutTokenRate uint32
	// DepositAmount is the collateral attached at creation, refunded when the
	// pool is deleted.
	DepositAmount *big.Int
}

// NewConversionPool validates the definition and returns a pool with zeroed
// balances. The identifier is assigned later by the registry.
func NewConversionPool(creator, inToken, outToken string, reversible bool, inRate, outRate uint32, deposit *big.Int) (*ConversionPool, error) {
	creator, err := NormalizeToken(creator)
	if err != nil {
		return nil, fmt.Errorf("convertor: invalid creator: %w", err)
	}
	inToken, err = NormalizeToken(inToken)
	if err != nil {
		return nil, err
	}
	outToken, err = NormalizeToken(outToken)
	if err != nil {
		return nil, err
	}
	if inToken == outToken {
		return nil, ErrSameToken
	}
	if inRate == 0 || outRate == 0 {
		return nil, ErrInvalidRate
	}
	if err := checkAmount(deposit); err != nil {
		return nil, err
	}
	return &ConversionPool{
		Creator:         creator,
		InToken:         inToken,
		InTokenBalance:  big.NewInt(0),
		OutToken:        outToken,
		OutTokenBalance: big.NewInt(0),
		Reversible:      reversible,
		InTokenRate:     inRate,
		OutTokenRate:    outRate,
		DepositAmount:   new(big.Int).Set(deposit),
	}, nil
}

// Clone returns a deep copy so callers can safely mutate the copy without
// affecting the stored instance.
func (p *ConversionPool) Clone() *ConversionPool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.InTokenBalance = cloneAmount(p.InTokenBalance)
	clone.OutTokenBalance = cloneAmount(p.OutTokenBalance)
	clone.DepositAmount = cloneAmount(p.DepositAmount)
	return &clone
}

// NormalizeToken trims the supplied token identifier and rejects empty values.
// Token identifiers are externally assigned account names, so case is
// preserved.
func NormalizeToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", fmt.Errorf("convertor: token identifier must not be empty")
	}
	return trimmed, nil
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
