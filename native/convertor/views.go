package convertor

import (
	"fmt"
	"math/big"
	"sort"
)

// TokenBalanceView pairs an asset with its balance for the read surface.
type TokenBalanceView struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// AccountView is the externally visible snapshot of one account record.
type AccountView struct {
	QuotaBalance      string             `json:"quotaBalance"`
	QuotaRequired     string             `json:"quotaRequired"`
	QuotaDebt         string             `json:"quotaDebt"`
	QuotaAvailable    string             `json:"quotaAvailable"`
	Tokens            []TokenBalanceView `json:"tokens"`
	InflightTransfers uint32             `json:"inflightTransfers"`
}

// GetAccount returns the view of a registered account.
func (e *Engine) GetAccount(accountID string) (*AccountView, bool, error) {
	accountID, err := NormalizeToken(accountID)
	if err != nil {
		return nil, false, err
	}
	account, ok, err := e.ledger.Get(accountID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	tokens := make([]TokenBalanceView, 0, len(account.Tokens))
	for token, amount := range account.Tokens {
		tokens = append(tokens, TokenBalanceView{Token: token, Amount: amount.String()})
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Token < tokens[j].Token })
	return &AccountView{
		QuotaBalance:      account.QuotaBalance.String(),
		QuotaRequired:     e.ledger.RequiredQuota(account).String(),
		QuotaDebt:         e.ledger.Debt(account).String(),
		QuotaAvailable:    e.ledger.Available(account).String(),
		Tokens:            tokens,
		InflightTransfers: account.InflightTransfers,
	}, true, nil
}

// GetPool returns a copy of the pool with the supplied identifier.
func (e *Engine) GetPool(id PoolID) (*ConversionPool, bool, error) {
	return e.registry.Get(id)
}

// GetPools returns a page of pools in creation order.
func (e *Engine) GetPools(from, limit int) ([]*ConversionPool, error) {
	return e.registry.List(from, limit)
}

// GetCreatorPools returns every pool owned by the supplied participant.
func (e *Engine) GetCreatorPools(creator string) ([]*ConversionPool, error) {
	creator, err := NormalizeToken(creator)
	if err != nil {
		return nil, err
	}
	return e.registry.ByCreator(creator)
}

// GetPairPools returns every pool exchanging the supplied asset pair.
func (e *Engine) GetPairPools(tokenA, tokenB string) ([]*ConversionPool, error) {
	tokenA, err := NormalizeToken(tokenA)
	if err != nil {
		return nil, err
	}
	tokenB, err = NormalizeToken(tokenB)
	if err != nil {
		return nil, err
	}
	return e.registry.ByPair(tokenA, tokenB)
}

// SelectBestPool simulates the conversion against every pool able to exchange
// inputToken for outputToken and returns the pool yielding the highest
// output, together with that output amount. Nothing is mutated. Pools whose
// balance cannot cover the conversion are skipped.
func (e *Engine) SelectBestPool(inputToken, outputToken string, amount *big.Int) (PoolID, *big.Int, error) {
	inputToken, err := NormalizeToken(inputToken)
	if err != nil {
		return 0, nil, err
	}
	outputToken, err = NormalizeToken(outputToken)
	if err != nil {
		return 0, nil, err
	}
	if err := checkAmount(amount); err != nil {
		return 0, nil, err
	}
	candidates, err := e.registry.ByPair(inputToken, outputToken)
	if err != nil {
		return 0, nil, err
	}
	var (
		bestID     PoolID
		bestOutput *big.Int
	)
	for _, pool := range candidates {
		simulated := pool.Clone()
		releasedToken, releasedAmount, err := simulated.Convert(inputToken, amount)
		if err != nil || releasedToken != outputToken {
			continue
		}
		if bestOutput == nil || releasedAmount.Cmp(bestOutput) > 0 {
			bestID = pool.ID
			bestOutput = releasedAmount
		}
	}
	if bestOutput == nil {
		return 0, nil, fmt.Errorf("%w: no pool can convert %s to %s", ErrPoolNotFound, inputToken, outputToken)
	}
	return bestID, bestOutput, nil
}
