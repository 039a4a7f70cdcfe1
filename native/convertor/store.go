package convertor

import (
	"fmt"
	"math/big"
	"sort"
)

// Storage abstracts the subset of state manager functionality required by the
// convertor module.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Persisted record layouts. Every record is wrapped in a schema-versioned
// envelope; upgradeX converts whatever version is on disk to the current
// in-memory shape so future layout changes stay additive.
const (
	poolSchemaVersion    = 1
	accountSchemaVersion = 1
	tokenSchemaVersion   = 1
)

type storedPool struct {
	ID              uint64
	Creator         string
	InToken         string
	InTokenBalance  *big.Int
	OutToken        string
	OutTokenBalance *big.Int
	Reversible      bool
	InTokenRate     uint32
	OutTokenRate    uint32
	DepositAmount   *big.Int
}

type poolEnvelope struct {
	Version uint8
	Pool    storedPool
}

func toStoredPool(p *ConversionPool) poolEnvelope {
	return poolEnvelope{
		Version: poolSchemaVersion,
		Pool: storedPool{
			ID:              uint64(p.ID),
			Creator:         p.Creator,
			InToken:         p.InToken,
			InTokenBalance:  cloneAmount(p.InTokenBalance),
			OutToken:        p.OutToken,
			OutTokenBalance: cloneAmount(p.OutTokenBalance),
			Reversible:      p.Reversible,
			InTokenRate:     p.InTokenRate,
			OutTokenRate:    p.OutTokenRate,
			DepositAmount:   cloneAmount(p.DepositAmount),
		},
	}
}

func upgradePool(env *poolEnvelope) (*ConversionPool, error) {
	switch env.Version {
	case poolSchemaVersion:
		stored := env.Pool
		return &ConversionPool{
			ID:              PoolID(stored.ID),
			Creator:         stored.Creator,
			InToken:         stored.InToken,
			InTokenBalance:  cloneAmount(stored.InTokenBalance),
			OutToken:        stored.OutToken,
			OutTokenBalance: cloneAmount(stored.OutTokenBalance),
			Reversible:      stored.Reversible,
			InTokenRate:     stored.InTokenRate,
			OutTokenRate:    stored.OutTokenRate,
			DepositAmount:   cloneAmount(stored.DepositAmount),
		}, nil
	default:
		return nil, fmt.Errorf("%w: pool record v%d", ErrSchemaVersion, env.Version)
	}
}

type storedTokenBalance struct {
	Token  string
	Amount *big.Int
}

type storedAccount struct {
	QuotaBalance      *big.Int
	Tokens            []storedTokenBalance
	InflightTransfers uint32
}

type accountEnvelope struct {
	Version uint8
	Account storedAccount
}

func toStoredAccount(a *Account) accountEnvelope {
	tokens := make([]storedTokenBalance, 0, len(a.Tokens))
	for token, amount := range a.Tokens {
		tokens = append(tokens, storedTokenBalance{Token: token, Amount: cloneAmount(amount)})
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Token < tokens[j].Token })
	return accountEnvelope{
		Version: accountSchemaVersion,
		Account: storedAccount{
			QuotaBalance:      cloneAmount(a.QuotaBalance),
			Tokens:            tokens,
			InflightTransfers: a.InflightTransfers,
		},
	}
}

func upgradeAccount(env *accountEnvelope) (*Account, error) {
	switch env.Version {
	case accountSchemaVersion:
		stored := env.Account
		account := &Account{
			QuotaBalance:      cloneAmount(stored.QuotaBalance),
			Tokens:            make(map[string]*big.Int, len(stored.Tokens)),
			InflightTransfers: stored.InflightTransfers,
		}
		for _, entry := range stored.Tokens {
			account.Tokens[entry.Token] = cloneAmount(entry.Amount)
		}
		return account, nil
	default:
		return nil, fmt.Errorf("%w: account record v%d", ErrSchemaVersion, env.Version)
	}
}

type storedTokenInfo struct {
	Token    string
	Decimals uint8
}

type tokenInfoEnvelope struct {
	Version uint8
	Token   storedTokenInfo
}

func toStoredTokenInfo(info TokenInfo) tokenInfoEnvelope {
	return tokenInfoEnvelope{
		Version: tokenSchemaVersion,
		Token:   storedTokenInfo{Token: info.Token, Decimals: info.Decimals},
	}
}

func upgradeTokenInfo(env *tokenInfoEnvelope) (TokenInfo, error) {
	switch env.Version {
	case tokenSchemaVersion:
		return TokenInfo{Token: env.Token.Token, Decimals: env.Token.Decimals}, nil
	default:
		return TokenInfo{}, fmt.Errorf("%w: whitelist record v%d", ErrSchemaVersion, env.Version)
	}
}
