package convertor

import "sort"

func (e *Engine) whitelistedToken(token string) (TokenInfo, bool, error) {
	var env tokenInfoEnvelope
	ok, err := e.store.KVGet(whitelistKey(token), &env)
	if err != nil {
		return TokenInfo{}, false, err
	}
	if !ok {
		return TokenInfo{}, false, nil
	}
	info, err := upgradeTokenInfo(&env)
	if err != nil {
		return TokenInfo{}, false, err
	}
	return info, true, nil
}

func (e *Engine) putWhitelistedToken(info TokenInfo) error {
	if err := e.store.KVPut(whitelistKey(info.Token), toStoredTokenInfo(info)); err != nil {
		return err
	}
	index, err := e.loadWhitelistIndex()
	if err != nil {
		return err
	}
	for _, existing := range index {
		if existing == info.Token {
			return nil
		}
	}
	index = append(index, info.Token)
	sort.Strings(index)
	return e.store.KVPut(whitelistIndexKey, index)
}

func (e *Engine) removeWhitelistedToken(token string) error {
	if err := e.store.KVDelete(whitelistKey(token)); err != nil {
		return err
	}
	index, err := e.loadWhitelistIndex()
	if err != nil {
		return err
	}
	filtered := index[:0]
	for _, existing := range index {
		if existing != token {
			filtered = append(filtered, existing)
		}
	}
	return e.store.KVPut(whitelistIndexKey, filtered)
}

// Whitelist returns every admitted token in lexical order.
func (e *Engine) Whitelist() ([]TokenInfo, error) {
	index, err := e.loadWhitelistIndex()
	if err != nil {
		return nil, err
	}
	tokens := make([]TokenInfo, 0, len(index))
	for _, token := range index {
		info, ok, err := e.whitelistedToken(token)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		tokens = append(tokens, info)
	}
	return tokens, nil
}

func (e *Engine) loadWhitelistIndex() ([]string, error) {
	var index []string
	if _, err := e.store.KVGet(whitelistIndexKey, &index); err != nil {
		return nil, err
	}
	return index, nil
}
