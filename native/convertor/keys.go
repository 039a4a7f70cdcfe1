package convertor

import "strconv"

var (
	poolRecordPrefix    = []byte("convertor/pool/")
	poolIndexKey        = []byte("convertor/pool/index")
	poolNextIDKey       = []byte("convertor/pool/next-id")
	accountRecordPrefix = []byte("convertor/account/")
	whitelistPrefix     = []byte("convertor/whitelist/")
	whitelistIndexKey   = []byte("convertor/whitelist/index")
	pausedKey           = []byte("convertor/params/paused")
	createDepositKey    = []byte("convertor/params/create-pool-deposit")
)

func poolKey(id PoolID) []byte {
	return appendKey(poolRecordPrefix, strconv.FormatUint(uint64(id), 10))
}

func accountKey(accountID string) []byte {
	return appendKey(accountRecordPrefix, accountID)
}

func whitelistKey(token string) []byte {
	return appendKey(whitelistPrefix, token)
}

func appendKey(prefix []byte, suffix string) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return buf
}
