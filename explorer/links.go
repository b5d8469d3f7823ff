package explorer

import "strings"

// DefaultBase is the public explorer used when no override is configured.
const DefaultBase = "https://stellar.expert/explorer"

// TxURL builds the explorer link for a confirmed transaction. It is a pure
// string template; no network call is made and no validation of the hash is
// attempted.
func TxURL(base, network, hash string) string {
	b := strings.TrimRight(strings.TrimSpace(base), "/")
	if b == "" {
		b = DefaultBase
	}
	n := strings.TrimSpace(network)
	if n == "" {
		n = "testnet"
	}
	return b + "/" + n + "/tx/" + strings.TrimSpace(hash)
}
