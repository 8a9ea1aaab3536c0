package ledger

import (
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// Key prefixes for the ledger state.
var (
	prefixBalance   = []byte("b/") // b/<identity(33)> -> amount (big-endian)
	prefixAllowance = []byte("a/") // a/<owner(33)><spender(33)> -> amount (big-endian)
	prefixFrozen    = []byte("f/") // f/<identity(33)> -> 0x01
	prefixNonce     = []byte("n/") // n/<identity(33)> -> uint64 (big-endian)
	keyAdmin        = []byte("m/admin") // identity key encoding (33 bytes)
	keyMetadata     = []byte("m/meta")  // Metadata JSON
)

// balanceKey builds a balance key: "b/" + kind(1) + id(32).
func balanceKey(id types.Identity) []byte {
	key := make([]byte, 0, len(prefixBalance)+types.IdentityKeySize)
	key = append(key, prefixBalance...)
	return id.AppendKey(key)
}

// allowanceKey builds an allowance key: "a/" + owner(33) + spender(33).
func allowanceKey(owner, spender types.Identity) []byte {
	key := make([]byte, 0, len(prefixAllowance)+2*types.IdentityKeySize)
	key = append(key, prefixAllowance...)
	key = owner.AppendKey(key)
	return spender.AppendKey(key)
}

// frozenKey builds a frozen-flag key: "f/" + kind(1) + id(32).
func frozenKey(id types.Identity) []byte {
	key := make([]byte, 0, len(prefixFrozen)+types.IdentityKeySize)
	key = append(key, prefixFrozen...)
	return id.AppendKey(key)
}

// nonceKey builds a nonce key: "n/" + kind(1) + id(32).
func nonceKey(id types.Identity) []byte {
	key := make([]byte, 0, len(prefixNonce)+types.IdentityKeySize)
	key = append(key, prefixNonce...)
	return id.AppendKey(key)
}
