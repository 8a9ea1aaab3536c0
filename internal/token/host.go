package token

import (
	"github.com/Klingon-tech/klingnet-token/pkg/crypto"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// Host supplies the ambient capabilities the contract consumes from its
// runtime: the network discriminator bound into every signed payload, the
// contract's own identifier, and the identity of a calling contract when
// the invocation came from one.
type Host interface {
	// Network returns the chain/network discriminator string.
	Network() string
	// ContractID returns this contract instance's identifier.
	ContractID() types.ContractID
	// Invoker returns the identity of the contract currently invoking us,
	// or false if the call did not come from a contract.
	Invoker() (types.Identity, bool)
}

// LocalHost is a Host for embedding the contract directly, as the CLI and
// tests do. Caller, when non-nil, plays the role of an invoking contract.
type LocalHost struct {
	NetworkID string
	Contract  types.ContractID
	Caller    *types.Identity
}

// Network returns the configured network discriminator.
func (h *LocalHost) Network() string { return h.NetworkID }

// ContractID returns the configured contract identifier.
func (h *LocalHost) ContractID() types.ContractID { return h.Contract }

// Invoker returns the configured calling contract, if any.
func (h *LocalHost) Invoker() (types.Identity, bool) {
	if h.Caller == nil {
		return types.Identity{}, false
	}
	return *h.Caller, true
}

// DeriveContractID computes a deterministic contract ID from the network
// discriminator and token name. ID = BLAKE3("token/" || network || "/" || name).
func DeriveContractID(network string, name []byte) types.ContractID {
	buf := make([]byte, 0, 7+len(network)+len(name))
	buf = append(buf, "token/"...)
	buf = append(buf, network...)
	buf = append(buf, '/')
	buf = append(buf, name...)
	return types.ContractID(crypto.Hash(buf))
}
