package auth

import (
	"github.com/Klingon-tech/klingnet-token/pkg/crypto"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// Proof is the evidence accompanying a mutating call that the caller
// controls the authorizing identity. One variant exists per identity kind.
type Proof interface {
	isProof()
}

// InvokerProof claims the current invoking contract as the identity.
// No cryptographic material is carried; the host attests the invoker.
type InvokerProof struct{}

func (InvokerProof) isProof() {}

// SignatureProof authorizes a public-key identity with a single Schnorr
// signature over the payload digest. The identity's ID is the BLAKE3 hash
// of the compressed public key carried here.
type SignatureProof struct {
	PublicKey [crypto.PublicKeySize]byte
	Signature []byte
}

func (SignatureProof) isProof() {}

// KeyIdentity returns the public-key identity controlled by a compressed
// public key: the ID is the key's BLAKE3 hash.
func KeyIdentity(publicKey [crypto.PublicKeySize]byte) types.Identity {
	hash := crypto.Hash(publicKey[:])
	return types.PublicKeyIdentity([types.IdentityIDSize]byte(hash))
}

// GroupSignature is one signer's contribution to a GroupProof.
type GroupSignature struct {
	PublicKey [crypto.PublicKeySize]byte
	Signature []byte
}

// GroupProof authorizes an account-group identity with signatures from a
// subset of the group's registered signers whose summed weights meet the
// required threshold.
type GroupProof struct {
	Group      [types.IdentityIDSize]byte
	Signatures []GroupSignature
}

func (GroupProof) isProof() {}
