package auth

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-token/pkg/crypto"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// Sign produces a SignatureProof over the payload with the given key.
// The resulting proof authorizes the key's public-key identity.
func Sign(signer crypto.Signer, payload *Payload) (SignatureProof, error) {
	digest := payload.Hash()
	sig, err := signer.Sign(digest[:])
	if err != nil {
		return SignatureProof{}, fmt.Errorf("sign payload: %w", err)
	}
	return SignatureProof{PublicKey: signer.PublicKey(), Signature: sig}, nil
}

// GroupSign produces a GroupProof over the payload with signatures from each
// of the given keys.
func GroupSign(group [types.IdentityIDSize]byte, payload *Payload, signers ...crypto.Signer) (GroupProof, error) {
	digest := payload.Hash()
	proof := GroupProof{Group: group}
	for _, signer := range signers {
		sig, err := signer.Sign(digest[:])
		if err != nil {
			return GroupProof{}, fmt.Errorf("group sign: %w", err)
		}
		proof.Signatures = append(proof.Signatures, GroupSignature{
			PublicKey: signer.PublicKey(),
			Signature: sig,
		})
	}
	return proof, nil
}
