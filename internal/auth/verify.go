package auth

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-token/pkg/crypto"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// ErrAuthorization is returned when a proof fails to authorize the claimed
// identity for a payload: bad signature, unknown signer, threshold not met,
// or invoker mismatch.
var ErrAuthorization = errors.New("authorization failed")

// GroupSigner is one registered member of an account group.
type GroupSigner struct {
	PublicKey [crypto.PublicKeySize]byte
	Weight    uint32
}

// GroupRegistry resolves account-group signer sets and thresholds.
// The threshold policy belongs to the host's account model; this package
// treats it as opaque.
type GroupRegistry interface {
	// Signers returns the registered signer set for a group.
	Signers(group [types.IdentityIDSize]byte) ([]GroupSigner, error)
	// Threshold returns the weight a proof must reach for the given
	// operation class. Privileged operations may require more.
	Threshold(group [types.IdentityIDSize]byte, privileged bool) (uint32, error)
}

// Invoker reports the identity of the contract currently invoking us,
// if the call came from a contract.
type Invoker func() (types.Identity, bool)

// Authorizer checks proofs against identities and payload digests.
type Authorizer struct {
	verifier crypto.Verifier
	groups   GroupRegistry
	invoker  Invoker
}

// NewAuthorizer creates an authorizer. groups may be nil if account-group
// identities are never used; invoker may be nil if contract callers are
// never expected.
func NewAuthorizer(verifier crypto.Verifier, groups GroupRegistry, invoker Invoker) *Authorizer {
	return &Authorizer{verifier: verifier, groups: groups, invoker: invoker}
}

// Identify derives the identity a proof claims to authorize.
func (a *Authorizer) Identify(proof Proof) (types.Identity, error) {
	switch p := proof.(type) {
	case InvokerProof:
		if a.invoker == nil {
			return types.Identity{}, fmt.Errorf("%w: no contract invoker in this call", ErrAuthorization)
		}
		id, ok := a.invoker()
		if !ok {
			return types.Identity{}, fmt.Errorf("%w: no contract invoker in this call", ErrAuthorization)
		}
		return id, nil
	case SignatureProof:
		return KeyIdentity(p.PublicKey), nil
	case GroupProof:
		return types.AccountGroupIdentity(p.Group), nil
	default:
		return types.Identity{}, fmt.Errorf("%w: unknown proof type %T", ErrAuthorization, proof)
	}
}

// Authorize verifies that proof authorizes identity for the payload digest.
// privileged selects the higher account-group threshold class.
// No state is touched; any failure returns ErrAuthorization.
func (a *Authorizer) Authorize(identity types.Identity, proof Proof, digest types.Hash, privileged bool) error {
	switch identity.Kind {
	case types.IdentityContract:
		return a.authorizeContract(identity, proof)
	case types.IdentityPublicKey:
		return a.authorizePublicKey(identity, proof, digest)
	case types.IdentityAccountGroup:
		return a.authorizeGroup(identity, proof, digest, privileged)
	default:
		return fmt.Errorf("%w: invalid identity kind %d", ErrAuthorization, identity.Kind)
	}
}

// authorizeContract accepts iff the current invoker is the claimed identity.
func (a *Authorizer) authorizeContract(identity types.Identity, proof Proof) error {
	if _, ok := proof.(InvokerProof); !ok {
		return fmt.Errorf("%w: contract identity requires an invoker proof", ErrAuthorization)
	}
	if a.invoker == nil {
		return fmt.Errorf("%w: no contract invoker in this call", ErrAuthorization)
	}
	caller, ok := a.invoker()
	if !ok {
		return fmt.Errorf("%w: no contract invoker in this call", ErrAuthorization)
	}
	if caller != identity {
		return fmt.Errorf("%w: invoker %s is not %s", ErrAuthorization, caller, identity)
	}
	return nil
}

// authorizePublicKey accepts iff exactly one signature is supplied, the
// supplied key hashes to the identity's ID, and the signature verifies.
func (a *Authorizer) authorizePublicKey(identity types.Identity, proof Proof, digest types.Hash) error {
	p, ok := proof.(SignatureProof)
	if !ok {
		return fmt.Errorf("%w: public-key identity requires a signature proof", ErrAuthorization)
	}
	if KeyIdentity(p.PublicKey) != identity {
		return fmt.Errorf("%w: proof key does not match identity", ErrAuthorization)
	}
	if !a.verifier.Verify(digest[:], p.Signature, p.PublicKey) {
		return fmt.Errorf("%w: signature verification failed", ErrAuthorization)
	}
	return nil
}

// authorizeGroup accepts iff every supplied signature verifies, every signer
// is registered in the group, no signer is counted twice, and the summed
// weights reach the threshold for the operation class.
func (a *Authorizer) authorizeGroup(identity types.Identity, proof Proof, digest types.Hash, privileged bool) error {
	p, ok := proof.(GroupProof)
	if !ok {
		return fmt.Errorf("%w: account-group identity requires a group proof", ErrAuthorization)
	}
	if p.Group != identity.ID {
		return fmt.Errorf("%w: proof group does not match identity", ErrAuthorization)
	}
	if a.groups == nil {
		return fmt.Errorf("%w: no group registry available", ErrAuthorization)
	}
	if len(p.Signatures) == 0 {
		return fmt.Errorf("%w: group proof carries no signatures", ErrAuthorization)
	}

	signers, err := a.groups.Signers(p.Group)
	if err != nil {
		return fmt.Errorf("%w: resolve group signers: %v", ErrAuthorization, err)
	}
	weights := make(map[[crypto.PublicKeySize]byte]uint32, len(signers))
	for _, s := range signers {
		weights[s.PublicKey] = s.Weight
	}

	threshold, err := a.groups.Threshold(p.Group, privileged)
	if err != nil {
		return fmt.Errorf("%w: resolve group threshold: %v", ErrAuthorization, err)
	}

	seen := make(map[[crypto.PublicKeySize]byte]bool, len(p.Signatures))
	var total uint64
	for _, gs := range p.Signatures {
		weight, registered := weights[gs.PublicKey]
		if !registered {
			return fmt.Errorf("%w: signer not in group", ErrAuthorization)
		}
		if seen[gs.PublicKey] {
			return fmt.Errorf("%w: duplicate signer in group proof", ErrAuthorization)
		}
		seen[gs.PublicKey] = true
		if !a.verifier.Verify(digest[:], gs.Signature, gs.PublicKey) {
			return fmt.Errorf("%w: group signature verification failed", ErrAuthorization)
		}
		total += uint64(weight)
	}

	if total < uint64(threshold) {
		return fmt.Errorf("%w: weight %d below threshold %d", ErrAuthorization, total, threshold)
	}
	return nil
}
