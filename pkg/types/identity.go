package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// IdentityKind discriminates the variants of an Identity.
type IdentityKind uint8

// Identity kinds.
const (
	// IdentityContract is a contract principal. The ID is the contract hash.
	IdentityContract IdentityKind = 0x01
	// IdentityPublicKey is a single-key principal. The ID is the BLAKE3
	// hash of the compressed Schnorr public key.
	IdentityPublicKey IdentityKind = 0x02
	// IdentityAccountGroup is a weighted multi-signer principal. The ID names
	// a signer set registered with the host.
	IdentityAccountGroup IdentityKind = 0x03
)

// IdentityIDSize is the length of an identity's payload in bytes.
const IdentityIDSize = 32

// IdentityKeySize is the length of an identity's storage-key encoding:
// one kind byte followed by the 32-byte ID.
const IdentityKeySize = 1 + IdentityIDSize

// Identity is a principal that can own balances, hold allowances, and
// authorize operations. It is a tagged union over the kind; equality is
// structural, so Identity is usable directly as a map key.
type Identity struct {
	Kind IdentityKind
	ID   [IdentityIDSize]byte
}

// ContractIdentity builds a contract-kind identity.
func ContractIdentity(id ContractID) Identity {
	return Identity{Kind: IdentityContract, ID: [IdentityIDSize]byte(id)}
}

// PublicKeyIdentity builds a public-key identity from the 32-byte hash of
// a compressed public key.
func PublicKeyIdentity(keyHash [IdentityIDSize]byte) Identity {
	return Identity{Kind: IdentityPublicKey, ID: keyHash}
}

// AccountGroupIdentity builds an account-group identity.
func AccountGroupIdentity(group [IdentityIDSize]byte) Identity {
	return Identity{Kind: IdentityAccountGroup, ID: group}
}

// Valid reports whether the kind is one of the known variants.
func (id Identity) Valid() bool {
	switch id.Kind {
	case IdentityContract, IdentityPublicKey, IdentityAccountGroup:
		return true
	}
	return false
}

// IsZero returns true for the zero-value identity (no kind, all-zero ID).
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// AppendKey appends the 33-byte key encoding (kind byte + ID) to buf.
// Used for storage keys and signing payloads.
func (id Identity) AppendKey(buf []byte) []byte {
	buf = append(buf, byte(id.Kind))
	return append(buf, id.ID[:]...)
}

// String returns "<kind>:<hex id>", e.g. "pubkey:ab12...".
func (id Identity) String() string {
	return id.kindString() + ":" + hex.EncodeToString(id.ID[:])
}

func (id Identity) kindString() string {
	switch id.Kind {
	case IdentityContract:
		return "contract"
	case IdentityPublicKey:
		return "pubkey"
	case IdentityAccountGroup:
		return "group"
	}
	return fmt.Sprintf("unknown(%d)", id.Kind)
}

// identityJSON is the JSON representation of Identity.
type identityJSON struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// MarshalJSON encodes the identity as {"kind": ..., "id": "<hex>"}.
func (id Identity) MarshalJSON() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("cannot marshal identity with kind %d", id.Kind)
	}
	return json.Marshal(identityJSON{
		Kind: id.kindString(),
		ID:   hex.EncodeToString(id.ID[:]),
	})
}

// UnmarshalJSON decodes an identity from its JSON representation.
func (id *Identity) UnmarshalJSON(data []byte) error {
	var j identityJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	switch j.Kind {
	case "contract":
		id.Kind = IdentityContract
	case "pubkey":
		id.Kind = IdentityPublicKey
	case "group":
		id.Kind = IdentityAccountGroup
	default:
		return fmt.Errorf("unknown identity kind %q", j.Kind)
	}
	raw, err := hex.DecodeString(j.ID)
	if err != nil {
		return fmt.Errorf("invalid identity id hex: %w", err)
	}
	if len(raw) != IdentityIDSize {
		return fmt.Errorf("identity id must be %d bytes, got %d", IdentityIDSize, len(raw))
	}
	copy(id.ID[:], raw)
	return nil
}

// ParseIdentity parses the "<kind>:<hex id>" form produced by String.
func ParseIdentity(s string) (Identity, error) {
	var kind IdentityKind
	var rest string
	switch {
	case len(s) > 9 && s[:9] == "contract:":
		kind, rest = IdentityContract, s[9:]
	case len(s) > 7 && s[:7] == "pubkey:":
		kind, rest = IdentityPublicKey, s[7:]
	case len(s) > 6 && s[:6] == "group:":
		kind, rest = IdentityAccountGroup, s[6:]
	default:
		return Identity{}, fmt.Errorf("identity must start with contract:, pubkey:, or group:")
	}
	raw, err := hex.DecodeString(rest)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid identity hex: %w", err)
	}
	if len(raw) != IdentityIDSize {
		return Identity{}, fmt.Errorf("identity id must be %d bytes, got %d", IdentityIDSize, len(raw))
	}
	id := Identity{Kind: kind}
	copy(id.ID[:], raw)
	return id, nil
}
