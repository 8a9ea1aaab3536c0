package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingnet-token/internal/auth"
	"github.com/Klingon-tech/klingnet-token/pkg/crypto"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// groupsFile is the on-disk JSON format for account-group policies.
type groupsFile struct {
	Groups []groupEntry `json:"groups"`
}

type groupEntry struct {
	ID                  string        `json:"id"` // 32-byte hex group ID
	Threshold           uint32        `json:"threshold"`
	PrivilegedThreshold uint32        `json:"privileged_threshold"`
	Signers             []signerEntry `json:"signers"`
}

type signerEntry struct {
	PublicKey string `json:"public_key"` // 33-byte hex compressed key
	Weight    uint32 `json:"weight"`
}

// LoadGroups reads account-group policies from a JSON file into a registry.
// A missing file yields an empty registry: group identities simply fail to
// authorize until policies are configured.
func LoadGroups(path string) (*auth.StaticGroups, error) {
	groups := auth.NewStaticGroups()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return groups, nil
		}
		return nil, fmt.Errorf("read groups file: %w", err)
	}

	var gf groupsFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("parse groups file: %w", err)
	}

	for i, entry := range gf.Groups {
		id, err := parse32(entry.ID)
		if err != nil {
			return nil, fmt.Errorf("group[%d] id: %w", i, err)
		}
		if len(entry.Signers) == 0 {
			return nil, fmt.Errorf("group[%d] has no signers", i)
		}
		if entry.Threshold == 0 {
			return nil, fmt.Errorf("group[%d] threshold must be positive", i)
		}
		if entry.PrivilegedThreshold < entry.Threshold {
			return nil, fmt.Errorf("group[%d] privileged threshold below threshold", i)
		}

		policy := auth.GroupPolicy{
			Threshold:           entry.Threshold,
			PrivilegedThreshold: entry.PrivilegedThreshold,
		}
		seen := make(map[[crypto.PublicKeySize]byte]struct{}, len(entry.Signers))
		for j, s := range entry.Signers {
			key, err := parseSignerKey(s.PublicKey)
			if err != nil {
				return nil, fmt.Errorf("group[%d] signer[%d]: %w", i, j, err)
			}
			if _, ok := seen[key]; ok {
				return nil, fmt.Errorf("group[%d] signer[%d] is a duplicate", i, j)
			}
			seen[key] = struct{}{}
			if s.Weight == 0 {
				return nil, fmt.Errorf("group[%d] signer[%d] weight must be positive", i, j)
			}
			policy.Signers = append(policy.Signers, auth.GroupSigner{PublicKey: key, Weight: s.Weight})
		}

		groups.Register(id, policy)
	}

	return groups, nil
}

func parse32(s string) ([types.HashSize]byte, error) {
	var out [types.HashSize]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex %q", s)
	}
	if len(b) != types.HashSize {
		return out, fmt.Errorf("need %d bytes, got %d", types.HashSize, len(b))
	}
	copy(out[:], b)
	return out, nil
}

func parseSignerKey(s string) ([crypto.PublicKeySize]byte, error) {
	var out [crypto.PublicKeySize]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex %q", s)
	}
	if len(b) != crypto.PublicKeySize {
		return out, fmt.Errorf("need %d bytes, got %d", crypto.PublicKeySize, len(b))
	}
	copy(out[:], b)
	return out, nil
}
