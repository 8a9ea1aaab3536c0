// Package keys manages the signing keys behind public-key identities:
// BIP-39 recovery phrases, BIP-32 derivation, and encrypted on-disk storage.
package keys

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// Recovery phrases are 24 BIP-39 words (256 bits of entropy) and stretch
// to a 512-bit seed via PBKDF2-SHA512.
const (
	mnemonicEntropyBits = 256

	// SeedSize is the length of a stretched seed in bytes.
	SeedSize = 64
)

// GenerateMnemonic produces a fresh 24-word recovery phrase.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether a recovery phrase is well-formed:
// known words, correct count, matching checksum.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SeedFromMnemonic stretches a recovery phrase and optional passphrase
// into the 64-byte seed that roots all key derivation.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}
