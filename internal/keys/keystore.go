package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// keystoreFile is the on-disk JSON format for an encrypted wallet.
type keystoreFile struct {
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	EncryptedSeed []byte          `json:"encrypted_seed"`
	Identities    []IdentityEntry `json:"identities"`
	NextIndex     uint32          `json:"next_index"` // next unused derivation index
}

// IdentityEntry stores metadata for a derived signing identity.
type IdentityEntry struct {
	Account  uint32 `json:"account"`
	Index    uint32 `json:"index"`
	Name     string `json:"name"`
	Identity string `json:"identity"` // "pubkey:<hex>" form
}

// Keystore manages encrypted key storage on disk.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// walletPath returns the file path for a wallet by name.
func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// Create creates a new encrypted wallet file from a mnemonic seed.
func (ks *Keystore) Create(name string, seed, password []byte, params EncryptionParams) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("wallet %q already exists", name)
	}

	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}

	kf := keystoreFile{
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		EncryptedSeed: encrypted,
		Identities:    []IdentityEntry{},
	}

	return ks.writeFile(path, &kf)
}

// Load decrypts a wallet and returns the seed bytes.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return nil, err
	}

	seed, err := Decrypt(kf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet: %w", err)
	}

	return seed, nil
}

// AddIdentity records a derived identity in the wallet metadata.
func (ks *Keystore) AddIdentity(walletName string, entry IdentityEntry) error {
	path := ks.walletPath(walletName)
	kf, err := ks.readFile(path)
	if err != nil {
		return err
	}

	for _, existing := range kf.Identities {
		if existing.Account == entry.Account && existing.Index == entry.Index {
			// Idempotent insert if metadata points to the same identity.
			if existing.Identity == entry.Identity {
				return nil
			}
			return fmt.Errorf("identity path account=%d index=%d already exists", entry.Account, entry.Index)
		}
		if existing.Identity != "" && existing.Identity == entry.Identity {
			return nil
		}
	}

	kf.Identities = append(kf.Identities, entry)
	if entry.Index >= kf.NextIndex {
		kf.NextIndex = entry.Index + 1
	}
	return ks.writeFile(path, kf)
}

// ListIdentities returns the identity entries for a wallet.
func (ks *Keystore) ListIdentities(walletName string) ([]IdentityEntry, error) {
	kf, err := ks.readFile(ks.walletPath(walletName))
	if err != nil {
		return nil, err
	}
	return kf.Identities, nil
}

// FindIdentity looks up an identity entry by its display name.
func (ks *Keystore) FindIdentity(walletName, identityName string) (IdentityEntry, error) {
	entries, err := ks.ListIdentities(walletName)
	if err != nil {
		return IdentityEntry{}, err
	}
	for _, e := range entries {
		if e.Name == identityName {
			return e, nil
		}
	}
	return IdentityEntry{}, fmt.Errorf("identity %q not found in wallet %q", identityName, walletName)
}

// NextIndex returns the next unused derivation index for a wallet.
func (ks *Keystore) NextIndex(name string) (uint32, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return 0, err
	}
	return kf.NextIndex, nil
}

// List returns the names of all wallet files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("wallet %q not found", name)
	}
	return os.Remove(path)
}

func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}
