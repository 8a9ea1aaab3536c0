// Package ledger persists the token contract's state: balances, allowances,
// frozen flags, per-identity nonces, the admin identity, and token metadata.
//
// All mutation goes through a Tx obtained from State.Begin. A Tx stages its
// writes in memory; nothing reaches the database until Commit, and a Tx that
// is dropped leaves the state untouched. This gives every contract call
// all-or-nothing semantics.
package ledger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-token/internal/storage"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// ErrNonceMismatch is returned by ConsumeNonce when the supplied nonce does
// not equal the identity's current nonce.
var ErrNonceMismatch = errors.New("nonce mismatch")

// Metadata holds descriptive information about the token.
// Immutable after initialization.
type Metadata struct {
	Decimals uint32 `json:"decimals"`
	Name     []byte `json:"name"`
	Symbol   []byte `json:"symbol"`
}

// State is the persistent ledger state for one contract instance.
type State struct {
	db storage.DB
}

// NewState creates ledger state backed by the given database.
func NewState(db storage.DB) *State {
	return &State{db: db}
}

// get reads a raw value, mapping storage.ErrNotFound to (nil, false).
func (s *State) get(key []byte) ([]byte, bool, error) {
	val, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Balance returns the identity's balance. Unseen identities hold zero.
func (s *State) Balance(id types.Identity) (types.Amount, error) {
	return readAmount(s.get, balanceKey(id))
}

// Allowance returns the amount spender may move on owner's behalf.
// Defaults to zero.
func (s *State) Allowance(owner, spender types.Identity) (types.Amount, error) {
	return readAmount(s.get, allowanceKey(owner, spender))
}

// Frozen returns the identity's frozen flag. Defaults to false.
func (s *State) Frozen(id types.Identity) (bool, error) {
	return readFlag(s.get, frozenKey(id))
}

// Nonce returns the identity's current nonce. Defaults to zero.
func (s *State) Nonce(id types.Identity) (uint64, error) {
	return readNonce(s.get, nonceKey(id))
}

// Admin returns the admin identity and whether one has been set.
func (s *State) Admin() (types.Identity, bool, error) {
	return readIdentity(s.get, keyAdmin)
}

// Metadata returns the token metadata and whether it has been set.
func (s *State) Metadata() (*Metadata, bool, error) {
	return readMetadata(s.get, keyMetadata)
}

// Begin starts a staged transaction over the state.
func (s *State) Begin() *Tx {
	return &Tx{state: s, pending: make(map[string][]byte)}
}

// Tx stages writes against a State. Reads observe staged writes first, then
// fall through to the database. Commit applies all staged writes atomically;
// dropping the Tx discards them.
type Tx struct {
	state   *State
	pending map[string][]byte
}

// get reads through the overlay.
func (tx *Tx) get(key []byte) ([]byte, bool, error) {
	if val, ok := tx.pending[string(key)]; ok {
		return val, true, nil
	}
	return tx.state.get(key)
}

// set stages a write.
func (tx *Tx) set(key, value []byte) {
	tx.pending[string(key)] = value
}

// Balance returns the identity's balance as seen by this transaction.
func (tx *Tx) Balance(id types.Identity) (types.Amount, error) {
	return readAmount(tx.get, balanceKey(id))
}

// SetBalance stages a balance write.
func (tx *Tx) SetBalance(id types.Identity, amount types.Amount) {
	tx.set(balanceKey(id), amount.Bytes())
}

// Allowance returns the (owner, spender) allowance as seen by this transaction.
func (tx *Tx) Allowance(owner, spender types.Identity) (types.Amount, error) {
	return readAmount(tx.get, allowanceKey(owner, spender))
}

// SetAllowance stages an allowance write.
func (tx *Tx) SetAllowance(owner, spender types.Identity, amount types.Amount) {
	tx.set(allowanceKey(owner, spender), amount.Bytes())
}

// Frozen returns the identity's frozen flag as seen by this transaction.
func (tx *Tx) Frozen(id types.Identity) (bool, error) {
	return readFlag(tx.get, frozenKey(id))
}

// SetFrozen stages a frozen-flag write.
func (tx *Tx) SetFrozen(id types.Identity, frozen bool) {
	if frozen {
		tx.set(frozenKey(id), []byte{0x01})
	} else {
		tx.set(frozenKey(id), []byte{0x00})
	}
}

// Nonce returns the identity's nonce as seen by this transaction.
func (tx *Tx) Nonce(id types.Identity) (uint64, error) {
	return readNonce(tx.get, nonceKey(id))
}

// ConsumeNonce checks supplied against the identity's current nonce and
// stages current+1. Returns the consumed value (the one that was signed).
// A mismatch returns ErrNonceMismatch and stages nothing.
func (tx *Tx) ConsumeNonce(id types.Identity, supplied uint64) (uint64, error) {
	current, err := tx.Nonce(id)
	if err != nil {
		return 0, err
	}
	if supplied != current {
		return 0, fmt.Errorf("%w: supplied %d, current %d", ErrNonceMismatch, supplied, current)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], current+1)
	tx.set(nonceKey(id), buf[:])
	return current, nil
}

// Admin returns the admin identity as seen by this transaction.
func (tx *Tx) Admin() (types.Identity, bool, error) {
	return readIdentity(tx.get, keyAdmin)
}

// SetAdmin stages an admin identity write.
func (tx *Tx) SetAdmin(id types.Identity) {
	tx.set(keyAdmin, id.AppendKey(nil))
}

// Metadata returns the token metadata as seen by this transaction.
func (tx *Tx) Metadata() (*Metadata, bool, error) {
	return readMetadata(tx.get, keyMetadata)
}

// SetMetadata stages a metadata write.
func (tx *Tx) SetMetadata(meta *Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("metadata marshal: %w", err)
	}
	tx.set(keyMetadata, data)
	return nil
}

// Commit applies all staged writes atomically.
func (tx *Tx) Commit() error {
	batcher, ok := tx.state.db.(storage.Batcher)
	if !ok {
		return fmt.Errorf("database does not support atomic batches")
	}
	batch := batcher.NewBatch()
	for key, value := range tx.pending {
		if err := batch.Put([]byte(key), value); err != nil {
			return fmt.Errorf("ledger stage: %w", err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("ledger commit: %w", err)
	}
	tx.pending = nil
	return nil
}

// getter reads a raw value, reporting whether the key exists.
type getter func(key []byte) ([]byte, bool, error)

func readAmount(get getter, key []byte) (types.Amount, error) {
	val, ok, err := get(key)
	if err != nil {
		return types.Amount{}, fmt.Errorf("ledger read: %w", err)
	}
	if !ok {
		return types.Amount{}, nil
	}
	return types.AmountFromBytes(val), nil
}

func readFlag(get getter, key []byte) (bool, error) {
	val, ok, err := get(key)
	if err != nil {
		return false, fmt.Errorf("ledger read: %w", err)
	}
	if !ok {
		return false, nil
	}
	return len(val) == 1 && val[0] == 0x01, nil
}

func readNonce(get getter, key []byte) (uint64, error) {
	val, ok, err := get(key)
	if err != nil {
		return 0, fmt.Errorf("ledger read: %w", err)
	}
	if !ok {
		return 0, nil
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("nonce value must be 8 bytes, got %d", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

func readIdentity(get getter, key []byte) (types.Identity, bool, error) {
	val, ok, err := get(key)
	if err != nil {
		return types.Identity{}, false, fmt.Errorf("ledger read: %w", err)
	}
	if !ok {
		return types.Identity{}, false, nil
	}
	if len(val) != types.IdentityKeySize {
		return types.Identity{}, false, fmt.Errorf("identity value must be %d bytes, got %d", types.IdentityKeySize, len(val))
	}
	id := types.Identity{Kind: types.IdentityKind(val[0])}
	copy(id.ID[:], val[1:])
	if !id.Valid() {
		return types.Identity{}, false, fmt.Errorf("stored identity has unknown kind %d", val[0])
	}
	return id, true, nil
}

func readMetadata(get getter, key []byte) (*Metadata, bool, error) {
	val, ok, err := get(key)
	if err != nil {
		return nil, false, fmt.Errorf("ledger read: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var meta Metadata
	if err := json.Unmarshal(val, &meta); err != nil {
		return nil, false, fmt.Errorf("metadata unmarshal: %w", err)
	}
	return &meta, true, nil
}
