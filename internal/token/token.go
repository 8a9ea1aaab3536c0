// Package token implements the authorized token ledger contract.
//
// Every mutating operation follows the same sequence: derive the authorizing
// identity from the proof, bind the canonical signing payload (operation
// name, contract ID, network, identity, nonce, arguments), verify the proof,
// consume the identity's nonce, apply the effect, and commit. All writes are
// staged; any failure aborts the call with zero observable state change, so
// a nonce is never consumed without its effect and an effect never lands
// without its nonce.
package token

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-token/internal/auth"
	"github.com/Klingon-tech/klingnet-token/internal/ledger"
	"github.com/Klingon-tech/klingnet-token/internal/log"
	"github.com/Klingon-tech/klingnet-token/internal/storage"
	"github.com/Klingon-tech/klingnet-token/pkg/crypto"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// Token is one contract instance: its state is scoped to the host's
// contract ID within the shared database.
type Token struct {
	host  Host
	auth  *auth.Authorizer
	state *ledger.State
	log   zerolog.Logger
}

// New creates a token contract bound to the given host. groups resolves
// account-group signer sets and thresholds; it may be nil if account-group
// identities are never used.
func New(host Host, groups auth.GroupRegistry, db storage.DB) *Token {
	scoped := storage.NewPrefixDB(db, contractPrefix(host.ContractID()))
	return &Token{
		host:  host,
		auth:  auth.NewAuthorizer(crypto.SchnorrVerifier{}, groups, host.Invoker),
		state: ledger.NewState(scoped),
		log:   log.Token.With().Str("contract_id", host.ContractID().String()).Logger(),
	}
}

// contractPrefix namespaces one contract's keys: "c/" + id(32) + "/".
func contractPrefix(id types.ContractID) []byte {
	prefix := make([]byte, 0, 2+types.HashSize+1)
	prefix = append(prefix, "c/"...)
	prefix = append(prefix, id[:]...)
	return append(prefix, '/')
}

// Initialize sets the admin identity and token metadata. It can succeed at
// most once per contract; metadata is immutable afterwards.
func (t *Token) Initialize(admin types.Identity, decimals uint32, name, symbol []byte) error {
	if !admin.Valid() {
		return fmt.Errorf("%w: invalid admin identity", ErrMalformedInput)
	}

	tx := t.state.Begin()
	if _, ok, err := tx.Admin(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}

	tx.SetAdmin(admin)
	if err := tx.SetMetadata(&ledger.Metadata{Decimals: decimals, Name: name, Symbol: symbol}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	t.log.Info().
		Str("admin", admin.String()).
		Uint32("decimals", decimals).
		Bytes("symbol", symbol).
		Msg("token initialized")
	return nil
}

// Mint credits amount to the recipient. Admin only.
func (t *Token) Mint(proof auth.Proof, nonce uint64, to types.Identity, amount types.Amount) error {
	if !to.Valid() {
		return fmt.Errorf("%w: invalid recipient identity", ErrMalformedInput)
	}

	tx, admin, err := t.beginAdmin("mint", proof, nonce, auth.IdentityArg(to), auth.AmountArg(amount))
	if err != nil {
		return err
	}

	balance, err := tx.Balance(to)
	if err != nil {
		return err
	}
	tx.SetBalance(to, balance.Add(amount))
	if err := tx.Commit(); err != nil {
		return err
	}

	t.log.Info().
		Str("admin", admin.String()).
		Str("to", to.String()).
		Str("amount", amount.String()).
		Msg("minted")
	return nil
}

// Burn debits amount from the target's balance. Admin only.
func (t *Token) Burn(proof auth.Proof, nonce uint64, from types.Identity, amount types.Amount) error {
	if !from.Valid() {
		return fmt.Errorf("%w: invalid source identity", ErrMalformedInput)
	}

	tx, admin, err := t.beginAdmin("burn", proof, nonce, auth.IdentityArg(from), auth.AmountArg(amount))
	if err != nil {
		return err
	}

	balance, err := tx.Balance(from)
	if err != nil {
		return err
	}
	remaining, err := balance.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: burn %s exceeds balance %s", ErrInsufficientBalance, amount, balance)
	}
	tx.SetBalance(from, remaining)
	if err := tx.Commit(); err != nil {
		return err
	}

	t.log.Info().
		Str("admin", admin.String()).
		Str("from", from.String()).
		Str("amount", amount.String()).
		Msg("burned")
	return nil
}

// SetAdmin transfers the admin role to a new identity. Admin only.
func (t *Token) SetAdmin(proof auth.Proof, nonce uint64, newAdmin types.Identity) error {
	if !newAdmin.Valid() {
		return fmt.Errorf("%w: invalid admin identity", ErrMalformedInput)
	}

	tx, oldAdmin, err := t.beginAdmin("set_admin", proof, nonce, auth.IdentityArg(newAdmin))
	if err != nil {
		return err
	}

	tx.SetAdmin(newAdmin)
	if err := tx.Commit(); err != nil {
		return err
	}

	t.log.Info().
		Str("old_admin", oldAdmin.String()).
		Str("new_admin", newAdmin.String()).
		Msg("admin changed")
	return nil
}

// Freeze marks an identity as frozen, blocking it from sending. Admin only.
func (t *Token) Freeze(proof auth.Proof, nonce uint64, id types.Identity) error {
	return t.setFrozen("freeze", proof, nonce, id, true)
}

// Unfreeze clears an identity's frozen flag. Admin only.
func (t *Token) Unfreeze(proof auth.Proof, nonce uint64, id types.Identity) error {
	return t.setFrozen("unfreeze", proof, nonce, id, false)
}

func (t *Token) setFrozen(function string, proof auth.Proof, nonce uint64, id types.Identity, frozen bool) error {
	if !id.Valid() {
		return fmt.Errorf("%w: invalid identity", ErrMalformedInput)
	}

	tx, _, err := t.beginAdmin(function, proof, nonce, auth.IdentityArg(id))
	if err != nil {
		return err
	}

	tx.SetFrozen(id, frozen)
	if err := tx.Commit(); err != nil {
		return err
	}

	t.log.Info().Str("id", id.String()).Bool("frozen", frozen).Msg("frozen flag updated")
	return nil
}

// Approve sets the allowance that spender may move on the owner's behalf.
// The owner is the identity derived from the proof. The allowance is
// replaced, not accumulated.
func (t *Token) Approve(proof auth.Proof, nonce uint64, spender types.Identity, amount types.Amount) error {
	if !spender.Valid() {
		return fmt.Errorf("%w: invalid spender identity", ErrMalformedInput)
	}

	tx, owner, err := t.beginAuthorized("approve", proof, nonce, false, auth.IdentityArg(spender), auth.AmountArg(amount))
	if err != nil {
		return err
	}

	tx.SetAllowance(owner, spender, amount)
	if err := tx.Commit(); err != nil {
		return err
	}

	t.log.Info().
		Str("owner", owner.String()).
		Str("spender", spender.String()).
		Str("amount", amount.String()).
		Msg("approved")
	return nil
}

// Transfer moves amount from the proof's identity to the recipient.
func (t *Token) Transfer(proof auth.Proof, nonce uint64, to types.Identity, amount types.Amount) error {
	if !to.Valid() {
		return fmt.Errorf("%w: invalid recipient identity", ErrMalformedInput)
	}

	tx, sender, err := t.beginAuthorized("transfer", proof, nonce, false, auth.IdentityArg(to), auth.AmountArg(amount))
	if err != nil {
		return err
	}

	if err := t.move(tx, sender, to, amount); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	t.log.Info().
		Str("from", sender.String()).
		Str("to", to.String()).
		Str("amount", amount.String()).
		Msg("transferred")
	return nil
}

// TransferFrom moves amount from `from` to `to`, spending the allowance
// granted by `from` to the proof's identity.
func (t *Token) TransferFrom(proof auth.Proof, nonce uint64, from, to types.Identity, amount types.Amount) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: invalid identity", ErrMalformedInput)
	}

	tx, spender, err := t.beginAuthorized("transfer_from", proof, nonce, false,
		auth.IdentityArg(from), auth.IdentityArg(to), auth.AmountArg(amount))
	if err != nil {
		return err
	}

	allowance, err := tx.Allowance(from, spender)
	if err != nil {
		return err
	}
	remaining, err := allowance.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: spend %s exceeds allowance %s", ErrInsufficientAllowance, amount, allowance)
	}

	if err := t.move(tx, from, to, amount); err != nil {
		return err
	}
	tx.SetAllowance(from, spender, remaining)
	if err := tx.Commit(); err != nil {
		return err
	}

	t.log.Info().
		Str("spender", spender.String()).
		Str("from", from.String()).
		Str("to", to.String()).
		Str("amount", amount.String()).
		Msg("transferred from allowance")
	return nil
}

// move stages a balance transfer, enforcing the frozen flag and sufficient
// balance on the source.
func (t *Token) move(tx *ledger.Tx, from, to types.Identity, amount types.Amount) error {
	frozen, err := tx.Frozen(from)
	if err != nil {
		return err
	}
	if frozen {
		return fmt.Errorf("%w: %s", ErrFrozenIdentity, from)
	}

	fromBalance, err := tx.Balance(from)
	if err != nil {
		return err
	}
	remaining, err := fromBalance.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: transfer %s exceeds balance %s", ErrInsufficientBalance, amount, fromBalance)
	}

	// Stage the debit first so a self-transfer reads the debited balance.
	tx.SetBalance(from, remaining)

	toBalance, err := tx.Balance(to)
	if err != nil {
		return err
	}
	tx.SetBalance(to, toBalance.Add(amount))
	return nil
}

// beginAuthorized runs the fixed precondition sequence shared by all
// mutators: identify the authorizing identity, bind the canonical payload
// (operation, contract, network, identity, nonce, then args), verify the
// proof, and consume the nonce inside a fresh staged transaction.
func (t *Token) beginAuthorized(function string, proof auth.Proof, nonce uint64, privileged bool, args ...auth.Arg) (*ledger.Tx, types.Identity, error) {
	id, err := t.auth.Identify(proof)
	if err != nil {
		return nil, types.Identity{}, err
	}

	payloadArgs := append([]auth.Arg{auth.IdentityArg(id), auth.UintArg(nonce)}, args...)
	payload := auth.NewPayload(function, t.host.ContractID(), t.host.Network(), payloadArgs...)
	if err := t.auth.Authorize(id, proof, payload.Hash(), privileged); err != nil {
		return nil, types.Identity{}, err
	}

	tx := t.state.Begin()
	if _, err := tx.ConsumeNonce(id, nonce); err != nil {
		return nil, types.Identity{}, err
	}
	return tx, id, nil
}

// beginAdmin is beginAuthorized for privileged operations: the identity
// derived from the proof must be the stored admin.
func (t *Token) beginAdmin(function string, proof auth.Proof, nonce uint64, args ...auth.Arg) (*ledger.Tx, types.Identity, error) {
	id, err := t.auth.Identify(proof)
	if err != nil {
		return nil, types.Identity{}, err
	}

	admin, ok, err := t.state.Admin()
	if err != nil {
		return nil, types.Identity{}, err
	}
	if !ok {
		return nil, types.Identity{}, ErrNotInitialized
	}
	if id != admin {
		return nil, types.Identity{}, fmt.Errorf("%w: %s", ErrNotAdmin, id)
	}

	return t.beginAuthorized(function, proof, nonce, true, args...)
}

// Balance returns the identity's balance. Pure read, no authorization.
func (t *Token) Balance(id types.Identity) (types.Amount, error) {
	if !id.Valid() {
		return types.Amount{}, fmt.Errorf("%w: invalid identity", ErrMalformedInput)
	}
	return t.state.Balance(id)
}

// Allowance returns the (owner, spender) allowance. Pure read.
func (t *Token) Allowance(owner, spender types.Identity) (types.Amount, error) {
	if !owner.Valid() || !spender.Valid() {
		return types.Amount{}, fmt.Errorf("%w: invalid identity", ErrMalformedInput)
	}
	return t.state.Allowance(owner, spender)
}

// IsFrozen returns the identity's frozen flag. Pure read.
func (t *Token) IsFrozen(id types.Identity) (bool, error) {
	if !id.Valid() {
		return false, fmt.Errorf("%w: invalid identity", ErrMalformedInput)
	}
	return t.state.Frozen(id)
}

// Nonce returns the identity's current nonce. Pure read, no side effect.
func (t *Token) Nonce(id types.Identity) (uint64, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("%w: invalid identity", ErrMalformedInput)
	}
	return t.state.Nonce(id)
}

// Admin returns the admin identity.
func (t *Token) Admin() (types.Identity, error) {
	admin, ok, err := t.state.Admin()
	if err != nil {
		return types.Identity{}, err
	}
	if !ok {
		return types.Identity{}, ErrNotInitialized
	}
	return admin, nil
}

// Decimals returns the token's decimal places.
func (t *Token) Decimals() (uint32, error) {
	meta, err := t.metadata()
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

// Name returns the token's display name.
func (t *Token) Name() ([]byte, error) {
	meta, err := t.metadata()
	if err != nil {
		return nil, err
	}
	return meta.Name, nil
}

// Symbol returns the token's symbol.
func (t *Token) Symbol() ([]byte, error) {
	meta, err := t.metadata()
	if err != nil {
		return nil, err
	}
	return meta.Symbol, nil
}

func (t *Token) metadata() (*ledger.Metadata, error) {
	meta, ok, err := t.state.Metadata()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return meta, nil
}
