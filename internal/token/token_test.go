package token

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-token/internal/auth"
	"github.com/Klingon-tech/klingnet-token/internal/storage"
	"github.com/Klingon-tech/klingnet-token/pkg/crypto"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// env bundles a token instance with what tests need to build proofs that
// match the contract's canonical payloads.
type env struct {
	tok  *Token
	host *LocalHost
	db   *storage.MemoryDB
}

func newEnv(t *testing.T, groups auth.GroupRegistry) *env {
	t.Helper()
	host := &LocalHost{
		NetworkID: "testnet",
		Contract:  DeriveContractID("testnet", []byte("Tok")),
	}
	db := storage.NewMemory()
	return &env{tok: New(host, groups, db), host: host, db: db}
}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func keyIdentity(key *crypto.PrivateKey) types.Identity {
	return auth.KeyIdentity(key.PublicKey())
}

// sign builds the canonical payload for an operation authorized by key and
// returns the signature proof. args are the operation arguments that follow
// the identity and nonce.
func (e *env) sign(t *testing.T, key *crypto.PrivateKey, function string, nonce uint64, args ...auth.Arg) auth.SignatureProof {
	t.Helper()
	payloadArgs := append([]auth.Arg{auth.IdentityArg(keyIdentity(key)), auth.UintArg(nonce)}, args...)
	payload := auth.NewPayload(function, e.host.ContractID(), e.host.Network(), payloadArgs...)
	proof, err := auth.Sign(key, payload)
	if err != nil {
		t.Fatalf("sign %s: %v", function, err)
	}
	return proof
}

func (e *env) mustBalance(t *testing.T, id types.Identity) string {
	t.Helper()
	bal, err := e.tok.Balance(id)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return bal.String()
}

func (e *env) mustNonce(t *testing.T, id types.Identity) uint64 {
	t.Helper()
	nonce, err := e.tok.Nonce(id)
	if err != nil {
		t.Fatalf("Nonce: %v", err)
	}
	return nonce
}

func TestInitialize(t *testing.T) {
	e := newEnv(t, nil)
	admin := newKey(t)

	if err := e.tok.Initialize(keyIdentity(admin), 7, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	decimals, err := e.tok.Decimals()
	if err != nil {
		t.Fatalf("Decimals: %v", err)
	}
	if decimals != 7 {
		t.Errorf("decimals = %d, want 7", decimals)
	}
	name, err := e.tok.Name()
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if !bytes.Equal(name, []byte("Tok")) {
		t.Errorf("name = %q, want Tok", name)
	}
	symbol, err := e.tok.Symbol()
	if err != nil {
		t.Fatalf("Symbol: %v", err)
	}
	if !bytes.Equal(symbol, []byte("TOK")) {
		t.Errorf("symbol = %q, want TOK", symbol)
	}
	got, err := e.tok.Admin()
	if err != nil {
		t.Fatalf("Admin: %v", err)
	}
	if got != keyIdentity(admin) {
		t.Errorf("admin = %s, want %s", got, keyIdentity(admin))
	}

	// A second initialize must fail.
	err = e.tok.Initialize(keyIdentity(newKey(t)), 2, []byte("X"), []byte("X"))
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize err = %v, want ErrAlreadyInitialized", err)
	}
}

func TestGetters_BeforeInitialize(t *testing.T) {
	e := newEnv(t, nil)

	if _, err := e.tok.Decimals(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Decimals err = %v, want ErrNotInitialized", err)
	}
	if _, err := e.tok.Admin(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Admin err = %v, want ErrNotInitialized", err)
	}

	// Balance reads work pre-init and default to zero.
	if e.mustBalance(t, keyIdentity(newKey(t))) != "0" {
		t.Error("balance should default to zero")
	}
}

// TestMintTransferReplay walks the documented scenario: initialize, mint 100
// to B, transfer 40 from B to C, then replay the transfer.
func TestMintTransferReplay(t *testing.T) {
	e := newEnv(t, nil)
	adminKey, bKey := newKey(t), newKey(t)
	b := keyIdentity(bKey)
	c := keyIdentity(newKey(t))

	if err := e.tok.Initialize(keyIdentity(adminKey), 7, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	proof := e.sign(t, adminKey, "mint", 0, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(100)))
	if err := e.tok.Mint(proof, 0, b, types.NewAmount(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if got := e.mustBalance(t, b); got != "100" {
		t.Errorf("balance(B) = %s, want 100", got)
	}
	if got := e.mustNonce(t, keyIdentity(adminKey)); got != 1 {
		t.Errorf("nonce(A) = %d, want 1", got)
	}

	transferProof := e.sign(t, bKey, "transfer", 0, auth.IdentityArg(c), auth.AmountArg(types.NewAmount(40)))
	if err := e.tok.Transfer(transferProof, 0, c, types.NewAmount(40)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := e.mustBalance(t, b); got != "60" {
		t.Errorf("balance(B) = %s, want 60", got)
	}
	if got := e.mustBalance(t, c); got != "40" {
		t.Errorf("balance(C) = %s, want 40", got)
	}
	if got := e.mustNonce(t, b); got != 1 {
		t.Errorf("nonce(B) = %d, want 1", got)
	}

	// Replaying the exact same call must fail and change nothing.
	err := e.tok.Transfer(transferProof, 0, c, types.NewAmount(40))
	if !errors.Is(err, ErrNonceMismatch) {
		t.Fatalf("replay err = %v, want ErrNonceMismatch", err)
	}
	if got := e.mustBalance(t, b); got != "60" {
		t.Errorf("after replay balance(B) = %s, want 60", got)
	}
	if got := e.mustBalance(t, c); got != "40" {
		t.Errorf("after replay balance(C) = %s, want 40", got)
	}
}

// TestApproveTransferFrom walks the documented allowance scenario.
func TestApproveTransferFrom(t *testing.T) {
	e := newEnv(t, nil)
	adminKey, bKey, dKey := newKey(t), newKey(t), newKey(t)
	b, d := keyIdentity(bKey), keyIdentity(dKey)
	eIdent := keyIdentity(newKey(t))

	if err := e.tok.Initialize(keyIdentity(adminKey), 7, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	proof := e.sign(t, adminKey, "mint", 0, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(100)))
	if err := e.tok.Mint(proof, 0, b, types.NewAmount(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// B approves D for 30 (B's nonce is 0; make it 1 first with a transfer).
	tProof := e.sign(t, bKey, "transfer", 0, auth.IdentityArg(eIdent), auth.AmountArg(types.NewAmount(0)))
	if err := e.tok.Transfer(tProof, 0, eIdent, types.NewAmount(0)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	aProof := e.sign(t, bKey, "approve", 1, auth.IdentityArg(d), auth.AmountArg(types.NewAmount(30)))
	if err := e.tok.Approve(aProof, 1, d, types.NewAmount(30)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	allow, err := e.tok.Allowance(b, d)
	if err != nil {
		t.Fatalf("Allowance: %v", err)
	}
	if allow.String() != "30" {
		t.Errorf("allowance(B,D) = %s, want 30", allow)
	}

	tfProof := e.sign(t, dKey, "transfer_from", 0,
		auth.IdentityArg(b), auth.IdentityArg(eIdent), auth.AmountArg(types.NewAmount(30)))
	if err := e.tok.TransferFrom(tfProof, 0, b, eIdent, types.NewAmount(30)); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	allow, _ = e.tok.Allowance(b, d)
	if !allow.IsZero() {
		t.Errorf("allowance(B,D) = %s, want 0", allow)
	}
	if got := e.mustBalance(t, eIdent); got != "30" {
		t.Errorf("balance(E) = %s, want 30", got)
	}

	// A second identical spend must fail on the exhausted allowance.
	tfProof = e.sign(t, dKey, "transfer_from", 1,
		auth.IdentityArg(b), auth.IdentityArg(eIdent), auth.AmountArg(types.NewAmount(30)))
	err = e.tok.TransferFrom(tfProof, 1, b, eIdent, types.NewAmount(30))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("err = %v, want ErrInsufficientAllowance", err)
	}
	if got := e.mustBalance(t, eIdent); got != "30" {
		t.Errorf("balance(E) after failed spend = %s, want 30", got)
	}
}

// TestBurnRollsBackNonce checks the all-or-nothing property: a burn that
// fails on insufficient balance must not consume the admin's nonce.
func TestBurnRollsBackNonce(t *testing.T) {
	e := newEnv(t, nil)
	adminKey := newKey(t)
	admin := keyIdentity(adminKey)
	target := keyIdentity(newKey(t))

	if err := e.tok.Initialize(admin, 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	proof := e.sign(t, adminKey, "mint", 0, auth.IdentityArg(target), auth.AmountArg(types.NewAmount(10)))
	if err := e.tok.Mint(proof, 0, target, types.NewAmount(10)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	proof = e.sign(t, adminKey, "burn", 1, auth.IdentityArg(target), auth.AmountArg(types.NewAmount(50)))
	err := e.tok.Burn(proof, 1, target, types.NewAmount(50))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	if got := e.mustBalance(t, target); got != "10" {
		t.Errorf("balance = %s, want 10", got)
	}
	if got := e.mustNonce(t, admin); got != 1 {
		t.Errorf("admin nonce = %d, want 1 (failed burn must not consume it)", got)
	}

	// The same nonce still works for a valid burn.
	proof = e.sign(t, adminKey, "burn", 1, auth.IdentityArg(target), auth.AmountArg(types.NewAmount(10)))
	if err := e.tok.Burn(proof, 1, target, types.NewAmount(10)); err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if got := e.mustBalance(t, target); got != "0" {
		t.Errorf("balance = %s, want 0", got)
	}
}

func TestFreezeBlocksTransfer(t *testing.T) {
	e := newEnv(t, nil)
	adminKey, bKey := newKey(t), newKey(t)
	b := keyIdentity(bKey)
	c := keyIdentity(newKey(t))

	if err := e.tok.Initialize(keyIdentity(adminKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	proof := e.sign(t, adminKey, "mint", 0, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(100)))
	if err := e.tok.Mint(proof, 0, b, types.NewAmount(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	proof = e.sign(t, adminKey, "freeze", 1, auth.IdentityArg(b))
	if err := e.tok.Freeze(proof, 1, b); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	frozen, err := e.tok.IsFrozen(b)
	if err != nil || !frozen {
		t.Fatalf("IsFrozen = %v, %v; want true", frozen, err)
	}

	tProof := e.sign(t, bKey, "transfer", 0, auth.IdentityArg(c), auth.AmountArg(types.NewAmount(40)))
	if err := e.tok.Transfer(tProof, 0, c, types.NewAmount(40)); !errors.Is(err, ErrFrozenIdentity) {
		t.Fatalf("err = %v, want ErrFrozenIdentity", err)
	}
	if got := e.mustBalance(t, b); got != "100" {
		t.Errorf("balance(B) = %s, want 100", got)
	}
	if got := e.mustNonce(t, b); got != 0 {
		t.Errorf("nonce(B) = %d, want 0 (failed transfer must not consume it)", got)
	}

	// Frozen identities can still receive.
	proof = e.sign(t, adminKey, "mint", 2, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(5)))
	if err := e.tok.Mint(proof, 2, b, types.NewAmount(5)); err != nil {
		t.Fatalf("Mint to frozen: %v", err)
	}

	// Unfreeze restores transfers.
	proof = e.sign(t, adminKey, "unfreeze", 3, auth.IdentityArg(b))
	if err := e.tok.Unfreeze(proof, 3, b); err != nil {
		t.Fatalf("Unfreeze: %v", err)
	}
	tProof = e.sign(t, bKey, "transfer", 0, auth.IdentityArg(c), auth.AmountArg(types.NewAmount(40)))
	if err := e.tok.Transfer(tProof, 0, c, types.NewAmount(40)); err != nil {
		t.Fatalf("Transfer after unfreeze: %v", err)
	}
}

func TestTransferFrom_FrozenSource(t *testing.T) {
	e := newEnv(t, nil)
	adminKey, bKey, dKey := newKey(t), newKey(t), newKey(t)
	b, d := keyIdentity(bKey), keyIdentity(dKey)
	c := keyIdentity(newKey(t))

	if err := e.tok.Initialize(keyIdentity(adminKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	proof := e.sign(t, adminKey, "mint", 0, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(100)))
	if err := e.tok.Mint(proof, 0, b, types.NewAmount(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	aProof := e.sign(t, bKey, "approve", 0, auth.IdentityArg(d), auth.AmountArg(types.NewAmount(50)))
	if err := e.tok.Approve(aProof, 0, d, types.NewAmount(50)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	proof = e.sign(t, adminKey, "freeze", 1, auth.IdentityArg(b))
	if err := e.tok.Freeze(proof, 1, b); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	tfProof := e.sign(t, dKey, "transfer_from", 0,
		auth.IdentityArg(b), auth.IdentityArg(c), auth.AmountArg(types.NewAmount(50)))
	err := e.tok.TransferFrom(tfProof, 0, b, c, types.NewAmount(50))
	if !errors.Is(err, ErrFrozenIdentity) {
		t.Errorf("err = %v, want ErrFrozenIdentity", err)
	}
	allow, _ := e.tok.Allowance(b, d)
	if allow.String() != "50" {
		t.Errorf("allowance = %s, want 50 (failed spend must not consume it)", allow)
	}
}

func TestMint_RequiresAdmin(t *testing.T) {
	e := newEnv(t, nil)
	adminKey, malloryKey := newKey(t), newKey(t)
	mallory := keyIdentity(malloryKey)

	if err := e.tok.Initialize(keyIdentity(adminKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	proof := e.sign(t, malloryKey, "mint", 0, auth.IdentityArg(mallory), auth.AmountArg(types.NewAmount(1000)))
	err := e.tok.Mint(proof, 0, mallory, types.NewAmount(1000))
	if !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("err = %v, want ErrNotAdmin", err)
	}
	if got := e.mustBalance(t, mallory); got != "0" {
		t.Errorf("balance = %s, want 0", got)
	}
}

func TestMint_BeforeInitialize(t *testing.T) {
	e := newEnv(t, nil)
	key := newKey(t)
	proof := e.sign(t, key, "mint", 0, auth.IdentityArg(keyIdentity(key)), auth.AmountArg(types.NewAmount(1)))
	err := e.tok.Mint(proof, 0, keyIdentity(key), types.NewAmount(1))
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}

// TestSignatureBindsOperation checks that a signature over one operation
// cannot authorize another: the function name is part of the payload.
func TestSignatureBindsOperation(t *testing.T) {
	e := newEnv(t, nil)
	adminKey, bKey := newKey(t), newKey(t)
	b := keyIdentity(bKey)
	c := keyIdentity(newKey(t))

	if err := e.tok.Initialize(keyIdentity(adminKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	proof := e.sign(t, adminKey, "mint", 0, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(100)))
	if err := e.tok.Mint(proof, 0, b, types.NewAmount(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Signed "approve" but submitted as a transfer.
	wrong := e.sign(t, bKey, "approve", 0, auth.IdentityArg(c), auth.AmountArg(types.NewAmount(40)))
	err := e.tok.Transfer(wrong, 0, c, types.NewAmount(40))
	if !errors.Is(err, ErrAuthorization) {
		t.Fatalf("err = %v, want ErrAuthorization", err)
	}
	if got := e.mustNonce(t, b); got != 0 {
		t.Errorf("nonce(B) = %d, want 0", got)
	}

	// Signed for a different amount.
	wrong = e.sign(t, bKey, "transfer", 0, auth.IdentityArg(c), auth.AmountArg(types.NewAmount(9999)))
	err = e.tok.Transfer(wrong, 0, c, types.NewAmount(40))
	if !errors.Is(err, ErrAuthorization) {
		t.Errorf("err = %v, want ErrAuthorization", err)
	}
}

// TestNetworkBindsSignature checks cross-network replay protection: the same
// call signed for one network must not verify on another.
func TestNetworkBindsSignature(t *testing.T) {
	a := newEnv(t, nil)
	adminKey := newKey(t)
	b := keyIdentity(newKey(t))

	// Same contract ID, different network.
	other := &env{host: &LocalHost{NetworkID: "mainnet", Contract: a.host.Contract}, db: storage.NewMemory()}
	other.tok = New(other.host, nil, other.db)

	if err := a.tok.Initialize(keyIdentity(adminKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := other.tok.Initialize(keyIdentity(adminKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	proof := a.sign(t, adminKey, "mint", 0, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(100)))
	if err := a.tok.Mint(proof, 0, b, types.NewAmount(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Replaying the testnet-signed proof on mainnet must fail.
	err := other.tok.Mint(proof, 0, b, types.NewAmount(100))
	if !errors.Is(err, ErrAuthorization) {
		t.Errorf("cross-network replay err = %v, want ErrAuthorization", err)
	}
}

func TestSetAdmin(t *testing.T) {
	e := newEnv(t, nil)
	oldKey, newKey2 := newKey(t), newKey(t)
	newAdmin := keyIdentity(newKey2)

	if err := e.tok.Initialize(keyIdentity(oldKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	proof := e.sign(t, oldKey, "set_admin", 0, auth.IdentityArg(newAdmin))
	if err := e.tok.SetAdmin(proof, 0, newAdmin); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	got, err := e.tok.Admin()
	if err != nil {
		t.Fatalf("Admin: %v", err)
	}
	if got != newAdmin {
		t.Errorf("admin = %s, want %s", got, newAdmin)
	}

	// The old admin can no longer mint.
	target := keyIdentity(newKey(t))
	proof = e.sign(t, oldKey, "mint", 1, auth.IdentityArg(target), auth.AmountArg(types.NewAmount(1)))
	if err := e.tok.Mint(proof, 1, target, types.NewAmount(1)); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("old admin mint err = %v, want ErrNotAdmin", err)
	}

	// The new admin can, starting from its own nonce 0.
	proof = e.sign(t, newKey2, "mint", 0, auth.IdentityArg(target), auth.AmountArg(types.NewAmount(1)))
	if err := e.tok.Mint(proof, 0, target, types.NewAmount(1)); err != nil {
		t.Errorf("new admin mint: %v", err)
	}
}

func TestApprove_Replaces(t *testing.T) {
	e := newEnv(t, nil)
	adminKey, bKey := newKey(t), newKey(t)
	b := keyIdentity(bKey)
	d := keyIdentity(newKey(t))

	if err := e.tok.Initialize(keyIdentity(adminKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	proof := e.sign(t, bKey, "approve", 0, auth.IdentityArg(d), auth.AmountArg(types.NewAmount(30)))
	if err := e.tok.Approve(proof, 0, d, types.NewAmount(30)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	proof = e.sign(t, bKey, "approve", 1, auth.IdentityArg(d), auth.AmountArg(types.NewAmount(10)))
	if err := e.tok.Approve(proof, 1, d, types.NewAmount(10)); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	allow, _ := e.tok.Allowance(b, d)
	if allow.String() != "10" {
		t.Errorf("allowance = %s, want 10 (approve replaces, not accumulates)", allow)
	}
}

// TestGroupAdmin exercises an account-group admin end to end: minting needs
// the privileged threshold.
func TestGroupAdmin(t *testing.T) {
	k1, k2, k3 := newKey(t), newKey(t), newKey(t)
	group := [32]byte{0x55}
	groups := auth.NewStaticGroups()
	groups.Register(group, auth.GroupPolicy{
		Signers: []auth.GroupSigner{
			{PublicKey: k1.PublicKey(), Weight: 1},
			{PublicKey: k2.PublicKey(), Weight: 1},
			{PublicKey: k3.PublicKey(), Weight: 1},
		},
		Threshold:           1,
		PrivilegedThreshold: 2,
	})

	e := newEnv(t, groups)
	admin := types.AccountGroupIdentity(group)
	target := keyIdentity(newKey(t))

	if err := e.tok.Initialize(admin, 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	mintPayload := func(nonce uint64, amount types.Amount) *auth.Payload {
		return auth.NewPayload("mint", e.host.ContractID(), e.host.Network(),
			auth.IdentityArg(admin), auth.UintArg(nonce),
			auth.IdentityArg(target), auth.AmountArg(amount))
	}

	// One signer (weight 1) is below the privileged threshold of 2.
	proof, err := auth.GroupSign(group, mintPayload(0, types.NewAmount(100)), k1)
	if err != nil {
		t.Fatalf("GroupSign: %v", err)
	}
	if err := e.tok.Mint(proof, 0, target, types.NewAmount(100)); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("underweight mint err = %v, want ErrAuthorization", err)
	}
	if got := e.mustNonce(t, admin); got != 0 {
		t.Errorf("group nonce = %d, want 0", got)
	}

	// Two signers meet it.
	proof, err = auth.GroupSign(group, mintPayload(0, types.NewAmount(100)), k1, k2)
	if err != nil {
		t.Fatalf("GroupSign: %v", err)
	}
	if err := e.tok.Mint(proof, 0, target, types.NewAmount(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if got := e.mustBalance(t, target); got != "100" {
		t.Errorf("balance = %s, want 100", got)
	}
	if got := e.mustNonce(t, admin); got != 1 {
		t.Errorf("group nonce = %d, want 1", got)
	}
}

// TestContractIdentity exercises an invoking contract as the sender.
func TestContractIdentity(t *testing.T) {
	caller := types.ContractIdentity(types.ContractID{0xCA})
	e := newEnv(t, nil)
	e.host.Caller = &caller

	adminKey := newKey(t)
	to := keyIdentity(newKey(t))

	if err := e.tok.Initialize(keyIdentity(adminKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	proof := e.sign(t, adminKey, "mint", 0, auth.IdentityArg(caller), auth.AmountArg(types.NewAmount(50)))
	if err := e.tok.Mint(proof, 0, caller, types.NewAmount(50)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// The invoking contract transfers with an ambient invoker proof.
	if err := e.tok.Transfer(auth.InvokerProof{}, 0, to, types.NewAmount(20)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := e.mustBalance(t, caller); got != "30" {
		t.Errorf("balance(caller) = %s, want 30", got)
	}
	if got := e.mustBalance(t, to); got != "20" {
		t.Errorf("balance(to) = %s, want 20", got)
	}
	if got := e.mustNonce(t, caller); got != 1 {
		t.Errorf("nonce(caller) = %d, want 1", got)
	}
}

// TestConservation checks that the sum of all balances tracks
// minted minus burned across a mixed sequence of operations.
func TestConservation(t *testing.T) {
	e := newEnv(t, nil)
	adminKey, bKey := newKey(t), newKey(t)
	b := keyIdentity(bKey)
	c := keyIdentity(newKey(t))

	if err := e.tok.Initialize(keyIdentity(adminKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	proof := e.sign(t, adminKey, "mint", 0, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(100)))
	if err := e.tok.Mint(proof, 0, b, types.NewAmount(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	tProof := e.sign(t, bKey, "transfer", 0, auth.IdentityArg(c), auth.AmountArg(types.NewAmount(33)))
	if err := e.tok.Transfer(tProof, 0, c, types.NewAmount(33)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	proof = e.sign(t, adminKey, "burn", 1, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(17)))
	if err := e.tok.Burn(proof, 1, b, types.NewAmount(17)); err != nil {
		t.Fatalf("Burn: %v", err)
	}

	// minted 100, burned 17.
	total := types.Amount{}
	for _, id := range []types.Identity{keyIdentity(adminKey), b, c} {
		bal, err := e.tok.Balance(id)
		if err != nil {
			t.Fatalf("Balance: %v", err)
		}
		total = total.Add(bal)
	}
	if total.String() != "83" {
		t.Errorf("sum of balances = %s, want 83", total)
	}
}

func TestTransfer_ToSelf(t *testing.T) {
	e := newEnv(t, nil)
	adminKey, bKey := newKey(t), newKey(t)
	b := keyIdentity(bKey)

	if err := e.tok.Initialize(keyIdentity(adminKey), 2, []byte("Tok"), []byte("TOK")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	proof := e.sign(t, adminKey, "mint", 0, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(100)))
	if err := e.tok.Mint(proof, 0, b, types.NewAmount(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	tProof := e.sign(t, bKey, "transfer", 0, auth.IdentityArg(b), auth.AmountArg(types.NewAmount(40)))
	if err := e.tok.Transfer(tProof, 0, b, types.NewAmount(40)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := e.mustBalance(t, b); got != "100" {
		t.Errorf("self-transfer balance = %s, want 100", got)
	}
}

func TestMalformedInput(t *testing.T) {
	e := newEnv(t, nil)
	key := newKey(t)

	if err := e.tok.Initialize(types.Identity{}, 2, []byte("T"), []byte("T")); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("Initialize err = %v, want ErrMalformedInput", err)
	}
	proof := e.sign(t, key, "transfer", 0, auth.IdentityArg(types.Identity{}), auth.AmountArg(types.NewAmount(1)))
	if err := e.tok.Transfer(proof, 0, types.Identity{}, types.NewAmount(1)); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("Transfer err = %v, want ErrMalformedInput", err)
	}
	if _, err := e.tok.Balance(types.Identity{}); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("Balance err = %v, want ErrMalformedInput", err)
	}
}

func TestContractScoping(t *testing.T) {
	// Two contracts over the same database must not see each other's state.
	db := storage.NewMemory()
	hostA := &LocalHost{NetworkID: "testnet", Contract: DeriveContractID("testnet", []byte("A"))}
	hostB := &LocalHost{NetworkID: "testnet", Contract: DeriveContractID("testnet", []byte("B"))}
	tokA := New(hostA, nil, db)
	tokB := New(hostB, nil, db)

	adminKey := newKey(t)
	admin := keyIdentity(adminKey)
	if err := tokA.Initialize(admin, 2, []byte("A"), []byte("A")); err != nil {
		t.Fatalf("Initialize A: %v", err)
	}

	if _, err := tokB.Admin(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("contract B sees contract A's admin: err = %v", err)
	}
}
