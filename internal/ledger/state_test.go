package ledger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-token/internal/storage"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

func newState(t *testing.T) *State {
	t.Helper()
	return NewState(storage.NewMemory())
}

func ident(b byte) types.Identity {
	return types.PublicKeyIdentity([32]byte{b})
}

func TestState_Defaults(t *testing.T) {
	s := newState(t)
	id := ident(0x01)

	bal, err := s.Balance(id)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("default balance = %s, want 0", bal)
	}

	allow, err := s.Allowance(id, ident(0x02))
	if err != nil {
		t.Fatalf("Allowance: %v", err)
	}
	if !allow.IsZero() {
		t.Errorf("default allowance = %s, want 0", allow)
	}

	frozen, err := s.Frozen(id)
	if err != nil {
		t.Fatalf("Frozen: %v", err)
	}
	if frozen {
		t.Error("default frozen = true, want false")
	}

	nonce, err := s.Nonce(id)
	if err != nil {
		t.Fatalf("Nonce: %v", err)
	}
	if nonce != 0 {
		t.Errorf("default nonce = %d, want 0", nonce)
	}

	if _, ok, err := s.Admin(); err != nil || ok {
		t.Errorf("Admin = ok=%v err=%v, want unset", ok, err)
	}
	if _, ok, err := s.Metadata(); err != nil || ok {
		t.Errorf("Metadata = ok=%v err=%v, want unset", ok, err)
	}
}

func TestTx_CommitPersists(t *testing.T) {
	s := newState(t)
	owner := ident(0x01)
	spender := ident(0x02)

	tx := s.Begin()
	tx.SetBalance(owner, types.NewAmount(500))
	tx.SetAllowance(owner, spender, types.NewAmount(30))
	tx.SetFrozen(spender, true)
	tx.SetAdmin(owner)
	if err := tx.SetMetadata(&Metadata{Decimals: 7, Name: []byte("Tok"), Symbol: []byte("TOK")}); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	bal, _ := s.Balance(owner)
	if bal.String() != "500" {
		t.Errorf("balance = %s, want 500", bal)
	}
	allow, _ := s.Allowance(owner, spender)
	if allow.String() != "30" {
		t.Errorf("allowance = %s, want 30", allow)
	}
	// Allowance keys are ordered (owner, spender).
	reversed, _ := s.Allowance(spender, owner)
	if !reversed.IsZero() {
		t.Errorf("reversed allowance = %s, want 0", reversed)
	}
	frozen, _ := s.Frozen(spender)
	if !frozen {
		t.Error("frozen flag not persisted")
	}
	admin, ok, err := s.Admin()
	if err != nil || !ok {
		t.Fatalf("Admin: ok=%v err=%v", ok, err)
	}
	if admin != owner {
		t.Errorf("admin = %s, want %s", admin, owner)
	}
	meta, ok, err := s.Metadata()
	if err != nil || !ok {
		t.Fatalf("Metadata: ok=%v err=%v", ok, err)
	}
	if meta.Decimals != 7 || !bytes.Equal(meta.Name, []byte("Tok")) || !bytes.Equal(meta.Symbol, []byte("TOK")) {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestTx_DroppedWithoutCommit(t *testing.T) {
	s := newState(t)
	id := ident(0x01)

	tx := s.Begin()
	tx.SetBalance(id, types.NewAmount(999))
	if _, err := tx.ConsumeNonce(id, 0); err != nil {
		t.Fatalf("ConsumeNonce: %v", err)
	}
	// tx goes out of scope without Commit.

	bal, _ := s.Balance(id)
	if !bal.IsZero() {
		t.Errorf("balance leaked: %s", bal)
	}
	nonce, _ := s.Nonce(id)
	if nonce != 0 {
		t.Errorf("nonce leaked: %d", nonce)
	}
}

func TestTx_OverlayReads(t *testing.T) {
	s := newState(t)
	id := ident(0x01)

	base := s.Begin()
	base.SetBalance(id, types.NewAmount(100))
	if err := base.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx := s.Begin()
	tx.SetBalance(id, types.NewAmount(40))

	// Transaction sees its own staged write.
	staged, _ := tx.Balance(id)
	if staged.String() != "40" {
		t.Errorf("staged balance = %s, want 40", staged)
	}
	// State still sees the committed value.
	committed, _ := s.Balance(id)
	if committed.String() != "100" {
		t.Errorf("committed balance = %s, want 100", committed)
	}
}

func TestTx_ConsumeNonce(t *testing.T) {
	s := newState(t)
	id := ident(0x01)

	tx := s.Begin()
	prior, err := tx.ConsumeNonce(id, 0)
	if err != nil {
		t.Fatalf("ConsumeNonce: %v", err)
	}
	if prior != 0 {
		t.Errorf("prior = %d, want 0", prior)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	nonce, _ := s.Nonce(id)
	if nonce != 1 {
		t.Errorf("nonce = %d, want 1", nonce)
	}

	// Replaying the consumed nonce fails.
	tx = s.Begin()
	if _, err := tx.ConsumeNonce(id, 0); !errors.Is(err, ErrNonceMismatch) {
		t.Errorf("replay err = %v, want ErrNonceMismatch", err)
	}

	// Skipping ahead fails too.
	tx = s.Begin()
	if _, err := tx.ConsumeNonce(id, 5); !errors.Is(err, ErrNonceMismatch) {
		t.Errorf("skip err = %v, want ErrNonceMismatch", err)
	}
}

func TestTx_ConsumeNonceSequence(t *testing.T) {
	s := newState(t)
	id := ident(0x07)

	for want := uint64(0); want < 5; want++ {
		tx := s.Begin()
		prior, err := tx.ConsumeNonce(id, want)
		if err != nil {
			t.Fatalf("ConsumeNonce(%d): %v", want, err)
		}
		if prior != want {
			t.Errorf("prior = %d, want %d", prior, want)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}

	nonce, _ := s.Nonce(id)
	if nonce != 5 {
		t.Errorf("final nonce = %d, want 5", nonce)
	}
}

func TestTx_ConsumeNonceWithinTx(t *testing.T) {
	s := newState(t)
	id := ident(0x03)

	// Within a single transaction the staged increment is visible, so a
	// second consume of the same value must fail.
	tx := s.Begin()
	if _, err := tx.ConsumeNonce(id, 0); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, err := tx.ConsumeNonce(id, 0); !errors.Is(err, ErrNonceMismatch) {
		t.Errorf("second consume err = %v, want ErrNonceMismatch", err)
	}
}

func TestTx_SetFrozenToggle(t *testing.T) {
	s := newState(t)
	id := ident(0x04)

	tx := s.Begin()
	tx.SetFrozen(id, true)
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	frozen, _ := s.Frozen(id)
	if !frozen {
		t.Fatal("expected frozen")
	}

	tx = s.Begin()
	tx.SetFrozen(id, false)
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	frozen, _ = s.Frozen(id)
	if frozen {
		t.Fatal("expected unfrozen")
	}
}

func TestState_LargeAmounts(t *testing.T) {
	s := newState(t)
	id := ident(0x05)

	big, err := types.ParseAmount("123456789012345678901234567890")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}

	tx := s.Begin()
	tx.SetBalance(id, big)
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, _ := s.Balance(id)
	if got.Cmp(big) != 0 {
		t.Errorf("balance = %s, want %s", got, big)
	}
}
