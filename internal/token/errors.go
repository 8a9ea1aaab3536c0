package token

import (
	"errors"

	"github.com/Klingon-tech/klingnet-token/internal/auth"
	"github.com/Klingon-tech/klingnet-token/internal/ledger"
)

// Operation errors. Every failure aborts the whole call with no state change.
var (
	// ErrAuthorization: the proof does not authorize the claimed identity.
	ErrAuthorization = auth.ErrAuthorization
	// ErrNonceMismatch: the supplied nonce is not the identity's current one.
	ErrNonceMismatch = ledger.ErrNonceMismatch

	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrFrozenIdentity        = errors.New("identity is frozen")
	ErrNotAdmin              = errors.New("not the admin")
	ErrAlreadyInitialized    = errors.New("already initialized")
	ErrNotInitialized        = errors.New("not initialized")
	ErrMalformedInput        = errors.New("malformed input")
)
