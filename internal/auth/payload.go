// Package auth builds canonical signature payloads and verifies that an
// authorization proof genuinely authorizes a claimed identity for one
// specific payload.
package auth

import (
	"encoding/binary"

	"github.com/Klingon-tech/klingnet-token/pkg/crypto"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

// payloadVersion is the version tag of the signing payload layout.
const payloadVersion byte = 0x00

// Arg value tags in the canonical encoding.
const (
	argTagIdentity byte = 0x01
	argTagUint     byte = 0x02
	argTagAmount   byte = 0x03
	argTagBytes    byte = 0x04
)

// Arg is one argument value in a signing payload.
type Arg interface {
	appendArg(buf []byte) []byte
}

type identityArg types.Identity

func (a identityArg) appendArg(buf []byte) []byte {
	buf = append(buf, argTagIdentity)
	return types.Identity(a).AppendKey(buf)
}

type uintArg uint64

func (a uintArg) appendArg(buf []byte) []byte {
	buf = append(buf, argTagUint)
	return binary.LittleEndian.AppendUint64(buf, uint64(a))
}

type amountArg struct{ v types.Amount }

func (a amountArg) appendArg(buf []byte) []byte {
	raw := a.v.Bytes()
	buf = append(buf, argTagAmount)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(raw)))
	return append(buf, raw...)
}

type bytesArg []byte

func (a bytesArg) appendArg(buf []byte) []byte {
	buf = append(buf, argTagBytes)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(a)))
	return append(buf, a...)
}

// IdentityArg wraps an identity argument.
func IdentityArg(id types.Identity) Arg { return identityArg(id) }

// UintArg wraps an unsigned integer argument (nonces, decimals).
func UintArg(v uint64) Arg { return uintArg(v) }

// AmountArg wraps an amount argument.
func AmountArg(v types.Amount) Arg { return amountArg{v: v} }

// BytesArg wraps a raw byte-string argument.
func BytesArg(b []byte) Arg { return bytesArg(b) }

// Payload is the version-0 signable message for one contract operation.
// It binds the function name, the contract instance, the network, and the
// ordered argument list, and is never persisted.
type Payload struct {
	Function string
	Contract types.ContractID
	Network  string
	Args     []Arg
}

// NewPayload builds a signing payload for the given operation.
func NewPayload(function string, contract types.ContractID, network string, args ...Arg) *Payload {
	return &Payload{Function: function, Contract: contract, Network: network, Args: args}
}

// SigningBytes returns the canonical byte representation to be signed.
// Format: version(1) | fn_len(4) fn | contract(32) | net_len(4) net |
// arg_count(4) | [tag(1) + value]...
func (p *Payload) SigningBytes() []byte {
	var buf []byte

	buf = append(buf, payloadVersion)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Function)))
	buf = append(buf, p.Function...)

	buf = append(buf, p.Contract[:]...)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Network)))
	buf = append(buf, p.Network...)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Args)))
	for _, arg := range p.Args {
		buf = arg.appendArg(buf)
	}

	return buf
}

// Hash computes the 32-byte digest of the canonical payload. This is the
// message that identities sign.
func (p *Payload) Hash() types.Hash {
	return crypto.Hash(p.SigningBytes())
}
