// Package tx drives a single contract invocation through its full
// lifecycle: account resolution, envelope construction, external signing,
// broadcast, and confirmation polling.
package tx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
	"lukechampine.com/blake3"
)

// BaseFee is the fixed fee attached to every invocation envelope.
const BaseFee = 100

// EnvelopeTimeout bounds envelope validity, in seconds.
const EnvelopeTimeout = 30

// Envelope is an unsigned contract invocation. Field order is fixed so the
// canonical encoding, and therefore the signing digest, is deterministic.
type Envelope struct {
	ContractID string        `json:"contractId"`
	Method     string        `json:"method"`
	Args       []interface{} `json:"args"`
	Source     string        `json:"source"`
	Sequence   uint64        `json:"sequence"`
	Fee        int64         `json:"fee"`
	Timeout    int64         `json:"timeout"`
	Network    string        `json:"network"`
}

// CanonicalJSON returns the byte form covered by the signature.
func (e Envelope) CanonicalJSON() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("tx: encode envelope: %w", err)
	}
	return raw, nil
}

// Digest returns the blake3 digest the signer commits to.
func (e Envelope) Digest() ([32]byte, error) {
	raw, err := e.CanonicalJSON()
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(raw), nil
}

// SignedEnvelope pairs the canonical payload with its signature. Encode
// produces the wire form accepted by sendTransaction.
type SignedEnvelope struct {
	Payload   string `json:"payload"`   // base64 canonical envelope
	Signature string `json:"signature"` // base58 detached signature
	Signer    string `json:"signer"`    // signing address
}

// Encode serializes the signed envelope for broadcast.
func (s SignedEnvelope) Encode() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("tx: encode signed envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// NewSignedEnvelope assembles the wire structure from an envelope and a raw
// detached signature.
func NewSignedEnvelope(env Envelope, signature []byte, signer string) (SignedEnvelope, error) {
	raw, err := env.CanonicalJSON()
	if err != nil {
		return SignedEnvelope{}, err
	}
	return SignedEnvelope{
		Payload:   base64.StdEncoding.EncodeToString(raw),
		Signature: base58.Encode(signature),
		Signer:    signer,
	}, nil
}

// SignOptions bind a signing request to a caller address and network so
// the wallet cannot sign for the wrong chain.
type SignOptions struct {
	Address string
	Network string
}

// Signer is the external wallet collaborator. Implementations may reject a
// request; the submitter surfaces that as ErrSigningRejected.
type Signer interface {
	Address() string
	SignTransaction(ctx context.Context, env Envelope, opts SignOptions) (SignedEnvelope, error)
}
