// Package wallet provides the gateway's local signing key and the
// caller-side balance pre-flight. In production deployments the Signer
// contract is typically satisfied by an external wallet; the local signer
// exists for operator-owned keys and tests.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mr-tron/base58"

	"fundflow/tx"
)

// ErrWrongAddress is returned when a signing request is bound to an
// address other than the local key's.
var ErrWrongAddress = errors.New("wallet: signing request bound to foreign address")

// LocalSigner signs invocation envelopes with an in-process ed25519 key.
type LocalSigner struct {
	priv    ed25519.PrivateKey
	address string
}

// NewLocalSigner derives a signer from a 32-byte ed25519 seed.
func NewLocalSigner(seed []byte) (*LocalSigner, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &LocalSigner{priv: priv, address: base58.Encode(pub)}, nil
}

// NewLocalSignerFromEnv reads a hex-encoded seed from the named
// environment variable.
func NewLocalSignerFromEnv(varName string) (*LocalSigner, error) {
	material := strings.TrimSpace(os.Getenv(varName))
	if material == "" {
		return nil, fmt.Errorf("wallet: environment variable %s not set", varName)
	}
	seed, err := hex.DecodeString(strings.TrimPrefix(material, "0x"))
	if err != nil {
		return nil, fmt.Errorf("wallet: decode seed: %w", err)
	}
	return NewLocalSigner(seed)
}

// GenerateLocalSigner creates a signer with a fresh random key. Used by
// development runs where no key material is configured.
func GenerateLocalSigner() (*LocalSigner, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("wallet: generate seed: %w", err)
	}
	return NewLocalSigner(seed)
}

// Address returns the base58-encoded public key.
func (s *LocalSigner) Address() string {
	if s == nil {
		return ""
	}
	return s.address
}

// SignTransaction signs the envelope's blake3 digest. The request must be
// bound to this signer's address and carry a network identity.
func (s *LocalSigner) SignTransaction(ctx context.Context, env tx.Envelope, opts tx.SignOptions) (tx.SignedEnvelope, error) {
	if s == nil || s.priv == nil {
		return tx.SignedEnvelope{}, fmt.Errorf("wallet: signer not configured")
	}
	select {
	case <-ctx.Done():
		return tx.SignedEnvelope{}, ctx.Err()
	default:
	}
	if opts.Address != s.address {
		return tx.SignedEnvelope{}, ErrWrongAddress
	}
	if strings.TrimSpace(opts.Network) == "" {
		return tx.SignedEnvelope{}, fmt.Errorf("wallet: network identity required")
	}
	digest, err := env.Digest()
	if err != nil {
		return tx.SignedEnvelope{}, err
	}
	sig := ed25519.Sign(s.priv, digest[:])
	return tx.NewSignedEnvelope(env, sig, s.address)
}

// Verify checks a detached signature over an envelope against a base58
// address.
func Verify(address string, env tx.Envelope, signature []byte) (bool, error) {
	pub, err := base58.Decode(address)
	if err != nil {
		return false, fmt.Errorf("wallet: decode address: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("wallet: address is not an ed25519 key")
	}
	digest, err := env.Digest()
	if err != nil {
		return false, err
	}
	return ed25519.Verify(ed25519.PublicKey(pub), digest[:], signature), nil
}
