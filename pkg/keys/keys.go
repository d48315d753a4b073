// Package keys defines the 32-byte public-key type used to identify
// signers and records throughout the marketplace program.
package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const PubkeyLen = 32

// Pubkey is an ed25519 public key (or a program-derived address, which is
// a 32-byte value deliberately off the ed25519 curve).
type Pubkey [PubkeyLen]byte

var Zero Pubkey

func FromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != PubkeyLen {
		return pk, fmt.Errorf("pubkey must be %d bytes, got %d", PubkeyLen, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func Parse(s string) (Pubkey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse pubkey: %w", err)
	}
	return FromBytes(b)
}

func MustParse(s string) Pubkey {
	pk, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (p Pubkey) String() string { return hex.EncodeToString(p[:]) }

func (p Pubkey) Bytes() []byte { return p[:] }

func (p Pubkey) IsZero() bool { return p == Zero }

func (p Pubkey) Equal(o Pubkey) bool { return bytes.Equal(p[:], o[:]) }

func (p Pubkey) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Pubkey) UnmarshalText(b []byte) error {
	pk, err := Parse(string(b))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}

// Keypair is a signing identity. Used by the CLI and tests; the on-chain
// program itself only ever sees public keys plus host-verified signer flags.
type Keypair struct {
	Public  Pubkey
	Private ed25519.PrivateKey
}

func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	pk, err := FromBytes(pub)
	if err != nil {
		return nil, err
	}
	return &Keypair{Public: pk, Private: priv}, nil
}

func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// VerifySignature reports whether sig is a valid ed25519 signature by pk
// over msg.
func VerifySignature(pk Pubkey, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), msg, sig)
}
