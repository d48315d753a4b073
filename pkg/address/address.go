// Package address derives deterministic record addresses from seed
// tuples. An address is the sha256 of the seeds, a bump byte, the program
// namespace, and a domain separator; candidates that decode as valid
// edwards25519 points are rejected so no private key can ever exist for a
// derived address. The winning bump is stored in the record and re-proved
// on every mutation.
package address

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

const (
	MaxSeeds   = 16
	MaxSeedLen = 32

	derivedMarker = "ProgramDerivedAddress"
)

var (
	ErrNoBumpFound   = errors.New("address: no off-curve bump found")
	ErrOnCurve       = errors.New("address: derived point is on the curve")
	ErrSeedTooLong   = fmt.Errorf("address: seed exceeds %d bytes", MaxSeedLen)
	ErrTooManySeeds  = fmt.Errorf("address: more than %d seeds", MaxSeeds)
)

// Create derives the address for seeds plus an explicit bump. It fails
// with ErrOnCurve when the candidate decodes as a curve point; callers
// discovering a bump use Find instead.
func Create(namespace keys.Pubkey, seeds [][]byte, bump uint8) (keys.Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return keys.Zero, ErrTooManySeeds
	}
	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return keys.Zero, ErrSeedTooLong
		}
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write(namespace[:])
	h.Write([]byte(derivedMarker))

	var pk keys.Pubkey
	copy(pk[:], h.Sum(nil))
	if onCurve(pk) {
		return keys.Zero, ErrOnCurve
	}
	return pk, nil
}

// Find searches bumps from 255 downward for the first off-curve address.
func Find(namespace keys.Pubkey, seeds ...[]byte) (keys.Pubkey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		pk, err := Create(namespace, seeds, uint8(bump))
		if err == nil {
			return pk, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return keys.Zero, 0, err
		}
	}
	return keys.Zero, 0, ErrNoBumpFound
}

func onCurve(pk keys.Pubkey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}

// U64Seed renders a numeric disambiguator as a little-endian seed.
func U64Seed(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}
