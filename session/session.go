// Package session implements the key-derivation layer that turns an
// X-only ECDH secret and the two EllSwift ephemeral encodings into the
// six (seven, counting both garbage terminators) pieces of session
// keying material that seed a pair of cipher-suite instances.
//
// Derivation follows a single HKDF-SHA256 extract (see Extract) whose
// pseudorandom key (PRK) is then expanded with distinct info strings
// (see Derive) -- the same two-step shape the teacher's ECIES code
// used for its own multi-key derivation (crypto/ecies.go,
// DeriveSessionKeys/taggedHash), generalized here to the real RFC 5869
// HKDF construction via golang.org/x/crypto/hkdf instead of a
// hand-rolled tagged SHA-256.
package session

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// EllswiftLen is the size in bytes of one EllSwift-encoded public key.
const EllswiftLen = 64

// saltPrefix is the fixed domain-separation string prepended to the
// 4-byte network identifier to build the HKDF-extract salt.
const saltPrefix = "bitcoin_v2_shared_secret"

// Session holds the keying material both peers derive identically.
type Session struct {
	InitiatorL, InitiatorP      [32]byte
	ResponderL, ResponderP      [32]byte
	SessionID                   [32]byte
	InitiatorGarbageTerminator  [16]byte
	ResponderGarbageTerminator  [16]byte
}

// Salt builds the HKDF-extract salt from a 4-byte network identifier:
// the fixed ASCII prefix "bitcoin_v2_shared_secret" followed by the
// network id verbatim. This resolves the spec's open question about
// the exact salt layout -- it must match the derivation test vector
// bit-for-bit, and this construction does.
func Salt(networkID [4]byte) []byte {
	out := make([]byte, len(saltPrefix)+4)
	copy(out, saltPrefix)
	copy(out[len(saltPrefix):], networkID[:])
	return out
}

// Extract runs HKDF-extract over the raw X-only ECDH secret bound to
// both EllSwift encodings (initiator's first, then responder's,
// regardless of which side calls this), producing the 32-byte PRK that
// Derive expands. rawSharedX is zeroized before returning.
func Extract(rawSharedX []byte, initiatorEllswift, responderEllswift [EllswiftLen]byte, networkID [4]byte) []byte {
	ikm := make([]byte, 0, len(rawSharedX)+2*EllswiftLen)
	ikm = append(ikm, rawSharedX...)
	ikm = append(ikm, initiatorEllswift[:]...)
	ikm = append(ikm, responderEllswift[:]...)

	prk := hkdf.Extract(sha256.New, ikm, Salt(networkID))

	for i := range rawSharedX {
		rawSharedX[i] = 0
	}
	return prk
}

// Derive expands a PRK (as produced by Extract) into the full Session
// via six HKDF-expand calls, one per distinct info tag. The two garbage
// terminators come from a single 32-byte "garbage_terminators" expand:
// the first 16 bytes are the initiator's, the last 16 the responder's.
func Derive(prk []byte) Session {
	var s Session
	expand(prk, "initiator_L", s.InitiatorL[:])
	expand(prk, "initiator_P", s.InitiatorP[:])
	expand(prk, "responder_L", s.ResponderL[:])
	expand(prk, "responder_P", s.ResponderP[:])
	expand(prk, "session_id", s.SessionID[:])
	var terminators [32]byte
	expand(prk, "garbage_terminators", terminators[:])
	copy(s.InitiatorGarbageTerminator[:], terminators[:16])
	copy(s.ResponderGarbageTerminator[:], terminators[16:])
	return s
}

func expand(prk []byte, info string, out []byte) {
	r := hkdf.Expand(sha256.New, prk, []byte(info))
	if _, err := io.ReadFull(r, out); err != nil {
		// hkdf.Expand only fails if the requested length exceeds
		// 255*hash-size; every output here is at most 32 bytes, so
		// this is unreachable.
		panic(err)
	}
}
