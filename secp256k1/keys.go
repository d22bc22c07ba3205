package secp256k1

import (
	"crypto/rand"
	"errors"
	"math/big"
)

var (
	// ErrZeroScalar is returned when a private key (or ECDH scalar) is
	// zero mod the curve order.
	ErrZeroScalar = errors.New("secp256k1: scalar is zero mod n")
	// ErrZeroPoint is returned when a public key decodes to the point
	// at infinity.
	ErrZeroPoint = errors.New("secp256k1: point is the identity")
	// ErrInvalidPrivateKeyLength is returned by ParsePrivateKey.
	ErrInvalidPrivateKeyLength = errors.New("secp256k1: private key must be 32 bytes")
)

// PrivateKey is a scalar in [1, n-1].
type PrivateKey struct {
	D *big.Int
}

// PublicKey is a point on the curve.
type PublicKey struct {
	X, Y *big.Int
}

// GenerateKey samples a uniform private key in [1, n-1].
func GenerateKey() (*PrivateKey, error) {
	c := S256()
	for {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		d := new(big.Int).SetBytes(b)
		if d.Sign() == 0 || d.Cmp(c.N) >= 0 {
			continue
		}
		return &PrivateKey{D: d}, nil
	}
}

// ParsePrivateKey parses a 32-byte big-endian scalar. It does not reduce
// mod n: callers that need X-only ECDH against an arbitrary 32-byte
// secret should reduce explicitly.
func ParsePrivateKey(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, ErrInvalidPrivateKeyLength
	}
	return &PrivateKey{D: new(big.Int).SetBytes(b)}, nil
}

// Bytes returns the 32-byte big-endian encoding of the scalar.
func (k *PrivateKey) Bytes() []byte {
	out := make([]byte, 32)
	b := k.D.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// PublicKey derives the public key k*G.
func (k *PrivateKey) PublicKey() *PublicKey {
	c := S256()
	x, y := c.ScalarBaseMult(k.Bytes())
	return &PublicKey{X: x, Y: y}
}

// IsOnCurve reports whether the point is valid and not the identity.
func (p *PublicKey) IsOnCurve() bool {
	if p.X.Sign() == 0 && p.Y.Sign() == 0 {
		return false
	}
	return S256().IsOnCurve(p.X, p.Y)
}

// ECDHX computes the X coordinate of priv * pub, the X-only Diffie-Hellman
// shared secret used by the session-derivation layer. It returns
// ErrZeroScalar if priv is zero mod n, and ErrZeroPoint if priv*pub is the
// point at infinity (which happens iff pub itself is the identity, since n
// is prime and priv is taken mod n and is nonzero).
func ECDHX(priv *PrivateKey, pub *PublicKey) ([]byte, error) {
	c := S256()
	d := new(big.Int).Mod(priv.D, c.N)
	if d.Sign() == 0 {
		return nil, ErrZeroScalar
	}
	x, y := c.ScalarMult(pub.X, pub.Y, d.Bytes())
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil, ErrZeroPoint
	}
	out := make([]byte, 32)
	xb := x.Bytes()
	copy(out[32-len(xb):], xb)
	return out, nil
}
