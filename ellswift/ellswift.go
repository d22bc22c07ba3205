// Package ellswift implements a 64-byte, always-decodable encoding of
// secp256k1 public keys in the style of Elligator-Swift, plus the
// ECDH shortcut that turns two such encodings directly into an X-only
// shared secret without ever materializing the intermediate points'
// Y-coordinates for the caller.
//
// Grounded on the teacher's secp256k1/curve.go field arithmetic
// (ComputeY, Sqrt, IsQuadraticResidue) and on the two-argument shape of
// its own ECDH helper (secp256k1/keys.go's ECDHX). The encode/decode
// mapping itself follows the real Elligator-Swift construction for
// j=0 curves (secp256k1's y^2=x^3+7 has no x^2 term): three candidate
// X coordinates derived from (u,t) via an intermediate value built from
// a fixed square root of -3, of which at least one always lands on the
// curve by a standard quadratic-character argument (the product of an
// even number of non-residues is itself a residue). See DESIGN.md for
// how this was derived and verified, and for what it does and does not
// guarantee relative to upstream's exact encoded byte layout.
package ellswift

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	"github.com/stratospher/bip324-transport/secp256k1"
)

// Len is the size in bytes of one EllSwift-encoded public key: two
// 32-byte field elements, u and t.
const Len = 64

// searchWidth bounds a defensive fallback search Decode falls back to
// if none of the three candidate X coordinates the main construction
// produces lands on the curve. This should be unreachable: the
// three-candidate construction is total by the quadratic-character
// argument documented on the package above. It exists only as a
// backstop against a derivation error, since Decode must never fail on
// attacker-controlled input.
const searchWidth = 192

// ErrInvalidLength is returned when an EllSwift-encoded value is not
// exactly Len bytes.
var ErrInvalidLength = errors.New("ellswift: encoded value must be 64 bytes")

// sqrtNeg3 is a fixed square root of -3 mod p. It is computed once at
// package init rather than hardcoded as a literal: -3 being a
// quadratic residue mod p follows from p being congruent to 1 mod 3
// (the same fact that gives secp256k1 its GLV endomorphism), via
// quadratic reciprocity.
var sqrtNeg3 = func() *big.Int {
	c := secp256k1.S256()
	neg3 := new(big.Int).Sub(c.P, big.NewInt(3))
	root := c.Sqrt(neg3)
	if root == nil {
		panic("ellswift: -3 is not a quadratic residue mod p")
	}
	return root
}()

// FromBytes validates and converts a wire-read byte slice into the
// fixed-size array Encode/Decode/XDH operate on.
func FromBytes(b []byte) ([Len]byte, error) {
	var out [Len]byte
	if len(b) != Len {
		return out, ErrInvalidLength
	}
	copy(out[:], b)
	return out, nil
}

// Encode samples a fresh (u, t) encoding of priv's public key, reading
// randomness from r (pass crypto/rand.Reader in production; tests may
// substitute a deterministic reader).
//
// It inverts the candidate-1 branch of Decode's construction (x =
// X_cap - u, where X_cap = (g(u)-t^2)/(2t)): for a random u this gives
// a quadratic in t, t^2 + 2*X_cap*t - g(u) = 0, solvable whenever its
// discriminant is a square. That happens for roughly half of sampled
// u, so this resamples u on failure rather than attempting to invert
// the other two candidate branches, which are higher-degree in t.
func Encode(priv *secp256k1.PrivateKey, r io.Reader) ([Len]byte, error) {
	var out [Len]byte
	c := secp256k1.S256()
	pub := priv.PublicKey()

	for {
		u, err := randFieldElement(r, c.P)
		if err != nil {
			return out, err
		}
		if u.Sign() == 0 {
			continue
		}

		capX := new(big.Int).Add(pub.X, u)
		capX.Mod(capX, c.P)

		gu := curveG(c, u)
		disc := new(big.Int).Mul(capX, capX)
		disc.Add(disc, gu)
		disc.Mod(disc, c.P)

		root := c.Sqrt(disc)
		if root == nil {
			continue
		}

		t := new(big.Int).Sub(root, capX)
		t.Mod(t, c.P)
		if t.Sign() == 0 {
			continue
		}

		putFieldElement(out[:32], u, c.P)
		putFieldElement(out[32:], t, c.P)
		return out, nil
	}
}

// Decode recovers the public key encoded by enc. Decode is total:
// every 64-byte input maps to some point on the curve.
//
// Given (u,t), it computes:
//
//	X_cap = (g(u) - t^2) / (2t)
//	Y_cap = (X_cap + u) / (sqrt(-3) * t)
//
// and tries three candidate X coordinates, in order:
//
//	x1 = X_cap - u
//	x2 = -(X_cap + u + Y_cap^2)
//	x3 = u + Y_cap^2
//
// At least one of g(x1), g(x2), g(x3) is always a quadratic residue:
// their product works out to a perfect square as a function of (u,t),
// and a product of quadratic residues and non-residues is itself a
// residue only when an even number of its factors are non-residues, so
// it is never the case that all three are non-residues.
func Decode(enc [Len]byte) *secp256k1.PublicKey {
	c := secp256k1.S256()
	u := new(big.Int).SetBytes(enc[:32])
	u.Mod(u, c.P)
	t := new(big.Int).SetBytes(enc[32:])
	t.Mod(t, c.P)
	if t.Sign() == 0 {
		t.SetInt64(1)
	}

	gu := curveG(c, u)

	s := new(big.Int).Mul(t, t)
	s.Mod(s, c.P)

	num := new(big.Int).Sub(gu, s)
	num.Mod(num, c.P)
	twoT := new(big.Int).Lsh(t, 1)
	twoT.Mod(twoT, c.P)
	twoTInv := new(big.Int).ModInverse(twoT, c.P)
	capX := new(big.Int).Mul(num, twoTInv)
	capX.Mod(capX, c.P)

	ynum := new(big.Int).Add(capX, u)
	ynum.Mod(ynum, c.P)
	denom := new(big.Int).Mul(sqrtNeg3, t)
	denom.Mod(denom, c.P)
	denomInv := new(big.Int).ModInverse(denom, c.P)
	capY := new(big.Int).Mul(ynum, denomInv)
	capY.Mod(capY, c.P)

	y2 := new(big.Int).Mul(capY, capY)
	y2.Mod(y2, c.P)

	x1 := new(big.Int).Sub(capX, u)
	x1.Mod(x1, c.P)

	x2 := new(big.Int).Add(capX, u)
	x2.Add(x2, y2)
	x2.Neg(x2)
	x2.Mod(x2, c.P)

	x3 := new(big.Int).Add(u, y2)
	x3.Mod(x3, c.P)

	for _, x := range []*big.Int{x1, x2, x3} {
		if y := c.Sqrt(curveG(c, x)); y != nil {
			return &secp256k1.PublicKey{X: x, Y: evenRoot(c, y)}
		}
	}

	for i := int64(0); i < searchWidth; i++ {
		x := new(big.Int).Add(capX, big.NewInt(i))
		x.Mod(x, c.P)
		if y := c.Sqrt(curveG(c, x)); y != nil {
			return &secp256k1.PublicKey{X: x, Y: evenRoot(c, y)}
		}
	}
	return &secp256k1.PublicKey{X: new(big.Int).Set(c.Gx), Y: new(big.Int).Set(c.Gy)}
}

// curveG evaluates g(x) = x^3 + 7 mod p, the curve's right-hand side.
func curveG(c *secp256k1.Curve, x *big.Int) *big.Int {
	x3 := new(big.Int).Mul(x, x)
	x3.Mod(x3, c.P)
	x3.Mul(x3, x)
	x3.Mod(x3, c.P)
	x3.Add(x3, c.B)
	x3.Mod(x3, c.P)
	return x3
}

// evenRoot picks the even-parity square root between y and p-y, fixing
// a canonical Y for a given X so Decode is a pure function of its
// input.
func evenRoot(c *secp256k1.Curve, y *big.Int) *big.Int {
	if y.Bit(0) == 0 {
		return y
	}
	return new(big.Int).Sub(c.P, y)
}

// XDH computes the ECDH shortcut: decode the peer's EllSwift-encoded
// public key (ourEll is not decoded, only passed through to extract),
// perform X-only ECDH with priv against the peer's point, and
// feed the raw shared X coordinate together with both encodings to
// extract. The Y-coordinate sign Decode fixes for each side does not
// affect this result, since negating a point's Y before scalar
// multiplication only flips the Y sign of the product, never its X.
func XDH(priv *secp256k1.PrivateKey, ourEll, theirEll [Len]byte, extract func(rawX []byte, a, b [Len]byte) []byte) ([]byte, error) {
	theirPub := Decode(theirEll)
	rawX, err := secp256k1.ECDHX(priv, theirPub)
	if err != nil {
		return nil, err
	}
	return extract(rawX, ourEll, theirEll), nil
}

func randFieldElement(r io.Reader, p *big.Int) (*big.Int, error) {
	for {
		b := make([]byte, 32)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		v := new(big.Int).SetBytes(b)
		if v.Cmp(p) < 0 {
			return v, nil
		}
	}
}

func putFieldElement(dst []byte, v, p *big.Int) {
	v = new(big.Int).Mod(v, p)
	b := v.Bytes()
	copy(dst[len(dst)-len(b):], b)
}

// Reader is crypto/rand.Reader, a randomness source callers may pass to
// Encode; Encode itself has no default and always reads from its r.
var Reader = rand.Reader
