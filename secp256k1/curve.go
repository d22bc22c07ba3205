// Package secp256k1 implements the field and group arithmetic of the
// secp256k1 curve used by the rest of this module (EllSwift encoding,
// X-only ECDH). The curve is hand-rolled on top of math/big and
// crypto/elliptic rather than pulled from a third-party curve library,
// matching the precedent set by the teacher's own placeholder-free
// intent: Go's standard library ships no secp256k1 implementation.
package secp256k1

import (
	"crypto/elliptic"
	"math/big"
	"sync"
)

// curve parameters from SEC 2: https://www.secg.org/sec2-v2.pdf

var initonce sync.Once
var instance *Curve

func initSecp256k1() {
	p, _ := new(big.Int).SetString("fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f", 16)
	n, _ := new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
	gx, _ := new(big.Int).SetString("79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798", 16)
	gy, _ := new(big.Int).SetString("483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8", 16)

	instance = &Curve{
		P:  p,
		N:  n,
		B:  big.NewInt(7),
		Gx: gx,
		Gy: gy,
		params: &elliptic.CurveParams{
			P:       p,
			N:       n,
			B:       big.NewInt(7),
			Gx:      gx,
			Gy:      gy,
			BitSize: 256,
			Name:    "secp256k1",
		},
	}
}

// Curve implements elliptic.Curve for y^2 = x^3 + 7 over F_p.
type Curve struct {
	P, N, B *big.Int
	Gx, Gy  *big.Int
	params  *elliptic.CurveParams
}

// S256 returns the secp256k1 curve singleton.
func S256() *Curve {
	initonce.Do(initSecp256k1)
	return instance
}

func (c *Curve) Params() *elliptic.CurveParams { return c.params }

// IsOnCurve checks if (x, y) satisfies y^2 = x^3 + 7 (mod p).
func (c *Curve) IsOnCurve(x, y *big.Int) bool {
	if x == nil || y == nil {
		return false
	}
	if x.Sign() < 0 || y.Sign() < 0 {
		return false
	}
	if x.Cmp(c.P) >= 0 || y.Cmp(c.P) >= 0 {
		return false
	}
	y2 := new(big.Int).Mul(y, y)
	y2.Mod(y2, c.P)

	x3 := new(big.Int).Mul(x, x)
	x3.Mod(x3, c.P)
	x3.Mul(x3, x)
	x3.Mod(x3, c.P)
	x3.Add(x3, c.B)
	x3.Mod(x3, c.P)

	return y2.Cmp(x3) == 0
}

// Add returns the sum of (x1,y1) and (x2,y2) on the curve. The point at
// infinity is represented as (0,0).
func (c *Curve) Add(x1, y1, x2, y2 *big.Int) (*big.Int, *big.Int) {
	if x1.Sign() == 0 && y1.Sign() == 0 {
		return new(big.Int).Set(x2), new(big.Int).Set(y2)
	}
	if x2.Sign() == 0 && y2.Sign() == 0 {
		return new(big.Int).Set(x1), new(big.Int).Set(y1)
	}
	if x1.Cmp(x2) == 0 && y1.Cmp(y2) == 0 {
		return c.Double(x1, y1)
	}
	if x1.Cmp(x2) == 0 {
		return new(big.Int), new(big.Int)
	}

	dy := new(big.Int).Sub(y2, y1)
	dy.Mod(dy, c.P)
	dx := new(big.Int).Sub(x2, x1)
	dx.Mod(dx, c.P)
	dxInv := new(big.Int).ModInverse(dx, c.P)
	if dxInv == nil {
		return new(big.Int), new(big.Int)
	}
	slope := new(big.Int).Mul(dy, dxInv)
	slope.Mod(slope, c.P)

	x3 := new(big.Int).Mul(slope, slope)
	x3.Sub(x3, x1)
	x3.Sub(x3, x2)
	x3.Mod(x3, c.P)

	y3 := new(big.Int).Sub(x1, x3)
	y3.Mul(y3, slope)
	y3.Sub(y3, y1)
	y3.Mod(y3, c.P)

	return x3, y3
}

// Double returns 2*(x,y) on the curve.
func (c *Curve) Double(x1, y1 *big.Int) (*big.Int, *big.Int) {
	if y1.Sign() == 0 {
		return new(big.Int), new(big.Int)
	}

	x1sq := new(big.Int).Mul(x1, x1)
	x1sq.Mod(x1sq, c.P)
	num := new(big.Int).Mul(big.NewInt(3), x1sq)
	num.Mod(num, c.P)

	den := new(big.Int).Mul(big.NewInt(2), y1)
	den.Mod(den, c.P)
	denInv := new(big.Int).ModInverse(den, c.P)
	if denInv == nil {
		return new(big.Int), new(big.Int)
	}
	slope := new(big.Int).Mul(num, denInv)
	slope.Mod(slope, c.P)

	x3 := new(big.Int).Mul(slope, slope)
	x3.Sub(x3, new(big.Int).Mul(big.NewInt(2), x1))
	x3.Mod(x3, c.P)

	y3 := new(big.Int).Sub(x1, x3)
	y3.Mul(y3, slope)
	y3.Sub(y3, y1)
	y3.Mod(y3, c.P)

	return x3, y3
}

// ScalarMult returns k*(x,y) using double-and-add.
func (c *Curve) ScalarMult(bx, by *big.Int, k []byte) (*big.Int, *big.Int) {
	scalar := new(big.Int).SetBytes(k)
	scalar.Mod(scalar, c.N)

	if scalar.Sign() == 0 {
		return new(big.Int), new(big.Int)
	}

	rx, ry := new(big.Int), new(big.Int)
	px, py := new(big.Int).Set(bx), new(big.Int).Set(by)

	for i := scalar.BitLen() - 1; i >= 0; i-- {
		rx, ry = c.Double(rx, ry)
		if scalar.Bit(i) == 1 {
			rx, ry = c.Add(rx, ry, px, py)
		}
	}

	return rx, ry
}

// ScalarBaseMult returns k*G where G is the base point.
func (c *Curve) ScalarBaseMult(k []byte) (*big.Int, *big.Int) {
	return c.ScalarMult(c.Gx, c.Gy, k)
}

// ComputeY returns a square root of x^3+7 mod p, i.e. a Y such that (x,Y)
// is on the curve, or nil if x^3+7 is not a quadratic residue. Since
// secp256k1's p is congruent to 3 mod 4, the square root is computed
// directly as a^((p+1)/4).
func (c *Curve) ComputeY(x *big.Int) *big.Int {
	x3 := new(big.Int).Mul(x, x)
	x3.Mod(x3, c.P)
	x3.Mul(x3, x)
	x3.Mod(x3, c.P)
	x3.Add(x3, c.B)
	x3.Mod(x3, c.P)
	return sqrtMod(x3, c.P)
}

// sqrtMod returns a square root of a mod p for p ≡ 3 (mod 4), or nil if a
// is not a quadratic residue.
func sqrtMod(a, p *big.Int) *big.Int {
	exp := new(big.Int).Add(p, big.NewInt(1))
	exp.Rsh(exp, 2)
	y := new(big.Int).Exp(a, exp, p)

	y2 := new(big.Int).Mul(y, y)
	y2.Mod(y2, p)
	if y2.Cmp(new(big.Int).Mod(a, p)) != 0 {
		return nil
	}
	return y
}

// Sqrt returns a square root of a mod p, or nil if a is not a square.
// Unlike ComputeY, which solves the curve equation for a given X, this
// operates on an arbitrary field element -- used by the ellswift
// package's EllSwift mapping, which takes square roots of several
// intermediate values that aren't curve Y-coordinates.
func (c *Curve) Sqrt(a *big.Int) *big.Int {
	return sqrtMod(a, c.P)
}

// IsQuadraticResidue reports whether a is a nonzero square mod p, via
// Euler's criterion.
func (c *Curve) IsQuadraticResidue(a *big.Int) bool {
	if a.Sign() == 0 {
		return false
	}
	exp := new(big.Int).Sub(c.P, big.NewInt(1))
	exp.Rsh(exp, 1)
	r := new(big.Int).Exp(a, exp, c.P)
	return r.Cmp(big.NewInt(1)) == 0
}
