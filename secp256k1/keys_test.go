package secp256k1

import (
	"bytes"
	"math/big"
	"testing"
)

func TestGenerateKeyProducesValidKeypair(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pub := priv.PublicKey()
	if !pub.IsOnCurve() {
		t.Fatal("derived public key is not on the curve")
	}
}

func TestECDHAgreement(t *testing.T) {
	a, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	b, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	xab, err := ECDHX(a, b.PublicKey())
	if err != nil {
		t.Fatalf("ECDHX(a,B): %v", err)
	}
	xba, err := ECDHX(b, a.PublicKey())
	if err != nil {
		t.Fatalf("ECDHX(b,A): %v", err)
	}
	if !bytes.Equal(xab, xba) {
		t.Fatal("ECDH shared X does not agree between the two sides")
	}
}

func TestECDHZeroScalar(t *testing.T) {
	b, _ := GenerateKey()
	zero := &PrivateKey{D: big.NewInt(0)}
	if _, err := ECDHX(zero, b.PublicKey()); err != ErrZeroScalar {
		t.Fatalf("expected ErrZeroScalar, got %v", err)
	}
}

func TestECDHZeroPoint(t *testing.T) {
	a, _ := GenerateKey()
	identity := &PublicKey{X: big.NewInt(0), Y: big.NewInt(0)}
	if _, err := ECDHX(a, identity); err != ErrZeroPoint {
		t.Fatalf("expected ErrZeroPoint, got %v", err)
	}
}

func TestParsePrivateKeyRejectsWrongLength(t *testing.T) {
	if _, err := ParsePrivateKey(make([]byte, 31)); err != ErrInvalidPrivateKeyLength {
		t.Fatalf("expected ErrInvalidPrivateKeyLength, got %v", err)
	}
}
