package bip324transport

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stratospher/bip324-transport/bip324"
	"github.com/stratospher/bip324-transport/transport"
)

func testConfig() Config {
	return Config{NetworkID: [4]byte{0xf9, 0xbe, 0xb4, 0xd9}}
}

func TestNegotiateAgreesOnSession(t *testing.T) {
	initKey, err := NewEphemeralKey(rand.Reader)
	if err != nil {
		t.Fatalf("NewEphemeralKey initiator: %v", err)
	}
	respKey, err := NewEphemeralKey(rand.Reader)
	if err != nil {
		t.Fatalf("NewEphemeralKey responder: %v", err)
	}

	cfg := testConfig()
	_, initSess, err := Negotiate(cfg, Initiator, initKey, respKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate initiator: %v", err)
	}
	_, respSess, err := Negotiate(cfg, Responder, respKey, initKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate responder: %v", err)
	}

	if *initSess != *respSess {
		t.Fatal("initiator and responder derived different session state")
	}
}

func TestNegotiateEndToEndMessage(t *testing.T) {
	initKey, _ := NewEphemeralKey(rand.Reader)
	respKey, _ := NewEphemeralKey(rand.Reader)
	cfg := testConfig()

	initDir, initSess, err := Negotiate(cfg, Initiator, initKey, respKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate initiator: %v", err)
	}
	respDir, respSess, err := Negotiate(cfg, Responder, respKey, initKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate responder: %v", err)
	}

	initSer, _ := NewSerializers(Initiator, initDir, initSess)
	_, respDeser := NewSerializers(Responder, respDir, respSess)

	var stream bytes.Buffer
	stream.Write(initSess.InitiatorGarbageTerminator[:])

	placeholder, _ := initSer.PrepareForTransport(transport.NetMessage{Type: "version"})
	stream.Write(placeholder)

	real, _ := initSer.PrepareForTransport(transport.NetMessage{Type: "ping", Payload: []byte{9, 9, 9, 9, 9, 9, 9, 9}})
	stream.Write(real)

	data := stream.Bytes()
	n, err := respDeser.Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	data = data[n:]
	if !respDeser.Complete() {
		t.Fatal("expected placeholder complete")
	}
	if _, reject, disconnect, err := respDeser.GetMessage(); err != nil || !reject || disconnect {
		t.Fatalf("placeholder: err=%v reject=%v disconnect=%v", err, reject, disconnect)
	}

	n, err = respDeser.Read(data)
	if err != nil {
		t.Fatalf("Read second: %v", err)
	}
	data = data[n:]
	if !respDeser.Complete() {
		t.Fatal("expected second message complete")
	}
	msg, reject, disconnect, err := respDeser.GetMessage()
	if err != nil || reject || disconnect {
		t.Fatalf("second: err=%v reject=%v disconnect=%v", err, reject, disconnect)
	}
	if msg.Type != "ping" || !bytes.Equal(msg.Payload, []byte{9, 9, 9, 9, 9, 9, 9, 9}) {
		t.Fatalf("got %+v", msg)
	}
	if len(data) != 0 {
		t.Fatalf("%d trailing bytes", len(data))
	}
}

func TestNegotiateFromWireRejectsShortEncoding(t *testing.T) {
	initKey, _ := NewEphemeralKey(rand.Reader)
	cfg := testConfig()
	if _, _, err := NegotiateFromWire(cfg, Initiator, initKey, make([]byte, 63)); err != ErrInvalidEllswiftLength {
		t.Fatalf("expected ErrInvalidEllswiftLength, got %v", err)
	}
}

func TestNegotiateFromWireAgreesWithNegotiate(t *testing.T) {
	initKey, _ := NewEphemeralKey(rand.Reader)
	respKey, _ := NewEphemeralKey(rand.Reader)
	cfg := testConfig()

	_, initSess, err := NegotiateFromWire(cfg, Initiator, initKey, respKey.Encoded[:])
	if err != nil {
		t.Fatalf("NegotiateFromWire initiator: %v", err)
	}
	_, respSess, err := Negotiate(cfg, Responder, respKey, initKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate responder: %v", err)
	}
	if *initSess != *respSess {
		t.Fatal("initiator and responder derived different session state")
	}
}

func TestDecryptPacketLengthRoundTrips(t *testing.T) {
	initKey, _ := NewEphemeralKey(rand.Reader)
	respKey, _ := NewEphemeralKey(rand.Reader)
	cfg := testConfig()
	initDir, _, err := Negotiate(cfg, Initiator, initKey, respKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	respDir, _, err := Negotiate(cfg, Responder, respKey, initKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate responder: %v", err)
	}

	contents := []byte("length me")
	out := make([]byte, bip324.EncryptedLen(len(contents)))
	if err := EncryptPacket(initDir.Send, nil, contents, 0, out); err != nil {
		t.Fatalf("EncryptPacket: %v", err)
	}
	n, err := DecryptPacketLength(respDir.Recv, [3]byte(out[:3]))
	if err != nil {
		t.Fatalf("DecryptPacketLength: %v", err)
	}
	if int(n) != len(contents) {
		t.Fatalf("decrypted length = %d, want %d", n, len(contents))
	}
}

func TestDecryptPacketTranslatesAuthFail(t *testing.T) {
	initKey, _ := NewEphemeralKey(rand.Reader)
	respKey, _ := NewEphemeralKey(rand.Reader)
	cfg := testConfig()

	initDir, _, err := Negotiate(cfg, Initiator, initKey, respKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate initiator: %v", err)
	}
	respDir, _, err := Negotiate(cfg, Responder, respKey, initKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate responder: %v", err)
	}

	contents := []byte("hello")
	out := make([]byte, bip324.EncryptedLen(len(contents)))
	if err := EncryptPacket(initDir.Send, nil, contents, 0, out); err != nil {
		t.Fatalf("EncryptPacket: %v", err)
	}
	out[len(out)-1] ^= 0xff

	if _, err := DecryptPacketLength(respDir.Recv, [3]byte(out[:3])); err != nil {
		t.Fatalf("DecryptPacketLength: %v", err)
	}
	if _, _, err := DecryptPacket(respDir.Recv, nil, out[3:]); err != ErrAEADAuthFail {
		t.Fatalf("expected ErrAEADAuthFail, got %v", err)
	}
}

func TestNegotiateHonorsCustomRekeyInterval(t *testing.T) {
	initKey, _ := NewEphemeralKey(rand.Reader)
	respKey, _ := NewEphemeralKey(rand.Reader)
	cfg := Config{NetworkID: [4]byte{0xf9, 0xbe, 0xb4, 0xd9}, RekeyInterval: 2}

	initDir, _, err := Negotiate(cfg, Initiator, initKey, respKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate initiator: %v", err)
	}
	respDir, _, err := Negotiate(cfg, Responder, respKey, initKey.Encoded)
	if err != nil {
		t.Fatalf("Negotiate responder: %v", err)
	}

	for i := 0; i < int(cfg.RekeyInterval); i++ {
		contents := []byte{byte(i)}
		out := make([]byte, bip324.EncryptedLen(len(contents)))
		if err := EncryptPacket(initDir.Send, nil, contents, 0, out); err != nil {
			t.Fatalf("EncryptPacket at %d: %v", i, err)
		}
		if _, err := DecryptPacketLength(respDir.Recv, [3]byte(out[:3])); err != nil {
			t.Fatalf("DecryptPacketLength at %d: %v", i, err)
		}
		if _, _, err := DecryptPacket(respDir.Recv, nil, out[3:]); err != nil {
			t.Fatalf("DecryptPacket at %d: %v", i, err)
		}
	}
	if initDir.Send.PacketCounter() != cfg.RekeyInterval {
		t.Fatalf("packet counter = %d, want %d", initDir.Send.PacketCounter(), cfg.RekeyInterval)
	}

	// One more packet after the rekey boundary must still decrypt
	// correctly, proving both sides rotated key_P in lockstep.
	contents := []byte("post-rekey")
	out := make([]byte, bip324.EncryptedLen(len(contents)))
	if err := EncryptPacket(initDir.Send, nil, contents, 0, out); err != nil {
		t.Fatalf("EncryptPacket post-rekey: %v", err)
	}
	if _, err := DecryptPacketLength(respDir.Recv, [3]byte(out[:3])); err != nil {
		t.Fatalf("DecryptPacketLength post-rekey: %v", err)
	}
	if _, got, err := DecryptPacket(respDir.Recv, nil, out[3:]); err != nil || string(got) != string(contents) {
		t.Fatalf("post-rekey packet: got %q, err %v", got, err)
	}
}

func TestConfigValidateDefaultsRekeyInterval(t *testing.T) {
	cfg := Config{NetworkID: [4]byte{1, 2, 3, 4}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.RekeyInterval != DefaultRekeyInterval {
		t.Fatalf("RekeyInterval = %d, want %d", cfg.RekeyInterval, DefaultRekeyInterval)
	}
}
