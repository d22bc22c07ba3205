package bip324transport

import (
	"errors"
	"io"

	"github.com/stratospher/bip324-transport/bip324"
	"github.com/stratospher/bip324-transport/ellswift"
	"github.com/stratospher/bip324-transport/log"
	"github.com/stratospher/bip324-transport/secp256k1"
	"github.com/stratospher/bip324-transport/session"
	"github.com/stratospher/bip324-transport/transport"
)

// handshakeLog is this package's child logger. Negotiate only ever logs
// the role and outcome of a handshake attempt, never key material or
// derived session state.
var handshakeLog = log.Default().Module("handshake")

// EphemeralKey is a freshly generated keypair for one side of a
// handshake, together with its EllSwift encoding ready to send.
type EphemeralKey struct {
	Priv    *secp256k1.PrivateKey
	Encoded [ellswift.Len]byte
}

// NewEphemeralKey generates a private key and its EllSwift encoding.
// The private key is drawn from crypto/rand; r supplies the randomness
// for the encoding only.
func NewEphemeralKey(r io.Reader) (*EphemeralKey, error) {
	priv, err := secp256k1.GenerateKey()
	if err != nil {
		return nil, err
	}
	enc, err := ellswift.Encode(priv, r)
	if err != nil {
		return nil, err
	}
	return &EphemeralKey{Priv: priv, Encoded: enc}, nil
}

// Role distinguishes which side of a connection a Negotiate call is
// deriving keys for -- session.Derive's six outputs are asymmetric
// between initiator and responder.
type Role int

const (
	Initiator Role = iota
	Responder
)

// Direction bundles the two cipher-suite instances a negotiated
// session needs: one to send with, one to receive with.
type Direction struct {
	Send *bip324.Suite
	Recv *bip324.Suite
}

// Negotiate completes the key-exchange half of the v2 handshake: given
// this side's ephemeral key, the peer's EllSwift encoding, this side's
// role, and the connection's Config, it performs the ECDH shortcut,
// derives the full Session, and builds both cipher-suite instances.
//
// theirEll must be exactly ellswift.Len bytes; callers holding the
// peer's encoding as a raw wire-read byte slice should use
// NegotiateFromWire instead, which performs that check and reports
// ErrInvalidEllswiftLength up front rather than deep inside a generic
// parse failure.
func Negotiate(cfg Config, role Role, ours *EphemeralKey, theirEll [ellswift.Len]byte) (*Direction, *session.Session, error) {
	if err := cfg.Validate(); err != nil {
		handshakeLog.Warn("rejected config", "role", roleString(role), "error", err)
		return nil, nil, err
	}

	var initiatorEll, responderEll [ellswift.Len]byte
	if role == Initiator {
		initiatorEll, responderEll = ours.Encoded, theirEll
	} else {
		initiatorEll, responderEll = theirEll, ours.Encoded
	}

	// session.Extract requires the initiator's encoding first and the
	// responder's second regardless of which side is computing it, so
	// the hasher hook ignores the (a, b) it's handed -- which are
	// always (our encoding, their encoding) -- and closes over the
	// role-ordered pair computed above instead.
	extract := func(rawX []byte, a, b [ellswift.Len]byte) []byte {
		return session.Extract(rawX, initiatorEll, responderEll, cfg.NetworkID)
	}

	prk, err := ellswift.XDH(ours.Priv, ours.Encoded, theirEll, extract)
	if err != nil {
		wrapped := translateECDHError(err)
		handshakeLog.Warn("ECDH shortcut failed", "role", roleString(role), "error", wrapped)
		return nil, nil, wrapped
	}

	sess := session.Derive(prk)

	var sendL, sendP, recvL, recvP []byte
	if role == Initiator {
		sendL, sendP = sess.InitiatorL[:], sess.InitiatorP[:]
		recvL, recvP = sess.ResponderL[:], sess.ResponderP[:]
	} else {
		sendL, sendP = sess.ResponderL[:], sess.ResponderP[:]
		recvL, recvP = sess.InitiatorL[:], sess.InitiatorP[:]
	}

	send, err := bip324.NewWithRekeyInterval(sendL, sendP, cfg.RekeyInterval)
	if err != nil {
		return nil, nil, ErrBufferTooSmall
	}
	recv, err := bip324.NewWithRekeyInterval(recvL, recvP, cfg.RekeyInterval)
	if err != nil {
		return nil, nil, ErrBufferTooSmall
	}

	handshakeLog.Info("session negotiated", "role", roleString(role), "rekey_interval", cfg.RekeyInterval)
	return &Direction{Send: send, Recv: recv}, &sess, nil
}

func roleString(role Role) string {
	if role == Initiator {
		return "initiator"
	}
	return "responder"
}

// NegotiateFromWire is Negotiate for callers holding the peer's EllSwift
// encoding as a raw wire-read byte slice rather than an already-validated
// [ellswift.Len]byte: it performs the length check Negotiate's own
// documentation asks callers to do up front, reporting
// ErrInvalidEllswiftLength rather than passing a malformed slice through.
func NegotiateFromWire(cfg Config, role Role, ours *EphemeralKey, theirEllRaw []byte) (*Direction, *session.Session, error) {
	theirEll, err := DecodeEllswiftFromWire(theirEllRaw)
	if err != nil {
		return nil, nil, err
	}
	return Negotiate(cfg, role, ours, theirEll)
}

// NewSerializers wraps a negotiated Direction's two suites into the
// serializer/deserializer pair transport callers drive, binding the
// receive side to the garbage terminator appropriate for this role
// (each side waits for the *other* side's terminator value).
func NewSerializers(role Role, dir *Direction, sess *session.Session) (*transport.V2Serializer, *transport.V2Deserializer) {
	var theirTerminator [16]byte
	if role == Initiator {
		theirTerminator = sess.ResponderGarbageTerminator
	} else {
		theirTerminator = sess.InitiatorGarbageTerminator
	}
	ser := &transport.V2Serializer{Suite: dir.Send}
	deser := &transport.V2Deserializer{Suite: dir.Recv, GarbageTerminator: theirTerminator}
	return ser, deser
}

func translateECDHError(err error) error {
	switch {
	case errors.Is(err, secp256k1.ErrZeroScalar):
		return ErrECDHZeroScalar
	case errors.Is(err, secp256k1.ErrZeroPoint):
		return ErrECDHZeroPoint
	default:
		return err
	}
}
