package bip324transport

import "errors"

// The six error codes spec §6.3 requires the core to report to its
// caller, each a distinct sentinel satisfying errors.Is/errors.As the
// way the teacher's p2p and crypto packages report theirs.
var (
	// ErrInvalidEllswiftLength is returned when an encoded EllSwift
	// key is not exactly 64 bytes.
	ErrInvalidEllswiftLength = errors.New("bip324transport: ellswift-encoded key must be 64 bytes")
	// ErrECDHZeroPoint is returned when the decoded peer point is the
	// identity.
	ErrECDHZeroPoint = errors.New("bip324transport: ecdh: peer point is the identity")
	// ErrECDHZeroScalar is returned when the local private key is
	// zero mod the curve order.
	ErrECDHZeroScalar = errors.New("bip324transport: ecdh: private key is zero mod n")
	// ErrAEADAuthFail is returned when a packet fails authentication.
	ErrAEADAuthFail = errors.New("bip324transport: aead authentication failed")
	// ErrLengthTooLarge is returned when a decoded packet length
	// exceeds what the core's 3-byte length field can represent.
	ErrLengthTooLarge = errors.New("bip324transport: decoded length too large")
	// ErrBufferTooSmall is returned when a caller-supplied buffer
	// cannot hold an operation's output.
	ErrBufferTooSmall = errors.New("bip324transport: buffer too small")
)
