package bip324transport

import (
	"errors"

	"github.com/stratospher/bip324-transport/bip324"
	"github.com/stratospher/bip324-transport/ellswift"
	"github.com/stratospher/bip324-transport/log"
)

// packetLog is this package's child logger for the per-packet
// decrypt/encrypt boundary.
var packetLog = log.Default().Module("packet")

// DecodeEllswiftFromWire validates a wire-read EllSwift encoding and
// converts it to the fixed-size array the rest of this module expects,
// reporting the spec's ErrInvalidEllswiftLength on mismatch rather
// than the lower-level ellswift package's own sentinel.
func DecodeEllswiftFromWire(b []byte) ([ellswift.Len]byte, error) {
	enc, err := ellswift.FromBytes(b)
	if err != nil {
		return enc, ErrInvalidEllswiftLength
	}
	return enc, nil
}

// maxDecodedLength is the largest value DecryptLength can legally
// return -- a 3-byte little-endian field can represent nothing larger,
// so this is unreachable in practice; it exists so the spec's
// length_too_large error code has a concrete check at the boundary
// where a future change to the wire format could otherwise violate it
// silently.
const maxDecodedLength = 1<<24 - 1

// DecryptPacketLength decrypts a packet's 3-byte length prefix via dir,
// translating bip324's buffer-size sentinel into this package's and
// enforcing maxDecodedLength explicitly.
func DecryptPacketLength(dir *bip324.Suite, encryptedLength [bip324.LengthFieldLen]byte) (uint32, error) {
	n, err := dir.DecryptLength(encryptedLength)
	if err != nil {
		if errors.Is(err, bip324.ErrBufferTooSmall) {
			return 0, ErrBufferTooSmall
		}
		return 0, err
	}
	if n > maxDecodedLength {
		return 0, ErrLengthTooLarge
	}
	return n, nil
}

// DecryptPacket authenticates and decrypts one packet's header,
// contents, and tag via dir, translating bip324's AEAD-failure and
// buffer-size sentinels into this package's.
func DecryptPacket(dir *bip324.Suite, aad, ciphertext []byte) (flags byte, contents []byte, err error) {
	flags, contents, err = dir.Decrypt(aad, ciphertext)
	switch {
	case errors.Is(err, bip324.ErrAuthFail):
		packetLog.Warn("AEAD authentication failed, connection must be torn down", "packet_counter", dir.PacketCounter())
		return 0, nil, ErrAEADAuthFail
	case errors.Is(err, bip324.ErrBufferTooSmall):
		return 0, nil, ErrBufferTooSmall
	default:
		return flags, contents, err
	}
}

// EncryptPacket encrypts one packet via dir, translating bip324's
// buffer-size sentinel into this package's.
func EncryptPacket(dir *bip324.Suite, aad, contents []byte, flags byte, out []byte) error {
	if err := dir.Encrypt(aad, contents, flags, out); err != nil {
		if errors.Is(err, bip324.ErrBufferTooSmall) {
			return ErrBufferTooSmall
		}
		return err
	}
	return nil
}
