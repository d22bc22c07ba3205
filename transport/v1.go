package transport

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	v1MagicLen    = 4
	v1CommandLen  = 12
	v1LengthLen   = 4
	v1ChecksumLen = 4
	v1HeaderLen   = v1MagicLen + v1CommandLen + v1LengthLen + v1ChecksumLen
	v1MaxPayload  = 32 * 1024 * 1024
)

var (
	// ErrV1BadMagic is returned when an incoming header's magic bytes
	// do not match the configured network.
	ErrV1BadMagic = errors.New("transport: v1 magic mismatch")
	// ErrV1BadChecksum is returned when a payload's checksum does not
	// match its header.
	ErrV1BadChecksum = errors.New("transport: v1 checksum mismatch")
	// ErrV1CommandTooLong is returned by PrepareForTransport when a
	// message type does not fit the 12-byte command field.
	ErrV1CommandTooLong = errors.New("transport: v1 command exceeds 12 bytes")
)

// V1Serializer produces the legacy plaintext framing.
type V1Serializer struct {
	Magic [v1MagicLen]byte
}

// PrepareForTransport returns magic || cmd || length || checksum ||
// payload for msg.
func (s *V1Serializer) PrepareForTransport(msg NetMessage) ([]byte, error) {
	if len(msg.Type) > v1CommandLen {
		return nil, ErrV1CommandTooLong
	}
	if len(msg.Payload) > v1MaxPayload {
		return nil, ErrMessageTooLarge
	}

	out := make([]byte, v1HeaderLen+len(msg.Payload))
	copy(out[0:v1MagicLen], s.Magic[:])
	copy(out[v1MagicLen:v1MagicLen+v1CommandLen], msg.Type)

	binary.LittleEndian.PutUint32(out[v1MagicLen+v1CommandLen:], uint32(len(msg.Payload)))
	copy(out[v1HeaderLen:], msg.Payload)

	checksum := doubleSHA256(msg.Payload)
	copy(out[v1MagicLen+v1CommandLen+v1LengthLen:v1HeaderLen], checksum[:v1ChecksumLen])
	return out, nil
}

// V1Deserializer incrementally parses the legacy plaintext framing.
type V1Deserializer struct {
	Magic [v1MagicLen]byte

	header   [v1HeaderLen]byte
	headerN  int
	payload  []byte
	payloadN int
	complete bool
}

// Read consumes as much of data as completes the current header or
// payload, returning the number of bytes consumed.
func (d *V1Deserializer) Read(data []byte) (int, error) {
	consumed := 0

	if d.headerN < v1HeaderLen {
		n := copy(d.header[d.headerN:], data)
		d.headerN += n
		consumed += n
		data = data[n:]

		if d.headerN < v1HeaderLen {
			return consumed, nil
		}

		if !bytesEqual(d.header[:v1MagicLen], d.Magic[:]) {
			return consumed, ErrV1BadMagic
		}

		length := binary.LittleEndian.Uint32(d.header[v1MagicLen+v1CommandLen : v1MagicLen+v1CommandLen+v1LengthLen])
		if length > v1MaxPayload {
			return consumed, fmt.Errorf("%w: %d", ErrMessageTooLarge, length)
		}
		d.payload = make([]byte, length)
	}

	if d.payloadN < len(d.payload) {
		n := copy(d.payload[d.payloadN:], data)
		d.payloadN += n
		consumed += n
	}

	if d.payloadN == len(d.payload) {
		checksum := doubleSHA256(d.payload)
		want := d.header[v1MagicLen+v1CommandLen+v1LengthLen : v1HeaderLen]
		if !bytesEqual(checksum[:v1ChecksumLen], want) {
			return consumed, ErrV1BadChecksum
		}
		d.complete = true
	}
	return consumed, nil
}

// Complete reports whether a full message is ready.
func (d *V1Deserializer) Complete() bool { return d.complete }

// GetMessage returns the assembled message and resets the deserializer
// for the next one. V1 never rejects or disconnects on its own --
// those decisions belong to the message-dispatch layer.
func (d *V1Deserializer) GetMessage() (NetMessage, bool, bool, error) {
	if !d.complete {
		return NetMessage{}, false, false, errors.New("transport: v1 message not complete")
	}
	msg := NetMessage{
		Type:    commandString(d.header[v1MagicLen : v1MagicLen+v1CommandLen]),
		Payload: d.payload,
	}
	d.headerN, d.payloadN, d.complete, d.payload = 0, 0, false, nil
	return msg, false, false, nil
}

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func commandString(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
