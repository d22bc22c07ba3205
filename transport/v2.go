package transport

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/stratospher/bip324-transport/bip324"
)

const (
	v2TypeLenPrefix = 1 // one byte holding the message-type string's length
	maxV2TypeLen    = 12
)

// V2Serializer produces BIP324 packets for one direction of a
// connection. It owns the cipher-suite instance driving that
// direction and is not safe for concurrent use, mirroring the
// suite's own single-threaded contract.
type V2Serializer struct {
	Suite *bip324.Suite
}

// PrepareForTransport encrypts msg as one BIP324 packet. The message
// type and payload are packed into the packet's contents as a
// length-prefixed type string followed by the raw payload; aad is
// always empty on the steady-state packet path.
func (s *V2Serializer) PrepareForTransport(msg NetMessage) ([]byte, error) {
	if len(msg.Type) > maxV2TypeLen {
		return nil, fmt.Errorf("%w: type %q exceeds %d bytes", ErrMessageTooLarge, msg.Type, maxV2TypeLen)
	}

	contents := make([]byte, v2TypeLenPrefix+len(msg.Type)+len(msg.Payload))
	contents[0] = byte(len(msg.Type))
	copy(contents[v2TypeLenPrefix:], msg.Type)
	copy(contents[v2TypeLenPrefix+len(msg.Type):], msg.Payload)

	out := make([]byte, bip324.EncryptedLen(len(contents)))
	if err := s.Suite.Encrypt(nil, contents, 0, out); err != nil {
		return nil, err
	}
	return out, nil
}

// V2Deserializer incrementally parses BIP324 packets out of an
// incoming byte stream, first absorbing and discarding the garbage
// prefix that precedes the first real packet.
type V2Deserializer struct {
	Suite             *bip324.Suite
	GarbageTerminator [16]byte

	garbageBuf       []byte
	garbageDone      bool
	lenBuf           []byte
	lenReady         bool
	contentsLen      uint32
	contentsBuf      []byte
	complete         bool
	rejectedFirst    bool
	pendingFlags     byte
	pendingContents  []byte
}

// Read consumes as much of data as advances the garbage search, the
// length field, or the contents+tag, in that order, returning the
// number of bytes consumed.
func (d *V2Deserializer) Read(data []byte) (int, error) {
	consumed := 0

	if !d.garbageDone {
		n := d.consumeGarbage(data)
		consumed += n
		data = data[n:]
		if !d.garbageDone {
			return consumed, nil
		}
	}

	if !d.lenReady {
		need := bip324.LengthFieldLen - len(d.lenBuf)
		n := need
		if n > len(data) {
			n = len(data)
		}
		d.lenBuf = append(d.lenBuf, data[:n]...)
		consumed += n
		data = data[n:]

		if len(d.lenBuf) < bip324.LengthFieldLen {
			return consumed, nil
		}

		var lenField [bip324.LengthFieldLen]byte
		copy(lenField[:], d.lenBuf)
		n32, err := d.Suite.DecryptLength(lenField)
		if err != nil {
			return consumed, err
		}
		d.contentsLen = n32
		d.lenReady = true
		d.contentsBuf = make([]byte, 0, bip324.HeaderLen+int(n32)+bip324.TagLen)
	}

	needTotal := bip324.HeaderLen + int(d.contentsLen) + bip324.TagLen
	need := needTotal - len(d.contentsBuf)
	n := need
	if n > len(data) {
		n = len(data)
	}
	d.contentsBuf = append(d.contentsBuf, data[:n]...)
	consumed += n

	if len(d.contentsBuf) < needTotal {
		return consumed, nil
	}

	flags, contents, err := d.Suite.Decrypt(nil, d.contentsBuf)
	if err != nil {
		return consumed, err
	}
	d.pendingFlags = flags
	d.pendingContents = contents
	d.complete = true
	return consumed, nil
}

// consumeGarbage scans for the first occurrence of GarbageTerminator
// across call boundaries, treating everything up to and including it
// as discarded garbage, and returns the number of bytes of data it
// consumed.
func (d *V2Deserializer) consumeGarbage(data []byte) int {
	d.garbageBuf = append(d.garbageBuf, data...)

	if idx := bytes.Index(d.garbageBuf, d.GarbageTerminator[:]); idx >= 0 {
		end := idx + len(d.GarbageTerminator)
		overshoot := len(d.garbageBuf) - end
		d.garbageDone = true
		d.garbageBuf = nil
		return len(data) - overshoot
	}

	// No terminator yet: keep only the tail that could still be a
	// prefix of the terminator, to bound memory on an adversarial
	// unbounded garbage stream elsewhere in the stack; the bytes
	// consumed here are still the whole of data.
	if len(d.garbageBuf) > len(d.GarbageTerminator) {
		keep := len(d.GarbageTerminator) - 1
		d.garbageBuf = append([]byte(nil), d.garbageBuf[len(d.garbageBuf)-keep:]...)
	}
	return len(data)
}

// Complete reports whether a full message is ready.
func (d *V2Deserializer) Complete() bool { return d.complete }

// GetMessage returns the assembled message. The first message
// produced by a given V2Deserializer instance is always rejected as a
// transport-version placeholder (reject=true, disconnect=false),
// matching the handshake's decoy/version-announcement slot; a
// decrypted IGNORE-flagged packet is rejected the same way for every
// subsequent message.
func (d *V2Deserializer) GetMessage() (NetMessage, bool, bool, error) {
	if !d.complete {
		return NetMessage{}, false, false, errors.New("transport: v2 message not complete")
	}

	flags, contents := d.pendingFlags, d.pendingContents
	d.resetPacketState()

	if !d.rejectedFirst {
		d.rejectedFirst = true
		return NetMessage{}, true, false, nil
	}
	if flags&bip324.IgnoreFlag != 0 {
		return NetMessage{}, true, false, nil
	}

	if len(contents) < v2TypeLenPrefix {
		return NetMessage{}, false, true, errors.New("transport: v2 contents shorter than type prefix")
	}
	typeLen := int(contents[0])
	if len(contents) < v2TypeLenPrefix+typeLen {
		return NetMessage{}, false, true, errors.New("transport: v2 contents shorter than declared type")
	}
	msg := NetMessage{
		Type:    string(contents[v2TypeLenPrefix : v2TypeLenPrefix+typeLen]),
		Payload: contents[v2TypeLenPrefix+typeLen:],
	}
	return msg, false, false, nil
}

func (d *V2Deserializer) resetPacketState() {
	d.lenBuf = nil
	d.lenReady = false
	d.contentsLen = 0
	d.contentsBuf = nil
	d.complete = false
	d.pendingFlags = 0
	d.pendingContents = nil
}
