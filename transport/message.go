// Package transport implements the two message-framing serializers
// that sit above the BIP324 cipher suite: a plaintext V1 framing
// (magic/command/length/checksum) and a V2 framing (the BIP324 packet
// format, with its garbage-prefix and garbage-terminator handshake).
// Both satisfy the same Serializer/Deserializer capability pair so a
// connection can be driven identically regardless of which version it
// negotiated.
//
// Grounded on the teacher's Msg/Transport split (p2p/msg.go,
// p2p/transport.go) and on its FrameCodec's mutex-guarded,
// io.ReadFull-based read loop (p2p/rlpx_frame_codec.go), adapted from
// a single encrypted-stream codec into the two-serializer capability
// set this format calls for.
package transport

import "errors"

// NetMessage is the (type, payload) pair both serializers produce and
// consume -- the boundary this package hands off to message dispatch,
// which is out of scope here.
type NetMessage struct {
	Type    string
	Payload []byte
}

// ErrMessageTooLarge is returned by a Serializer when a message's
// payload would not fit in the format's length field.
var ErrMessageTooLarge = errors.New("transport: message too large")

// Serializer turns an outbound NetMessage into wire bytes.
type Serializer interface {
	// PrepareForTransport returns the bytes to write to the
	// connection for msg: a header followed by (or inlined with) the
	// payload, depending on the concrete format.
	PrepareForTransport(msg NetMessage) ([]byte, error)
}

// Deserializer incrementally reconstructs NetMessages from a stream of
// incoming bytes.
type Deserializer interface {
	// Read consumes as much of data as forms a complete or partial
	// message, returning the number of bytes consumed.
	Read(data []byte) (consumed int, err error)
	// Complete reports whether a full message is ready to retrieve.
	Complete() bool
	// GetMessage returns the message assembled by the most recent
	// Read calls up to Complete, resetting internal state for the
	// next message. reject marks a message the caller should discard
	// without dispatching (but without disconnecting); disconnect
	// marks a protocol violation serious enough to tear down the
	// connection.
	GetMessage() (msg NetMessage, reject bool, disconnect bool, err error)
}
