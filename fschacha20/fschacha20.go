// Package fschacha20 implements the forward-secure ChaCha20 stream
// cipher used to encrypt the BIP324 packet length field: a key that
// rekeys itself every REKEY_INTERVAL invocations, so compromising the
// current key does not reveal the keystream of earlier packets.
//
// Grounded on golang.org/x/crypto/chacha20's unauthenticated-cipher API
// (the same entry point the rest of the pack uses, e.g. the age
// test-kit's deterministic randomness source), wrapped the way the
// teacher wraps its own stream-cipher primitives in crypto/ecies.go
// (aesCTR) and p2p/rlpx_frame_codec.go (frame key derivation).
package fschacha20

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/chacha20"
)

// RekeyInterval is the number of Crypt invocations after which the key
// is replaced. 224 is the BIP324 default.
const RekeyInterval = 224

// KeySize is the size in bytes of an FSChaCha20 key.
const KeySize = chacha20.KeySize

var errKeySize = errors.New("fschacha20: key must be 32 bytes")

// Cipher is a single-direction forward-secure ChaCha20 stream.
//
// Nonce layout per invocation: the low 32 bits are the "chunk counter"
// (reset to 0 at each rekey boundary and incremented once per Crypt
// call since the last rekey), the high 64 bits are the "rekey counter"
// (the number of rekeys performed so far) -- both little-endian,
// forming the 12-byte ChaCha20 nonce. This mirrors the BIP324 cipher
// suite's own packet-counter-derived nonce scheme (see bip324.Suite),
// applied one level down to the length-field sub-stream.
type Cipher struct {
	key           [KeySize]byte
	chunkCounter  uint32
	rekeyCounter  uint64
	rekeyInterval uint32
}

// New constructs a Cipher seeded with key (copied), rekeying every
// RekeyInterval invocations.
func New(key []byte) (*Cipher, error) {
	return NewWithRekeyInterval(key, RekeyInterval)
}

// NewWithRekeyInterval is New with an overridden rekey period, for
// callers whose configuration departs from the BIP324 default of 224
// (both ends of a connection must agree on whatever value is used).
func NewWithRekeyInterval(key []byte, rekeyInterval uint32) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, errKeySize
	}
	c := &Cipher{rekeyInterval: rekeyInterval}
	copy(c.key[:], key)
	return c, nil
}

func (c *Cipher) nonce() [chacha20.NonceSize]byte {
	var n [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint32(n[0:4], c.chunkCounter)
	binary.LittleEndian.PutUint64(n[4:12], c.rekeyCounter)
	return n
}

// Crypt XORs src with the next chunk of forward-secure keystream into
// dst (which may alias src), then advances the chunk counter and
// rekeys if RekeyInterval invocations have elapsed since the last
// rekey.
func (c *Cipher) Crypt(dst, src []byte) error {
	nonce := c.nonce()
	stream, err := chacha20.NewUnauthenticatedCipher(c.key[:], nonce[:])
	if err != nil {
		return err
	}
	stream.XORKeyStream(dst, src)

	c.chunkCounter++
	if c.chunkCounter == c.rekeyInterval {
		c.rekey()
	}
	return nil
}

// rekey replaces the key with ChaCha20 of 32 zero bytes under the current
// key, with a nonce whose chunk-counter half is zero and whose high 8
// bytes are the current rekey counter; it then resets the chunk counter
// and increments the rekey counter.
func (c *Cipher) rekey() {
	var zero [KeySize]byte
	var nonce [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[4:12], c.rekeyCounter)

	stream, err := chacha20.NewUnauthenticatedCipher(c.key[:], nonce[:])
	if err != nil {
		// Only possible if c.key has the wrong length, which New
		// guarantees it does not.
		panic(err)
	}
	var newKey [KeySize]byte
	stream.XORKeyStream(newKey[:], zero[:])

	for i := range c.key {
		c.key[i] = 0
	}
	c.key = newKey
	c.chunkCounter = 0
	c.rekeyCounter++
}

// CommitToKey mixes extra data into the key via SHA-256(key || data) and
// resets the chunk/rekey counters. Neither Crypt nor the bip324 suite
// calls it; it takes effect only when a caller invokes it explicitly.
func (c *Cipher) CommitToKey(data []byte) {
	h := sha256.New()
	h.Write(c.key[:])
	h.Write(data)
	var newKey [KeySize]byte
	copy(newKey[:], h.Sum(nil))
	for i := range c.key {
		c.key[i] = 0
	}
	c.key = newKey
	c.chunkCounter = 0
	c.rekeyCounter = 0
}

// Zeroize overwrites the key material. Callers must call this on every
// drop path.
func (c *Cipher) Zeroize() {
	for i := range c.key {
		c.key[i] = 0
	}
}
