// Package bip324 implements the packet-framing cipher suite: a
// 3-byte length field protected by fschacha20, and a 1-byte header +
// N-byte contents protected by ChaCha20-Poly1305 (RFC 8439), with a
// monotonic packet counter that drives both the nonce and a periodic
// rekey of the payload key.
//
// Grounded directly on crypto/bip324_suite.cpp's Crypt/DecryptLength/
// CommitToKeys, restructured into the teacher's Go idiom (the
// FrameCodec shape of p2p/rlpx_frame_codec.go: a struct owning keys and
// counters, WriteMsg/ReadMsg-style methods, explicit buffer-size
// preconditions returned as bool/error rather than panics).
package bip324

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/stratospher/bip324-transport/fschacha20"
)

// RekeyInterval is the default number of packets after which key_P is
// rotated, used when New is not given an explicit override.
const RekeyInterval = fschacha20.RekeyInterval

// LengthFieldLen is the size in bytes of the encrypted length prefix.
const LengthFieldLen = 3

// HeaderLen is the size in bytes of the plaintext header (flag byte).
const HeaderLen = 1

// TagLen is the size in bytes of the Poly1305 authentication tag.
const TagLen = chacha20poly1305.Overhead

// KeyLen is the size in bytes of key_L and key_P.
const KeyLen = 32

// IgnoreFlag marks a decoy/padding packet whose contents the receiver
// must discard.
const IgnoreFlag byte = 0x80

// rekeyTag is the domain-separation constant mixed into every key_P
// rekey, matching the "BIP324_rekey" tag the suite is named after.
const rekeyTag = "BIP324_rekey"

var (
	// ErrBufferTooSmall is returned when a caller-supplied buffer
	// cannot hold the result of Encrypt/Decrypt.
	ErrBufferTooSmall = errors.New("bip324: buffer too small")
	// ErrAuthFail is returned by Decrypt when AEAD authentication
	// fails. The connection must be torn down; packet_counter is left
	// untouched.
	ErrAuthFail = errors.New("bip324: AEAD authentication failed")
)

// Suite is one direction's cipher-suite instance. It is not safe for
// concurrent use -- packets within a direction must be processed in
// strict order, since both the length-field stream and the nonce
// derive from packetCounter.
type Suite struct {
	fsc20         *fschacha20.Cipher
	keyP          [KeyLen]byte
	packetCounter uint64
	rekeyInterval uint64
}

// New constructs a Suite from the two session keys (e.g.
// session.Session's {Initiator,Responder}{L,P} fields, chosen
// according to which direction this instance drives), rekeying key_P
// every RekeyInterval packets.
func New(keyL, keyP []byte) (*Suite, error) {
	return NewWithRekeyInterval(keyL, keyP, RekeyInterval)
}

// NewWithRekeyInterval is New with an overridden key_P rekey period
// (spec §6.2's rekey_interval config knob); both directions of a
// connection must be constructed with the same value.
func NewWithRekeyInterval(keyL, keyP []byte, rekeyInterval uint64) (*Suite, error) {
	if len(keyL) != fschacha20.KeySize || len(keyP) != KeyLen {
		return nil, ErrBufferTooSmall
	}
	fsc, err := fschacha20.NewWithRekeyInterval(keyL, uint32(rekeyInterval))
	if err != nil {
		return nil, err
	}
	s := &Suite{fsc20: fsc, rekeyInterval: rekeyInterval}
	copy(s.keyP[:], keyP)
	return s, nil
}

// PacketCounter returns the number of packets processed so far.
func (s *Suite) PacketCounter() uint64 { return s.packetCounter }

func (s *Suite) nonce() [chacha20poly1305.NonceSize]byte {
	var n [chacha20poly1305.NonceSize]byte
	// low 4 bytes: chunk counter, always zero here since each packet's
	// AEAD operation starts its own ChaCha20 block counter at RFC 8439's
	// implicit value of 1; high 8 bytes: the packet counter itself.
	putUint64LE(n[4:12], s.packetCounter)
	return n
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putUint24LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func uint24LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// EncryptedLen returns the total wire size of a packet carrying
// contentsLen bytes of contents.
func EncryptedLen(contentsLen int) int {
	return LengthFieldLen + HeaderLen + contentsLen + TagLen
}

// Encrypt writes one packet -- encrypted length, encrypted header +
// contents, and the Poly1305 tag -- into out. out must be at least
// EncryptedLen(len(contents)) bytes.
func (s *Suite) Encrypt(aad, contents []byte, flags byte, out []byte) error {
	if len(out) < EncryptedLen(len(contents)) {
		return ErrBufferTooSmall
	}

	var lenField [LengthFieldLen]byte
	putUint24LE(lenField[:], uint32(len(contents)))
	if err := s.fsc20.Crypt(out[:LengthFieldLen], lenField[:]); err != nil {
		return err
	}

	headerAndContents := make([]byte, HeaderLen+len(contents))
	headerAndContents[0] = flags
	copy(headerAndContents[HeaderLen:], contents)

	aead, err := chacha20poly1305.New(s.keyP[:])
	if err != nil {
		return err
	}
	nonce := s.nonce()
	// out was sized by the EncryptedLen check above, so this Seal always
	// has room to grow in place and never reallocates away from out.
	aead.Seal(out[LengthFieldLen:LengthFieldLen], nonce[:], headerAndContents, aad)

	s.advance()
	return nil
}

// DecryptLength decrypts the 3-byte encrypted length prefix and
// returns the little-endian contents length it encodes. It must be
// called exactly once per packet, before Decrypt, since it advances
// the length-field FSChaCha20 stream.
func (s *Suite) DecryptLength(encryptedLength [LengthFieldLen]byte) (uint32, error) {
	var out [LengthFieldLen]byte
	if err := s.fsc20.Crypt(out[:], encryptedLength[:]); err != nil {
		return 0, err
	}
	return uint24LE(out[:]), nil
}

// Decrypt authenticates and decrypts the header+contents+tag blob that
// follows a length field already consumed via DecryptLength. On
// success it returns the flag byte and the plaintext contents; on
// authentication failure it returns ErrAuthFail and packetCounter is
// left untouched (the caller must terminate the connection).
func (s *Suite) Decrypt(aad, ciphertext []byte) (flags byte, contents []byte, err error) {
	if len(ciphertext) < HeaderLen+TagLen {
		return 0, nil, ErrBufferTooSmall
	}

	aead, err := chacha20poly1305.New(s.keyP[:])
	if err != nil {
		return 0, nil, err
	}
	nonce := s.nonce()
	plain, err := aead.Open(nil, nonce[:], ciphertext, aad)
	if err != nil {
		return 0, nil, ErrAuthFail
	}

	s.advance()
	return plain[0], plain[HeaderLen:], nil
}

// advance increments packetCounter, rekeying key_P every RekeyInterval
// packets, and is called after every successful Encrypt/Decrypt.
func (s *Suite) advance() {
	s.packetCounter++
	if s.packetCounter%s.rekeyInterval == 0 {
		s.rekey()
	}
}

// rekey replaces key_P with SHA256(rekeyTag || oldKeyP), zeroizing the
// old key. Grounded on BIP324CipherSuite::CommitToKeys' commit_to_P
// path with an empty externally-supplied data span (the packet-path
// default).
func (s *Suite) rekey() {
	h := sha256.New()
	h.Write([]byte(rekeyTag))
	h.Write(s.keyP[:])
	sum := h.Sum(nil)

	for i := range s.keyP {
		s.keyP[i] = 0
	}
	copy(s.keyP[:], sum)
}

// Zeroize overwrites all key material. Callers must invoke this on
// every drop path of a Suite.
func (s *Suite) Zeroize() {
	for i := range s.keyP {
		s.keyP[i] = 0
	}
	s.fsc20.Zeroize()
}

// TimingSafeEqual compares two byte slices in constant time,
// XOR-accumulating bytes rather than short-circuiting -- a portable
// timingsafe_bcmp.
func TimingSafeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var acc byte
	for i := range a {
		acc |= a[i] ^ b[i]
	}
	return acc == 0
}
