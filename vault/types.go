package vault

import "errors"

const (
	Magic      = "VLTB"
	Version    = 0x01
	HeaderSize = 32

	KeyLen   = 32
	SaltLen  = 16
	NonceLen = 12
	TagLen   = 16
)

// Algorithm identifiers stored in the header.
const (
	KDFScrypt   uint8 = 0x01
	KDFArgon2id uint8 = 0x02

	AEADAESGCM           uint8 = 0x01
	AEADChaCha20Poly1305 uint8 = 0x02
)

var (
	ErrFileAccess = errors.New("vault: file not accessible")
	ErrFormat     = errors.New("vault: invalid format")
	ErrDecrypt    = errors.New("vault: wrong password or tampered vault")
)

// Header is the fixed 32-byte VLTB header. Field order and widths match the
// on-disk layout so it can be packed with encoding/binary directly.
type Header struct {
	Magic         [4]byte
	Version       uint8
	KDFType       uint8
	AEADType      uint8
	Reserved      uint8
	N             uint32
	R             uint32
	P             uint32
	SaltLen       uint32
	NonceLen      uint32
	CiphertextLen uint32
}

// TotalLen is the exact file length the header declares.
func (h Header) TotalLen() uint64 {
	return HeaderSize + uint64(h.SaltLen) + uint64(h.NonceLen) + uint64(h.CiphertextLen)
}

// Params selects the algorithms and KDF costs used by Save. Salt and Nonce are
// generated with crypto/rand when nil.
type Params struct {
	KDF   uint8
	AEAD  uint8
	N     uint32
	R     uint32
	P     uint32
	Salt  []byte
	Nonce []byte
}

func DefaultParams() *Params {
	return &Params{KDF: KDFScrypt, AEAD: AEADAESGCM, N: 1 << 15, R: 8, P: 1}
}

// Payload is the decrypted vault document. Centers holds the raw, unvalidated
// entries in file order.
type Payload struct {
	Metadata map[string]any
	Centers  []any
}

func KDFName(t uint8) string {
	switch t {
	case KDFScrypt:
		return "scrypt"
	case KDFArgon2id:
		return "argon2id"
	}
	return "unknown"
}

func AEADName(t uint8) string {
	switch t {
	case AEADAESGCM:
		return "aes-256-gcm"
	case AEADChaCha20Poly1305:
		return "chacha20-poly1305"
	}
	return "unknown"
}
