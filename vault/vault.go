package vault

import (
	"errors"
	"fmt"
	"math"
	"os"
)

// Vault binds a VLTB file on disk to the parameters used when saving it. It
// keeps no key material between calls.
type Vault struct {
	Filename string
	Params   *Params
}

func NewVault(filename string, params *Params) *Vault {
	if params == nil {
		params = DefaultParams()
	}
	return &Vault{Filename: filename, Params: params}
}

// Open reads the vault file and decrypts it with password.
func (v *Vault) Open(password []byte) (*Payload, error) {
	raw, err := readFile(v.Filename)
	if err != nil {
		return nil, err
	}
	return Load(raw, password)
}

// Save encrypts payload and replaces the vault file atomically.
func (v *Vault) Save(payload *Payload, password []byte) error {
	raw, err := Save(payload, password, v.Params)
	if err != nil {
		return err
	}
	if err := atomicWriteFile(v.Filename, raw, 0600); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrFileAccess, v.Filename, err)
	}
	return nil
}

// Stat reads the vault file and returns its validated header.
func (v *Vault) Stat() (Header, error) {
	raw, err := readFile(v.Filename)
	if err != nil {
		return Header{}, err
	}
	return Inspect(raw)
}

func readFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", ErrFileAccess, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrFileAccess, path, err)
	}
	return raw, nil
}

// Inspect validates the framing of raw without decrypting it: header size,
// magic, version, algorithm tags and the declared total length.
func Inspect(raw []byte) (Header, error) {
	if len(raw) < HeaderSize {
		return Header{}, fmt.Errorf("%w: too short to contain a header", ErrFormat)
	}
	h, err := DecodeHeader(raw)
	if err != nil {
		return h, err
	}
	if string(h.Magic[:]) != Magic {
		return h, fmt.Errorf("%w: invalid magic %q", ErrFormat, h.Magic[:])
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: unsupported version %d", ErrFormat, h.Version)
	}
	if h.Reserved != 0 {
		return h, fmt.Errorf("%w: reserved byte is %#x", ErrFormat, h.Reserved)
	}
	if h.KDFType != KDFScrypt && h.KDFType != KDFArgon2id {
		return h, fmt.Errorf("%w: unsupported kdf type %d", ErrFormat, h.KDFType)
	}
	if h.AEADType != AEADAESGCM && h.AEADType != AEADChaCha20Poly1305 {
		return h, fmt.Errorf("%w: unsupported aead type %d", ErrFormat, h.AEADType)
	}
	if uint64(len(raw)) != h.TotalLen() {
		return h, fmt.Errorf("%w: file is %d bytes, header declares %d", ErrFormat, len(raw), h.TotalLen())
	}
	if h.NonceLen != NonceLen {
		return h, fmt.Errorf("%w: unsupported nonce length %d", ErrFormat, h.NonceLen)
	}
	return h, nil
}

// Load decrypts a complete VLTB file image. The stored header bytes, not a
// re-encoding of the parsed fields, are authenticated as AAD.
func Load(raw, password []byte) (*Payload, error) {
	h, err := Inspect(raw)
	if err != nil {
		return nil, err
	}

	off := uint64(HeaderSize)
	header := raw[:HeaderSize]
	salt := raw[off : off+uint64(h.SaltLen)]
	off += uint64(h.SaltLen)
	nonce := raw[off : off+uint64(h.NonceLen)]
	off += uint64(h.NonceLen)
	ciphertext := raw[off : off+uint64(h.CiphertextLen)]

	key, err := DeriveKey(h.KDFType, password, salt, h.N, h.R, h.P)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	defer zero(key)

	plaintext, err := Open(h.AEADType, key, nonce, ciphertext, header)
	if err != nil {
		return nil, ErrDecrypt
	}
	defer zero(plaintext)

	return ParsePayload(plaintext)
}

// Save serializes payload and returns header || salt || nonce || ciphertext.
// A nil params uses DefaultParams; missing salt or nonce are freshly random.
func Save(payload *Payload, password []byte, params *Params) ([]byte, error) {
	if payload == nil {
		return nil, errors.New("vault: nil payload")
	}
	if params == nil {
		params = DefaultParams()
	}

	salt := params.Salt
	if salt == nil {
		var err error
		if salt, err = randBytes(SaltLen); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
	}
	nonce := params.Nonce
	if nonce == nil {
		var err error
		if nonce, err = randBytes(NonceLen); err != nil {
			return nil, fmt.Errorf("generate nonce: %w", err)
		}
	}

	plaintext, err := encodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	defer zero(plaintext)

	h := Header{
		Version:       Version,
		KDFType:       params.KDF,
		AEADType:      params.AEAD,
		N:             params.N,
		R:             params.R,
		P:             params.P,
		SaltLen:       mustUint32(len(salt)),
		NonceLen:      mustUint32(len(nonce)),
		CiphertextLen: mustUint32(len(plaintext) + TagLen),
	}
	copy(h.Magic[:], Magic)

	header, err := EncodeHeader(h)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	key, err := DeriveKey(params.KDF, password, salt, params.N, params.R, params.P)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer zero(key)

	ciphertext, err := Seal(params.AEAD, key, nonce, plaintext, header)
	if err != nil {
		return nil, fmt.Errorf("seal payload: %w", err)
	}
	if len(ciphertext) != int(h.CiphertextLen) {
		return nil, fmt.Errorf("seal payload: ciphertext is %d bytes, expected %d", len(ciphertext), h.CiphertextLen)
	}

	out := make([]byte, 0, h.TotalLen())
	out = append(out, header...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

func mustUint32(n int) uint32 {
	if n < 0 || uint64(n) > math.MaxUint32 {
		panic(fmt.Sprintf("vault: length %d does not fit a header field", n))
	}
	return uint32(n)
}
