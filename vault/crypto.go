package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// Upper bounds on what a single derivation may request.
const (
	maxKDFMemory  = 1 << 32
	maxScryptWork = 1 << 28 // N*r*p
	maxArgon2Time = 64
)

var errKDFParams = errors.New("vault: invalid kdf parameters")

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// EncodeHeader packs h into its 32-byte big-endian form.
func EncodeHeader(h Header) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Grow(HeaderSize)
	if err := binary.Write(buf, binary.BigEndian, h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeHeader unpacks the first HeaderSize bytes of raw. It does not check
// magic, version or lengths; see Inspect.
func DecodeHeader(raw []byte) (Header, error) {
	var h Header
	if len(raw) < HeaderSize {
		return h, fmt.Errorf("%w: too short to contain a header", ErrFormat)
	}
	if err := binary.Read(bytes.NewReader(raw[:HeaderSize]), binary.BigEndian, &h); err != nil {
		return h, fmt.Errorf("%w: unpack header: %v", ErrFormat, err)
	}
	return h, nil
}

// DeriveKey turns a password into a KeyLen-byte key. For Argon2id, n is the
// time cost, r the memory in KiB and p the thread count.
func DeriveKey(kdfType uint8, password, salt []byte, n, r, p uint32) ([]byte, error) {
	switch kdfType {
	case KDFScrypt:
		if err := checkScryptParams(n, r, p); err != nil {
			return nil, err
		}
		key, err := scrypt.Key(password, salt, int(n), int(r), int(p), KeyLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errKDFParams, err)
		}
		return key, nil
	case KDFArgon2id:
		if n == 0 || n > maxArgon2Time || p == 0 || p > 255 || r < 8*p || uint64(r)*1024 > maxKDFMemory {
			return nil, fmt.Errorf("%w: argon2id t=%d m=%d p=%d", errKDFParams, n, r, p)
		}
		return argon2.IDKey(password, salt, n, r, uint8(p), KeyLen), nil
	}
	return nil, fmt.Errorf("unsupported kdf type %d", kdfType)
}

func checkScryptParams(n, r, p uint32) error {
	if n <= 1 || bits.OnesCount32(n) != 1 || r == 0 || p == 0 {
		return fmt.Errorf("%w: scrypt N=%d r=%d p=%d", errKDFParams, n, r, p)
	}
	if 128*uint64(r)*(uint64(n)+uint64(p)) > maxKDFMemory || uint64(n)*uint64(r)*uint64(p) > maxScryptWork {
		return fmt.Errorf("%w: scrypt N=%d r=%d p=%d exceeds cost limit", errKDFParams, n, r, p)
	}
	return nil
}

func newAEAD(aeadType uint8, key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("aead requires a %d-byte key", KeyLen)
	}
	switch aeadType {
	case AEADAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("create cipher: %w", err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("create gcm: %w", err)
		}
		return gcm, nil
	case AEADChaCha20Poly1305:
		return chacha20poly1305.New(key)
	}
	return nil, fmt.Errorf("unsupported aead type %d", aeadType)
}

// Seal encrypts plaintext and appends the authentication tag.
func Seal(aeadType uint8, key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := newAEAD(aeadType, key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open authenticates and decrypts ciphertext. Any tag, AAD or length problem
// yields ErrDecrypt and no plaintext.
func Open(aeadType uint8, key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := newAEAD(aeadType, key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() || len(ciphertext) < aead.Overhead() {
		return nil, ErrDecrypt
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	tmpFile, err := os.CreateTemp(dir, "vltb-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if err := tmpFile.Chmod(perm); err != nil {
		return err
	}
	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
