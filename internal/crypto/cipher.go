package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	ivSize     = 16
	keySize    = 32 // AES-256
	iterations = 100_000
)

// ErrKeyTooShort is returned when the master key is shorter than 32 bytes.
var ErrKeyTooShort = errors.New("master key must be at least 32 bytes")

// ErrDecryptionFailed is returned when a stored blob is malformed, truncated,
// or fails the padding check after decryption. Corrupt ciphertext is never
// silently returned as plaintext.
var ErrDecryptionFailed = errors.New("decryption failed: malformed or corrupt ciphertext")

// Cipher encrypts and decrypts opaque byte strings with AES-256-CBC, deriving
// a fresh key per call via PBKDF2-HMAC-SHA256 over the master key and a random
// salt. It holds no mutable state and is safe for concurrent use.
type Cipher struct {
	masterKey []byte
}

// New creates a Cipher from the master key. The key is read once at process
// start; a key shorter than 32 bytes is rejected.
func New(masterKey string) (*Cipher, error) {
	if len(masterKey) < keySize {
		return nil, ErrKeyTooShort
	}
	return &Cipher{masterKey: []byte(masterKey)}, nil
}

// Encrypt encrypts plaintext and returns the storage blob:
// base64( salt[32] || iv[16] || ciphertext ). Salt and IV are freshly
// randomized on every call, so encrypting the same plaintext twice yields
// different blobs.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("initializing cipher: %w", err)
	}

	padded := pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	blob := make([]byte, 0, saltSize+ivSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, iv...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt: it splits the blob into salt, IV and ciphertext,
// re-derives the key with the same PBKDF2 parameters, and strips the padding.
func (c *Cipher) Decrypt(blob string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(raw) < saltSize+ivSize+aes.BlockSize {
		return nil, ErrDecryptionFailed
	}

	salt := raw[:saltSize]
	iv := raw[saltSize : saltSize+ivSize]
	ciphertext := raw[saltSize+ivSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}

	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, ok := unpad(padded)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func (c *Cipher) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(c.masterKey, salt, iterations, keySize, sha256.New)
}

// pad applies PKCS#7 padding to a full block multiple.
func pad(p []byte) []byte {
	n := aes.BlockSize - len(p)%aes.BlockSize
	return append(append([]byte{}, p...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad validates and strips PKCS#7 padding in constant time over the pad bytes.
func unpad(p []byte) ([]byte, bool) {
	if len(p) == 0 {
		return nil, false
	}
	n := int(p[len(p)-1])
	if n == 0 || n > aes.BlockSize || n > len(p) {
		return nil, false
	}
	valid := 1
	for _, b := range p[len(p)-n:] {
		valid &= subtle.ConstantTimeByteEq(b, byte(n))
	}
	if valid != 1 {
		return nil, false
	}
	return p[:len(p)-n], true
}
