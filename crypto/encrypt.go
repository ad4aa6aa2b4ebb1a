package crypto

// encrypt.go contains functions for symmetrically encrypting and decrypting
// byte slices and streams under an AES key. It is the symmetric half of the
// hybrid RSA+AES scheme used to protect meta-files and file chunks, where each
// object gets a fresh AESKey that is itself protected by RSA (see hybrid.go).
// User profiles are encrypted under a key derived from the user's
// password and pin instead (see password.go).

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
)

const (
	// AESKeySize is the length in bytes of an AES-256 key.
	AESKeySize = 32
)

var (
	ErrInsufficientLen = errors.New("supplied ciphertext is not long enough to contain a nonce")
)

type (
	// Ciphertext is symmetrically-encrypted data produced by AESKey.EncryptBytes.
	Ciphertext []byte

	// An AESKey is a fresh, single-use AES-256 key. Every encrypted DHT
	// object (profile, meta-file, chunk) is encrypted under its own AESKey;
	// the key itself is either derived from a user's password+pin (the
	// profile) or protected by hybrid RSA encryption (meta-files, chunks).
	AESKey [AESKeySize]byte
)

// GenerateAESKey produces a fresh random key suitable for encrypting a
// single object.
func GenerateAESKey() (key AESKey, err error) {
	_, err = rand.Read(key[:])
	return key, err
}

// NewCipher creates a new AES cipher from the key.
func (key AESKey) NewCipher() cipher.Block {
	// NOTE: aes.NewCipher only errors if len(key) is not 16, 24, or 32.
	c, _ := aes.NewCipher(key[:])
	return c
}

// EncryptBytes encrypts plaintext using the key. EncryptBytes uses GCM and
// prepends the nonce to the ciphertext.
func (key AESKey) EncryptBytes(plaintext []byte) (Ciphertext, error) {
	aead, err := cipher.NewGCM(key.NewCipher())
	if err != nil {
		return nil, err
	}

	nonce := RandBytes(aead.NonceSize())

	// No authenticated data is provided; EncryptBytes is meant for opaque
	// object encryption, not for protocol framing.
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptBytes decrypts the ciphertext created by EncryptBytes. The nonce is
// expected to be the first bytes of the ciphertext.
func (key AESKey) DecryptBytes(ct Ciphertext) ([]byte, error) {
	aead, err := cipher.NewGCM(key.NewCipher())
	if err != nil {
		return nil, err
	}

	if len(ct) < aead.NonceSize() {
		return nil, ErrInsufficientLen
	}

	return aead.Open(nil, ct[:aead.NonceSize()], ct[aead.NonceSize():], nil)
}

// NewWriter returns a writer that encrypts its input stream with AES-CTR.
func (key AESKey) NewWriter(w io.Writer) io.Writer {
	iv := make([]byte, aes.BlockSize)
	stream := cipher.NewCTR(key.NewCipher(), iv)
	return &cipher.StreamWriter{S: stream, W: w}
}

// NewReader returns a reader that decrypts a stream written by NewWriter.
func (key AESKey) NewReader(r io.Reader) io.Reader {
	iv := make([]byte, aes.BlockSize)
	stream := cipher.NewCTR(key.NewCipher(), iv)
	return &cipher.StreamReader{S: stream, R: r}
}

func (c Ciphertext) MarshalJSON() ([]byte, error) {
	return json.Marshal([]byte(c))
}

func (c *Ciphertext) UnmarshalJSON(b []byte) error {
	var umarB []byte
	err := json.Unmarshal(b, &umarB)
	if err != nil {
		return err
	}
	*c = Ciphertext(umarB)
	return nil
}
