package crypto

// hybrid.go implements the hybrid RSA+AES encryption scheme used to protect
// every DHT object whose reader set is defined by a keypair rather than a
// password: meta-files (readable by anyone holding the node's private key)
// and file chunks (readable by anyone holding the meta-file's chunkKey). A
// fresh AESKey is generated per object, the object is encrypted under it,
// and the AESKey itself is sealed with RSA-OAEP under the recipient's public
// key. Decryption requires the matching private key.

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
)

const (
	// RSAKeyBits is the modulus size used for every RSA keypair minted by
	// this package: node identity keys, chunkKeys, and protection keys.
	RSAKeyBits = 2048
)

var (
	// ErrHybridTooShort is returned by HybridDecrypt when the unsealed
	// key is not AESKeySize bytes long.
	ErrHybridTooShort = errors.New("crypto: hybrid ciphertext is malformed")
)

// An RSAKeyPair is the asymmetric keypair used to address and protect a DHT
// object - a node's identity keypair, a file's chunkKey, or a protection
// keypair designating a DHT write ACL.
type RSAKeyPair struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// GenerateRSAKeyPair mints a fresh RSA keypair of RSAKeyBits size.
func GenerateRSAKeyPair() (RSAKeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return RSAKeyPair{}, err
	}
	return RSAKeyPair{Public: &priv.PublicKey, Private: priv}, nil
}

// PublicKeyBytes returns the DER encoding of the keypair's public half, used
// as the node/chunk identity that addresses DHT locations.
func (kp RSAKeyPair) PublicKeyBytes() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(kp.Public)
}

// ParseRSAPublicKey decodes a DER-encoded public key produced by
// PublicKeyBytes.
func ParseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("crypto: not an RSA public key")
	}
	return rsaPub, nil
}

// A HybridCiphertext is a plaintext encrypted under a fresh AESKey, together
// with that key sealed under an RSA public key. It is the on-the-wire/DHT
// representation of every hybrid-encrypted object.
type HybridCiphertext struct {
	SealedKey []byte
	Payload   Ciphertext
}

// HybridEncrypt generates a fresh AESKey, encrypts plaintext under it, and
// seals the AESKey under pub via RSA-OAEP.
func HybridEncrypt(pub *rsa.PublicKey, plaintext []byte) (HybridCiphertext, error) {
	key, err := GenerateAESKey()
	if err != nil {
		return HybridCiphertext{}, err
	}
	payload, err := key.EncryptBytes(plaintext)
	if err != nil {
		return HybridCiphertext{}, err
	}
	sealedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key[:], nil)
	if err != nil {
		return HybridCiphertext{}, err
	}
	return HybridCiphertext{SealedKey: sealedKey, Payload: payload}, nil
}

// HybridDecrypt unseals the AESKey under priv and decrypts the payload.
func HybridDecrypt(priv *rsa.PrivateKey, ct HybridCiphertext) ([]byte, error) {
	keyBytes, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ct.SealedKey, nil)
	if err != nil {
		return nil, err
	}
	if len(keyBytes) != AESKeySize {
		return nil, ErrHybridTooShort
	}
	var key AESKey
	copy(key[:], keyBytes)
	return key.DecryptBytes(ct.Payload)
}
