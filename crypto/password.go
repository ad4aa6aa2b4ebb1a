package crypto

// password.go derives the symmetric key that protects a UserProfile from the
// user's password and pin, per UserCredentials. The pin doubles as the
// derivation salt: two users with the same password but different pins
// derive unrelated keys, and the derivation is deterministic so that any
// client holding the credentials can reconstruct the same AESKey without a
// DHT round-trip.

import (
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"
)

const (
	// passwordKeyIterations is the PBKDF2 iteration count used to derive the
	// profile's AES key from a password and pin.
	passwordKeyIterations = 100000
)

// DeriveProfileKey derives the AESKey used to encrypt a user's profile from
// their password and pin.
func DeriveProfileKey(password, pin string) AESKey {
	salt := sha3.Sum256([]byte(pin))
	derived := pbkdf2.Key([]byte(password), salt[:], passwordKeyIterations, AESKeySize, sha3.New256)
	var key AESKey
	copy(key[:], derived)
	return key
}
