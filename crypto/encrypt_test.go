package crypto

import (
	"bytes"
	"testing"
)

// TestAESEncryption checks that encryption and decryption works correctly.
func TestAESEncryption(t *testing.T) {
	key, err := GenerateAESKey()
	if err != nil {
		t.Fatal(err)
	}

	plaintext := RandBytes(128)
	ciphertext, err := key.EncryptBytes(plaintext)
	if err != nil {
		t.Fatal(err)
	}

	decrypted, err := key.DecryptBytes(ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(plaintext, decrypted) {
		t.Fatal("encrypted and decrypted plaintext do not match")
	}

	// Decrypting with the wrong key should fail.
	key2, err := GenerateAESKey()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := key2.DecryptBytes(ciphertext); err == nil {
		t.Fatal("decryption with the wrong key should have failed")
	}

	// A ciphertext shorter than a nonce should be rejected.
	if _, err := key.DecryptBytes(Ciphertext{0, 1, 2}); err != ErrInsufficientLen {
		t.Fatal("expected ErrInsufficientLen, got", err)
	}
}

// TestAESStream checks that the streaming reader/writer pair round-trips.
func TestAESStream(t *testing.T) {
	key, err := GenerateAESKey()
	if err != nil {
		t.Fatal(err)
	}

	plaintext := RandBytes(4096)

	var buf bytes.Buffer
	w := key.NewWriter(&buf)
	if _, err := w.Write(plaintext); err != nil {
		t.Fatal(err)
	}

	r := key.NewReader(&buf)
	decrypted := make([]byte, len(plaintext))
	if _, err := fullRead(r, decrypted); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(plaintext, decrypted) {
		t.Fatal("streamed encryption did not round-trip")
	}
}

func fullRead(r interface {
	Read([]byte) (int, error)
}, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
