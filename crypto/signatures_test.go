package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/hive2hive/h2h/encoding"
)

// TestUnitSignatureEncoding creates and encodes a public key and verifies
// that it decodes correctly, and does the same with a signature.
func TestUnitSignatureEncoding(t *testing.T) {
	var sk SecretKey
	sk[0] = 4
	sk[32] = 5
	pk := sk.PublicKey()

	marshalledPK := encoding.Marshal(pk)
	var unmarshalledPK PublicKey
	if err := encoding.Unmarshal(marshalledPK, &unmarshalledPK); err != nil {
		t.Fatal(err)
	}
	if pk != unmarshalledPK {
		t.Error("pubkey not the same after marshalling and unmarshalling")
	}

	var signedData Hash
	rand.Read(signedData[:])
	sig, err := SignHash(signedData, sk)
	if err != nil {
		t.Fatal(err)
	}

	marshalledSig := encoding.Marshal(sig)
	var unmarshalledSig Signature
	if err := encoding.Unmarshal(marshalledSig, &unmarshalledSig); err != nil {
		t.Fatal(err)
	}
	if sig != unmarshalledSig {
		t.Error("signature not the same after marshalling and unmarshalling")
	}
}

// TestUnitSigning derives a keypair from fixed entropy and repeatedly signs
// and verifies random data with it.
func TestUnitSigning(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	const iterations = 200
	for i := 0; i < iterations; i++ {
		var entropy [EntropySize]byte
		entropy[0] = 5
		entropy[1] = 8
		sk, pk := GenerateKeyPairDeterministic(entropy)

		var randData Hash
		rand.Read(randData[:])
		sig, err := SignHash(randData, sk)
		if err != nil {
			t.Fatal(err)
		}
		if err := VerifyHash(randData, pk, sig); err != nil {
			t.Fatal(err)
		}

		randData[0]++
		if err := VerifyHash(randData, pk, sig); err != ErrInvalidSignature {
			t.Fatal("expected ErrInvalidSignature, got", err)
		}
	}
}

// TestIntegrationSigKeyGeneration exercises the random and deterministic key
// generation paths end to end.
func TestIntegrationSigKeyGeneration(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	message := HashBytes([]byte("msg"))

	randSecKey, randPubKey, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := SignHash(message, randSecKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyHash(message, randPubKey, sig); err != nil {
		t.Error(err)
	}
	sig[0]++
	if err := VerifyHash(message, randPubKey, sig); err == nil {
		t.Error("corruption went undetected")
	}

	var detEntropy [EntropySize]byte
	detEntropy[0] = 35
	detSecKey, detPubKey := GenerateKeyPairDeterministic(detEntropy)
	sig, err = SignHash(message, detSecKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyHash(message, detPubKey, sig); err != nil {
		t.Error(err)
	}
	sig[0]++
	if err := VerifyHash(message, detPubKey, sig); err == nil {
		t.Error("corruption went undetected")
	}
}
