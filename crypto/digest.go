package crypto

// digest.go computes the MD5 content digests used for file integrity
// checking, per the spec's contract: MD5 of the plaintext file is stored in
// the FileIndex and compared against the local copy before a download is
// allowed to overwrite it.

import (
	"crypto/md5"
	"encoding/hex"
	"io"
)

const (
	// MD5Size is the length in bytes of an MD5 digest.
	MD5Size = md5.Size
)

// MD5Digest is the MD5 hash of a file's plaintext bytes.
type MD5Digest [MD5Size]byte

// MD5Bytes hashes the given bytes.
func MD5Bytes(data []byte) MD5Digest {
	return MD5Digest(md5.Sum(data))
}

// MD5Reader hashes the full contents of r.
func MD5Reader(r io.Reader) (MD5Digest, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return MD5Digest{}, err
	}
	var d MD5Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// String renders the digest as a hex string.
func (d MD5Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Equal reports whether two digests are identical.
func (d MD5Digest) Equal(other MD5Digest) bool {
	return d == other
}
