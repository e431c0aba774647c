package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// ChecksumPrefix identifies the digest algorithm in recorded checksums.
const ChecksumPrefix = "sha256:"

// NewHasher returns the hash used for artifact checksums. The download
// manager feeds it while streaming so verification needs no second
// pass over the file.
func NewHasher() hash.Hash { return sha256.New() }

// FormatChecksum renders a finished hash as "sha256:<hex>".
func FormatChecksum(h hash.Hash) string {
	return ChecksumPrefix + hex.EncodeToString(h.Sum(nil))
}

// FileChecksum computes the checksum of a file on disk.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := NewHasher()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return FormatChecksum(h), nil
}

// IntegrityError reports a checksum mismatch. It is never retried
// silently: the offending bytes are discarded and the error surfaces
// to the user with both digests.
type IntegrityError struct {
	Key      string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Key, e.Expected, e.Actual)
}
