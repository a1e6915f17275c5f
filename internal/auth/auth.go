// Package auth verifies the one-shot credential a peer presents when it connects.
//
// The peer sends some data together with the lower-case hex HMAC-SHA256 of that data
// keyed with the shared secret. The secret itself is kept in memguard-protected
// memory for the lifetime of the process.
package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
)

var (
	// ErrMissingData is returned when the authentication payload is empty
	ErrMissingData = errors.New("auth: data is required")

	// ErrMissingTag is returned when the authentication tag is empty
	ErrMissingTag = errors.New("auth: tag is required")

	// ErrEmptySecret is returned when a secret file holds nothing after trimming
	ErrEmptySecret = errors.New("auth: secret is empty")
)

// Credential is the shared secret used to key the verification function.
type Credential struct {
	buf *memguard.LockedBuffer
}

// NewCredential moves secret into locked memory. memguard wipes the input slice.
func NewCredential(secret []byte) (*Credential, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &Credential{buf: memguard.NewBufferFromBytes(secret)}, nil
}

// LoadCredential reads a secret file. Surrounding whitespace and line endings are
// trimmed.
func LoadCredential(path string) (*Credential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}
	defer memguard.WipeBytes(raw)

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptySecret)
	}
	secret := make([]byte, len(trimmed))
	copy(secret, trimmed)
	return NewCredential(secret)
}

// Sign returns the tag a client must send alongside data.
func (c *Credential) Sign(data []byte) []byte {
	mac := hmac.New(sha256.New, c.buf.Bytes())
	mac.Write(data)
	sum := mac.Sum(nil)
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out
}

// Destroy wipes the secret. The credential must not be used afterwards.
func (c *Credential) Destroy() {
	if c != nil && c.buf != nil {
		c.buf.Destroy()
	}
}

// Verify reports whether tag is the credential's MAC over data. The comparison
// takes the same time wherever the first differing byte is. A mismatch is not an
// error.
func Verify(c *Credential, data, tag []byte) (bool, error) {
	if len(data) == 0 {
		return false, ErrMissingData
	}
	if len(tag) == 0 {
		return false, ErrMissingTag
	}
	return hmac.Equal(c.Sign(data), tag), nil
}
