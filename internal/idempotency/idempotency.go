// Package idempotency remembers the first response to a request carrying an
// Idempotency-Key so that retries replay it instead of repeating the write.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const MaxKeyLength = 128

type Record struct {
	Key         string
	RequestHash string
	Method      string
	Path        string
	Status      int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Completed reports whether a response has been stored for the record.
func (r *Record) Completed() bool {
	return r.CompletedAt != nil
}

// Hash fingerprints a request by method, path, caller and body.
func Hash(method, path, caller string, body []byte) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(method), []byte(path), []byte(caller), body} {
		h.Write(part)
		h.Write([]byte{'\n'})
	}

	return hex.EncodeToString(h.Sum(nil))
}
