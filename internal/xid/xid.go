// Package xid generates opaque record ids like "sale_1a9f3c07d2b845e6c3".
package xid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// New returns prefix + "_" + 18 hex chars of randomness. If the random source
// fails the id degrades to a nanosecond timestamp, which still cannot collide
// within one process.
func New(prefix string) string {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		binary.BigEndian.PutUint64(buf[1:], uint64(time.Now().UnixNano()))
	}
	return prefix + "_" + hex.EncodeToString(buf)
}
