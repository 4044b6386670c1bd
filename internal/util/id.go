package util

import (
	"crypto/rand"
	"encoding/hex"
)

// idBytes keeps request IDs short enough to read in log lines.
const idBytes = 12

// NewID returns a random hex ID used to correlate log records for one
// request.
func NewID() string {
	b := make([]byte, idBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
