// Package runid generates the identifier that ties one conversion run's log
// lines together.
package runid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// A run ID reads "run-<unix seconds>-<randomHexLen hex chars>". The random
// tail keeps two runs started within the same second apart.
const (
	prefix       = "run"
	randomHexLen = 8
)

// Generate returns a fresh run identifier.
func Generate() string {
	now := time.Now().Unix()

	tail := make([]byte, randomHexLen/2)
	if _, err := rand.Read(tail); err != nil {
		// Degenerate but still usable: second resolution only.
		return fmt.Sprintf("%s-%d", prefix, now)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now, hex.EncodeToString(tail))
}
