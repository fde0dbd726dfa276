// Package id provides unique identifier generation for jobs.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Generate creates a new unique job ID.
// Format: split-<timestamp>-<random>
// Example: split-1701432000-a1b2c3d4
func Generate() string {
	timestamp := time.Now().Unix()
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return fmt.Sprintf("split-%d-%d", timestamp, time.Now().UnixNano()%1e8)
	}
	return fmt.Sprintf("split-%d-%s", timestamp, hex.EncodeToString(random))
}
