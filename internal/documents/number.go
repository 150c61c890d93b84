package documents

import (
	"crypto/rand"
	"fmt"
	"time"
)

const (
	numberPrefix    = "DOC"
	numberSuffixLen = 6
	numberAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateNumber produces a tracking number of the form DOC-YYYYMMDD-XXXXXX.
// The suffix is random, so callers retry on the rare unique-index collision.
func GenerateNumber(now time.Time) (string, error) {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", numberPrefix, now.Format("20060102"), string(buf)), nil
}
