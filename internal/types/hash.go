package types

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// NormalizeSource canonicalizes source text for hashing: leading and
// trailing whitespace is dropped and interior runs collapse to a single
// space. Case is preserved so exact lookup stays case-sensitive.
func NormalizeSource(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HashSource returns the deterministic hash of normalized source text.
// Both backends store it so exact TM lookup is a single indexed read.
func HashSource(source string) string {
	h := sha256.Sum256([]byte(NormalizeSource(source)))
	return fmt.Sprintf("%x", h)
}

// ComputeSourceHash fills in the entry's SourceHash from its source text.
func (e *TMEntry) ComputeSourceHash() string {
	return HashSource(e.SourceText)
}

// TimestampLayout is the canonical wire format for merge timestamps:
// ISO-8601 UTC with millisecond precision. Lexicographic order on
// formatted values matches chronological order, which the last-write-wins
// merge relies on.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in the canonical merge format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a canonical merge timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
