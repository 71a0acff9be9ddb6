// Package traceid derives deterministic, store-compatible trace identifiers
// from caller-chosen seeds, so a test run can address its trace directly
// instead of searching for it.
package traceid

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
)

// idFormat is the trace-context convention used by the store: 32 lowercase hex.
var idFormat = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Seed composes the recommended seed from a session id and test name. Using
// both fields keeps seeds distinct across unrelated tests that share a name.
func Seed(sessionID, testName string) string {
	return fmt.Sprintf("%s-%s", sessionID, testName)
}

// Generate maps a seed to a stable 32-character lowercase hex identifier.
// Identical seeds always produce identical ids.
func Generate(seed string) string {
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// IsValid reports whether id matches the store's trace id format.
func IsValid(id string) bool {
	return idFormat.MatchString(id)
}
