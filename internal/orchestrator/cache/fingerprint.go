// internal/orchestrator/cache/fingerprint.go
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"finassist/internal/models"
)

const keyPrefix = "respcache"

// Fingerprint derives the cache key for one capability request. Parameter
// values are normalized and parameter order never affects the key, so
// equivalent requests map to the same entry.
func Fingerprint(capability models.Capability, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(capability))
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%s", strings.ToLower(strings.TrimSpace(k)), normalizeValue(params[k]))
	}

	return fmt.Sprintf("%s:%s:%s", keyPrefix, capability, hex.EncodeToString(h.Sum(nil)))
}

// normalizeValue lowercases, trims, and collapses internal whitespace so
// trivially rephrased values hash identically.
func normalizeValue(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(v)), " ")
}
