package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// SecureHash computes the pp_SecureHash value shared by the redirect-form
// gateways: parameter values joined by '&' in sorted-key order, prefixed by
// the integrity salt, HMAC-SHA256 keyed by the same salt, uppercase hex.
// The result is independent of map iteration order.
func SecureHash(params map[string]string, salt string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(salt)
	for _, k := range keys {
		sb.WriteString("&")
		sb.WriteString(params[k])
	}

	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(sb.String()))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// VerifySecureHash recomputes the hash over all fields except hashField and
// compares it to the provided value in constant time. Malformed or missing
// input never panics; it verifies as false.
func VerifySecureHash(params map[string]string, hashField, salt string) bool {
	provided, ok := params[hashField]
	if !ok || provided == "" {
		return false
	}

	rest := make(map[string]string, len(params)-1)
	for k, v := range params {
		if k == hashField {
			continue
		}
		rest[k] = v
	}

	expected := SecureHash(rest, salt)
	return hmac.Equal([]byte(expected), []byte(provided))
}
