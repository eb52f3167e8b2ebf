package geo

import (
	"crypto/sha256"
	"encoding/base64"
)

// ETag computes the weak entity tag for a serialized catalogue response.
//
// The tag is stable for identical content: a truncated base64url SHA-256 of
// the body, wrapped in the weak-validator form W/"...". Weak semantics are
// correct here because the tag covers the serialized form, not byte identity
// of any underlying resource.
func ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `W/"` + base64.RawURLEncoding.EncodeToString(sum[:16]) + `"`
}
