// Package redisx holds the Redis-backed pieces of the storefront: the
// shared token revocation set and the connection helper.
package redisx

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// Revoked access token: revoked:jwt:{sha256(token)} -> "1", TTL = remaining token life
	KeyRevokedToken = "revoked:jwt:%s"
)

// RevokedTokenKey hashes the token so raw JWTs never sit in Redis and keys
// stay a fixed length.
func RevokedTokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf(KeyRevokedToken, hex.EncodeToString(sum[:]))
}
