package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// legacyDigestLen is the length of a hex-encoded unsalted SHA-256 digest, the
// format of password hashes imported from the previous users table.
const legacyDigestLen = sha256.Size * 2

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword reports whether password matches hash. legacy is true when
// the match was made against an old SHA-256 digest that should be upgraded.
func verifyPassword(hash, password string) (ok, legacy bool) {
	if isLegacyDigest(hash) {
		sum := sha256.Sum256([]byte(password))
		digest := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(digest), []byte(hash)) == 1, true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, false
}

func isLegacyDigest(hash string) bool {
	if len(hash) != legacyDigestLen {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
