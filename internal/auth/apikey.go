package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const secretByteLength = 24

// GenerateKey returns a new API key for the given user id plus the bcrypt
// hash to store. Keys are shaped <user-id>.<secret>; only the hash of the
// secret is persisted, so the full key is shown exactly once.
func GenerateKey(userID string) (key string, hash string, err error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", "", fmt.Errorf("user id is required")
	}

	secret, hash, err := GenerateSecret()
	if err != nil {
		return "", "", err
	}
	return userID + "." + secret, hash, nil
}

// GenerateSecret mints a fresh key secret and its bcrypt hash, for callers
// that assemble the full key once the user id is known.
func GenerateSecret() (secret string, hash string, err error) {
	raw := make([]byte, secretByteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	secret = base64.RawURLEncoding.EncodeToString(raw)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return secret, string(hashed), nil
}

// ParseKey splits an API key into user id and secret.
func ParseKey(key string) (userID string, secret string, err error) {
	key = strings.TrimSpace(key)
	idx := strings.IndexByte(key, '.')
	if idx <= 0 || idx == len(key)-1 {
		return "", "", fmt.Errorf("malformed api key")
	}
	return key[:idx], key[idx+1:], nil
}

// VerifySecret compares a presented secret against a stored hash.
func VerifySecret(hash, secret string) bool {
	if hash == "" || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
