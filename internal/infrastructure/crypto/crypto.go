// Package crypto implements the credential primitives of the authorization
// server: secret hashing, random identifier generation, and PKCE.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Identifier length policies. Protocol-facing tokens that must be indexable
// get a fixed length; client credentials get a ranged one.
const (
	SessionIDLength         = 32
	CallbackIDLength        = 20
	AuthorizationCodeLength = 48
	RefreshTokenLength      = 90

	ClientIDMinLength     = 20
	ClientIDMaxLength     = 25
	ClientSecretMinLength = 45
	ClientSecretMaxLength = 60
)

// HashSecret hashes a secret using bcrypt
func HashSecret(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifySecret reports whether the secret matches its bcrypt hash
func VerifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// GenerateID returns a cryptographically secure random alphanumeric string
// of the given length. An RNG failure is not recoverable and aborts the
// process.
func GenerateID(length int) string {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto: random source failure: %v", err))
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}

// GenerateRangedID returns a random alphanumeric string whose length is
// uniformly chosen in [minLength, maxLength]
func GenerateRangedID(minLength, maxLength int) string {
	span := big.NewInt(int64(maxLength - minLength + 1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		panic(fmt.Sprintf("crypto: random source failure: %v", err))
	}
	return GenerateID(minLength + int(n.Int64()))
}

// NewClientID generates a client identifier
func NewClientID() string {
	return GenerateRangedID(ClientIDMinLength, ClientIDMaxLength)
}

// NewClientSecret generates a client secret
func NewClientSecret() string {
	return GenerateRangedID(ClientSecretMinLength, ClientSecretMaxLength)
}

// NewSessionID generates an authentication session identifier
func NewSessionID() string {
	return GenerateID(SessionIDLength)
}

// NewCallbackID generates a one-time callback identifier
func NewCallbackID() string {
	return GenerateID(CallbackIDLength)
}

// NewAuthorizationCode generates an authorization code
func NewAuthorizationCode() string {
	return GenerateID(AuthorizationCodeLength)
}

// NewRefreshToken generates a refresh token
func NewRefreshToken() string {
	return GenerateID(RefreshTokenLength)
}

// PKCEChallenge computes the S256 transform of a code verifier: the URL-safe
// unpadded base64 encoding of its SHA-256 digest
func PKCEChallenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// PKCEMatches reports whether the verifier's S256 transform equals the stored
// challenge. The comparison is constant time.
func PKCEMatches(verifier, challenge string) bool {
	computed := PKCEChallenge(verifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
