package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSecret(t *testing.T) {
	hash, err := HashSecret("my-secret")
	require.NoError(t, err)
	assert.NotEqual(t, "my-secret", hash)

	assert.True(t, VerifySecret("my-secret", hash))
	assert.False(t, VerifySecret("wrong-secret", hash))
	assert.False(t, VerifySecret("my-secret", "not-a-hash"))
}

func TestGenerateID(t *testing.T) {
	id := GenerateID(32)
	assert.Len(t, id, 32)
	for _, c := range id {
		assert.True(t, strings.ContainsRune(alphabet, c), "unexpected character %q", c)
	}

	// Two draws colliding would mean the source is broken
	assert.NotEqual(t, GenerateID(32), GenerateID(32))
}

func TestGenerateRangedID(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := GenerateRangedID(10, 15)
		assert.GreaterOrEqual(t, len(id), 10)
		assert.LessOrEqual(t, len(id), 15)
	}
}

func TestIdentifierLengthPolicies(t *testing.T) {
	assert.Len(t, NewSessionID(), SessionIDLength)
	assert.Len(t, NewCallbackID(), CallbackIDLength)
	assert.Len(t, NewAuthorizationCode(), AuthorizationCodeLength)
	assert.Len(t, NewRefreshToken(), RefreshTokenLength)

	clientID := NewClientID()
	assert.GreaterOrEqual(t, len(clientID), ClientIDMinLength)
	assert.LessOrEqual(t, len(clientID), ClientIDMaxLength)

	secret := NewClientSecret()
	assert.GreaterOrEqual(t, len(secret), ClientSecretMinLength)
	assert.LessOrEqual(t, len(secret), ClientSecretMaxLength)
}

func TestPKCEMatches(t *testing.T) {
	tests := []struct {
		name      string
		verifier  string
		challenge string
		want      bool
	}{
		{
			name:      "matching verifier",
			verifier:  "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
			challenge: PKCEChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"),
			want:      true,
		},
		{
			name:      "different verifier",
			verifier:  "another-verifier",
			challenge: PKCEChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"),
			want:      false,
		},
		{
			name:      "challenge is not a transform",
			verifier:  "some-verifier",
			challenge: "some-verifier",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PKCEMatches(tt.verifier, tt.challenge))
		})
	}
}

func TestPKCEChallengeIsRawURLEncoded(t *testing.T) {
	challenge := PKCEChallenge("verifier")
	assert.NotContains(t, challenge, "=")
	assert.NotContains(t, challenge, "+")
	assert.NotContains(t, challenge, "/")
	assert.Len(t, challenge, 43) // raw base64 of a 32-byte digest
}
