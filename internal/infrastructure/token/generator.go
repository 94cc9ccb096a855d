// Package token implements the token engine: it mints signed bearer tokens
// from token-model configurations.
package token

import (
	"crypto/rsa"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ipede/authz-server/internal/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Generator mints JWT bearer tokens. It is stateless apart from reading the
// wall clock and resolving signing keys.
type Generator struct {
	keys   domain.SigningKeyProvider
	logger *zap.Logger
}

// NewGenerator creates a new Generator
func NewGenerator(keys domain.SigningKeyProvider, logger *zap.Logger) *Generator {
	return &Generator{
		keys:   keys,
		logger: logger,
	}
}

// GenerateToken builds the reserved claim set, merges the caller's
// additional claims with reserved names winning on conflict, and signs the
// result with the model's algorithm and key.
func (g *Generator) GenerateToken(model *domain.TokenModel, clientID, subject string, scopes []string, additionalClaims map[string]string) (*domain.BearerToken, error) {
	if model.Type != domain.TokenTypeJWT {
		g.logger.Error("Unsupported token type",
			zap.String("token_model_id", model.ID),
			zap.String("token_type", string(model.Type)))
		return nil, domain.ErrUnsupportedTokenType
	}

	key, err := g.keys.Key(model.KeyID)
	if err != nil {
		g.logger.Error("Failed to resolve signing key",
			zap.String("token_model_id", model.ID),
			zap.String("key_id", model.KeyID),
			zap.Error(err))
		return nil, err
	}

	now := time.Now()
	info := domain.TokenInfo{
		ID:               ulid.Make().String(),
		Subject:          subject,
		Issuer:           model.Issuer,
		IssuedAt:         now.Unix(),
		Expiration:       now.Unix() + int64(model.ExpiresIn),
		ClientID:         clientID,
		Scopes:           scopes,
		AdditionalClaims: additionalClaims,
	}

	method, signingKey, err := signingInput(model.SigningAlgorithm, key)
	if err != nil {
		g.logger.Error("Failed to prepare signing input",
			zap.String("token_model_id", model.ID),
			zap.String("signing_algorithm", string(model.SigningAlgorithm)),
			zap.Error(err))
		return nil, err
	}

	tok := jwt.NewWithClaims(method, jwt.MapClaims(info.Claims()))
	tok.Header["kid"] = key.ID

	signed, err := tok.SignedString(signingKey)
	if err != nil {
		g.logger.Error("Failed to sign token",
			zap.String("token_model_id", model.ID),
			zap.Error(err))
		return nil, err
	}

	return &domain.BearerToken{
		ID:    info.ID,
		Info:  info,
		Token: signed,
	}, nil
}

// signingInput maps the model's algorithm onto the jwt signing method and
// asserts the key material has the matching type
func signingInput(alg domain.SigningAlgorithm, key *domain.SigningKey) (jwt.SigningMethod, interface{}, error) {
	switch alg {
	case domain.SigningAlgorithmHS256:
		secret, ok := key.Material.([]byte)
		if !ok {
			return nil, nil, domain.ErrUnsupportedSigningAlgorithm
		}
		return jwt.SigningMethodHS256, secret, nil
	case domain.SigningAlgorithmRS256:
		privateKey, ok := key.Material.(*rsa.PrivateKey)
		if !ok {
			return nil, nil, domain.ErrUnsupportedSigningAlgorithm
		}
		return jwt.SigningMethodRS256, privateKey, nil
	default:
		return nil, nil, domain.ErrUnsupportedSigningAlgorithm
	}
}
