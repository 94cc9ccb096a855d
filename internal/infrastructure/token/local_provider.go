package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/ipede/authz-server/internal/domain"
	"go.uber.org/zap"
)

const rsaKeySize = 2048

// LocalKeyProvider resolves signing keys from process-local material: HMAC
// secrets handed in at startup and RSA key pairs kept as PEM files on disk.
// Keys are registered before traffic begins and read without locking.
type LocalKeyProvider struct {
	keys   map[string]*domain.SigningKey
	logger *zap.Logger
}

// NewLocalKeyProvider creates an empty provider
func NewLocalKeyProvider(logger *zap.Logger) *LocalKeyProvider {
	return &LocalKeyProvider{
		keys:   make(map[string]*domain.SigningKey),
		logger: logger,
	}
}

// AddHMACKey registers a symmetric key for HS256 token models
func (p *LocalKeyProvider) AddHMACKey(keyID string, secret []byte) error {
	if keyID == "" || len(secret) == 0 {
		return domain.ErrSigningKeyNotFound
	}
	p.keys[keyID] = &domain.SigningKey{
		ID:        keyID,
		Algorithm: domain.SigningAlgorithmHS256,
		Material:  secret,
	}
	return nil
}

// LoadRSAKey registers an RSA key pair for RS256 token models, loading the
// PEM file at path or generating and persisting a new pair when none exists
func (p *LocalKeyProvider) LoadRSAKey(keyID, path string) error {
	privateKey, err := p.loadOrGenerateRSAKey(path)
	if err != nil {
		return err
	}
	p.keys[keyID] = &domain.SigningKey{
		ID:        keyID,
		Algorithm: domain.SigningAlgorithmRS256,
		Material:  privateKey,
	}
	return nil
}

// Key resolves key material by id
func (p *LocalKeyProvider) Key(keyID string) (*domain.SigningKey, error) {
	key, ok := p.keys[keyID]
	if !ok {
		return nil, domain.ErrSigningKeyNotFound
	}
	return key, nil
}

func (p *LocalKeyProvider) loadOrGenerateRSAKey(path string) (*rsa.PrivateKey, error) {
	if pemBytes, err := os.ReadFile(path); err == nil {
		block, _ := pem.Decode(pemBytes)
		if block == nil {
			return nil, domain.ErrSigningKeyNotFound
		}
		privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		return privateKey, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	if err != nil {
		return nil, err
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	if err := os.WriteFile(path, pemBytes, 0600); err != nil {
		return nil, err
	}

	p.logger.Info("Generated new RSA signing key", zap.String("path", path))
	return privateKey, nil
}
