package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipede/authz-server/internal/domain"
	"github.com/ipede/authz-server/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PostgresTokenModelRepository implements domain.TokenModelRepository using PostgreSQL
type PostgresTokenModelRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

// NewTokenModelRepository creates a new PostgresTokenModelRepository
func NewTokenModelRepository(db *database.Postgres, logger *zap.Logger) domain.TokenModelRepository {
	return &PostgresTokenModelRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresTokenModelRepository) Create(ctx context.Context, model *domain.TokenModel) error {
	return r.db.Exec(ctx, `
		INSERT INTO token_models (id, issuer, expires_in, token_type, key_id, signing_algorithm)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, model.ID, model.Issuer, model.ExpiresIn, model.Type, model.KeyID, model.SigningAlgorithm)
}

func (r *PostgresTokenModelRepository) FindByID(ctx context.Context, id string) (*domain.TokenModel, error) {
	model := &domain.TokenModel{}

	err := r.db.QueryRow(ctx, `
		SELECT id, issuer, expires_in, token_type, key_id, signing_algorithm
		FROM token_models WHERE id = $1
	`, id).Scan(&model.ID, &model.Issuer, &model.ExpiresIn, &model.Type, &model.KeyID, &model.SigningAlgorithm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenModelNotFound
		}
		r.logger.Error("Failed to scan token model", zap.String("token_model_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return model, nil
}

func (r *PostgresTokenModelRepository) Delete(ctx context.Context, id string) error {
	return r.db.Exec(ctx, "DELETE FROM token_models WHERE id = $1", id)
}

func (r *PostgresTokenModelRepository) List(ctx context.Context) ([]*domain.TokenModel, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, issuer, expires_in, token_type, key_id, signing_algorithm
		FROM token_models
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var models []*domain.TokenModel
	for rows.Next() {
		model := &domain.TokenModel{}
		if err := rows.Scan(&model.ID, &model.Issuer, &model.ExpiresIn, &model.Type, &model.KeyID, &model.SigningAlgorithm); err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	return models, rows.Err()
}
