package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ipede/authz-server/internal/domain"
	"github.com/ipede/authz-server/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PostgresClientRepository implements domain.ClientRepository using PostgreSQL
type PostgresClientRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

// NewClientRepository creates a new PostgresClientRepository
func NewClientRepository(db *database.Postgres, logger *zap.Logger) domain.ClientRepository {
	return &PostgresClientRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresClientRepository) Create(ctx context.Context, client *domain.Client) error {
	redirectURIs, responseTypes, grantTypes, scopes, extraParams, err := marshalClientColumns(client)
	if err != nil {
		return err
	}

	return r.db.Exec(ctx, `
		INSERT INTO clients (id, authn_method, hashed_secret, redirect_uris, response_types, grant_types, scopes, pkce_required, token_model_id, extra_params, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, client.ID, client.AuthnMethod, client.HashedSecret, redirectURIs, responseTypes, grantTypes, scopes,
		client.PKCERequired, client.TokenModelID, extraParams, client.CreatedAt, client.UpdatedAt)
}

func (r *PostgresClientRepository) FindByID(ctx context.Context, id string) (*domain.Client, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, authn_method, hashed_secret, redirect_uris, response_types, grant_types, scopes, pkce_required, token_model_id, extra_params, created_at, updated_at
		FROM clients WHERE id = $1
	`, id)

	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		r.logger.Error("Failed to scan client", zap.String("client_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return client, nil
}

func (r *PostgresClientRepository) Update(ctx context.Context, client *domain.Client) error {
	redirectURIs, responseTypes, grantTypes, scopes, extraParams, err := marshalClientColumns(client)
	if err != nil {
		return err
	}

	return r.db.Exec(ctx, `
		UPDATE clients
		SET authn_method = $1, hashed_secret = $2, redirect_uris = $3, response_types = $4, grant_types = $5,
		    scopes = $6, pkce_required = $7, token_model_id = $8, extra_params = $9, updated_at = $10
		WHERE id = $11
	`, client.AuthnMethod, client.HashedSecret, redirectURIs, responseTypes, grantTypes, scopes,
		client.PKCERequired, client.TokenModelID, extraParams, client.UpdatedAt, client.ID)
}

func (r *PostgresClientRepository) Delete(ctx context.Context, id string) error {
	return r.db.Exec(ctx, "DELETE FROM clients WHERE id = $1", id)
}

func (r *PostgresClientRepository) List(ctx context.Context) ([]*domain.Client, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, authn_method, hashed_secret, redirect_uris, response_types, grant_types, scopes, pkce_required, token_model_id, extra_params, created_at, updated_at
		FROM clients
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var clients []*domain.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

func marshalClientColumns(client *domain.Client) (redirectURIs, responseTypes, grantTypes, scopes, extraParams []byte, err error) {
	if redirectURIs, err = json.Marshal(client.RedirectURIs); err != nil {
		return
	}
	if responseTypes, err = json.Marshal(client.ResponseTypes); err != nil {
		return
	}
	if grantTypes, err = json.Marshal(client.GrantTypes); err != nil {
		return
	}
	if scopes, err = json.Marshal(client.Scopes); err != nil {
		return
	}
	extraParams, err = json.Marshal(client.ExtraParams)
	return
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	client := &domain.Client{}
	var redirectURIs, responseTypes, grantTypes, scopes, extraParams []byte

	err := row.Scan(&client.ID, &client.AuthnMethod, &client.HashedSecret, &redirectURIs, &responseTypes,
		&grantTypes, &scopes, &client.PKCERequired, &client.TokenModelID, &extraParams,
		&client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(redirectURIs, &client.RedirectURIs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(responseTypes, &client.ResponseTypes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(grantTypes, &client.GrantTypes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scopes, &client.Scopes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(extraParams, &client.ExtraParams); err != nil {
		return nil, err
	}

	return client, nil
}
