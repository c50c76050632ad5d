package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coin-wallet-engine/internal/model"
)

// GiftRepository reads the gift catalog. The ledger only ever looks up
// gifts by id; catalog management lives elsewhere.
type GiftRepository struct {
	pool *pgxpool.Pool
}

// NewGiftRepository creates a new GiftRepository instance.
func NewGiftRepository(pool *pgxpool.Pool) *GiftRepository {
	return &GiftRepository{pool: pool}
}

// Get retrieves a gift by id. Returns ErrGiftNotFound when the gift does
// not exist or has been deactivated.
func (r *GiftRepository) Get(ctx context.Context, giftID string) (*model.Gift, error) {
	const query = `
		SELECT gift_id, name, display_name, coin_value, is_active, created_at
		FROM gifts
		WHERE gift_id = $1 AND is_active = TRUE
	`

	var g model.Gift
	err := r.pool.QueryRow(ctx, query, giftID).Scan(
		&g.GiftID,
		&g.Name,
		&g.DisplayName,
		&g.CoinValue,
		&g.IsActive,
		&g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGiftNotFound
		}
		return nil, fmt.Errorf("failed to get gift: %w", err)
	}
	return &g, nil
}

// Create inserts a gift catalog entry.
func (r *GiftRepository) Create(ctx context.Context, g *model.Gift) error {
	const query = `
		INSERT INTO gifts (gift_id, name, display_name, coin_value, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := r.pool.Exec(ctx, query, g.GiftID, g.Name, g.DisplayName, g.CoinValue, g.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create gift: %w", err)
	}
	return nil
}

// ResourceAppRepository reads the registry of applications allowed to hold
// wallets, keyed by app name.
type ResourceAppRepository struct {
	pool *pgxpool.Pool
}

// NewResourceAppRepository creates a new ResourceAppRepository instance.
func NewResourceAppRepository(pool *pgxpool.Pool) *ResourceAppRepository {
	return &ResourceAppRepository{pool: pool}
}

// Get retrieves a registered app by name. Returns ErrAppNotFound for
// unknown apps.
func (r *ResourceAppRepository) Get(ctx context.Context, appName string) (*model.ResourceApp, error) {
	const query = `
		SELECT app_name, profile_endpoint, verification_endpoint, notification_endpoint, created_at
		FROM resource_apps
		WHERE app_name = $1
	`

	var a model.ResourceApp
	err := r.pool.QueryRow(ctx, query, appName).Scan(
		&a.AppName,
		&a.ProfileEndpoint,
		&a.VerificationEndpoint,
		&a.NotificationEndpoint,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppNotFound
		}
		return nil, fmt.Errorf("failed to get resource app: %w", err)
	}
	return &a, nil
}

// Create registers an app.
func (r *ResourceAppRepository) Create(ctx context.Context, a *model.ResourceApp) error {
	const query = `
		INSERT INTO resource_apps (app_name, profile_endpoint, verification_endpoint, notification_endpoint, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	_, err := r.pool.Exec(ctx, query, a.AppName, a.ProfileEndpoint, a.VerificationEndpoint, a.NotificationEndpoint)
	if err != nil {
		return fmt.Errorf("failed to create resource app: %w", err)
	}
	return nil
}
