// Package service implements the wallet engine's business logic: charges,
// gift transfers, withdrawal review, and the admin read paths. Services
// validate against the external resource-app registry before touching any
// wallet, serialize balance mutations per wallet key, and commit each
// logical operation in a single database transaction.
package service

import (
	"context"
	"errors"
	"fmt"

	"coin-wallet-engine/internal/model"
	"coin-wallet-engine/internal/registry"
	"coin-wallet-engine/internal/repository"
)

// RegistryClient is the outbound contract against registered resource apps.
// Satisfied by registry.Client.
type RegistryClient interface {
	ValidateUser(ctx context.Context, app *model.ResourceApp, userID string) error
	CheckEligibility(ctx context.Context, app *model.ResourceApp, userID string) error
	Notify(ctx context.Context, app *model.ResourceApp, userID, title, message string) error
}

// resolveApp looks up the registry entry for an app name.
func resolveApp(ctx context.Context, apps *repository.ResourceAppRepository, appName string) (*model.ResourceApp, error) {
	app, err := apps.Get(ctx, appName)
	if err != nil {
		if errors.Is(err, repository.ErrAppNotFound) {
			return nil, ErrAppNotFound
		}
		return nil, fmt.Errorf("failed to resolve app: %w", err)
	}
	return app, nil
}

// validateUser checks the user against the app's profile endpoint. A
// malformed profile body counts as a validation failure; only transport
// and server-side errors surface as ErrExternalService.
func validateUser(ctx context.Context, client RegistryClient, app *model.ResourceApp, userID string) error {
	err := client.ValidateUser(ctx, app, userID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrUserNotFound), errors.Is(err, registry.ErrBadResponse):
		return ErrInvalidUser
	default:
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}
}
