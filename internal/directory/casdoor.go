package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

// UserDirectory resolves candidate IDs to display names for review
// surfaces. Lookups are best-effort; callers fall back to the raw ID.
type UserDirectory interface {
	GetDisplayName(ctx context.Context, userID string) (string, error)
}

type Config struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Certificate  string
	Organization string
	Application  string
}

type casdoorDirectory struct {
	client *casdoorsdk.Client
	logger *slog.Logger
}

func NewCasdoorDirectory(cfg Config, logger *slog.Logger) UserDirectory {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
	return &casdoorDirectory{
		client: client,
		logger: logger,
	}
}

func (d *casdoorDirectory) GetDisplayName(ctx context.Context, userID string) (string, error) {
	user, err := d.client.GetUser(userID)
	if err != nil {
		return "", fmt.Errorf("casdoor lookup failed for %s: %w", userID, err)
	}
	if user == nil {
		return "", fmt.Errorf("casdoor user %s not found", userID)
	}
	if user.DisplayName != "" {
		return user.DisplayName, nil
	}
	return user.Name, nil
}

// NoopDirectory is used when no identity provider is configured; every
// lookup misses and callers show the raw candidate ID.
type NoopDirectory struct{}

func (NoopDirectory) GetDisplayName(ctx context.Context, userID string) (string, error) {
	return "", fmt.Errorf("user directory not configured")
}
