package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// ErrSecretNotFound is returned when neither the vault nor the environment holds a value
var ErrSecretNotFound = errors.New("secret not found")

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	// SourceEnvironment loads secrets from environment variables
	SourceEnvironment SecretSource = "environment"
	// SourceVault loads secrets from Azure Key Vault
	SourceVault SecretSource = "vault"
	// SourceAuto uses vault in staging/production, environment in development
	SourceAuto SecretSource = "auto"
)

// Resolve turns "auto" into a concrete source for the given environment
func (s SecretSource) Resolve(environment string) SecretSource {
	if s != SourceAuto && s != "" {
		return s
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// Getter fetches a single secret by name
type Getter interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// Provider resolves configuration secrets from Key Vault or the environment
type Provider struct {
	source    SecretSource
	vault     Getter
	lookupEnv func(string) (string, bool)
	logger    *zap.Logger
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewProvider creates a new secrets provider
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := cfg.Source.Resolve(cfg.Environment)
	if cfg.Source == SourceAuto {
		logger.Info("Auto-detected secret source",
			zap.String("source", string(source)),
			zap.String("environment", cfg.Environment),
		)
	}

	var vault Getter
	if source == SourceVault {
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		client, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		vault = client
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)

	return newProvider(source, vault, os.LookupEnv, logger), nil
}

// NewProviderWithGetter builds a provider around an existing vault getter
func NewProviderWithGetter(vault Getter, lookupEnv func(string) (string, bool), logger *zap.Logger) *Provider {
	source := SourceEnvironment
	if vault != nil {
		source = SourceVault
	}
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return newProvider(source, vault, lookupEnv, logger)
}

func newProvider(source SecretSource, vault Getter, lookupEnv func(string) (string, bool), logger *zap.Logger) *Provider {
	return &Provider{
		source:    source,
		vault:     vault,
		lookupEnv: lookupEnv,
		logger:    logger,
	}
}

// GetSecret retrieves a secret by name.
// In vault mode secretName is the Key Vault name, otherwise it is an environment variable.
func (p *Provider) GetSecret(ctx context.Context, secretName string) (string, error) {
	switch p.source {
	case SourceEnvironment:
		value, ok := p.lookupEnv(secretName)
		if !ok || value == "" {
			return "", fmt.Errorf("%w: environment variable %q not set", ErrSecretNotFound, secretName)
		}
		return value, nil
	case SourceVault:
		if p.vault == nil {
			return "", fmt.Errorf("vault client not initialized")
		}
		return p.vault.GetSecret(ctx, secretName)
	default:
		return "", fmt.Errorf("unknown secret source: %s", p.source)
	}
}

// GetSecretOrEnv prefers an explicitly set environment variable, then the configured source
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if value, ok := p.lookupEnv(envName); ok && value != "" {
		p.logger.Debug("Using environment variable override", zap.String("env_name", envName))
		return value, nil
	}
	return p.GetSecret(ctx, secretName)
}

// Source returns the current secret source
func (p *Provider) Source() SecretSource {
	return p.source
}

// IsVaultEnabled returns true if secrets are loaded from vault
func (p *Provider) IsVaultEnabled() bool {
	return p.source == SourceVault
}
