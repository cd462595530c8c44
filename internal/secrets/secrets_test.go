package secrets

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSecretsAPI struct {
	values map[string]string
	calls  int
}

func (f *fakeSecretsAPI) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.calls++
	value, ok := f.values[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "SecretNotFound"}
	}
	return azsecrets.GetSecretResponse{Secret: azsecrets.Secret{Value: &value}}, nil
}

func envFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestSecretSource_Resolve(t *testing.T) {
	assert.Equal(t, SourceEnvironment, SourceAuto.Resolve("development"))
	assert.Equal(t, SourceEnvironment, SourceAuto.Resolve(""))
	assert.Equal(t, SourceVault, SourceAuto.Resolve("production"))
	assert.Equal(t, SourceVault, SourceVault.Resolve("development"))
	assert.Equal(t, SourceEnvironment, SourceEnvironment.Resolve("production"))
}

func TestVaultClient_CachesUntilExpiry(t *testing.T) {
	api := &fakeSecretsAPI{values: map[string]string{"JWT-SECRET": "s3cret"}}
	client := newVaultClient(api, &VaultConfig{VaultName: "kv", CacheEnabled: true, CacheTTL: time.Minute}, zap.NewNop())
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		value, err := client.GetSecret(context.Background(), "JWT-SECRET")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", value)
	}
	assert.Equal(t, 1, api.calls)

	now = now.Add(2 * time.Minute)
	_, err := client.GetSecret(context.Background(), "JWT-SECRET")
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls)

	client.ClearCache()
	_, err = client.GetSecret(context.Background(), "JWT-SECRET")
	require.NoError(t, err)
	assert.Equal(t, 3, api.calls)
}

func TestVaultClient_NotFound(t *testing.T) {
	client := newVaultClient(&fakeSecretsAPI{values: map[string]string{}}, &VaultConfig{VaultName: "kv"}, zap.NewNop())

	_, err := client.GetSecret(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestProvider_GetSecretOrEnv(t *testing.T) {
	api := &fakeSecretsAPI{values: map[string]string{"REDIS-PASSWORD": "from-vault"}}
	vault := newVaultClient(api, &VaultConfig{VaultName: "kv"}, zap.NewNop())

	t.Run("environment override wins", func(t *testing.T) {
		p := NewProviderWithGetter(vault, envFrom(map[string]string{"REDIS_PASSWORD": "from-env"}), zap.NewNop())
		value, err := p.GetSecretOrEnv(context.Background(), "REDIS-PASSWORD", "REDIS_PASSWORD")
		require.NoError(t, err)
		assert.Equal(t, "from-env", value)
		assert.True(t, p.IsVaultEnabled())
	})

	t.Run("falls back to vault", func(t *testing.T) {
		p := NewProviderWithGetter(vault, envFrom(nil), zap.NewNop())
		value, err := p.GetSecretOrEnv(context.Background(), "REDIS-PASSWORD", "REDIS_PASSWORD")
		require.NoError(t, err)
		assert.Equal(t, "from-vault", value)
	})

	t.Run("environment source without value", func(t *testing.T) {
		p := NewProviderWithGetter(nil, envFrom(nil), zap.NewNop())
		assert.Equal(t, SourceEnvironment, p.Source())
		_, err := p.GetSecretOrEnv(context.Background(), "JWT_SECRET", "JWT_SECRET")
		assert.ErrorIs(t, err, ErrSecretNotFound)
	})
}
