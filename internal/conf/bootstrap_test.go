package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a YAML config file into a temp dir and returns its path
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestNewBootstrap_Defaults(t *testing.T) {
	bc, err := NewBootstrap("")
	require.NoError(t, err)
	require.NotNil(t, bc)

	// Server defaults
	assert.Equal(t, ":8080", bc.Server.HTTP.Addr)
	assert.Equal(t, "tcp", bc.Server.HTTP.Network)
	assert.Equal(t, 10*time.Second, bc.Server.HTTP.Timeout)
	assert.Empty(t, bc.Server.AdminToken)

	// Data defaults
	assert.Equal(t, "mysql", bc.Data.Database.Driver)
	assert.Empty(t, bc.Data.Database.Source)
	assert.Equal(t, "127.0.0.1:6379", bc.Data.Redis.Addr)
	assert.Equal(t, 200*time.Millisecond, bc.Data.Redis.ReadTimeout)
	assert.Equal(t, 200*time.Millisecond, bc.Data.Redis.WriteTimeout)

	// Log defaults
	assert.Equal(t, "info", bc.Log.Level)
	assert.Equal(t, "json", bc.Log.Format)

	// GitHub defaults
	assert.Equal(t, "https://api.github.com", bc.GitHub.APIURL)
	assert.Equal(t, "eyes", bc.GitHub.Reaction)

	// Breaker defaults
	assert.Equal(t, "bountybot", bc.Breaker.KeyPrefix)
	assert.Equal(t, StoreRedis, bc.Breaker.Store)
	require.Len(t, bc.Breaker.Services, 4)

	github := bc.Breaker.Services["github"]
	require.NotNil(t, github)
	assert.Equal(t, 10, github.FailureThreshold)
	assert.Equal(t, 120*time.Second, github.FailureWindow)

	payments := bc.Breaker.Services["payments"]
	require.NotNil(t, payments)
	assert.Equal(t, 5, payments.FailureThreshold)
	assert.Equal(t, 30*time.Second, payments.ResetTimeout)
	assert.Equal(t, 60*time.Second, payments.FailureWindow)
	assert.Equal(t, 2, payments.SuccessThreshold)
}

func TestNewBootstrap_ConfigFile(t *testing.T) {
	configPath := writeConfig(t, `server:
  http:
    addr: :9090
log:
  level: debug
  format: console
breaker:
  store: memory
  services:
    github:
      failure_threshold: 20
    search:
      failure_threshold: 4
      reset_timeout: 15s
      failure_window: 45s
      success_threshold: 1
`)

	bc, err := NewBootstrap(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":9090", bc.Server.HTTP.Addr)
	assert.Equal(t, "debug", bc.Log.Level)
	assert.Equal(t, "console", bc.Log.Format)
	assert.Equal(t, StoreMemory, bc.Breaker.Store)

	// Partially overridden breaker keeps its other defaults
	github := bc.Breaker.Services["github"]
	require.NotNil(t, github)
	assert.Equal(t, 20, github.FailureThreshold)
	assert.Equal(t, 120*time.Second, github.FailureWindow)

	// Extra breakers declared in the file are loaded alongside the defaults
	search := bc.Breaker.Services["search"]
	require.NotNil(t, search)
	assert.Equal(t, 4, search.FailureThreshold)
	assert.Equal(t, 15*time.Second, search.ResetTimeout)
	assert.Equal(t, 45*time.Second, search.FailureWindow)
	assert.Equal(t, 1, search.SuccessThreshold)
	assert.Contains(t, bc.Breaker.Services, "payments")
}

func TestNewBootstrap_EnvOverrides(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, bc *Bootstrap)
	}{
		{
			name:    "override_http_addr",
			envVars: map[string]string{"BOUNTYBOT_SERVER_HTTP_ADDR": ":9999"},
			check: func(t *testing.T, bc *Bootstrap) {
				assert.Equal(t, ":9999", bc.Server.HTTP.Addr)
			},
		},
		{
			name:    "override_redis_addr",
			envVars: map[string]string{"BOUNTYBOT_DATA_REDIS_ADDR": "redis.example.com:6379"},
			check: func(t *testing.T, bc *Bootstrap) {
				assert.Equal(t, "redis.example.com:6379", bc.Data.Redis.Addr)
			},
		},
		{
			name: "conventional_secret_names",
			envVars: map[string]string{
				"GITHUB_TOKEN":          "ghp_test_token",
				"GITHUB_WEBHOOK_SECRET": "hook-secret",
				"ADMIN_TOKEN":           "admin-secret",
				"MYSQL_DSN":             "user:pass@tcp(localhost:3306)/bounty",
			},
			check: func(t *testing.T, bc *Bootstrap) {
				assert.Equal(t, "ghp_test_token", bc.GitHub.Token)
				assert.Equal(t, "hook-secret", bc.GitHub.WebhookSecret)
				assert.Equal(t, "admin-secret", bc.Server.AdminToken)
				assert.Equal(t, "user:pass@tcp(localhost:3306)/bounty", bc.Data.Database.Source)
			},
		},
		{
			name:    "override_breaker_threshold",
			envVars: map[string]string{"BOUNTYBOT_BREAKER_SERVICES_PAYMENTS_FAILURE_THRESHOLD": "7"},
			check: func(t *testing.T, bc *Bootstrap) {
				assert.Equal(t, 7, bc.Breaker.Services["payments"].FailureThreshold)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			bc, err := NewBootstrap("")
			require.NoError(t, err)
			tt.check(t, bc)
		})
	}
}

func TestNewBootstrap_MissingFile(t *testing.T) {
	_, err := NewBootstrap(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestNewBootstrap_InvalidValues(t *testing.T) {
	configPath := writeConfig(t, `log:
  level: verbose
breaker:
  store: etcd
  services:
    github:
      failure_threshold: 0
`)

	_, err := NewBootstrap(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "Level")
	assert.Contains(t, err.Error(), "Store")
	assert.Contains(t, err.Error(), "breaker.services.github")
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, Validate(nil))
	assert.Error(t, Validate(&Bootstrap{}))
}
