package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Minute, cfg.Billing.GroupCacheTTL)
	assert.Equal(t, "billing:notifications", cfg.Notifications.Channel)
	assert.Equal(t, 3, cfg.Notifications.MaxRetries)
	assert.Equal(t, time.UTC, cfg.Billing.Location())
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENV", EnvProduction)
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_AUDIENCE", "billing, admin ,")
	t.Setenv("BILLING_GROUP_CACHE_TTL", "90s")
	t.Setenv("NOTIFICATIONS_RETRY_DELAY", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"billing", "admin"}, cfg.JWT.Audience)
	assert.Equal(t, 90*time.Second, cfg.Billing.GroupCacheTTL)
	assert.Equal(t, 2*time.Second, cfg.Notifications.RetryDelay)
}

func TestBillingLocationFallsBackToUTC(t *testing.T) {
	cfg := BillingConfig{Timezone: "Nowhere/Invalid"}
	assert.Equal(t, time.UTC, cfg.Location())
}
