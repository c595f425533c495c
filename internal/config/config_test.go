package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.App.IsProduction())
	assert.True(t, cfg.Security.HeadersEnabled)
	assert.Equal(t, "/api/csp-report", cfg.Security.CSPReportURI)
	assert.Equal(t, time.Minute, cfg.Security.ReportRateWindow)
	assert.Equal(t, []int{640, 750, 828, 1080, 1200, 1920, 2048, 3840}, cfg.Images.DeviceSizes)
	assert.False(t, cfg.Admin.Enabled())
}

func TestProductionEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.IsProduction())
}

func TestSecurityHeadersOptOut(t *testing.T) {
	t.Setenv("ENABLE_SECURITY_HEADERS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Security.HeadersEnabled)
}

// Any value other than the literal "false" keeps headers enabled.
func TestSecurityHeadersEnabledByDefault(t *testing.T) {
	for _, v := range []string{"true", "1", "no", "FALSE"} {
		t.Setenv("ENABLE_SECURITY_HEADERS", v)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Truef(t, cfg.Security.HeadersEnabled, "value %q should not disable headers", v)
	}
}

func TestCSPReportURIOverride(t *testing.T) {
	t.Setenv("CSP_REPORT_URI", "https://reports.example.com/csp")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://reports.example.com/csp", cfg.Security.CSPReportURI)
}

func TestPublicURLPassthrough(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_APP_URL", "https://shop.example.com")
	t.Setenv("NEXT_PUBLIC_API_URL", "https://api.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com", cfg.App.PublicAppURL)
	assert.Equal(t, "https://api.example.com", cfg.App.PublicAPIURL)
}

func TestAdminRequiresFullKey(t *testing.T) {
	t.Setenv("ADMIN_API_KEY_HASH", "$2a$10$notarealhashbutnonempty")
	t.Setenv("ADMIN_PASETO_KEY", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_PASETO_KEY")

	t.Setenv("ADMIN_PASETO_KEY", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Admin.Enabled())
}

func TestImageHostAllowlist(t *testing.T) {
	t.Setenv("IMAGE_REMOTE_HOSTS", "cdn.example.com, media.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Images.AllowsHost("cdn.example.com"))
	assert.True(t, cfg.Images.AllowsHost("CDN.example.com"))
	assert.False(t, cfg.Images.AllowsHost("evil.example.com"))
}

func TestImageWidths(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Images.AllowsWidth(1080))
	assert.True(t, cfg.Images.AllowsWidth(64))
	assert.False(t, cfg.Images.AllowsWidth(1081))
}
