package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"CONVERSION_TIMEOUT", "VAT_RATE", "VAT_CURRENCIES", "TEMPLATE_SOURCE", "SOFFICE_PATH", "DEFAULT_CURRENCY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 60*time.Second, cfg.ConversionTimeout)
	assert.Equal(t, 0.12, cfg.VATRate)
	assert.Equal(t, []string{"PHP"}, cfg.VATCurrencies)
	assert.Equal(t, TemplateSourceLocal, cfg.TemplateSource)
	assert.Equal(t, "", cfg.SofficePath)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.True(t, cfg.EmailTestMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CONVERSION_TIMEOUT", "90")
	t.Setenv("VAT_RATE", "0.07")
	t.Setenv("VAT_CURRENCIES", "PHP, SGD ,")
	t.Setenv("SOFFICE_PATH", "/opt/lo/program/soffice")
	t.Setenv("DEFAULT_CURRENCY", "php")
	t.Setenv("EMAIL_TEST_MODE", "off")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test,https://b.test")

	cfg := Load()
	assert.Equal(t, 90*time.Second, cfg.ConversionTimeout)
	assert.Equal(t, 0.07, cfg.VATRate)
	assert.Equal(t, []string{"PHP", "SGD"}, cfg.VATCurrencies)
	assert.Equal(t, "/opt/lo/program/soffice", cfg.SofficePath)
	assert.Equal(t, "PHP", cfg.DefaultCurrency)
	assert.False(t, cfg.EmailTestMode)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", 5 * time.Second},
		{"2m", 2 * time.Minute},
		{"45", 45 * time.Second},
		{"soon", 5 * time.Second},
		{"-3s", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.expected, getEnvDuration("TEST_DURATION", 5*time.Second))
		})
	}
}

func TestGetEnvFloatInvalid(t *testing.T) {
	t.Setenv("TEST_FLOAT", "twelve")
	assert.Equal(t, 0.12, getEnvFloat("TEST_FLOAT", 0.12))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "30")
	assert.Equal(t, 30, getEnvInt("TEST_INT", 0))

	t.Setenv("TEST_INT", "-1")
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))

	t.Setenv("TEST_INT", "")
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))
}
