package configs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)

	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("SERVER_PASSWORD", "")
	t.Setenv("ECHO_TO_SENDER", "")

	cfg, err := LoadConfig()
	req.NoError(err)

	req.Equal("development", cfg.Environment)
	req.Equal(8080, cfg.Port)
	req.Empty(cfg.AllowedOrigins)
	req.Empty(cfg.ServerPassword)
	req.False(cfg.EchoToSender)
}

func TestLoadConfig_ParsesValues(t *testing.T) {
	req := require.New(t)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SERVER_PASSWORD", "secret")
	t.Setenv("ECHO_TO_SENDER", "true")

	cfg, err := LoadConfig()
	req.NoError(err)

	req.Equal("production", cfg.Environment)
	req.Equal(9090, cfg.Port)
	req.Equal([]string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	req.Equal("secret", cfg.ServerPassword)
	req.True(cfg.EchoToSender)
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	req := require.New(t)

	t.Setenv("PORT", "not-a-number")
	_, err := LoadConfig()
	req.Error(err)

	t.Setenv("PORT", "80")
	_, err = LoadConfig()
	req.Error(err)

	t.Setenv("PORT", "8080")
	t.Setenv("ECHO_TO_SENDER", "maybe")
	_, err = LoadConfig()
	req.Error(err)
}
