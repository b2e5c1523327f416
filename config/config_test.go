package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STOREFRONT_PAYMENT_MODE", "mock")
	t.Setenv("STOREFRONT_SERVER_PORT", "9090")
	t.Setenv("STOREFRONT_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":9090", cfg.Server.Addr())
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, "ETB", cfg.Payment.Currency)
	assert.Equal(t, 3, cfg.Mail.MaxRetries)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Mode: "release"},
			Database: DatabaseConfig{Driver: "postgres"},
			JWT:      JWTConfig{Secret: "x"},
			Payment:  PaymentConfig{Mode: "mock"},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Payment.Mode = "paypal"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Payment.Mode = "chapa"
	assert.Error(t, cfg.Validate(), "live gateway needs a secret")

	cfg = base()
	cfg.JWT.Secret = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.Mode = "debug"
	cfg.JWT.Secret = ""
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.JWT.Secret)
}

func TestPostgresDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=shop port=5432 sslmode=disable", d.PostgresDSN())

	d.DSN = "postgres://u:p@db/shop"
	assert.Equal(t, "postgres://u:p@db/shop", d.PostgresDSN())
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
