package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BaseAndDevOverlay(t *testing.T) {
	cfg, err := Load(".", "dev")
	require.NoError(t, err)

	assert.Equal(t, "shop-api", cfg.App.Name)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.True(t, cfg.Store.Migrate)
	assert.Equal(t, 5*time.Second, cfg.Store.TxTimeout)
	assert.Equal(t, 3, cfg.Purchase.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Purchase.RetryBackoff)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.Equal(t, 30*time.Second, cfg.Idempotency.LockTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Security.Enabled)
	require.Len(t, cfg.Security.Clients, 2)
	assert.Contains(t, cfg.Security.Clients[0].Perms, "purchases.write")
	assert.Equal(t, "catalog.events", cfg.Kafka.TopicCatalog)
}

func TestLoad_EnvOverlay(t *testing.T) {
	t.Setenv("SHOPAPI_STORE__TX_TIMEOUT", "750ms")
	t.Setenv("SHOPAPI_PURCHASE__MAX_ATTEMPTS", "5")
	t.Setenv("SHOPAPI_KAFKA__BROKERS", "k1:9092,k2:9092")
	t.Setenv("SHOPAPI_NOTIFY__PICKUP_DIR", "/tmp/eml")
	t.Setenv("SHOPAPI_HTTP__TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.7")

	cfg, err := Load(".", "dev")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Store.TxTimeout)
	assert.Equal(t, 5, cfg.Purchase.MaxAttempts)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "/tmp/eml", cfg.Notify.PickupDir)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.7"}, cfg.HTTP.TrustedProxies)
}

func TestLoad_MissingEnvFileUsesBase(t *testing.T) {
	cfg, err := Load(".", "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Store.Driver)
	assert.False(t, cfg.Security.Enabled)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	write := func(body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(body), 0o644))
	}

	write("app: {http_addr: ':1'}\nstore: {driver: postgres, dsn: x}\nnotify: {pickup_dir: ./m}\n")
	_, err := Load(dir, "none")
	assert.ErrorContains(t, err, "store.driver")

	write("app: {http_addr: ':1'}\nstore: {driver: mysql, dsn: 'u:p@tcp(h)/db'}\nnotify: {pickup_dir: ./m}\n")
	_, err = Load(dir, "none")
	assert.ErrorContains(t, err, "parseTime")

	write("app: {http_addr: ':1'}\nstore: {driver: sqlite, dsn: ':memory:'}\nnotify: {mode: smtp}\n")
	_, err = Load(dir, "none")
	assert.ErrorContains(t, err, "notify.smtp")

	write("app: {http_addr: ':1'}\nstore: {driver: sqlite, dsn: ':memory:'}\nnotify: {pickup_dir: ./m}\nsecurity: {enabled: true, jwt_secret: short}\n")
	_, err = Load(dir, "none")
	assert.ErrorContains(t, err, "jwt_secret")

	write("app: {http_addr: ':1'}\nstore: {driver: sqlite, dsn: ':memory:'}\nnotify: {pickup_dir: ./m}\n")
	cfg, err := Load(dir, "none")
	require.NoError(t, err)
	assert.Equal(t, "pickup", cfg.Notify.Mode)
	assert.Equal(t, 15*time.Minute, cfg.Security.TTL)
}
