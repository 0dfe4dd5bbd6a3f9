package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "SHOPAPI_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Version  string `koanf:"version"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
		PurchaseTimeout time.Duration `koanf:"purchase_timeout"`
		QueryTimeout    time.Duration `koanf:"query_timeout"`
		CORSOrigins     []string      `koanf:"cors_origins"`
		TrustedProxies  []string      `koanf:"trusted_proxies"`
		PurchaseRPS     float64       `koanf:"purchase_rps"` // per client IP, 0 disables
		PurchaseBurst   int           `koanf:"purchase_burst"`
	} `koanf:"http"`

	Store struct {
		Driver          string        `koanf:"driver"` // mysql | sqlite
		DSN             string        `koanf:"dsn"`
		Migrate         bool          `koanf:"migrate"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
		TxTimeout       time.Duration `koanf:"tx_timeout"`
	} `koanf:"store"`

	Purchase struct {
		MaxAttempts  int           `koanf:"max_attempts"`
		RetryBackoff time.Duration `koanf:"retry_backoff"`
	} `koanf:"purchase"`

	Redis struct {
		Enabled  bool   `koanf:"enabled"`
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL     time.Duration `koanf:"ttl"`
		LockTTL time.Duration `koanf:"lock_ttl"` // in-flight marker; outlives http.purchase_timeout
	} `koanf:"idempotency"`

	Cache struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"cache"`

	Rabbit struct {
		Enabled  bool   `koanf:"enabled"`
		URL      string `koanf:"url"`
		Consume  bool   `koanf:"consume"`
		Prefetch int    `koanf:"prefetch"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Enabled      bool     `koanf:"enabled"`
		Brokers      []string `koanf:"brokers"`
		GroupID      string   `koanf:"group_id"`
		TopicCatalog string   `koanf:"topic_catalog"`
	} `koanf:"kafka"`

	Notify struct {
		Mode        string        `koanf:"mode"` // smtp | pickup
		From        string        `koanf:"from"`
		PickupDir   string        `koanf:"pickup_dir"`
		Workers     int           `koanf:"workers"`
		QueueSize   int           `koanf:"queue_size"`
		SendTimeout time.Duration `koanf:"send_timeout"`
		MaxElapsed  time.Duration `koanf:"max_elapsed"`
		SMTP        struct {
			Host     string `koanf:"host"`
			Port     int    `koanf:"port"`
			Username string `koanf:"username"`
			Password string `koanf:"password"`
			TLS      string `koanf:"tls"`
		} `koanf:"smtp"`
	} `koanf:"notify"`

	Tracing struct {
		Endpoint   string `koanf:"endpoint"`
		URLPath    string `koanf:"url_path"`
		Insecure   bool   `koanf:"insecure"`
		AuthHeader string `koanf:"auth_header"`
	} `koanf:"tracing"`

	Security struct {
		Enabled   bool           `koanf:"enabled"`
		JWTSecret string         `koanf:"jwt_secret"`
		Issuer    string         `koanf:"issuer"`
		Audience  string         `koanf:"audience"`
		TTL       time.Duration  `koanf:"ttl"`
		Clients   []ClientConfig `koanf:"clients"`
	} `koanf:"security"`
}

// ClientConfig is one API client allowed to request tokens.
type ClientConfig struct {
	ID      string   `koanf:"id"`
	Secret  string   `koanf:"secret"`
	Perms   []string `koanf:"perms"`
	Enabled bool     `koanf:"enabled"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix SHOPAPI_, nested with __)
	// e.g. SHOPAPI_STORE__DSN, SHOPAPI_REDIS__PASSWORD
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(key, EnvPrefix)
		key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
		switch key {
		case "kafka.brokers", "http.cors_origins", "http.trusted_proxies":
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "shop-api"
	}
	if c.HTTP.PurchaseTimeout <= 0 {
		c.HTTP.PurchaseTimeout = 15 * time.Second
	}
	if c.HTTP.QueryTimeout <= 0 {
		c.HTTP.QueryTimeout = 2 * time.Second
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Idempotency.LockTTL <= 0 {
		c.Idempotency.LockTTL = 2 * c.HTTP.PurchaseTimeout
	}
	if c.Store.TxTimeout <= 0 {
		c.Store.TxTimeout = 5 * time.Second
	}
	if c.Purchase.MaxAttempts <= 0 {
		c.Purchase.MaxAttempts = 3
	}
	if c.Notify.Mode == "" {
		c.Notify.Mode = "pickup"
	}
	if c.Notify.SendTimeout <= 0 {
		c.Notify.SendTimeout = 10 * time.Second
	}
	if c.Rabbit.Prefetch <= 0 {
		c.Rabbit.Prefetch = 50
	}
	if c.Notify.From == "" {
		c.Notify.From = "noreply@devshop.com"
	}
	if c.Security.TTL <= 0 {
		c.Security.TTL = 15 * time.Minute
	}
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	switch c.Store.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("store.driver must be mysql or sqlite, got %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn required")
	}
	if c.Store.Driver == "mysql" && !strings.Contains(c.Store.DSN, "parseTime=true") {
		return fmt.Errorf("store.dsn must set parseTime=true for mysql")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required when redis.enabled")
	}
	if c.Rabbit.Enabled && c.Rabbit.URL == "" {
		return fmt.Errorf("rabbitmq.url required when rabbitmq.enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.TopicCatalog == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic_catalog required when kafka.enabled")
	}
	switch c.Notify.Mode {
	case "pickup":
		if c.Notify.PickupDir == "" {
			return fmt.Errorf("notify.pickup_dir required for pickup mode")
		}
	case "smtp":
		if c.Notify.SMTP.Host == "" || c.Notify.SMTP.Port == 0 {
			return fmt.Errorf("notify.smtp.host and notify.smtp.port required for smtp mode")
		}
	default:
		return fmt.Errorf("notify.mode must be smtp or pickup, got %q", c.Notify.Mode)
	}
	if c.Security.Enabled && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 bytes when security.enabled")
	}
	return nil
}
