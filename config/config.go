// Package config loads and validates the gateway configuration from a
// config file and DOKQ_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment names. Production tightens CSRF cookies, narrows CORS to a
// single configured origin, and suppresses error detail in responses.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// CSRF token store backends.
const (
	CSRFStoreMemory = "memory"
	CSRFStoreRedis  = "redis"
)

// Config holds all configuration for the DokQ gateway.
type Config struct {
	// Environment is "production" or "development".
	Environment string `mapstructure:"environment"`

	API struct {
		Port     int    `mapstructure:"port"`
		TLS      bool   `mapstructure:"tls"`
		CertFile string `mapstructure:"cert_file"`
		KeyFile  string `mapstructure:"key_file"`
		// CORSOrigin is the single allowed browser origin in production.
		CORSOrigin string `mapstructure:"cors_origin"`
		// TrustProxy controls whether X-Forwarded-For is honored when
		// resolving the client address.
		TrustProxy bool `mapstructure:"trust_proxy"`
		RateLimit  struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			Burst             int `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Auth struct {
		// FirebaseProjectID enables the managed identity-platform verifier
		// when non-empty. ID tokens are verified against the secure-token
		// issuer for this project.
		FirebaseProjectID string `mapstructure:"firebase_project_id"`
		// LocalHelper enables the local signed-token verifier when the
		// managed verifier is not configured.
		LocalHelper bool   `mapstructure:"local_helper"`
		JWTSecret   string `mapstructure:"jwt_secret"`
		JWTExpiry   time.Duration `mapstructure:"jwt_expiry"`
		Issuer      string `mapstructure:"issuer"`
		Audience    string `mapstructure:"audience"`
		// Username and HashedPassword back the development login endpoint
		// that mints local tokens when Firebase is not configured.
		Username       string `mapstructure:"username"`
		HashedPassword string `mapstructure:"hashed_password"`
		CacheSize      int    `mapstructure:"cache_size"`
		CacheTTL       time.Duration `mapstructure:"cache_ttl"`
		VerifyTimeout  time.Duration `mapstructure:"verify_timeout"`
	} `mapstructure:"auth"`

	CSRF struct {
		// Store selects the token store backend: "memory" or "redis".
		// Redis is for deployments where the process is not long-lived and
		// an in-process map would silently lose tokens.
		Store string `mapstructure:"store"`
		Redis struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
			PoolSize int    `mapstructure:"pool_size"`
		} `mapstructure:"redis"`
	} `mapstructure:"csrf"`

	Secrets struct {
		// Provider selects where the JWT signing secret comes from:
		// "env" (default, config/env var), "vault", or "aws".
		Provider string `mapstructure:"provider"`
		Vault    struct {
			Address string `mapstructure:"address"`
			Token   string `mapstructure:"token"`
			Path    string `mapstructure:"path"`
		} `mapstructure:"vault"`
		AWS struct {
			Region    string `mapstructure:"region"`
			SecretID  string `mapstructure:"secret_id"`
			AccessKey string `mapstructure:"access_key"`
			SecretKey string `mapstructure:"secret_key"`
		} `mapstructure:"aws"`
	} `mapstructure:"secrets"`
}

// developmentOrigins is the fixed set of local origins allowed outside
// production.
var developmentOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"http://localhost:3001",
	"http://localhost:8080",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:3000",
}

// LoadConfig reads configuration from ./config.yaml (optional) and
// DOKQ_* environment variables, applying defaults for everything else.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/dokq")

	viper.SetEnvPrefix("DOKQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment", EnvDevelopment)

	viper.SetDefault("api.port", 3001)
	viper.SetDefault("api.tls", false)
	viper.SetDefault("api.cors_origin", "http://localhost:5173")
	viper.SetDefault("api.trust_proxy", false)
	viper.SetDefault("api.rate_limit.requests_per_second", 50)
	viper.SetDefault("api.rate_limit.burst", 100)

	viper.SetDefault("auth.firebase_project_id", "")
	viper.SetDefault("auth.local_helper", true)
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.jwt_expiry", 24*time.Hour)
	viper.SetDefault("auth.issuer", "dokq-healthcare")
	viper.SetDefault("auth.audience", "dokq-users")
	viper.SetDefault("auth.username", "")
	viper.SetDefault("auth.hashed_password", "")
	viper.SetDefault("auth.cache_size", 4096)
	viper.SetDefault("auth.cache_ttl", 5*time.Minute)
	viper.SetDefault("auth.verify_timeout", 5*time.Second)

	viper.SetDefault("csrf.store", "memory")
	viper.SetDefault("csrf.redis.addr", "localhost:6379")
	viper.SetDefault("csrf.redis.password", "")
	viper.SetDefault("csrf.redis.db", 0)
	viper.SetDefault("csrf.redis.pool_size", 10)

	viper.SetDefault("secrets.provider", "env")
	viper.SetDefault("secrets.vault.address", "")
	viper.SetDefault("secrets.vault.token", "")
	viper.SetDefault("secrets.vault.path", "")
	viper.SetDefault("secrets.aws.region", "us-east-1")
	viper.SetDefault("secrets.aws.secret_id", "")
}

// Validate checks cross-field consistency. Secret strength is validated
// separately once the secret has been resolved from its provider.
func (c *Config) Validate() error {
	if c.Environment != EnvProduction && c.Environment != EnvDevelopment {
		return fmt.Errorf("environment must be %q or %q, got %q",
			EnvProduction, EnvDevelopment, c.Environment)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be in 1-65535, got %d", c.API.Port)
	}
	if c.API.TLS && (c.API.CertFile == "" || c.API.KeyFile == "") {
		return fmt.Errorf("api.tls requires api.cert_file and api.key_file")
	}
	switch c.CSRF.Store {
	case CSRFStoreMemory, CSRFStoreRedis:
	default:
		return fmt.Errorf("csrf.store must be \"memory\" or \"redis\", got %q", c.CSRF.Store)
	}
	if c.CSRF.Store == CSRFStoreRedis && c.CSRF.Redis.Addr == "" {
		return fmt.Errorf("csrf.store=redis requires csrf.redis.addr")
	}
	if c.Environment == EnvProduction && c.API.CORSOrigin == "" {
		return fmt.Errorf("api.cors_origin is required in production")
	}
	return nil
}

// IsProduction reports whether the gateway runs with production strictness.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// AllowedOrigins returns the browser origins accepted by the CORS policy:
// exactly one configured origin in production, the fixed local set in
// development.
func (c *Config) AllowedOrigins() []string {
	if c.IsProduction() {
		return []string{c.API.CORSOrigin}
	}
	return developmentOrigins
}
