package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultAppName           = "StellarPass"
	defaultAppEnv            = "development"
	defaultPort              = "8080"
	defaultLogLevel          = "info"
	defaultLogFormat         = "json"
	defaultShutdownDelay     = 10 * time.Second
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultStoreBackend      = StoreFile
	defaultNetworkPassphrase = "Test SDF Network ; September 2015"
	defaultSorobanRPCURL     = "https://soroban-testnet.stellar.org:443"
	defaultBaseFee           = 100
	defaultNativeTokenID     = "CDLZFC3SYJYDZT7K67VZ75HPJVIEUVNIXF47ZG2FB2RMQQVU2HHGCYSC"
	defaultTipLinkHost       = "stellarpass.io"
	defaultRPID              = "localhost"
	defaultRPDisplayName     = "StellarPass"
	defaultLoginRateLimit    = 5
	configFileEnvVar         = "STELLARPASS_CONFIG"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config captures application runtime configuration loaded from the environment.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	StoreBackend string
	StoreDir     string
	DatabaseURL  string
	RedisURL     string

	ContractID        string
	NetworkPassphrase string
	SorobanRPCURL     string
	NativeTokenID     string
	BaseFee           int64

	TipLinkHost   string
	RPID          string
	RPDisplayName string
	RPOrigins     []string

	KeyPassphrase  string
	SessionSecret  string
	LoginRateLimit int
}

// Load reads configuration values from the environment (and the optional file named by
// STELLARPASS_CONFIG) and populates a Config instance.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("LOG_FORMAT", defaultLogFormat)
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownDelay)
	v.SetDefault("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	v.SetDefault("STORE_BACKEND", defaultStoreBackend)
	v.SetDefault("NETWORK_PASSPHRASE", defaultNetworkPassphrase)
	v.SetDefault("SOROBAN_RPC_URL", defaultSorobanRPCURL)
	v.SetDefault("BASE_FEE", defaultBaseFee)
	v.SetDefault("NATIVE_TOKEN_ID", defaultNativeTokenID)
	v.SetDefault("TIP_LINK_HOST", defaultTipLinkHost)
	v.SetDefault("RP_ID", defaultRPID)
	v.SetDefault("RP_DISPLAY_NAME", defaultRPDisplayName)
	v.SetDefault("LOGIN_RATE_LIMIT", defaultLoginRateLimit)

	if path := os.Getenv(configFileEnvVar); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg := Config{
		AppName:           v.GetString("APP_NAME"),
		AppEnv:            v.GetString("APP_ENV"),
		Port:              v.GetString("PORT"),
		LogLevel:          strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:         strings.ToLower(v.GetString("LOG_FORMAT")),
		StoreBackend:      strings.ToLower(v.GetString("STORE_BACKEND")),
		StoreDir:          v.GetString("STORE_DIR"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		RedisURL:          v.GetString("REDIS_URL"),
		ContractID:        v.GetString("CONTRACT_ID"),
		NetworkPassphrase: v.GetString("NETWORK_PASSPHRASE"),
		SorobanRPCURL:     v.GetString("SOROBAN_RPC_URL"),
		NativeTokenID:     v.GetString("NATIVE_TOKEN_ID"),
		BaseFee:           v.GetInt64("BASE_FEE"),
		TipLinkHost:       strings.TrimSuffix(v.GetString("TIP_LINK_HOST"), "/"),
		RPID:              v.GetString("RP_ID"),
		RPDisplayName:     v.GetString("RP_DISPLAY_NAME"),
		RPOrigins:         splitList(v.GetString("RP_ORIGINS")),
		KeyPassphrase:     v.GetString("KEY_PASSPHRASE"),
		SessionSecret:     v.GetString("SESSION_SECRET"),
		LoginRateLimit:    v.GetInt("LOGIN_RATE_LIMIT"),
	}

	var err error
	if cfg.ShutdownPeriod, err = duration(v, "SHUTDOWN_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = duration(v, "IDEMPOTENCY_TTL"); err != nil {
		return Config{}, err
	}

	if cfg.StoreDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.StoreDir = filepath.Join(home, ".stellarpass")
	}
	if len(cfg.RPOrigins) == 0 {
		cfg.RPOrigins = []string{"https://" + cfg.RPID}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreFile:
		if c.StoreDir == "" {
			return fmt.Errorf("STORE_DIR must be set for the file store")
		}
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set for the redis store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.BaseFee <= 0 {
		return fmt.Errorf("BASE_FEE must be positive")
	}
	if c.ContractID != "" && c.NetworkPassphrase == "" {
		return fmt.Errorf("NETWORK_PASSPHRASE must be set when CONTRACT_ID is configured")
	}
	return nil
}

// ContractEnabled reports whether the contract adapter can be wired.
func (c Config) ContractEnabled() bool {
	return c.ContractID != "" && c.SorobanRPCURL != ""
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development-like environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// duration accepts Go durations ("30s") as well as bare seconds ("30").
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.Get(key)
	if d, ok := raw.(time.Duration); ok {
		return d, nil
	}
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return 0, nil
	}
	if strings.Trim(s, "0123456789") == "" {
		s += "s"
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
