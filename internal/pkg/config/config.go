package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the process-wide configuration, constructed once at startup and
// passed explicitly to every component. Nothing reads ambient environment
// state after Load returns.
type Config struct {
	AppEnv string `validate:"oneof=dev prod test"`

	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Hotmart  HotmartConfig
	Doppus   DoppusConfig
	Webhook  WebhookConfig
	Sweep    SweepConfig
	Admin    AdminConfig
	Policy   PolicyConfig
}

type HTTPConfig struct {
	Host string `validate:"required"`
	Port string `validate:"required,numeric"`
}

type DatabaseConfig struct {
	User     string `validate:"required"`
	Password string
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Name     string `validate:"required"`
}

type RedisConfig struct {
	Host string `validate:"required"`
	Port string `validate:"required,numeric"`
}

// HotmartConfig carries webhook verification and product API credentials.
// Hottok is the shared token Hotmart sends in the X-HOTMART-HOTTOK header.
type HotmartConfig struct {
	Hottok       string `validate:"required"`
	ClientID     string
	ClientSecret string
	TokenURL     string `validate:"required,url"`
	APIBaseURL   string `validate:"required,url"`
}

// DoppusConfig carries the webhook HMAC secret and product API credentials.
type DoppusConfig struct {
	WebhookSecret string `validate:"required"`
	ClientID      string
	ClientSecret  string
	TokenURL      string `validate:"required,url"`
	APIBaseURL    string `validate:"required,url"`
}

// WebhookConfig bounds gateway processing. Timeout is the hard wall-clock
// budget per delivery; past it the gateway answers retryable instead of
// letting the provider time out.
type WebhookConfig struct {
	Timeout time.Duration `validate:"required,min=1s,max=30s"`
}

type SweepConfig struct {
	Interval  time.Duration `validate:"required,min=1m"`
	LockTTL   time.Duration `validate:"required,min=1m"`
	BatchSize int           `validate:"required,min=1"`
}

type AdminConfig struct {
	APIKey string `validate:"required,min=16"`
}

// Policy decisions that the source left ambiguous and must be explicit here.
const (
	UserPolicyAutoProvision = "auto_provision"
	UserPolicyQuarantine    = "quarantine"

	UnknownProductQuarantine     = "quarantine"
	UnknownProductDefaultMonthly = "default_monthly"
)

type PolicyConfig struct {
	UserPolicy           string `validate:"oneof=auto_provision quarantine"`
	UnknownProductPolicy string `validate:"oneof=quarantine default_monthly"`
	DefaultDurationDays  int    `validate:"required,min=1"`
}

// Load reads an optional .env file (first match wins), overlays OS
// environment variables and returns the validated configuration.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", "../../.env"}
	}

	fileEnv := map[string]string{}
	for _, f := range envFiles {
		if m, err := godotenv.Read(f); err == nil {
			fileEnv = m
			break
		}
	}

	get := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if v, ok := fileEnv[key]; ok && v != "" {
			return v
		}
		return def
	}

	webhookTimeout, err := time.ParseDuration(get("WEBHOOK_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("WEBHOOK_TIMEOUT: %w", err)
	}
	sweepInterval, err := time.ParseDuration(get("SWEEP_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("SWEEP_INTERVAL: %w", err)
	}
	sweepLockTTL, err := time.ParseDuration(get("SWEEP_LOCK_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("SWEEP_LOCK_TTL: %w", err)
	}
	sweepBatch, err := strconv.Atoi(get("SWEEP_BATCH_SIZE", "500"))
	if err != nil {
		return nil, fmt.Errorf("SWEEP_BATCH_SIZE: %w", err)
	}
	defaultDuration, err := strconv.Atoi(get("SUBSCRIPTION_DEFAULT_DURATION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("SUBSCRIPTION_DEFAULT_DURATION_DAYS: %w", err)
	}

	cfg := &Config{
		AppEnv: get("APP_ENV", "prod"),
		HTTP: HTTPConfig{
			Host: get("APP_HOST", "localhost"),
			Port: get("APP_PORT", "4000"),
		},
		Database: DatabaseConfig{
			User:     get("DB_USER", ""),
			Password: get("DB_PASSWORD", ""),
			Host:     get("DB_HOST", "127.0.0.1"),
			Port:     get("DB_PORT", "3306"),
			Name:     get("DB_NAME", ""),
		},
		Redis: RedisConfig{
			Host: get("CACHE_HOST", "localhost"),
			Port: get("CACHE_PORT", "6379"),
		},
		Hotmart: HotmartConfig{
			Hottok:       get("HOTMART_HOTTOK", ""),
			ClientID:     get("HOTMART_CLIENT_ID", ""),
			ClientSecret: get("HOTMART_CLIENT_SECRET", ""),
			TokenURL:     get("HOTMART_TOKEN_URL", "https://api-sec-vlc.hotmart.com/security/oauth/token"),
			APIBaseURL:   get("HOTMART_API_BASE_URL", "https://developers.hotmart.com/payments/api/v1"),
		},
		Doppus: DoppusConfig{
			WebhookSecret: get("DOPPUS_WEBHOOK_SECRET", ""),
			ClientID:      get("DOPPUS_CLIENT_ID", ""),
			ClientSecret:  get("DOPPUS_CLIENT_SECRET", ""),
			TokenURL:      get("DOPPUS_TOKEN_URL", "https://api.doppus.com/oauth/token"),
			APIBaseURL:    get("DOPPUS_API_BASE_URL", "https://api.doppus.com/v1"),
		},
		Webhook: WebhookConfig{
			Timeout: webhookTimeout,
		},
		Sweep: SweepConfig{
			Interval:  sweepInterval,
			LockTTL:   sweepLockTTL,
			BatchSize: sweepBatch,
		},
		Admin: AdminConfig{
			APIKey: get("ADMIN_API_KEY", ""),
		},
		Policy: PolicyConfig{
			UserPolicy:           get("SUBSCRIPTION_USER_POLICY", UserPolicyAutoProvision),
			UnknownProductPolicy: get("SUBSCRIPTION_UNKNOWN_PRODUCT_POLICY", UnknownProductQuarantine),
			DefaultDurationDays:  defaultDuration,
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}
