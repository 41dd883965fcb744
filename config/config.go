package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string         `mapstructure:"port"`
	AllowedOrigins []string       `mapstructure:"allowed_origins"`
	ServiceToken   string         `mapstructure:"bounty_service_token"`
	Database       DatabaseConfig `mapstructure:"database"`
	Payout         PayoutConfig   `mapstructure:"payout"`
	Whop           WhopConfig     `mapstructure:"whop"`
	Storage        StorageConfig  `mapstructure:"storage"`
	Jobs           JobsConfig     `mapstructure:"jobs"`
	Submit         SubmitConfig   `mapstructure:"submit"`
	Log            LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mysql or sqlite
	URL    string `mapstructure:"url"`
}

type WhopConfig struct {
	APIURL    string `mapstructure:"api_url"`
	APIKey    string `mapstructure:"api_key"`
	CompanyID string `mapstructure:"company_id"` // organization balance payouts are drawn from
}

type PayoutConfig struct {
	Currency      string        `mapstructure:"currency"`
	DryRun        bool          `mapstructure:"dry_run"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	AccountID       string `mapstructure:"cloudflare_account_id"`
	AccessKeyID     string `mapstructure:"r2_access_key_id"`
	AccessKeySecret string `mapstructure:"r2_access_key_secret"`
	Bucket          string `mapstructure:"r2_bucket_name"`
	CDNBaseURL      string `mapstructure:"cdn_base_url"`
	UploadDir       string `mapstructure:"upload_dir"`
}

// R2Enabled reports whether proofs go to Cloudflare R2 instead of local disk.
func (s StorageConfig) R2Enabled() bool {
	return s.AccountID != "" && s.Bucket != "" && s.AccessKeyID != ""
}

type JobsConfig struct {
	ExpirySweepInterval time.Duration `mapstructure:"expiry_sweep_interval"`
	ReconcileInterval   time.Duration `mapstructure:"reconcile_interval"`
}

type SubmitConfig struct {
	RatePerMinute float64 `mapstructure:"rate_per_minute"`
	Burst         int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// envKeys maps every config key to the environment variable that sets it.
var envKeys = map[string]string{
	"port":                          "PORT",
	"allowed_origins":               "ALLOWED_ORIGINS",
	"bounty_service_token":          "BOUNTY_SERVICE_TOKEN",
	"database.driver":               "DATABASE_DRIVER",
	"database.url":                  "DATABASE_URL",
	"whop.api_url":                  "WHOP_API_URL",
	"whop.api_key":                  "WHOP_API_KEY",
	"whop.company_id":               "WHOP_COMPANY_ID",
	"payout.currency":               "PAYOUT_CURRENCY",
	"payout.dry_run":                "PAYOUT_DRY_RUN",
	"payout.rate_per_second":        "PAYOUT_RATE_PER_SECOND",
	"payout.burst":                  "PAYOUT_BURST",
	"payout.timeout":                "PAYOUT_TIMEOUT",
	"storage.cloudflare_account_id": "CLOUDFLARE_ACCOUNT_ID",
	"storage.r2_access_key_id":      "R2_ACCESS_KEY_ID",
	"storage.r2_access_key_secret":  "R2_ACCESS_KEY_SECRET",
	"storage.r2_bucket_name":        "R2_BUCKET_NAME",
	"storage.cdn_base_url":          "CDN_BASE_URL",
	"storage.upload_dir":            "UPLOAD_DIR",
	"jobs.expiry_sweep_interval":    "EXPIRY_SWEEP_INTERVAL",
	"jobs.reconcile_interval":       "RECONCILE_INTERVAL",
	"submit.rate_per_minute":        "SUBMIT_RATE_PER_MINUTE",
	"submit.burst":                  "SUBMIT_BURST",
	"log.level":                     "LOG_LEVEL",
	"log.format":                    "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "5200")
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("bounty_service_token", "")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("whop.api_url", "https://api.whop.com/api/v1")
	v.SetDefault("whop.api_key", "")
	v.SetDefault("whop.company_id", "")
	v.SetDefault("payout.currency", "usd")
	v.SetDefault("payout.dry_run", false)
	v.SetDefault("payout.rate_per_second", 5.0)
	v.SetDefault("payout.burst", 5)
	v.SetDefault("payout.timeout", 15*time.Second)
	v.SetDefault("storage.cloudflare_account_id", "")
	v.SetDefault("storage.r2_access_key_id", "")
	v.SetDefault("storage.r2_access_key_secret", "")
	v.SetDefault("storage.r2_bucket_name", "")
	v.SetDefault("storage.cdn_base_url", "")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("jobs.expiry_sweep_interval", time.Minute)
	v.SetDefault("jobs.reconcile_interval", 15*time.Minute)
	v.SetDefault("submit.rate_per_minute", 6.0)
	v.SetDefault("submit.burst", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads .env (if any) and the process environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AllowedOrigins = splitOrigins(cfg.AllowedOrigins)
	cfg.Payout.Currency = strings.ToLower(cfg.Payout.Currency)
	return &cfg, nil
}

// Validate reports the first missing setting the service cannot start without.
func (c *Config) Validate() error {
	if c.ServiceToken == "" {
		return fmt.Errorf("BOUNTY_SERVICE_TOKEN is not set")
	}
	if c.Database.URL == "" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if !c.Payout.DryRun && c.Whop.APIKey == "" {
		return fmt.Errorf("WHOP_API_KEY is required unless PAYOUT_DRY_RUN=true")
	}
	return nil
}

// splitOrigins accepts both a comma separated string and a decoded list.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, origin := range strings.Split(item, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}
