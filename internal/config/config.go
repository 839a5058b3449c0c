package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	AuthSecret  string   `mapstructure:"AUTH_SECRET"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Matching parameters.
	ConfidenceThreshold float64 `mapstructure:"CONFIDENCE_THRESHOLD"`
	FuzzyDateThreshold  float64 `mapstructure:"FUZZY_DATE_THRESHOLD"`
	PartialMatching     bool    `mapstructure:"PARTIAL_MATCHING"`

	// PMS merge endpoint.
	PMSAPIHost  string `mapstructure:"PMS_API_HOST"`
	PMSAPIPort  string `mapstructure:"PMS_API_PORT"`
	PMSAPIToken string `mapstructure:"PMS_API_TOKEN"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("CONFIDENCE_THRESHOLD", 0.70)
	v.SetDefault("FUZZY_DATE_THRESHOLD", 0.80)
	v.SetDefault("PARTIAL_MATCHING", true)
	v.SetDefault("PMS_API_PORT", "44389")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("CONFIDENCE_THRESHOLD")
	v.BindEnv("FUZZY_DATE_THRESHOLD")
	v.BindEnv("PARTIAL_MATCHING")
	v.BindEnv("PMS_API_HOST")
	v.BindEnv("PMS_API_PORT")
	v.BindEnv("PMS_API_TOKEN")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Requests are accepted without authentication.")
		log.Println("WARNING: Set ENV=production and AUTH_SECRET for production use.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Thresholds must stay
// in [0,1], and production mode refuses to start without an auth secret.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.FuzzyDateThreshold < 0 || c.FuzzyDateThreshold > 1 {
		return fmt.Errorf("FUZZY_DATE_THRESHOLD must be in [0,1], got %v", c.FuzzyDateThreshold)
	}
	if c.IsProduction() && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required in production")
	}
	return nil
}
