package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	ListenAddr string
	BaseURL    string

	DB struct {
		DSN string
	}

	API struct {
		BaseURL     string
		Timeout     time.Duration
		TokenSecret string
	}

	Cache struct {
		MaxAge       time.Duration
		FetchTimeout time.Duration
	}

	OAuth struct {
		ClientID     string
		ClientSecret string
		IssuerURL    string
		RedirectPath string
	}

	Session struct {
		Secret string
		TTL    time.Duration
	}

	Stripe struct {
		SecretKey      string
		PublishableKey string
	}

	Mail struct {
		ResendAPIKey string
		From         string
	}

	PrometheusEnabled bool
	TrustedProxies    []string
}

// FederatedLoginEnabled reports whether an OpenID Connect provider is configured.
func (c *Config) FederatedLoginEnabled() bool {
	return c.OAuth.ClientID != "" && c.OAuth.ClientSecret != "" && c.OAuth.IssuerURL != ""
}

func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ListenAddr = getenvDefault("APP_LISTEN_ADDR", ":8080")
	cfg.BaseURL = getenvDefault("APP_BASE_URL", "http://localhost:8080")
	cfg.DB.DSN = os.Getenv("APP_DB_DSN")

	if cfg.DB.DSN == "" {
		host := os.Getenv("APP_DB_HOST")
		name := os.Getenv("APP_DB_NAME")
		user := os.Getenv("APP_DB_USER")
		password := os.Getenv("APP_DB_PASSWORD")
		port := getenvDefault("APP_DB_PORT", "5432")
		sslmode := getenvDefault("APP_DB_SSLMODE", "disable")

		if host != "" && name != "" && user != "" && password != "" {
			cfg.DB.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslmode)
		}
	}

	cfg.API.BaseURL = strings.TrimRight(os.Getenv("APP_API_BASE_URL"), "/")
	cfg.API.TokenSecret = os.Getenv("APP_API_TOKEN_SECRET")

	var err error
	if cfg.API.Timeout, err = getenvDuration("APP_API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Cache.MaxAge, err = getenvDuration("APP_CACHE_MAX_AGE", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Cache.FetchTimeout, err = getenvDuration("APP_CACHE_FETCH_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Session.TTL, err = getenvDuration("APP_SESSION_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.OAuth.ClientID = os.Getenv("APP_OAUTH_CLIENT_ID")
	cfg.OAuth.ClientSecret = os.Getenv("APP_OAUTH_CLIENT_SECRET")
	cfg.OAuth.IssuerURL = os.Getenv("APP_OAUTH_ISSUER_URL")
	cfg.OAuth.RedirectPath = getenvDefault("APP_OAUTH_REDIRECT_PATH", "/auth/federated/callback")
	cfg.Session.Secret = os.Getenv("APP_SESSION_SECRET")
	cfg.Stripe.SecretKey = os.Getenv("APP_STRIPE_SECRET_KEY")
	cfg.Stripe.PublishableKey = os.Getenv("APP_STRIPE_PUBLISHABLE_KEY")
	cfg.Mail.ResendAPIKey = os.Getenv("APP_RESEND_API_KEY")
	cfg.Mail.From = getenvDefault("APP_MAIL_FROM", "Fitverse <bookings@fitverse.local>")
	cfg.PrometheusEnabled = getenvBool("APP_PROMETHEUS_ENDPOINT_ENABLED", false)
	cfg.TrustedProxies = getenvList("APP_TRUSTED_PROXIES")

	if cfg.DB.DSN == "" {
		return nil, errors.New("APP_DB_DSN is required (or set APP_DB_HOST, APP_DB_NAME, APP_DB_USER, and APP_DB_PASSWORD)")
	}
	if cfg.API.BaseURL == "" {
		return nil, errors.New("APP_API_BASE_URL is required")
	}
	if cfg.Session.Secret == "" {
		return nil, errors.New("APP_SESSION_SECRET is required")
	}
	if len(cfg.Session.Secret) < 32 {
		return nil, fmt.Errorf("APP_SESSION_SECRET must be at least 32 characters long (got %d)", len(cfg.Session.Secret))
	}
	if cfg.API.TokenSecret == "" {
		return nil, errors.New("APP_API_TOKEN_SECRET is required")
	}
	if cfg.Stripe.SecretKey == "" {
		return nil, errors.New("APP_STRIPE_SECRET_KEY is required")
	}
	if (cfg.OAuth.ClientID == "") != (cfg.OAuth.ClientSecret == "") {
		return nil, errors.New("APP_OAUTH_CLIENT_ID and APP_OAUTH_CLIENT_SECRET must be set together")
	}
	if cfg.OAuth.ClientID != "" && cfg.OAuth.IssuerURL == "" {
		return nil, errors.New("APP_OAUTH_ISSUER_URL is required when federated login is configured")
	}

	if len(cfg.TrustedProxies) == 0 {
		slog.Warn("config_warning", "detail", "no APP_TRUSTED_PROXIES configured; all proxies are trusted")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func getenvList(key string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return nil
}
