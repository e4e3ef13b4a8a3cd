package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	httpapi "github.com/aussiebroadwan/collab/internal/api/http"
	"github.com/aussiebroadwan/collab/pkg/jwtx"
)

type Config struct {
	Port                 int           `env:"PORT"                  envDefault:"8080"`
	Env                  string        `env:"ENV"                   envDefault:"dev"`  // dev, staging, prod
	LogLevel             string        `env:"LOG_LEVEL"             envDefault:"info"` // debug, info, warn, error
	LogFormat            string        `env:"LOG_FORMAT"            envDefault:"json"` // json, text
	DatabaseFile         string        `env:"DATABASE_FILE"         envDefault:"collab.db"`
	PepperFile           string        `env:"PEPPER_FILE"           envDefault:"pepper"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	// Tokens
	Issuer          string        `env:"TOKEN_ISSUER"         envDefault:"collab"`
	SigningSecret   string        `env:"TOKEN_SIGNING_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"     envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL"    envDefault:"168h"`
	TokenDelivery   string        `env:"TOKEN_DELIVERY"       envDefault:"both"` // body, cookie, both

	// CookieSecure left unset means Secure everywhere but dev; see SecureCookies.
	CookieSecure *bool  `env:"COOKIE_SECURE"`
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// External sign-in. Disabled unless the client id and secret are set.
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string        `env:"GOOGLE_REDIRECT_URI"`
	GoogleAuthURL      string        `env:"GOOGLE_AUTH_URL"`
	GoogleTokenURL     string        `env:"GOOGLE_TOKEN_URL"`
	GoogleJWKSURL      string        `env:"GOOGLE_JWKS_URL"`
	GoogleIssuer       string        `env:"GOOGLE_ISSUER"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT"     envDefault:"10s"`
	LandingURL         string        `env:"LANDING_URL"          envDefault:"/"`
}

var (
	ErrMissingSecret       = errors.New("config: TOKEN_SIGNING_SECRET is required")
	ErrMissingRedirectURI  = errors.New("config: GOOGLE_REDIRECT_URI is required when external sign-in is enabled")
	ErrNonPositiveDuration = errors.New("config: token TTLs must be positive")
)

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ProviderEnabled reports whether external sign-in is configured.
func (c Config) ProviderEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c Config) Dev() bool { return c.Env == "dev" }

// SecureCookies resolves COOKIE_SECURE. Left unset, cookies are Secure
// everywhere except dev.
func (c Config) SecureCookies() bool {
	if c.CookieSecure != nil {
		return *c.CookieSecure
	}
	return !c.Dev()
}

func (c Config) Validate() error {
	switch {
	case c.SigningSecret == "":
		return ErrMissingSecret
	case len(c.SigningSecret) < jwtx.MinSecretSize:
		return jwtx.ErrWeakSecret
	case c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0:
		return ErrNonPositiveDuration
	case c.ProviderEnabled() && c.GoogleRedirectURI == "":
		return ErrMissingRedirectURI
	}

	if _, err := httpapi.ParseDelivery(c.TokenDelivery); err != nil {
		return fmt.Errorf("config: TOKEN_DELIVERY: %w", err)
	}
	return nil
}
