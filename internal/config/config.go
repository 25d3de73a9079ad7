// Package config builds the process configuration once at startup.
// Handlers never read environment variables themselves; everything they
// need arrives through this struct.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port      string `env:"PORT" env-default:"8080"`
	BaseURL   string `env:"BASE_URL" env-default:"https://languaro.com"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`

	Stripe    Stripe
	Supabase  Supabase
	Dash      Dash
	Telemetry Telemetry

	AdminSecret string `env:"ADMIN_SECRET"`
}

type Stripe struct {
	SecretKey string `env:"STRIPE_SECRET_KEY"`
	// WebhookSecret enables signature verification on the purchase
	// webhook when set. Unset means events are accepted unverified.
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

type Supabase struct {
	URL            string `env:"SUPABASE_URL"`
	ServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`

	// Licensing overrides for the checkout-confirmation path, which may
	// point at a separate project from the marketing-site store.
	LicensingURL            string `env:"SUPABASE_LICENSING_URL"`
	LicensingServiceRoleKey string `env:"SUPABASE_LICENSING_SERVICE_ROLE_KEY"`
	LicensingKey            string `env:"SUPABASE_LICENSING_KEY"`

	UsersTable         string `env:"SUPABASE_USERS_TABLE" env-default:"users"`
	SubscriptionsTable string `env:"SUPABASE_SUBSCRIPTIONS_TABLE" env-default:"email_subscriptions"`
	WaitlistTable      string `env:"SUPABASE_WAITLIST_TABLE" env-default:"waitlist_emails"`
}

type Dash struct {
	User string `env:"HQ_USER" env-default:"admin"`
	Pass string `env:"HQ_PASS" env-default:"languaro2025"`
}

type Telemetry struct {
	BackendURL string `env:"TELEMETRY_BACKEND_URL"`
	ReadToken  string `env:"TELEMETRY_READ_TOKEN"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return &cfg, nil
}

// LicensingStore resolves the store credentials for the confirmation
// path: licensing-specific values first, then the shared ones.
func (s Supabase) LicensingStore() (url, key string) {
	url = s.LicensingURL
	if url == "" {
		url = s.URL
	}
	key = s.LicensingServiceRoleKey
	if key == "" {
		key = s.LicensingKey
	}
	if key == "" {
		key = s.ServiceRoleKey
	}
	return url, key
}

// OnDefaultCredentials reports whether the dashboard is still protected
// by the hardcoded fallback credentials, a fail-open configuration that
// main logs loudly about.
func (d Dash) OnDefaultCredentials() bool {
	return d.User == "admin" && d.Pass == "languaro2025"
}
