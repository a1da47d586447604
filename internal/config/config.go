package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	EmailProviderBrevo = "brevo"
	EmailProviderSES   = "ses"
)

type Config struct {
	DatabaseDSN    string `env:"DATABASE_DSN,required=true"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS,default=20"`
	DBMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS,default=5"`
	RedisURL       string `env:"REDIS_URL"`
	RabbitMQURL    string `env:"RABBITMQ_URL"`
	APIPort        int    `env:"API_PORT,default=8080"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
	JWTSecret      string `env:"JWT_SECRET,required=true"`

	SendConcurrency    int           `env:"SEND_CONCURRENCY,default=5"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT,default=20s"`
	RateLimitPerSec    int           `env:"RATE_LIMIT_PER_SEC,default=0"`
	RetrySweepInterval time.Duration `env:"RETRY_SWEEP_INTERVAL,default=0s"`
	RetrySweepLimit    int           `env:"RETRY_SWEEP_LIMIT,default=200"`
	PublicBaseURL      string        `env:"PUBLIC_BASE_URL"`
	Timezone           string        `env:"TIMEZONE,default=Asia/Kolkata"`
	DefaultCountryCode string        `env:"DEFAULT_COUNTRY_CODE,default=91"`

	EmailProvider string `env:"EMAIL_PROVIDER,default=brevo"`
	EmailAPIURL   string `env:"EMAIL_API_URL,default=https://api.brevo.com/v3/smtp/email"`
	EmailAPIKey   string `env:"EMAIL_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM"`
	EmailFromName string `env:"EMAIL_FROM_NAME"`

	AWSRegion          string `env:"AWS_REGION"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	MessagingBaseURL              string `env:"MESSAGING_BASE_URL"`
	MessagingAPIToken             string `env:"MESSAGING_API_TOKEN"`
	MessagingTemplateRegistration string `env:"MESSAGING_TEMPLATE_REGISTRATION"`
	MessagingTemplateEntry        string `env:"MESSAGING_TEMPLATE_ENTRY"`
	MessagingBroadcastName        string `env:"MESSAGING_BROADCAST_NAME,default=utility"`
	MessagingChannelNumber        string `env:"MESSAGING_CHANNEL_NUMBER"`
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
// Provider credentials may be empty; senders report them per call.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must not be blank")
	}
	if c.SendConcurrency < 1 {
		return fmt.Errorf("SEND_CONCURRENCY must be >= 1, got %d", c.SendConcurrency)
	}
	if c.DBMaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1, got %d", c.DBMaxOpenConns)
	}
	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS, got %d", c.DBMaxIdleConns)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout)
	}
	if c.RateLimitPerSec < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SEC must be >= 0, got %d", c.RateLimitPerSec)
	}
	switch c.EmailProvider {
	case EmailProviderBrevo, EmailProviderSES:
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be %q or %q, got %q", EmailProviderBrevo, EmailProviderSES, c.EmailProvider)
	}
	if c.RetrySweepInterval < 0 {
		return fmt.Errorf("RETRY_SWEEP_INTERVAL must be >= 0, got %s", c.RetrySweepInterval)
	}
	return nil
}

// Location resolves TIMEZONE. An empty value means UTC.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
