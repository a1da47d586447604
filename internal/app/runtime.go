// Package app assembles the service graph shared by the API server and the
// operator CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/workshop-checkin/internal/auth"
	"github.com/kursadbilgin/workshop-checkin/internal/config"
	"github.com/kursadbilgin/workshop-checkin/internal/infra/postgresql"
	"github.com/kursadbilgin/workshop-checkin/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/workshop-checkin/internal/infra/redis"
	"github.com/kursadbilgin/workshop-checkin/internal/observability"
	"github.com/kursadbilgin/workshop-checkin/internal/provider"
	"github.com/kursadbilgin/workshop-checkin/internal/queue"
	"github.com/kursadbilgin/workshop-checkin/internal/ratelimit"
	"github.com/kursadbilgin/workshop-checkin/internal/repository"
	"github.com/kursadbilgin/workshop-checkin/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Runtime holds every long-lived dependency. Close releases them in reverse
// order of construction.
type Runtime struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	DB          *gorm.DB
	SQLDB       *sql.DB
	Redis       *redis.Client
	Publisher   queue.Publisher
	Gate        *ratelimit.Gate
	AuditSchema repository.AuditSchema

	Registration *service.RegistrationService
	CheckIn      *service.CheckInService
	Sweeper      *service.RetrySweeper
	Delivery     *service.DeliveryQueryService
	Verifier     *auth.JWT

	audit   *repository.GormAuditRepo
	closers []func() error
}

// Build connects to Postgres, applies migrations and wires the services.
// Redis and RabbitMQ are optional and skipped when their URLs are empty.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Runtime, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rt := &Runtime{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	rt.DB, err = postgresql.NewPostgres(ctx, cfg.DatabaseDSN, postgresql.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres initialization failed: %w", err)
	}
	rt.closers = append(rt.closers, func() error { return postgresql.Close(rt.DB) })

	if err := migrations.Migrate(rt.DB); err != nil {
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	rt.SQLDB, err = rt.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres underlying db init failed: %w", err)
	}

	rt.AuditSchema = repository.ProbeAuditSchema(rt.DB)
	logger.Info("audit log schema detected", zap.String("schema", string(rt.AuditSchema)))

	location, err := cfg.Location()
	if err != nil {
		logger.Warn("falling back to UTC for entry times", zap.Error(err))
		location = time.UTC
	}

	rt.Redis, err = infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis initialization failed: %w", err)
	}
	if rt.Redis != nil {
		rt.closers = append(rt.closers, rt.Redis.Close)
	}

	rt.Publisher = queue.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq initialization failed: %w", err)
		}
		rt.Publisher = queue.NewRabbitMQPublisher(rabbit)
	}
	rt.closers = append(rt.closers, rt.Publisher.Close)

	rt.Gate, err = ratelimit.NewGate(cfg.SendConcurrency)
	if err != nil {
		return nil, err
	}
	rt.Gate.SetMetrics(rt.Metrics)

	emailSender, err := NewEmailSender(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("email provider initialization failed: %w", err)
	}
	messagingSender, err := provider.NewMessagingProvider(provider.MessagingConfig{
		BaseURL:       cfg.MessagingBaseURL,
		APIToken:      cfg.MessagingAPIToken,
		BroadcastName: cfg.MessagingBroadcastName,
		ChannelNumber: cfg.MessagingChannelNumber,
	}, provider.NewHTTPClient(cfg.ProviderTimeout), logger)
	if err != nil {
		return nil, fmt.Errorf("messaging provider initialization failed: %w", err)
	}
	messagingSender.SetMetrics(rt.Metrics)

	attendees := repository.NewGormAttendeeRepo(rt.DB)
	attendance := repository.NewGormAttendanceRepo(rt.DB)
	audit := repository.NewGormAuditRepo(rt.DB, rt.AuditSchema, logger)
	rt.audit = audit

	composer := service.NewComposer(service.Templates{
		Registration: cfg.MessagingTemplateRegistration,
		Entry:        cfg.MessagingTemplateEntry,
	}, cfg.PublicBaseURL, location, nil)

	coordinator, err := service.NewCoordinator(attendees, audit, emailSender, messagingSender, composer, rt.Gate, cfg.DefaultCountryCode, logger)
	if err != nil {
		return nil, err
	}
	coordinator.SetMetrics(rt.Metrics)
	coordinator.SetPublisher(rt.Publisher)
	if rt.Redis != nil && cfg.RateLimitPerSec > 0 {
		limiter, err := infraredis.NewRedisRateLimiter(rt.Redis, cfg.RateLimitPerSec, logger)
		if err != nil {
			return nil, fmt.Errorf("rate limiter initialization failed: %w", err)
		}
		coordinator.SetRateLimiter(limiter)
	}

	rt.Registration, err = service.NewRegistrationService(attendees, coordinator, logger)
	if err != nil {
		return nil, err
	}
	rt.CheckIn, err = service.NewCheckInService(attendees, attendance, coordinator, location, logger)
	if err != nil {
		return nil, err
	}
	rt.CheckIn.SetMetrics(rt.Metrics)
	rt.CheckIn.SetPublisher(rt.Publisher)

	rt.Sweeper, err = service.NewRetrySweeper(attendees, attendance, coordinator, cfg.RetrySweepInterval, cfg.RetrySweepLimit, logger)
	if err != nil {
		return nil, err
	}
	rt.Sweeper.SetMetrics(rt.Metrics)

	rt.Delivery, err = service.NewDeliveryQueryService(attendees, attendance)
	if err != nil {
		return nil, err
	}

	rt.Verifier, err = auth.NewJWT(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	return rt, nil
}

// NewEmailSender picks the email transport named by EMAIL_PROVIDER.
func NewEmailSender(cfg *config.Config, logger *zap.Logger) (provider.EmailSender, error) {
	httpClient := provider.NewHTTPClient(cfg.ProviderTimeout)

	switch cfg.EmailProvider {
	case config.EmailProviderSES:
		return provider.NewSESEmailProvider(provider.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			FromEmail:       cfg.EmailFrom,
			FromName:        cfg.EmailFromName,
		}, httpClient.GetClient(), logger)
	case config.EmailProviderBrevo, "":
		return provider.NewEmailProvider(provider.EmailConfig{
			Endpoint:  cfg.EmailAPIURL,
			APIKey:    cfg.EmailAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, httpClient, logger)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}

// AuditLogSchema reports the audit write path in use. It starts at the probed
// schema and turns legacy if an extended insert is rejected.
func (rt *Runtime) AuditLogSchema() string {
	if rt.audit != nil {
		return string(rt.audit.Schema())
	}
	return string(rt.AuditSchema)
}

// Close releases resources. It is safe to call on a partially built Runtime.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
