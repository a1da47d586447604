package main

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/workshop-checkin/internal/auth"
	"github.com/kursadbilgin/workshop-checkin/internal/handler"
	"github.com/kursadbilgin/workshop-checkin/internal/observability"
	"github.com/kursadbilgin/workshop-checkin/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type appDeps struct {
	logger   *zap.Logger
	metrics  *observability.Metrics
	sqlDB    *sql.DB
	redis    *redis.Client
	gate     handler.DispatchLoad
	verifier auth.TokenVerifier

	auditSchema func() string

	registration handler.RegistrationService
	delivery     handler.DeliveryService
	retry        handler.RetryService
	checkIn      handler.CheckInService
}

func newApp(deps appDeps) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:               "workshop-checkin",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(deps.logger),
	})

	app.Use(transport.RequestID())
	app.Use(deps.metrics.HTTPMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(deps.metrics.Handler()))
	handler.RegisterHealthRoutes(app, handler.HealthDeps{
		SQLDB:       deps.sqlDB,
		Redis:       deps.redis,
		Gate:        deps.gate,
		AuditSchema: deps.auditSchema,
	})

	if err := handler.RegisterRoutes(app, handler.Services{
		Registration: deps.registration,
		Delivery:     deps.delivery,
		Retry:        deps.retry,
		CheckIn:      deps.checkIn,
	}, deps.verifier); err != nil {
		return nil, err
	}

	return app, nil
}
