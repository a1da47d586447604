package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// DispatchLoad is the view of the concurrency gate the readiness probe needs.
type DispatchLoad interface {
	InFlight() int
	Capacity() int
	Draining() bool
}

// HealthDeps are the dependencies probed by /readyz. Redis, Gate and
// AuditSchema are optional.
type HealthDeps struct {
	SQLDB       *sql.DB
	Redis       *redis.Client
	Gate        DispatchLoad
	AuditSchema func() string
}

// RegisterHealthRoutes mounts the unauthenticated probes.
func RegisterHealthRoutes(app fiber.Router, deps HealthDeps) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(deps))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

// ReadyzHandler reports 503 when Postgres or a configured Redis is unreachable,
// or when the dispatch gate is draining for shutdown. A missing Redis is
// reported as "disabled" and does not affect readiness.
func ReadyzHandler(deps HealthDeps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		ready := true
		checks := fiber.Map{
			"postgres": "ok",
			"redis":    "disabled",
		}

		if deps.SQLDB == nil || deps.SQLDB.PingContext(ctx) != nil {
			checks["postgres"] = "down"
			ready = false
		}

		if deps.Redis != nil {
			checks["redis"] = "ok"
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				checks["redis"] = "down"
				ready = false
			}
		}

		if deps.AuditSchema != nil {
			checks["auditLog"] = deps.AuditSchema()
		}

		body := fiber.Map{"checks": checks}
		if deps.Gate != nil {
			body["dispatch"] = fiber.Map{
				"inFlight": deps.Gate.InFlight(),
				"capacity": deps.Gate.Capacity(),
			}
			if deps.Gate.Draining() {
				checks["dispatch"] = "draining"
				ready = false
			}
		}

		body["status"] = "ready"
		statusCode := fiber.StatusOK
		if !ready {
			body["status"] = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(body)
	}
}
