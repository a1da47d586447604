package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/workshop-checkin/internal/auth"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/kursadbilgin/workshop-checkin/internal/service"
)

type RegistrationService interface {
	Register(ctx context.Context, input service.RegisterInput) (*domain.Attendee, error)
	RegisterBulk(ctx context.Context, inputs []service.RegisterInput) ([]domain.Attendee, service.BatchResult, error)
}

type DeliveryService interface {
	Status(ctx context.Context, attendeeID string) (domain.DeliveryStatus, error)
	Summary(ctx context.Context) (*domain.DeliverySummary, error)
}

type RetryService interface {
	ResendPending(ctx context.Context, limit int) (service.SweepResult, error)
}

type CheckInService interface {
	CheckIn(ctx context.Context, token string) (*domain.CheckInResult, error)
}

type Services struct {
	Registration RegistrationService
	Delivery     DeliveryService
	Retry        RetryService
	CheckIn      CheckInService
}

// RegisterRoutes mounts the staff API under /v1. Every route needs a valid
// staff token; resend additionally needs the admin role.
func RegisterRoutes(router fiber.Router, services Services, verifier auth.TokenVerifier) error {
	if verifier == nil {
		return fmt.Errorf("token verifier is required")
	}

	attendees, err := NewAttendeeHandler(services.Registration, services.Delivery)
	if err != nil {
		return err
	}
	deliveries, err := NewDeliveryHandler(services.Delivery, services.Retry)
	if err != nil {
		return err
	}
	checkins, err := NewCheckInHandler(services.CheckIn)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1", auth.RequireStaff(verifier))
	v1.Post("/attendees", attendees.Register)
	v1.Post("/attendees/bulk", attendees.RegisterBulk)
	v1.Get("/attendees/:id/delivery", attendees.GetDeliveryStatus)
	v1.Get("/deliveries/summary", deliveries.Summary)
	v1.Post("/deliveries/resend", auth.RequireAdmin(), deliveries.Resend)
	v1.Post("/checkins", checkins.CheckIn)

	return nil
}
