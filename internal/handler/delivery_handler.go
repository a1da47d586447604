package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
)

const maxResendLimit = 1000

type DeliveryHandler struct {
	delivery DeliveryService
	retry    RetryService
}

func NewDeliveryHandler(delivery DeliveryService, retry RetryService) (*DeliveryHandler, error) {
	if delivery == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	if retry == nil {
		return nil, fmt.Errorf("retry service is required")
	}
	return &DeliveryHandler{delivery: delivery, retry: retry}, nil
}

type summaryRowResponse struct {
	EmailStatus     string `json:"emailStatus"`
	MessagingStatus string `json:"messagingStatus"`
	Count           int64  `json:"count"`
}

type summaryResponse struct {
	TotalAttendees int64                `json:"totalAttendees"`
	FullyDelivered int64                `json:"fullyDelivered"`
	CheckedIn      int64                `json:"checkedIn"`
	Rows           []summaryRowResponse `json:"rows"`
}

func (h *DeliveryHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.delivery.Summary(c.UserContext())
	if err != nil {
		return err
	}

	rows := make([]summaryRowResponse, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		rows = append(rows, summaryRowResponse{
			EmailStatus:     row.EmailStatus.String(),
			MessagingStatus: row.MessagingStatus.String(),
			Count:           row.Count,
		})
	}

	return c.Status(fiber.StatusOK).JSON(summaryResponse{
		TotalAttendees: summary.TotalAttendees,
		FullyDelivered: summary.FullyDelivered,
		CheckedIn:      summary.CheckedIn,
		Rows:           rows,
	})
}

// Resend runs one retry sweep. limit=0 or absent uses the configured default.
func (h *DeliveryHandler) Resend(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 || limit > maxResendLimit {
		return fmt.Errorf("%w: limit must be between 0 and %d", domain.ErrValidation, maxResendLimit)
	}

	result, err := h.retry.ResendPending(c.UserContext(), limit)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
