package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
	"github.com/kursadbilgin/workshop-checkin/internal/service"
)

type AttendeeHandler struct {
	registration RegistrationService
	delivery     DeliveryService
}

func NewAttendeeHandler(registration RegistrationService, delivery DeliveryService) (*AttendeeHandler, error) {
	if registration == nil {
		return nil, fmt.Errorf("registration service is required")
	}
	if delivery == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	return &AttendeeHandler{registration: registration, delivery: delivery}, nil
}

type registerAttendeeRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
	Batch   string `json:"batch"`
}

type registerBulkRequest struct {
	Attendees []registerAttendeeRequest `json:"attendees"`
}

type deliveryStatusResponse struct {
	EmailStatus     string     `json:"emailStatus"`
	MessagingStatus string     `json:"messagingStatus"`
	LastAttemptAt   *time.Time `json:"lastAttemptAt,omitempty"`
	LastError       *string    `json:"lastError,omitempty"`
}

type attendeeResponse struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Email           string                 `json:"email"`
	Contact         string                 `json:"contact"`
	Batch           string                 `json:"batch"`
	CredentialToken string                 `json:"credentialToken"`
	Delivery        deliveryStatusResponse `json:"delivery"`
	CreatedAt       time.Time              `json:"createdAt,omitempty"`
}

type registerBulkResponse struct {
	Attempted int                `json:"attempted"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Attendees []attendeeResponse `json:"attendees"`
}

func (h *AttendeeHandler) Register(c *fiber.Ctx) error {
	var req registerAttendeeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	attendee, err := h.registration.Register(c.UserContext(), req.toInput())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toAttendeeResponse(attendee))
}

func (h *AttendeeHandler) RegisterBulk(c *fiber.Ctx) error {
	var req registerBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Attendees) == 0 {
		return fmt.Errorf("%w: attendees is required", domain.ErrValidation)
	}

	inputs := make([]service.RegisterInput, 0, len(req.Attendees))
	for _, item := range req.Attendees {
		inputs = append(inputs, item.toInput())
	}

	created, result, err := h.registration.RegisterBulk(c.UserContext(), inputs)
	if err != nil {
		return err
	}

	responses := make([]attendeeResponse, 0, len(created))
	for i := range created {
		responses = append(responses, toAttendeeResponse(&created[i]))
	}

	return c.Status(fiber.StatusCreated).JSON(registerBulkResponse{
		Attempted: result.Attempted,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Attendees: responses,
	})
}

func (h *AttendeeHandler) GetDeliveryStatus(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fmt.Errorf("%w: attendee id is required", domain.ErrValidation)
	}

	status, err := h.delivery.Status(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"attendeeId": id,
		"delivery":   toDeliveryStatusResponse(status),
	})
}

func (r registerAttendeeRequest) toInput() service.RegisterInput {
	return service.RegisterInput{
		Name:    r.Name,
		Email:   r.Email,
		Contact: r.Contact,
		Batch:   r.Batch,
	}
}

func toAttendeeResponse(a *domain.Attendee) attendeeResponse {
	if a == nil {
		return attendeeResponse{}
	}
	return attendeeResponse{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		Contact:         a.Contact,
		Batch:           a.Batch,
		CredentialToken: a.CredentialToken,
		Delivery:        toDeliveryStatusResponse(a.Delivery),
		CreatedAt:       a.CreatedAt,
	}
}

func toDeliveryStatusResponse(s domain.DeliveryStatus) deliveryStatusResponse {
	return deliveryStatusResponse{
		EmailStatus:     s.EmailStatus.String(),
		MessagingStatus: s.MessagingStatus.String(),
		LastAttemptAt:   s.LastAttemptAt,
		LastError:       s.LastError,
	}
}
