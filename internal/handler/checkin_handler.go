package handler

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

type CheckInHandler struct {
	service CheckInService
}

func NewCheckInHandler(service CheckInService) (*CheckInHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("check-in service is required")
	}
	return &CheckInHandler{service: service}, nil
}

type checkInRequest struct {
	Token string `json:"token"`
}

type checkInResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Name      string    `json:"name"`
	Batch     string    `json:"batch"`
	Email     string    `json:"email"`
	Contact   string    `json:"contact"`
	EntryTime time.Time `json:"entryTime"`
}

// CheckIn answers 200 for both first and repeated scans; the status field
// tells them apart.
func (h *CheckInHandler) CheckIn(c *fiber.Ctx) error {
	var req checkInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.CheckIn(c.UserContext(), req.Token)
	if err != nil {
		return err
	}

	message := "Attendance marked"
	if result.AlreadyMarked() {
		message = "Attendance already marked"
	}

	return c.Status(fiber.StatusOK).JSON(checkInResponse{
		Status:    string(result.State),
		Message:   message,
		Name:      result.Attendee.Name,
		Batch:     result.Attendee.Batch,
		Email:     result.Attendee.Email,
		Contact:   result.Attendee.Contact,
		EntryTime: result.EntryTime,
	})
}
