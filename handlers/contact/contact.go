package contact

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/braingentech/site-api/services"
	"github.com/braingentech/site-api/utils/response"
	"github.com/braingentech/site-api/utils/validation"
)

// ContactHandler handles the contact form
type ContactHandler struct {
	email     *services.EmailService
	validator *validation.Validator
}

// NewContactHandler creates a contact handler
func NewContactHandler(email *services.EmailService) *ContactHandler {
	return &ContactHandler{
		email:     email,
		validator: validation.NewValidator(),
	}
}

// HandleSubmit validates a contact form submission and forwards it to the
// sales inbox
func (h *ContactHandler) HandleSubmit(c *fiber.Ctx) error {
	var msg services.ContactMessage
	if err := c.BodyParser(&msg); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	msg.Name = validation.SanitizeString(msg.Name)
	msg.Subject = validation.SanitizeString(msg.Subject)
	msg.Message = validation.SanitizeString(msg.Message)

	if err := h.validator.ValidateStruct(msg); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	if err := h.email.SendContactMessage(msg); err != nil {
		log.Errorf("failed to send contact message from %s: %v", msg.Email, err)
		return response.InternalServerError(c, "Failed to send message")
	}

	return response.SuccessWithMessage(c, "Votre message a été envoyé avec succès!", nil)
}
