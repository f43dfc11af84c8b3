package chat

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/braingentech/site-api/services"
	"github.com/braingentech/site-api/utils/validation"
)

// ChatHandler exposes the site chat widget endpoints
type ChatHandler struct {
	chat      *services.ChatService
	leads     *services.LeadService
	validator *validation.Validator
}

// NewChatHandler creates a chat handler
func NewChatHandler(chat *services.ChatService, leads *services.LeadService) *ChatHandler {
	return &ChatHandler{
		chat:      chat,
		leads:     leads,
		validator: validation.NewValidator(),
	}
}

// ChatRequest is the widget chat payload
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=2000"`
	SessionID string `json:"session_id" validate:"max=100"`
}

// QualifyRequest asks for a lead qualification of an ongoing session
type QualifyRequest struct {
	SessionID string `json:"session_id" validate:"required,max=100"`
}

// ClearRequest drops a session's conversation
type ClearRequest struct {
	SessionID string `json:"session_id" validate:"required,max=100"`
}

// sessionFromCtx extracts visitor context from the request
func sessionFromCtx(c *fiber.Ctx) services.SessionContext {
	return services.SessionContext{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Referrer:  c.Get(fiber.HeaderReferer),
	}
}

// HandleChat proxies one widget message to the RAG service. The response
// shape is the widget wire contract; on upstream failure the apology
// fallback ships with a 503 so the widget can still render it.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	req.Message = validation.SanitizeString(req.Message)
	if err := h.validator.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   "Validation failed",
			"fields":  validation.FormatValidationErrors(err),
		})
	}

	result, err := h.chat.Chat(c.UserContext(), req.SessionID, req.Message, sessionFromCtx(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "An error occurred while processing your message",
		})
	}

	if result.Fallback {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success":             false,
			"answer":              result.Answer,
			"session_id":          result.SessionID,
			"sources":             []string{},
			"conversation_length": 0,
			"error":               result.FallbackReason,
			"timestamp":           time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"answer":              result.Answer,
		"session_id":          result.SessionID,
		"sources":             result.Sources,
		"conversation_length": result.ConversationLength,
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleQualify runs lead qualification for a session on demand
func (h *ChatHandler) HandleQualify(c *fiber.Ctx) error {
	var req QualifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   "Validation failed",
			"fields":  validation.FormatValidationErrors(err),
		})
	}

	result, err := h.leads.Qualify(c.UserContext(), req.SessionID, sessionFromCtx(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoHistory):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "No conversation history found for qualification",
			})
		case errors.Is(err, services.ErrQualificationUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"error":   "Qualification service unavailable and fallback failed",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "Lead qualification failed",
			})
		}
	}

	payload := fiber.Map{
		"success":         true,
		"qualification":   result.Qualification,
		"session_id":      req.SessionID,
		"processing_time": result.ProcessingTime,
	}
	if result.FallbackUsed {
		payload["fallback_used"] = true
	}
	return c.JSON(payload)
}

// HandleClear wipes a session's history locally and upstream
func (h *ChatHandler) HandleClear(c *fiber.Ctx) error {
	var req ClearRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   "Validation failed",
			"fields":  validation.FormatValidationErrors(err),
		})
	}

	if err := h.chat.Clear(c.UserContext(), req.SessionID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to clear conversation",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Conversation cleared successfully",
	})
}

// HandleHealth reports the RAG service's health as seen from here
func (h *ChatHandler) HandleHealth(c *fiber.Ctx) error {
	status := h.chat.Health(c.UserContext())
	timestamp := time.Now().UTC().Format(time.RFC3339)

	if !status.Healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":    "unhealthy",
			"error":     "RAG system not responding",
			"timestamp": timestamp,
		})
	}

	return c.JSON(fiber.Map{
		"status":     "healthy",
		"rag_system": status.Detail,
		"timestamp":  timestamp,
	})
}
