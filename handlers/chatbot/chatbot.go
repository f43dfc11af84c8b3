package chatbot

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/braingentech/site-api/services"
	"github.com/braingentech/site-api/services/rag"
	"github.com/braingentech/site-api/utils/validation"
)

// ChatbotHandler exposes the assistant widget endpoints: message proxying,
// knowledge search, the deterministic BANT qualifier, and service status
type ChatbotHandler struct {
	assistant *rag.AssistantClient
	apiURL    string
	timeout   time.Duration
	validator *validation.Validator
}

// NewChatbotHandler creates a chatbot handler
func NewChatbotHandler(assistant *rag.AssistantClient, apiURL string, timeout time.Duration) *ChatbotHandler {
	return &ChatbotHandler{
		assistant: assistant,
		apiURL:    apiURL,
		timeout:   timeout,
		validator: validation.NewValidator(),
	}
}

// MessageRequest is the widget message payload
type MessageRequest struct {
	Message   string                 `json:"message" validate:"required,max=10000"`
	SessionID string                 `json:"session_id" validate:"max=100"`
	Context   map[string]interface{} `json:"context"`
}

// SearchRequest is the knowledge search query
type SearchRequest struct {
	Query string `query:"query" validate:"required,max=500"`
	Limit int    `query:"limit" validate:"min=0,max=20"`
}

// HandleMessage forwards a widget message to the assistant service
func (h *ChatbotHandler) HandleMessage(c *fiber.Ctx) error {
	var req MessageRequest
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

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	resp, err := h.assistant.Message(c.UserContext(), rag.AssistantMessageRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
		Context:   req.Context,
	})
	if err != nil {
		log.Errorf("assistant service call failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Désolé, je rencontre une difficulté technique. Pouvez-vous reformuler ?",
			"error":   "API_ERROR",
		})
	}

	timestamp := resp.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	return c.JSON(fiber.Map{
		"success":            true,
		"message":            resp.Response,
		"suggestions":        resp.Suggestions,
		"lead_qualification": resp.LeadQualification,
		"confidence":         resp.Confidence,
		"processing_time":    resp.ProcessingTime,
		"session_id":         resp.SessionID,
		"sources":            resp.Sources,
		"timestamp":          timestamp,
	})
}

// HandleStatus reports the assistant service's health
func (h *ChatbotHandler) HandleStatus(c *fiber.Ctx) error {
	detail, err := h.assistant.Health(c.UserContext())
	if err != nil {
		return c.JSON(fiber.Map{
			"success": false,
			"status":  "offline",
			"message": "Service temporairement indisponible",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"status":   detail["status"],
		"services": detail["services"],
		"metrics":  detail["metrics"],
	})
}

// HandleSearch queries the assistant's knowledge index
func (h *ChatbotHandler) HandleSearch(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid query parameters",
		})
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   "Validation failed",
			"fields":  validation.FormatValidationErrors(err),
		})
	}

	results, err := h.assistant.SearchKnowledge(c.UserContext(), req.Query, req.Limit)
	if err != nil {
		log.Errorf("knowledge search failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Erreur lors de la recherche",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"results": results,
	})
}

// HandleQualify scores a lead from the four BANT questionnaire answers.
// Purely deterministic; the same answers always yield the same score.
func (h *ChatbotHandler) HandleQualify(c *fiber.Ctx) error {
	var req services.BANTInput
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

	score := services.ScoreBANT(req)

	return c.JSON(fiber.Map{
		"success":        true,
		"score":          score.Score,
		"category":       score.Category,
		"recommendation": score.Recommendation,
		"breakdown":      score.Breakdown,
		"details":        score.Details,
	})
}

// HandleConfig exposes the widget configuration
func (h *ChatbotHandler) HandleConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"config": fiber.Map{
			"api_url": h.apiURL,
			"timeout": int(h.timeout.Seconds()),
			"features": fiber.Map{
				"knowledge_search":    true,
				"lead_qualification":  true,
				"conversation_memory": true,
				"smart_suggestions":   true,
			},
		},
	})
}
