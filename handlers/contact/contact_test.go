package contact

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braingentech/site-api/services"
)

func newTestApp() *fiber.App {
	// unconfigured SMTP: valid submissions fail at send, not validation
	handler := NewContactHandler(services.NewEmailService(services.EmailConfig{}))

	app := fiber.New()
	app.Post("/api/contact", handler.HandleSubmit)
	return app
}

func postForm(app *fiber.App, form url.Values) (int, map[string]interface{}) {
	req := httptest.NewRequest("POST", "/api/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, _ := app.Test(req)
	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestHandleSubmitValidation(t *testing.T) {
	app := newTestApp()

	t.Run("invalid email is rejected", func(t *testing.T) {
		status, body := postForm(app, url.Values{
			"user-name":    {"Jean Dupont"},
			"user-email":   {"not-an-email"},
			"user-subject": {"Question"},
			"user-message": {"Bonjour"},
		})

		assert.Equal(t, fiber.StatusUnprocessableEntity, status)
		detail, ok := body["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "VALIDATION_ERROR", detail["code"])
		require.NotNil(t, detail["fields"])
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		status, _ := postForm(app, url.Values{
			"user-email": {"jean@example.com"},
		})

		assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	})

	t.Run("valid form reaches the mailer", func(t *testing.T) {
		// SMTP is unconfigured, so delivery fails after validation passes
		status, body := postForm(app, url.Values{
			"user-name":    {"Jean Dupont"},
			"user-email":   {"jean@example.com"},
			"user-subject": {"Question"},
			"user-message": {"Bonjour, je voudrais un devis."},
		})

		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.Equal(t, false, body["success"])
	})
}
