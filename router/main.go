package router

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/braingentech/site-api/config"
	"github.com/braingentech/site-api/database"
	"github.com/braingentech/site-api/handlers"
	analytics_handlers "github.com/braingentech/site-api/handlers/analytics"
	chat_handlers "github.com/braingentech/site-api/handlers/chat"
	chatbot_handlers "github.com/braingentech/site-api/handlers/chatbot"
	contact_handlers "github.com/braingentech/site-api/handlers/contact"
	metrics_handlers "github.com/braingentech/site-api/handlers/metrics"
	"github.com/braingentech/site-api/services"
	"github.com/braingentech/site-api/services/rag"
	"github.com/braingentech/site-api/utils/cache"
	"github.com/braingentech/site-api/utils/middleware"
)

func SetupRoutes(app *fiber.App, store database.Storage, env *config.EnviornmentVariable) {
	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis backs conversation history, qualification results and metric
	// snapshots
	redisCache, err := cache.NewRedisCache(env.REDIS_URL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// External AI services
	ragClient := rag.NewClient(rag.Config{
		BaseURL: env.RAG_API_URL,
		Timeout: env.RAG_API_TIMEOUT,
	})
	assistantClient := rag.NewAssistantClient(rag.Config{
		BaseURL: env.CHATBOT_API_URL,
		Timeout: env.CHATBOT_API_TIMEOUT,
	})

	// Services
	conversationStore := services.NewConversationStore(redisCache)
	telemetry := services.NewAnalyticsRecorder(db)
	leadService := services.NewLeadService(ragClient, conversationStore, db)
	chatService := services.NewChatService(ragClient, conversationStore, telemetry, leadService)
	analyticsService := services.NewAnalyticsService(db)
	metricsService := services.NewMetricsService(db, redisCache)
	emailService := services.NewEmailService(services.EmailConfig{
		Host:      env.SMTP_HOST,
		Port:      env.SMTP_PORT,
		Username:  env.SMTP_USERNAME,
		Password:  env.SMTP_PASSWORD,
		From:      env.SMTP_FROM,
		ContactTo: env.CONTACT_EMAIL,
	})

	// Request counters feed the metrics endpoint
	app.Use(middleware.RequestCounter(redisCache))

	// Handlers
	chatHandler := chat_handlers.NewChatHandler(chatService, leadService)
	chatbotHandler := chatbot_handlers.NewChatbotHandler(assistantClient, env.CHATBOT_API_URL, env.CHATBOT_API_TIMEOUT)
	analyticsHandler := analytics_handlers.NewAnalyticsHandler(analyticsService)
	metricsHandler := metrics_handlers.NewMetricsHandler(metricsService)
	contactHandler := contact_handlers.NewContactHandler(emailService)

	// Liveness
	app.Get("/ping", func(c *fiber.Ctx) error {
		return handlers.HandleCheckHealth(c, store)
	})

	// Prometheus scrape endpoint
	app.Get("/metrics", metricsHandler.HandleMetrics)

	api := app.Group("/api")

	// Chat widget
	chat := api.Group("/chat")
	chat.Post("/", chatHandler.HandleChat)
	chat.Post("/qualify", chatHandler.HandleQualify)
	chat.Post("/clear", chatHandler.HandleClear)
	chat.Get("/health", chatHandler.HandleHealth)

	// Assistant widget
	chatbot := api.Group("/chatbot")
	chatbot.Post("/message", chatbotHandler.HandleMessage)
	chatbot.Post("/qualify", chatbotHandler.HandleQualify)
	chatbot.Get("/status", chatbotHandler.HandleStatus)
	chatbot.Get("/search", chatbotHandler.HandleSearch)
	chatbot.Get("/config", chatbotHandler.HandleConfig)

	// Analytics dashboard
	analytics := api.Group("/analytics")
	analytics.Get("/data", analyticsHandler.HandleData)
	analytics.Get("/realtime", analyticsHandler.HandleRealtime)

	// Business metrics scrape endpoint
	api.Get("/metrics/business", metricsHandler.HandleBusinessMetrics)

	// Contact form
	api.Post("/contact", contactHandler.HandleSubmit)
}
