package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadENV loads variables from .env unless GO_ENV marks a deployed environment
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// Redis Configuration
	REDIS_URL string
	// RAG service (chat + lead qualification)
	RAG_API_URL     string
	RAG_API_TIMEOUT time.Duration
	// Chatbot assistant service (suggestions, knowledge search, BANT widget)
	CHATBOT_API_URL     string
	CHATBOT_API_TIMEOUT time.Duration
	// SMTP for the contact form
	SMTP_HOST     string
	SMTP_PORT     int
	SMTP_USERNAME string
	SMTP_PASSWORD string
	SMTP_FROM     string
	CONTACT_EMAIL string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	smtpPort, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		smtpPort = 587
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// Redis
		REDIS_URL: redisURL,
		// External AI services
		RAG_API_URL:         getEnvOrDefault("RAG_API_URL", "http://localhost:8002"),
		RAG_API_TIMEOUT:     getDurationSeconds("RAG_API_TIMEOUT", 30*time.Second),
		CHATBOT_API_URL:     getEnvOrDefault("CHATBOT_API_URL", "http://localhost:8001"),
		CHATBOT_API_TIMEOUT: getDurationSeconds("CHATBOT_API_TIMEOUT", 30*time.Second),
		// SMTP
		SMTP_HOST:     getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTP_PORT:     smtpPort,
		SMTP_USERNAME: os.Getenv("SMTP_USERNAME"),
		SMTP_PASSWORD: os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:     getEnvOrDefault("SMTP_FROM", "noreply@braingentech.com"),
		CONTACT_EMAIL: getEnvOrDefault("CONTACT_EMAIL", "contact@braingentech.com"),
	}

	return envVariables, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getDurationSeconds reads an integer number of seconds from the environment
func getDurationSeconds(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	seconds, err := strconv.Atoi(val)
	if err != nil || seconds <= 0 {
		return defaultVal
	}
	return time.Duration(seconds) * time.Second
}
