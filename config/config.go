package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// GameConfig holds the tunable rules of the guessing game
type GameConfig struct {
	RoundTimeout       time.Duration
	ContextMessages    int
	MinMessageAge      time.Duration
	MessageSearchLimit int
	MaxSearchRetries   int
	Lookback           time.Duration
	MinMessageLength   int
}

type AppConfig struct {
	// Core configuration (always required)
	DatabaseURL     string
	DatabaseSchema  string
	DiscordBotToken string

	// HTTP API (optional with defaults)
	Port               string
	CORSAllowedOrigins string

	Game GameConfig
}

func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️ Could not load .env file, continuing with system env vars")
	}

	databaseURL, err := getEnvRequired("DB_URL")
	if err != nil {
		return nil, err
	}

	databaseSchema, err := getEnvRequired("DB_SCHEMA")
	if err != nil {
		return nil, err
	}

	botToken, err := getEnvRequired("DISCORD_BOT_TOKEN")
	if err != nil {
		return nil, err
	}

	gameConfig, err := loadGameConfig()
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		DatabaseURL:        databaseURL,
		DatabaseSchema:     databaseSchema,
		DiscordBotToken:    botToken,
		Port:               getEnvWithDefault("PORT", "8080"),
		CORSAllowedOrigins: getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*"),
		Game:               *gameConfig,
	}, nil
}

func loadGameConfig() (*GameConfig, error) {
	roundTimeoutSeconds, err := getEnvInt("ROUND_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	contextMessages, err := getEnvInt("CONTEXT_MESSAGES", 5)
	if err != nil {
		return nil, err
	}
	minMessageAgeHours, err := getEnvInt("MIN_MESSAGE_AGE_HOURS", 24)
	if err != nil {
		return nil, err
	}
	messageSearchLimit, err := getEnvInt("MESSAGE_SEARCH_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	maxSearchRetries, err := getEnvInt("MAX_SEARCH_RETRIES", 5)
	if err != nil {
		return nil, err
	}
	lookbackDays, err := getEnvInt("LOOKBACK_DAYS", 365)
	if err != nil {
		return nil, err
	}
	minMessageLength, err := getEnvInt("MIN_MESSAGE_LENGTH", 200)
	if err != nil {
		return nil, err
	}

	return &GameConfig{
		RoundTimeout:       time.Duration(roundTimeoutSeconds) * time.Second,
		ContextMessages:    contextMessages,
		MinMessageAge:      time.Duration(minMessageAgeHours) * time.Hour,
		MessageSearchLimit: messageSearchLimit,
		MaxSearchRetries:   maxSearchRetries,
		Lookback:           time.Duration(lookbackDays) * 24 * time.Hour,
		MinMessageLength:   minMessageLength,
	}, nil
}

func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set", key)
	}
	return value, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return parsed, nil
}
