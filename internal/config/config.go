package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	JWTSecret         string
	MongoURI          string
	DBName            string
	SkipAuth          bool
	Environment       string
	AppId             string
	ReconcileCron     string // Schedule for the pending-flow drift sweep
	NotifyMaxAttempts int    // Webhook delivery attempts per completion event
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		JWTSecret:         getEnv("JWT_SECRET", "secret"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:            getEnv("DB_NAME", "go-approvals"),
		SkipAuth:          getEnv("SKIP_AUTH", "false") == "true",
		Environment:       getEnv("ENVIRONMENT", "development"),
		AppId:             getEnv("APP_ID", "go-approvals"),
		ReconcileCron:     getEnv("RECONCILE_CRON", "@every 15m"),
		NotifyMaxAttempts: getEnvInt("NOTIFY_MAX_ATTEMPTS", 5),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
