package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT        string
	DB_URL      string
	CORS_ORIGIN string

	ACCESS_TOKEN_SECRET  string
	REFRESH_TOKEN_SECRET string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string

	FRONTEND_SUCCESS_URL string
	FRONTEND_CANCEL_URL  string

	SERP_API_KEY string

	S3_REGION     string
	S3_BUCKET     string
	S3_ENDPOINT   string
	S3_ACCESS_KEY string
	S3_SECRET_KEY string

	SMTP_FROM     string
	SMTP_PASSWORD string
	SMTP_HOST     string
	SMTP_PORT     string

	GOOGLE_CLIENT_ID         string
	GOOGLE_CLIENT_SECRET     string
	GOOGLE_REDIRECT_URL      string
	GOOGLE_FRONTEND_REDIRECT string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:3000")

	ACCESS_TOKEN_SECRET = mustEnv("ACCESS_TOKEN_SECRET")
	REFRESH_TOKEN_SECRET = mustEnv("REFRESH_TOKEN_SECRET")

	STRIPE_SECRET_KEY = mustEnv("STRIPE_SECRET_KEY")
	STRIPE_WEBHOOK_SECRET = mustEnv("STRIPE_WEBHOOK_SECRET")

	FRONTEND_SUCCESS_URL = getEnv("FRONTEND_SUCCESS_URL", "http://localhost:3000/purchase-success")
	FRONTEND_CANCEL_URL = getEnv("FRONTEND_CANCEL_URL", "http://localhost:3000/purchase-cancelled")

	SERP_API_KEY = mustEnv("SERP_API_KEY")

	S3_REGION = getEnv("S3_REGION", "us-east-1")
	S3_BUCKET = mustEnv("S3_BUCKET")
	S3_ENDPOINT = getEnv("S3_ENDPOINT", "")
	S3_ACCESS_KEY = mustEnv("S3_ACCESS_KEY")
	S3_SECRET_KEY = mustEnv("S3_SECRET_KEY")

	SMTP_FROM = getEnv("SMTP_FROM", "")
	SMTP_PASSWORD = getEnv("SMTP_PASSWORD", "")
	SMTP_HOST = getEnv("SMTP_HOST", "")
	SMTP_PORT = getEnv("SMTP_PORT", "587")

	GOOGLE_CLIENT_ID = getEnv("GOOGLE_CLIENT_ID", "")
	GOOGLE_CLIENT_SECRET = getEnv("GOOGLE_CLIENT_SECRET", "")
	GOOGLE_REDIRECT_URL = getEnv("GOOGLE_REDIRECT_URL", "")
	GOOGLE_FRONTEND_REDIRECT = getEnv("GOOGLE_FRONTEND_REDIRECT", "")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
