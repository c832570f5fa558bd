package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress            string
	PublicHost             string
	Language               string
	TwilioAccountSID       string
	TwilioAuthToken        string
	TwilioPhoneNumber      string
	IntelligenceServiceSID string
	GeminiAPIKey           string
	GeminiModelID          string
	DatabasePath           string
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseBucket         string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	publicHost := os.Getenv("PUBLIC_HOST")
	if publicHost == "" {
		log.Println("Warning: PUBLIC_HOST not set - Twilio callbacks and the relay URL will not resolve")
	}

	language := os.Getenv("LANGUAGE")
	if language == "" {
		language = "ENGLISH"
	}

	accountSID := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	if accountSID == "" || authToken == "" {
		log.Println("Warning: TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN not set - call control will not work")
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set - conversation decisions will not work")
	}
	geminiModel := os.Getenv("GEMINI_MODEL_ID")
	if geminiModel == "" {
		geminiModel = "gemini-1.5-flash"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "calls.db"
	}

	bucket := os.Getenv("SUPABASE_BUCKET")
	if bucket == "" {
		bucket = "voice-recording"
	}

	log.Printf("config: HTTP_ADDRESS=%s LANGUAGE=%s", addr, language)
	return Config{
		HTTPAddress:            addr,
		PublicHost:             publicHost,
		Language:               language,
		TwilioAccountSID:       accountSID,
		TwilioAuthToken:        authToken,
		TwilioPhoneNumber:      os.Getenv("TWILIO_PHONE_NUMBER"),
		IntelligenceServiceSID: os.Getenv("VOICE_INTELLIGENCE_SERVICE_SID"),
		GeminiAPIKey:           geminiKey,
		GeminiModelID:          geminiModel,
		DatabasePath:           dbPath,
		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:         bucket,
	}
}
