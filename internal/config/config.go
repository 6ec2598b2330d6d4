package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress   string
	JWTSecret       string
	JWTExpiration   time.Duration
	DataDir         string
	UploadDir       string
	MaxUploadSizeMB int64

	// MongoURI empty means the JSON-store services are used instead.
	MongoURI string
	MongoDB  string

	// FirebaseProjectID non-empty switches auth to Firebase ID tokens.
	FirebaseProjectID       string
	FirebaseCredentialsJSON string
}

func Load() *Config {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	return &Config{
		ServerAddress:           getEnv("SERVER_ADDRESS", ":8080"),
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:           24 * time.Hour,
		DataDir:                 getEnv("DATA_DIR", "./data"),
		UploadDir:               getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSizeMB:         10,
		MongoURI:                os.Getenv("MONGODB_URI"),
		MongoDB:                 getEnv("MONGODB_DB", "givehub"),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
