// Package config loads server settings from a .env file and the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything main needs to wire the server.
type Config struct {
	Addr           string
	DatabasePath   string
	UploadDir      string
	SecretKey      string
	MaxUploadBytes int64

	NominatimURL      string
	GeocoderUserAgent string

	// RegionHint enables the southern-Africa hemisphere guess for
	// coordinates that arrive without an explicit reference.
	RegionHint bool

	TesseractPath string
	OCRTimeout    time.Duration

	// MongoCacheURI, when set, backs the address cache with MongoDB so it
	// survives restarts. Empty keeps the in-memory cache.
	MongoCacheURI      string
	MongoCacheDatabase string

	// MinioEndpoint, when set, stores payloads in MinIO instead of UploadDir.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// Load reads .env (if present) and the environment, applying defaults.
func Load() Config {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	return Config{
		Addr:           getenv("ADDR", ":8080"),
		DatabasePath:   getenv("DB_PATH", "geopin.db"),
		UploadDir:      getenv("UPLOAD_DIR", "./uploads"),
		SecretKey:      getenv("SECRET_KEY", "dev-secret-change-me"),
		MaxUploadBytes: getenvInt64("MAX_UPLOAD_BYTES", 50*1024*1024),

		NominatimURL:      getenv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: getenv("GEOCODER_USER_AGENT", "geopin/1.0"),

		RegionHint: getenvBool("REGION_HINT", true),

		TesseractPath: getenv("TESSERACT_PATH", "tesseract"),
		OCRTimeout:    getenvDuration("OCR_TIMEOUT", 20*time.Second),

		MongoCacheURI:      os.Getenv("MONGO_CACHE_URI"),
		MongoCacheDatabase: getenv("MONGO_CACHE_DB", "geopin"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getenv("MINIO_BUCKET", "media"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
