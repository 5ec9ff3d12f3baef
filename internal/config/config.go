package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port           string
	AllowedOrigins string
	Environment    string

	// Logging
	LogLevel  string
	LogFormat string

	// Uploads
	UploadDir         string
	MaxFileSize       int64
	AllowedExtensions []string

	// Storage: "local" or "s3"
	StorageDriver string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3UseSSL      bool
	S3Region      string

	// Database (optional)
	DatabaseURL       string
	DocumentRetention time.Duration

	// Recognized-text cache
	RedisURL      string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// OCR
	OCRLanguages   []string
	OCRPageSegMode int
	OCRWorkers     int
	PDFDPI         float64
	TaxIDKeywords  []string

	// Generative backend: "ollama" or "openai"
	LLMProvider    string
	OllamaAPIURL   string
	OllamaModel    string
	OpenAIBaseURL  string
	OpenAIAPIKey   string
	OpenAIModel    string
	LLMTimeout     time.Duration
	LLMTemperature float64

	// JWT (auth is disabled when the secret is empty)
	JWTSecret string
	JWTExpiry time.Duration
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8000"),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", ""),
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		MaxFileSize:       int64(getIntEnv("MAX_FILE_SIZE", 10*1024*1024)),
		AllowedExtensions: getListEnv("ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "pdf"}),
		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:3900"),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3Bucket:          getEnv("S3_BUCKET", "documents"),
		S3UseSSL:          getBoolEnv("S3_USE_SSL", false),
		S3Region:          getEnv("S3_REGION", "garage"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DocumentRetention: getDurationEnv("DOCUMENT_RETENTION_HOURS", 0) * time.Hour,
		RedisURL:          getEnv("REDIS_URL", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getIntEnv("REDIS_DB", 0),
		CacheTTL:          getDurationEnv("CACHE_TTL_MINUTES", 60) * time.Minute,
		OCRLanguages:      getListEnv("OCR_LANGUAGES", []string{"eng", "tur"}),
		OCRPageSegMode:    getIntEnv("OCR_PSM", 3),
		OCRWorkers:        getIntEnv("OCR_WORKERS", 2),
		PDFDPI:            getFloatEnv("PDF_DPI", 200),
		TaxIDKeywords:     getListEnv("TAX_ID_KEYWORDS", []string{"vergi"}),
		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", "ollama")),
		OllamaAPIURL:      getEnv("OLLAMA_API_URL", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "gemma3:4b"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:        getDurationEnv("LLM_TIMEOUT_SECONDS", 300) * time.Second,
		LLMTemperature:    getFloatEnv("LLM_TEMPERATURE", 0),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTExpiry:         getDurationEnv("JWT_EXPIRY_HOURS", 24) * time.Hour,
	}
}

// Validate reports settings that cannot work together
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case "local":
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for local storage"))
		}
	case "s3":
		if c.S3Endpoint == "" || c.S3AccessKey == "" || c.S3SecretKey == "" {
			errs = append(errs, errors.New("S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY are required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.LLMProvider {
	case "ollama":
		if c.OllamaAPIURL == "" || c.OllamaModel == "" {
			errs = append(errs, errors.New("OLLAMA_API_URL and OLLAMA_MODEL are required for the ollama provider"))
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE must be positive"))
	}
	if len(c.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("ALLOWED_EXTENSIONS must not be empty"))
	}
	if c.OCRWorkers < 1 {
		errs = append(errs, errors.New("OCR_WORKERS must be at least 1"))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT_SECONDS must be positive"))
	}
	if c.IsProduction() && !c.AuthEnabled() {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}

	return errors.Join(errs...)
}

// IsExtensionAllowed reports whether ext (without dot, any case) may be uploaded
func (c *Config) IsExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// AuthEnabled reports whether API routes require a bearer token
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
	}
	return time.Duration(defaultValue)
}

// getListEnv splits a comma separated value, lowercasing and dropping blanks
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
