package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Gemini API Configuration
	APIKey    string
	ProjectID string
	Location  string
	Models    Models

	// Server Configuration
	Port         string
	OutputDir    string
	FrontendDist string
	CORSOrigins  []string
	MCPEnabled   bool
	LogLevel     string
	LogFormat    string

	// Static tokens for the MCP endpoint; empty means Firebase ID tokens are required there too
	ServiceTokens []string

	// Firebase Configuration
	FirebaseCredentialsPath string
	FirebaseCredentialsJSON string
	FirebaseProjectID       string
	FirebaseStorageBucket   string

	// Storage backend: "local", "s3", "firebase" or empty for auto-detection
	StorageBackend string

	// S3 Storage Configuration
	S3Endpoint        string        // S3/MinIO endpoint (e.g., "minio:9000" or "s3.amazonaws.com")
	S3Bucket          string        // Bucket name for storing generated files
	S3Region          string        // AWS region (default: us-east-1)
	S3AccessKeyID     string        // Access key ID
	S3SecretAccessKey string        // Secret access key
	S3UseSSL          bool          // Use SSL/TLS for S3 connection (default: true)
	S3PresignTTL      time.Duration // TTL for presigned URLs (default: 24h)
	S3ObjectTTL       time.Duration // TTL for objects before auto-deletion (default: 24h)
	S3CleanupInterval time.Duration // Cleanup task interval (default: 1h)
	S3Enabled         bool          // Auto-enabled when S3 credentials are configured

	// Signed URL lifetime for the Firebase Storage backend
	SignedURLTTL time.Duration

	// Brand profile analysis
	JinaAPIKey    string
	JinaReaderURL string
	CSEAPIKey     string
	CSEID         string

	// Video generation polling
	VideoPollInterval   time.Duration
	VideoMaxPollRetries int
	VideoMaxWait        time.Duration
}

// Models is the model catalog. Every field can be overridden from the YAML config file.
type Models struct {
	Text     string `yaml:"text"`
	Pro      string `yaml:"pro"`
	Image    string `yaml:"image"`
	ImagePro string `yaml:"image_pro"`
	Imagen   string `yaml:"imagen"`
	Veo      string `yaml:"veo"`
}

// DefaultModels returns the catalog used when nothing is overridden.
func DefaultModels() Models {
	return Models{
		Text:     "gemini-2.5-flash",
		Pro:      "gemini-2.5-pro",
		Image:    "gemini-2.5-flash-image",
		ImagePro: "gemini-3-pro-image-preview",
		Imagen:   "imagen-4.0-generate-001",
		Veo:      "veo-3.1-generate-preview",
	}
}

// fileConfig mirrors the subset of Config that may be set from CONFIG_FILE.
type fileConfig struct {
	Models Models `yaml:"models"`
	Video  struct {
		PollInterval   string `yaml:"poll_interval"`
		MaxPollRetries int    `yaml:"max_poll_retries"`
		MaxWait        string `yaml:"max_wait"`
	} `yaml:"video"`
	CORSOrigins []string `yaml:"cors_origins"`
}

func LoadConfig() (*Config, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	config := &Config{
		APIKey:        apiKey,
		ProjectID:     os.Getenv("GOOGLE_PROJECT_ID"),
		Location:      getEnvOrDefault("GOOGLE_LOCATION", "us-central1"),
		Models:        DefaultModels(),
		Port:          getEnvOrDefault("PORT", "8080"),
		OutputDir:     getEnvOrDefault("OUTPUT_DIR", "/tmp/gemini-studio"),
		FrontendDist:  os.Getenv("FRONTEND_DIST"),
		CORSOrigins:   parseList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		MCPEnabled:    getEnvOrDefaultBool("MCP_ENABLED", true),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:     getEnvOrDefault("LOG_FORMAT", "text"),
		ServiceTokens: parseList(os.Getenv("SERVICE_TOKENS")),

		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
		FirebaseCredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseStorageBucket:   os.Getenv("FIREBASE_STORAGE_BUCKET"),

		StorageBackend: strings.ToLower(os.Getenv("STORAGE_BACKEND")),

		// S3 configuration
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Bucket:          getEnvOrDefault("S3_BUCKET", "gemini-studio"),
		S3Region:          getEnvOrDefault("S3_REGION", "us-east-1"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3UseSSL:          getEnvOrDefaultBool("S3_USE_SSL", true),
		S3PresignTTL:      getEnvOrDefaultDuration("S3_PRESIGN_TTL", 24*time.Hour),
		S3ObjectTTL:       getEnvOrDefaultDuration("S3_OBJECT_TTL", 24*time.Hour),
		S3CleanupInterval: getEnvOrDefaultDuration("S3_CLEANUP_INTERVAL", 1*time.Hour),

		SignedURLTTL: getEnvOrDefaultDuration("SIGNED_URL_TTL", 7*24*time.Hour),

		JinaAPIKey:    os.Getenv("JINA_API_KEY"),
		JinaReaderURL: getEnvOrDefault("JINA_READER_URL", "https://r.jina.ai"),
		CSEAPIKey:     os.Getenv("GCP_CSE_API_KEY"),
		CSEID:         os.Getenv("GCP_CSE_ID"),

		VideoPollInterval:   getEnvOrDefaultDuration("VIDEO_POLL_INTERVAL", 5*time.Second),
		VideoMaxPollRetries: getEnvOrDefaultInt("VIDEO_MAX_POLL_RETRIES", 10),
		VideoMaxWait:        getEnvOrDefaultDuration("VIDEO_MAX_WAIT", 15*time.Minute),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	config.S3Enabled = config.S3Endpoint != "" &&
		config.S3AccessKeyID != "" &&
		config.S3SecretAccessKey != ""

	return config, nil
}

// applyFile overlays values from a YAML file onto the environment configuration.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	overrideString(&c.Models.Text, fc.Models.Text)
	overrideString(&c.Models.Pro, fc.Models.Pro)
	overrideString(&c.Models.Image, fc.Models.Image)
	overrideString(&c.Models.ImagePro, fc.Models.ImagePro)
	overrideString(&c.Models.Imagen, fc.Models.Imagen)
	overrideString(&c.Models.Veo, fc.Models.Veo)

	if fc.Video.PollInterval != "" {
		d, err := time.ParseDuration(fc.Video.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid video.poll_interval: %w", err)
		}
		c.VideoPollInterval = d
	}
	if fc.Video.MaxWait != "" {
		d, err := time.ParseDuration(fc.Video.MaxWait)
		if err != nil {
			return fmt.Errorf("invalid video.max_wait: %w", err)
		}
		c.VideoMaxWait = d
	}
	if fc.Video.MaxPollRetries > 0 {
		c.VideoMaxPollRetries = fc.Video.MaxPollRetries
	}
	if len(fc.CORSOrigins) > 0 {
		c.CORSOrigins = fc.CORSOrigins
	}
	return nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseList parses a comma-separated list, dropping empty entries
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			result = append(result, t)
		}
	}
	return result
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.APIKey == "" && c.ProjectID == "" {
		return fmt.Errorf("GEMINI_API_KEY (or GOOGLE_API_KEY) or GOOGLE_PROJECT_ID environment variable is required")
	}
	switch c.StorageBackend {
	case "", "local", "s3", "firebase":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StorageBackend == "s3" && !c.S3Enabled {
		return fmt.Errorf("STORAGE_BACKEND=s3 requires S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY")
	}
	if c.VideoPollInterval <= 0 {
		return fmt.Errorf("VIDEO_POLL_INTERVAL must be positive")
	}
	return nil
}

// UploadConfig is a minimal config for the upload_media CLI
type UploadConfig struct {
	ServerURL string
	Token     string
}

// LoadUploadConfig loads defaults for the upload_media CLI from the environment
func LoadUploadConfig() *UploadConfig {
	return &UploadConfig{
		ServerURL: getEnvOrDefault("GEMINI_STUDIO_URL", "http://localhost:8080"),
		Token:     os.Getenv("FIREBASE_ID_TOKEN"),
	}
}

// Validate validates configuration for the upload CLI
func (c *UploadConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("--server or GEMINI_STUDIO_URL is required")
	}
	if c.Token == "" {
		return fmt.Errorf("--token or FIREBASE_ID_TOKEN is required")
	}
	return nil
}
