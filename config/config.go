package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Settings gathers all environment-driven configuration. Zero values mean
// the corresponding feature stays disabled or falls back to a local engine.
type Settings struct {
	// Text generation
	CohereAPIKey string
	CohereModel  string
	OllamaURL    string
	OllamaModel  string

	// Image generation
	OpenAIAPIKey string
	SDWebUIURL   string
	ImageQuality string // "hd" or "standard"

	// Speech synthesis
	TTSVoice    string
	LocalTTSURL string

	// Background music
	PixabayAPIKey string

	// YouTube upload
	YouTubeCredentialsFile string
	YouTubeChannelID       string

	// History store
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Artifact archive
	S3Bucket       string
	S3Region       string
	S3Prefix       string
	S3UsePathStyle bool

	// Job queue
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string

	// Paths
	OutputRoot string
	CacheDir   string
}

// Load reads .env if present and builds Settings from the environment.
func Load() Settings {
	_ = godotenv.Load()

	return Settings{
		CohereAPIKey: env("COHERE_API_KEY", ""),
		CohereModel:  env("COHERE_MODEL", "command-r-plus"),
		OllamaURL:    env("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:  env("OLLAMA_MODEL", "llama3.1"),

		OpenAIAPIKey: env("OPENAI_API_KEY", ""),
		SDWebUIURL:   env("SD_WEBUI_URL", ""),
		ImageQuality: env("IMAGE_QUALITY", "standard"),

		TTSVoice:    env("TTS_VOICE", "alloy"),
		LocalTTSURL: env("LOCAL_TTS_URL", ""),

		PixabayAPIKey: env("PIXABAY_API_KEY", ""),

		YouTubeCredentialsFile: env("YOUTUBE_CREDENTIALS_FILE", ""),
		YouTubeChannelID:       env("YOUTUBE_CHANNEL_ID", ""),

		RedisAddr:     env("REDIS_ADDR", ""),
		RedisPassword: env("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		S3Bucket:       env("S3_BUCKET", ""),
		S3Region:       env("S3_REGION", ""),
		S3Prefix:       env("S3_PREFIX", ""),
		S3UsePathStyle: strings.EqualFold(env("S3_USE_PATH_STYLE", ""), "true"),

		KafkaBrokers: env("KAFKA_BOOTSTRAP_SERVERS", ""),
		KafkaTopic:   env("KAFKA_TOPIC_VIDEO_JOBS", "video-jobs"),
		KafkaGroupID: env("KAFKA_CONSUMER_GROUP_ID", "articlecast"),

		OutputRoot: env("OUTPUT_ROOT", "output"),
		CacheDir:   env("CACHE_DIR", "cache"),
	}
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
