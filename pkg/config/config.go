package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the process needs at startup. It is built once in
// main and handed to constructors; nothing else reads the environment.
type Config struct {
	Port        string
	Environment string

	DatabaseURL string
	RedisURL    string

	CORSOrigins string

	UploadDir     string
	AudioDir      string
	PublicBaseURL string

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	OpenAIKey   string
	OpenAIModel string
	TTSLanguage string
	TTSVoice    string

	Limits Limits
}

// Limits holds the admission-control ceilings. All windows default to one hour.
type Limits struct {
	Window        time.Duration
	GlobalStory   int // shared by generate + save, per IP
	GlobalTTS     int // per IP
	StoryGenerate int // per user+IP
	StorySave     int // per user+IP
	TTSPreview    int // per user+IP
	Login         int // per IP
	Signup        int // per IP
}

var required = []string{"DATABASE_URL", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET"}

// Load reads .env if present, checks required variables and builds the Config.
func Load() *Config {
	_ = godotenv.Load()

	for _, name := range required {
		if os.Getenv(name) == "" {
			log.Fatalf("[CONFIG] required environment variable %s is not set", name)
		}
	}

	cfg := &Config{
		Port:        GetEnv("PORT", "8000"),
		Environment: GetEnv("GO_ENV", "development"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		CORSOrigins: GetEnv("CORS_ORIGINS", "http://localhost:3000"),

		UploadDir:     GetEnv("UPLOAD_DIRECTORY", "images"),
		AudioDir:      GetEnv("AUDIO_DIRECTORY", "audios"),
		PublicBaseURL: GetEnv("PUBLIC_BASE_URL", "http://localhost:8000"),

		AccessSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTTL:     time.Duration(GetEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 15)) * time.Minute,
		RefreshTTL:    time.Duration(GetEnvAsInt("REFRESH_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour,

		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: GetEnv("OPENAI_MODEL", "gpt-4o"),
		TTSLanguage: GetEnv("TTS_LANGUAGE_CODE", "en-US"),
		TTSVoice:    GetEnv("TTS_VOICE_NAME", "en-US-Neural2-F"),

		Limits: Limits{
			Window:        time.Duration(GetEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 60)) * time.Minute,
			GlobalStory:   GetEnvAsInt("RATE_LIMIT_GLOBAL_STORY", 5),
			GlobalTTS:     GetEnvAsInt("RATE_LIMIT_GLOBAL_TTS", 5),
			StoryGenerate: GetEnvAsInt("RATE_LIMIT_STORY_GENERATE", 3),
			StorySave:     GetEnvAsInt("RATE_LIMIT_STORY_SAVE", 5),
			TTSPreview:    GetEnvAsInt("RATE_LIMIT_TTS_PREVIEW", 3),
			Login:         GetEnvAsInt("RATE_LIMIT_LOGIN", 5),
			Signup:        GetEnvAsInt("RATE_LIMIT_SIGNUP", 3),
		},
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("[CONFIG] invalid integer for %s: %s, using default %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
