package main

import (
	"context"
	"database/sql"
	"log"
	"path/filepath"
	"time"

	"fable/pkg/cache"
	"fable/pkg/config"
	"fable/pkg/database"
	"fable/pkg/genai"
	"fable/pkg/handlers"
	"fable/pkg/middleware"
	"fable/pkg/ratelimit"
	"fable/pkg/repository"
	"fable/pkg/server"
	"fable/pkg/services"
	"fable/pkg/storage"
	"fable/pkg/token"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg.DatabaseURL)
	defer db.Close()

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	setupDatabase(db)

	log.Println("[FABLE] Connecting to Redis...")
	redis := cache.New(cfg.RedisURL)
	defer redis.Close()
	log.Println("[FABLE] Redis connected")

	images, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatal("[FABLE] upload directory:", err)
	}
	audios, err := storage.NewFileStore(cfg.AudioDir)
	if err != nil {
		log.Fatal("[FABLE] audio directory:", err)
	}

	generator := genai.NewOpenAIStoryGenerator(cfg.OpenAIKey, cfg.OpenAIModel)
	tts, err := genai.NewGoogleTTS(context.Background(), cfg.TTSLanguage, cfg.TTSVoice)
	if err != nil {
		log.Fatal("[FABLE] tts client:", err)
	}
	defer tts.Close()

	tokens := token.NewService(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	authRepo := repository.NewAuthRepository(db)
	storyRepo := repository.NewStoryRepository(db)

	authService := services.NewAuthService(authRepo, tokens)
	storyService := services.NewStoryService(storyRepo, redis, generator, tts, images, audios, cfg.PublicBaseURL)

	auth := handlers.NewAuth(authService, cfg.IsProduction())
	story := handlers.NewStory(storyService)

	// Counters live in redis so limits hold across instances.
	guards := ratelimit.New(cfg.Limits, redis.Counters())

	go sweepExpiredTokens(authRepo)

	app := server.NewApp("fable", cfg.CORSOrigins)

	authGroup := app.Group("/auth")
	authGroup.Post("/check-duplicate", auth.CheckDuplicate)
	authGroup.Post("/signup", guards.Signup(), auth.Signup)
	authGroup.Post("/login", guards.Login(), auth.Login)
	authGroup.Post("/refresh", auth.Refresh)
	authGroup.Post("/logout", auth.Logout)
	authGroup.Get("/me", middleware.Protected(tokens), auth.Me)

	// The global per-IP guard runs before the per-identity guard on every
	// two-tier route; generate and save share one global story budget.
	storyGroup := app.Group("/stories", middleware.Protected(tokens))
	storyGroup.Post("/generate", guards.GlobalStory(), guards.StoryGenerate(), story.Generate)
	storyGroup.Post("/", guards.GlobalStory(), guards.StorySave(), story.Save)
	storyGroup.Post("/preview-tts", guards.GlobalTTS(), guards.TTSPreview(), story.PreviewTTS)
	storyGroup.Get("/", story.List)
	storyGroup.Get("/:id", story.Get)
	storyGroup.Delete("/:id", story.Delete)

	app.Static("/"+filepath.Base(cfg.UploadDir), cfg.UploadDir)
	app.Static("/"+filepath.Base(cfg.AudioDir), cfg.AudioDir)

	addr := "0.0.0.0:" + cfg.Port
	log.Printf("[FABLE] Server starting on %s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("[FABLE] Failed to start: %v", err)
	}
}

func setupDatabase(db *sql.DB) {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			name VARCHAR(50) NOT NULL,
			password VARCHAR(128) NOT NULL,
			email VARCHAR(100) UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id SERIAL PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			token VARCHAR(512) UNIQUE NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			image_id SERIAL PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			original_filename VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS image_info (
			image_info_id SERIAL PRIMARY KEY,
			image_id INT NOT NULL REFERENCES images(image_id) ON DELETE CASCADE,
			image_url VARCHAR(255),
			image_description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS stories (
			story_id SERIAL PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			story_name VARCHAR(255) NOT NULL,
			story_content TEXT NOT NULL,
			image_id INT NOT NULL REFERENCES images(image_id) ON DELETE CASCADE,
			user_id INT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			audio_url VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, s := range schemas {
		db.Exec(s)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_token ON refresh_tokens(token)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires ON refresh_tokens(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_images_user ON images(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_stories_user_created ON stories(user_id, created_at DESC)`,
	}

	for _, idx := range indexes {
		db.Exec(idx)
	}

	log.Println("[DB] Schema initialized")
}

// Expired rows only block storage space; tokens past expiry already fail
// verification. The sweep just keeps the table small.
func sweepExpiredTokens(repo repository.AuthRepository) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		if n, err := repo.DeleteExpiredRefreshTokens(); err != nil {
			log.Println("[AUTH] expired-token sweep failed:", err)
		} else if n > 0 {
			log.Printf("[AUTH] removed %d expired refresh tokens", n)
		}
	}
}
