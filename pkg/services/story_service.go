package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"fable/pkg/apperr"
	"fable/pkg/cache"
	"fable/pkg/genai"
	"fable/pkg/models"
	"fable/pkg/repository"
	"fable/pkg/storage"

	"github.com/google/uuid"
)

type StoryService interface {
	GenerateFromUpload(ctx context.Context, userID int, originalFilename string, data []byte) (models.GenerateStoryResponse, error)
	Save(ctx context.Context, userID int, req models.SaveStoryRequest) (models.Story, error)
	PreviewTTS(ctx context.Context, req models.PreviewTTSRequest) (string, error)
	List(userID int) ([]models.Story, error)
	Get(userID, storyID int) (models.Story, error)
	Delete(userID, storyID int) error
}

type storyService struct {
	repo      repository.StoryRepository
	redis     *cache.Redis
	generator genai.StoryGenerator
	tts       genai.SpeechSynthesizer
	images    *storage.FileStore
	audios    *storage.FileStore
	baseURL   string
}

func NewStoryService(
	repo repository.StoryRepository,
	redis *cache.Redis,
	generator genai.StoryGenerator,
	tts genai.SpeechSynthesizer,
	images, audios *storage.FileStore,
	baseURL string,
) StoryService {
	return &storyService{
		repo:      repo,
		redis:     redis,
		generator: generator,
		tts:       tts,
		images:    images,
		audios:    audios,
		baseURL:   baseURL,
	}
}

// GenerateFromUpload stores the uploaded image, records it, and asks the
// vision model for a story. Nothing story-related is persisted here; saving
// is a separate call with its own admission budget.
func (s *storyService) GenerateFromUpload(ctx context.Context, userID int, originalFilename string, data []byte) (models.GenerateStoryResponse, error) {
	storedName := uuid.NewString() + strings.ToLower(filepath.Ext(originalFilename))

	path, err := s.images.Save(storedName, data)
	if err != nil {
		return models.GenerateStoryResponse{}, err
	}

	image, err := s.repo.CreateImage(userID, storedName)
	if err != nil {
		return models.GenerateStoryResponse{}, err
	}

	imageURL := s.publicURL(s.images, storedName)
	if _, err := s.repo.CreateImageInfo(image.ID, imageURL, ""); err != nil {
		return models.GenerateStoryResponse{}, err
	}

	generated, err := s.generator.GenerateStory(ctx, path)
	if err != nil {
		if errors.Is(err, genai.ErrBadStoryFormat) {
			return models.GenerateStoryResponse{}, apperr.BadRequest("prompt error, please try again")
		}
		return models.GenerateStoryResponse{}, err
	}

	return models.GenerateStoryResponse{
		Filename: storedName,
		Name:     generated.Name,
		Content:  generated.Content,
		ImageID:  image.ID,
		ImageURL: imageURL,
	}, nil
}

// Save persists the story. Narration is attempted but never blocks the save;
// a TTS failure just leaves audio_url empty.
func (s *storyService) Save(ctx context.Context, userID int, req models.SaveStoryRequest) (models.Story, error) {
	image, err := s.repo.GetImageByID(req.ImageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Story{}, apperr.NotFound("image not found")
	}
	if err != nil {
		return models.Story{}, err
	}
	if image.UserID != userID {
		return models.Story{}, apperr.NotFound("image not found")
	}

	audioURL := ""
	if audio, err := s.tts.Synthesize(ctx, req.Content); err != nil {
		log.Println("[STORY] tts failed, saving without narration:", err)
	} else {
		name := audioName(req.Filename)
		if _, err := s.audios.Save(name, audio); err != nil {
			log.Println("[STORY] audio write failed, saving without narration:", err)
		} else {
			audioURL = s.publicURL(s.audios, name)
		}
	}

	story, err := s.repo.CreateStory(models.Story{
		Filename: req.Filename,
		Name:     req.Name,
		Content:  req.Content,
		ImageID:  req.ImageID,
		UserID:   userID,
		AudioURL: audioURL,
	})
	if err != nil {
		if isDuplicateKey(err) {
			return models.Story{}, apperr.BadRequest("a story was already saved for this image")
		}
		return models.Story{}, err
	}

	s.redis.DelPattern(fmt.Sprintf("stories:%d:*", userID))
	return story, nil
}

func (s *storyService) PreviewTTS(ctx context.Context, req models.PreviewTTSRequest) (string, error) {
	audio, err := s.tts.Synthesize(ctx, req.Content)
	if err != nil {
		return "", err
	}

	name := audioName(req.Filename)
	if _, err := s.audios.Save(name, audio); err != nil {
		return "", err
	}
	return s.publicURL(s.audios, name), nil
}

func (s *storyService) List(userID int) ([]models.Story, error) {
	cacheKey := fmt.Sprintf("stories:%d:list", userID)
	var cached []models.Story
	if s.redis.Get(cacheKey, &cached) {
		return cached, nil
	}

	stories, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	s.redis.Set(cacheKey, stories, 30*time.Second)
	return stories, nil
}

func (s *storyService) Get(userID, storyID int) (models.Story, error) {
	story, err := s.repo.GetByID(storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Story{}, apperr.NotFound("story not found")
	}
	if err != nil {
		return models.Story{}, err
	}
	if story.UserID != userID {
		return models.Story{}, apperr.NotFound("story not found")
	}
	return story, nil
}

// Delete removes the row and then the blobs. Blob cleanup failures are logged
// and swallowed; the row is already gone and a re-run would be a no-op.
func (s *storyService) Delete(userID, storyID int) error {
	story, err := s.Get(userID, storyID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(storyID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("story not found")
	}

	if err := s.images.Delete(story.Filename); err != nil {
		log.Println("[STORY] image cleanup failed:", err)
	}
	if err := s.audios.Delete(audioName(story.Filename)); err != nil {
		log.Println("[STORY] audio cleanup failed:", err)
	}

	s.redis.DelPattern(fmt.Sprintf("stories:%d:*", userID))
	return nil
}

func (s *storyService) publicURL(store *storage.FileStore, name string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, filepath.Base(store.Dir()), name)
}

func audioName(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) + ".mp3"
}
