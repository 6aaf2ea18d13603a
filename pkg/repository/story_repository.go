package repository

import (
	"database/sql"

	"fable/pkg/models"
)

type StoryRepository interface {
	CreateImage(userID int, originalFilename string) (models.Image, error)
	CreateImageInfo(imageID int, imageURL, description string) (models.ImageInfo, error)
	GetImageByID(imageID int) (models.Image, error)
	CreateStory(story models.Story) (models.Story, error)
	ListByUser(userID int) ([]models.Story, error)
	GetByID(storyID int) (models.Story, error)
	Delete(storyID, userID int) (bool, error)
}

type storyRepository struct {
	db *sql.DB
}

func NewStoryRepository(db *sql.DB) StoryRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) CreateImage(userID int, originalFilename string) (models.Image, error) {
	img := models.Image{UserID: userID, OriginalFilename: originalFilename}
	err := r.db.QueryRow(
		`INSERT INTO images (user_id, original_filename) VALUES ($1, $2) RETURNING image_id`,
		userID, originalFilename,
	).Scan(&img.ID)
	return img, err
}

func (r *storyRepository) CreateImageInfo(imageID int, imageURL, description string) (models.ImageInfo, error) {
	info := models.ImageInfo{ImageID: imageID, ImageURL: imageURL, Description: description}
	err := r.db.QueryRow(
		`INSERT INTO image_info (image_id, image_url, image_description)
		 VALUES ($1, $2, $3) RETURNING image_info_id`,
		imageID, imageURL, description,
	).Scan(&info.ID)
	return info, err
}

func (r *storyRepository) GetImageByID(imageID int) (models.Image, error) {
	var img models.Image
	err := r.db.QueryRow(
		`SELECT image_id, user_id, original_filename FROM images WHERE image_id = $1`, imageID,
	).Scan(&img.ID, &img.UserID, &img.OriginalFilename)
	return img, err
}

func (r *storyRepository) CreateStory(story models.Story) (models.Story, error) {
	var audioURL sql.NullString
	if story.AudioURL != "" {
		audioURL = sql.NullString{String: story.AudioURL, Valid: true}
	}
	err := r.db.QueryRow(
		`INSERT INTO stories (filename, story_name, story_content, image_id, user_id, audio_url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING story_id, created_at`,
		story.Filename, story.Name, story.Content, story.ImageID, story.UserID, audioURL,
	).Scan(&story.ID, &story.CreatedAt)
	return story, err
}

func (r *storyRepository) ListByUser(userID int) ([]models.Story, error) {
	rows, err := r.db.Query(
		`SELECT story_id, filename, story_name, story_content, image_id, user_id, audio_url, created_at
		 FROM stories WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		var s models.Story
		var audioURL sql.NullString
		if err := rows.Scan(&s.ID, &s.Filename, &s.Name, &s.Content, &s.ImageID, &s.UserID, &audioURL, &s.CreatedAt); err == nil {
			s.AudioURL = audioURL.String
			stories = append(stories, s)
		}
	}
	return stories, nil
}

func (r *storyRepository) GetByID(storyID int) (models.Story, error) {
	var s models.Story
	var audioURL sql.NullString
	err := r.db.QueryRow(
		`SELECT story_id, filename, story_name, story_content, image_id, user_id, audio_url, created_at
		 FROM stories WHERE story_id = $1`, storyID,
	).Scan(&s.ID, &s.Filename, &s.Name, &s.Content, &s.ImageID, &s.UserID, &audioURL, &s.CreatedAt)
	s.AudioURL = audioURL.String
	return s, err
}

func (r *storyRepository) Delete(storyID, userID int) (bool, error) {
	res, err := r.db.Exec(
		`DELETE FROM stories WHERE story_id = $1 AND user_id = $2`, storyID, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
