package models

import "time"

type Image struct {
	ID               int    `json:"image_id"`
	UserID           int    `json:"user_id"`
	OriginalFilename string `json:"original_filename"`
}

type ImageInfo struct {
	ID          int    `json:"image_info_id"`
	ImageID     int    `json:"image_id"`
	ImageURL    string `json:"image_url"`
	Description string `json:"image_description"`
}

type Story struct {
	ID        int       `json:"story_id"`
	Filename  string    `json:"filename"`
	Name      string    `json:"story_name"`
	Content   string    `json:"story_content"`
	ImageID   int       `json:"image_id"`
	UserID    int       `json:"user_id"`
	AudioURL  string    `json:"audio_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GeneratedStory is the parsed output of the vision model: three key objects
// spotted in the image plus the story itself.
type GeneratedStory struct {
	Objects [3]string `json:"objects"`
	Name    string    `json:"story_name"`
	Content string    `json:"story_content"`
}

type SaveStoryRequest struct {
	Filename string `json:"filename" validate:"required"`
	Name     string `json:"story_name" validate:"required,max=255"`
	Content  string `json:"story_content" validate:"required"`
	ImageID  int    `json:"image_id" validate:"required"`
}

type PreviewTTSRequest struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"story_content" validate:"required"`
}

type GenerateStoryResponse struct {
	Filename string `json:"filename"`
	Name     string `json:"story_name"`
	Content  string `json:"story_content"`
	ImageID  int    `json:"image_id"`
	ImageURL string `json:"image_url"`
}
