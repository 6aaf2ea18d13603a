// Package genai wraps the two remote model calls the service depends on:
// image-to-story generation and text-to-speech synthesis. Both sit behind
// small interfaces so handlers and tests never talk to a vendor SDK directly.
package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"fable/pkg/models"

	"github.com/sashabaranov/go-openai"
)

// ErrBadStoryFormat means the model answered outside the delimited format the
// prompt demands. Callers should surface this as a retryable client error.
var ErrBadStoryFormat = errors.New("story output did not match the expected format")

type StoryGenerator interface {
	GenerateStory(ctx context.Context, imagePath string) (models.GeneratedStory, error)
}

const storyPrompt = "This is an analysis task for the uploaded image. " +
	"1. Describe the content of the image concisely and clearly. " +
	"2. Identify the three most prominent objects in the image and briefly describe each. " +
	"3. Write a creative, heartwarming children's story of about 500 characters centered on those three objects. " +
	"4. The final output must contain only the following format: " +
	"{object1, object2, object3, story title: 'story title', story content: 'story content'}."

type OpenAIStoryGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIStoryGenerator(apiKey, model string) *OpenAIStoryGenerator {
	return &OpenAIStoryGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (g *OpenAIStoryGenerator) GenerateStory(ctx context.Context, imagePath string) (models.GeneratedStory, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return models.GeneratedStory{}, fmt.Errorf("read image: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: 600,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: storyPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + encoded,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return models.GeneratedStory{}, fmt.Errorf("story generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.GeneratedStory{}, errors.New("story generation: empty response")
	}

	return ParseStoryOutput(strings.TrimSpace(resp.Choices[0].Message.Content))
}

// ParseStoryOutput parses the model's delimited answer:
//
//	{object1, object2, object3, story title: 'title', story content: 'content'}
func ParseStoryOutput(out string) (models.GeneratedStory, error) {
	trimmed := strings.NewReplacer("{", "", "}", "").Replace(out)
	items := strings.SplitN(trimmed, ", ", 5)
	if len(items) != 5 {
		return models.GeneratedStory{}, ErrBadStoryFormat
	}

	name, okName := fieldValue(items[3])
	content, okContent := fieldValue(items[4])
	if !okName || !okContent || name == "" || content == "" {
		return models.GeneratedStory{}, ErrBadStoryFormat
	}

	var story models.GeneratedStory
	for i := 0; i < 3; i++ {
		story.Objects[i] = strings.TrimSpace(items[i])
	}
	story.Name = name
	story.Content = content
	return story, nil
}

func fieldValue(item string) (string, bool) {
	_, value, found := strings.Cut(item, ": ")
	if !found {
		return "", false
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "'")), true
}
