package handlers

import (
	"io"

	"fable/pkg/apperr"
	"fable/pkg/models"
	"fable/pkg/services"

	"github.com/gofiber/fiber/v2"
)

type StoryHandler struct {
	stories services.StoryService
}

func NewStory(stories services.StoryService) *StoryHandler {
	return &StoryHandler{stories: stories}
}

func (h *StoryHandler) Generate(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fail(c, "STORY", apperr.BadRequest("file upload failed"))
	}

	src, err := file.Open()
	if err != nil {
		return fail(c, "STORY", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return fail(c, "STORY", err)
	}

	userID := c.Locals("user_id").(int)
	resp, err := h.stories.GenerateFromUpload(c.Context(), userID, file.Filename, data)
	if err != nil {
		return fail(c, "STORY", err)
	}
	return c.JSON(resp)
}

func (h *StoryHandler) Save(c *fiber.Ctx) error {
	req, err := parseBody[models.SaveStoryRequest](c)
	if err != nil {
		return fail(c, "STORY", err)
	}

	userID := c.Locals("user_id").(int)
	story, err := h.stories.Save(c.Context(), userID, req)
	if err != nil {
		return fail(c, "STORY", err)
	}
	return c.Status(fiber.StatusCreated).JSON(story)
}

func (h *StoryHandler) PreviewTTS(c *fiber.Ctx) error {
	req, err := parseBody[models.PreviewTTSRequest](c)
	if err != nil {
		return fail(c, "STORY", err)
	}

	audioURL, err := h.stories.PreviewTTS(c.Context(), req)
	if err != nil {
		return fail(c, "STORY", err)
	}
	return c.JSON(fiber.Map{"audio_url": audioURL})
}

func (h *StoryHandler) List(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)
	stories, err := h.stories.List(userID)
	if err != nil {
		return fail(c, "STORY", err)
	}
	if stories == nil {
		stories = []models.Story{}
	}
	return c.JSON(fiber.Map{"stories": stories})
}

func (h *StoryHandler) Get(c *fiber.Ctx) error {
	storyID, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, "STORY", apperr.BadRequest("invalid story id"))
	}

	userID := c.Locals("user_id").(int)
	story, err := h.stories.Get(userID, storyID)
	if err != nil {
		return fail(c, "STORY", err)
	}
	return c.JSON(story)
}

func (h *StoryHandler) Delete(c *fiber.Ctx) error {
	storyID, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, "STORY", apperr.BadRequest("invalid story id"))
	}

	userID := c.Locals("user_id").(int)
	if err := h.stories.Delete(userID, storyID); err != nil {
		return fail(c, "STORY", err)
	}
	return c.JSON(fiber.Map{"message": "story deleted"})
}
