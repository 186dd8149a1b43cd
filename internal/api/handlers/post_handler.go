package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	"github.com/maheshrc27/tiktok-scheduler/internal/service"
	"github.com/maheshrc27/tiktok-scheduler/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func postID(c *fiber.Ctx) (int64, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return int64(id), true
}

func badPostID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid post id",
	})
}

// publishResult reports a publish attempt. A failed publish still returns
// the settled post next to the error.
func publishResult(c *fiber.Ctx, status int, post *models.Post, err error) error {
	if err == nil {
		return c.Status(status).JSON(post)
	}
	code, body := errorBody(err)
	if post != nil {
		body["post"] = post
	}
	return c.Status(code).JSON(body)
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	post, err := h.s.CreatePost(c.Context(), userID, &pc)
	return publishResult(c, fiber.StatusCreated, post, err)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	posts, err := h.s.List(c.Context(), userID, models.PostFilter{
		Status:   c.Query("status"),
		Platform: c.Query("platform"),
	})
	if err != nil {
		return fail(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return c.JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	id, ok := postID(c)
	if !ok {
		return badPostID(c)
	}

	post, err := h.s.PostInfo(c.Context(), GetUserID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	id, ok := postID(c)
	if !ok {
		return badPostID(c)
	}

	var pe transfer.PostEdit
	if err := c.BodyParser(&pe); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	post, err := h.s.UpdatePost(c.Context(), GetUserID(c), id, &pe)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	id, ok := postID(c)
	if !ok {
		return badPostID(c)
	}

	if err := h.s.Remove(c.Context(), GetUserID(c), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	id, ok := postID(c)
	if !ok {
		return badPostID(c)
	}

	post, err := h.s.PublishNow(c.Context(), GetUserID(c), id)
	return publishResult(c, fiber.StatusOK, post, err)
}

func (h *PostHandler) PostHistory(c *fiber.Ctx) error {
	id, ok := postID(c)
	if !ok {
		return badPostID(c)
	}

	history, err := h.s.History(c.Context(), GetUserID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(history)
}
