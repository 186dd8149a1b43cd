package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/tiktok-scheduler/internal/service"
	"github.com/maheshrc27/tiktok-scheduler/internal/transfer"
)

type UploadHandler struct {
	st service.StorageService
	ts service.TokenService
	ps service.PublishService
}

func NewUploadHandler(st service.StorageService, ts service.TokenService, ps service.PublishService) *UploadHandler {
	return &UploadHandler{st: st, ts: ts, ps: ps}
}

// UploadVideo stores the multipart "video" file and pushes it to TikTok,
// returning the upload session id for a later publish.
func (h *UploadHandler) UploadVideo(c *fiber.Ctx) error {
	userID := GetUserID(c)
	account := accountOrDefault(c.FormValue("account"))

	fh, err := c.FormFile("video")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "video file is required",
		})
	}
	src, err := fh.Open()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read upload",
		})
	}
	defer src.Close()

	stored, err := h.st.SaveUpload(c.Context(), userID, fh.Filename, src)
	if err != nil {
		return fail(c, err)
	}
	defer stored.Close()

	token, err := h.ts.GetValidAccessToken(c.Context(), userID, account)
	if err != nil {
		if derr := h.st.Delete(c.Context(), stored.Media); derr != nil {
			slog.Error("remove rejected upload", "file", stored.Filename, "error", derr)
		}
		return fail(c, err)
	}

	videoID, err := h.ps.UploadAndGetID(c.Context(), token, stored.LocalPath, c.FormValue("title"))
	if err != nil {
		slog.Error("tiktok upload failed", "user_id", userID, "account", account, "error", err)
		if derr := h.st.Delete(c.Context(), stored.Media); derr != nil {
			slog.Error("remove rejected upload", "file", stored.Filename, "error", derr)
		}
		return fail(c, err)
	}

	slog.Info("video uploaded", "user_id", userID, "account", account, "video_id", videoID)
	return c.JSON(transfer.UploadResult{
		Success:     true,
		VideoID:     videoID,
		FilePath:    stored.Media.Value,
		StorageType: h.st.Type(),
	})
}

func (h *UploadHandler) DeleteVideo(c *fiber.Ctx) error {
	if err := h.st.DeleteUpload(c.Context(), GetUserID(c), c.Params("filename")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
