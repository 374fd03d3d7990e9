package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"school-api/config"
	"school-api/internal/database/model"
	"school-api/internal/services/teacher"
	"school-api/pkg/apperror"
	"school-api/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Profiles interface {
	Get(ctx context.Context, id int64) (*model.TeacherProfile, error)
	SetImage(ctx context.Context, id int64, url string) (*model.TeacherProfile, error)
}

type Handler struct {
	profiles Profiles
	store    ImageStore
	maxBytes int64
}

func NewHandler(profiles Profiles, store ImageStore, maxBytes int64) *Handler {
	return &Handler{profiles: profiles, store: store, maxBytes: maxBytes}
}

// HandleTeacherImage stores the multipart "file" and sets it as the profile image.
func (h *Handler) HandleTeacherImage(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperror.BadRequest(config.ModuleUpload, c, status.TeacherInvalidParams, "invalid teacher id")
	}

	fh, err := c.FormFile("file")
	if err != nil || fh == nil {
		return apperror.BadRequest(config.ModuleUpload, c, status.UploadMissingFile, "file is required")
	}
	if fh.Size == 0 {
		return apperror.BadRequest(config.ModuleUpload, c, status.UploadMissingFile, "empty file")
	}
	if fh.Size > h.maxBytes {
		return h.tooLarge(c)
	}

	file, err := fh.Open()
	if err != nil {
		return apperror.BadRequest(config.ModuleUpload, c, status.UploadMissingFile, "cannot open file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return apperror.InternalError(config.ModuleUpload, c, err)
	}
	if int64(len(data)) > h.maxBytes {
		return h.tooLarge(c)
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return apperror.WriteError(config.ModuleUpload, c, fiber.StatusUnsupportedMediaType, status.UploadUnsupportedType,
			"file must be a png, jpeg, gif or webp image", nil)
	}

	if _, err := h.profiles.Get(c.Context(), id); err != nil {
		return h.profileError(c, err)
	}

	sum := sha256.Sum256(data)
	key := fmt.Sprintf("teachers/%s%s", hex.EncodeToString(sum[:]), ext)
	url, err := h.store.Put(c.Context(), key, data, contentType)
	if err != nil {
		return apperror.InternalError(config.ModuleUpload, c, err)
	}

	profile, err := h.profiles.SetImage(c.Context(), id, url)
	if err != nil {
		return h.profileError(c, err)
	}

	return apperror.Success(config.ModuleUpload, c, apperror.FiberSuccessMessage{
		Message: "Image uploaded successfully",
		Data:    profile,
	})
}

func (h *Handler) tooLarge(c fiber.Ctx) error {
	return apperror.WriteError(config.ModuleUpload, c, fiber.StatusRequestEntityTooLarge, status.UploadTooLarge,
		fmt.Sprintf("file exceeds %d bytes", h.maxBytes), nil)
}

func (h *Handler) profileError(c fiber.Ctx, err error) error {
	if errors.Is(err, teacher.ErrNotFound) {
		return apperror.NotFound(config.ModuleUpload, c, status.TeacherNotFound, err.Error())
	}
	return apperror.InternalError(config.ModuleUpload, c, err)
}
