package teacher

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"school-api/config"
	"school-api/internal/database/model"
	"school-api/internal/middleware"
	teachersvc "school-api/internal/services/teacher"
	"school-api/internal/validation"
	"school-api/pkg/apperror"
	"school-api/pkg/apperror/status"
	"school-api/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

type Service interface {
	Create(ctx context.Context, actor *model.User, req teachersvc.CreateRequest) (*model.TeacherProfile, error)
	List(ctx context.Context, skip, limit int) (*teachersvc.Page, error)
	ListAll(ctx context.Context) ([]model.TeacherProfile, error)
	Get(ctx context.Context, id int64) (*model.TeacherProfile, error)
	GetByUser(ctx context.Context, userID int64) (*model.TeacherProfile, error)
	Update(ctx context.Context, id int64, req teachersvc.UpdateRequest) (*model.TeacherProfile, error)
	Deactivate(ctx context.Context, id int64) (*model.TeacherProfile, error)
	Activate(ctx context.Context, id int64) (*model.TeacherProfile, error)
	Search(ctx context.Context, query string, topK int) ([]model.TeacherProfile, error)
	Reindex(ctx context.Context) (int, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type reindexResponse struct {
	Indexed int `json:"indexed"`
}

func (h *Handler) Create(c fiber.Ctx) error {
	var req teachersvc.CreateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidRequestBody, "invalid request body")
	}
	req.Normalize()
	if errs := validation.ValidateStruct(req); errs != nil {
		return apperror.ValidationFailed(config.ModuleTeacher, c, status.TeacherValidationFailed, errs)
	}

	profile, err := h.svc.Create(c.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return apperror.Created(config.ModuleTeacher, c, "Teacher profile created", profile)
}

// List pages through active profiles with ?skip=&limit=.
func (h *Handler) List(c fiber.Ctx) error {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidParams, "skip must be an integer")
	}
	limit, err := queryInt(c, "limit", teachersvc.DefaultLimit)
	if err != nil {
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidParams, "limit must be an integer")
	}

	page, err := h.svc.List(c.Context(), skip, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return apperror.Success(config.ModuleTeacher, c, apperror.FiberSuccessMessage{
		Message: "Teacher profiles",
		Data:    page.Items,
		Meta:    &apperror.Meta{Skip: page.Skip, Limit: page.Limit, Total: page.Total},
	})
}

func (h *Handler) ListAll(c fiber.Ctx) error {
	profiles, err := h.svc.ListAll(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return apperror.Success(config.ModuleTeacher, c, apperror.FiberSuccessMessage{
		Message: "Teacher profiles",
		Data:    profiles,
	})
}

func (h *Handler) Get(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidParams, "invalid teacher id")
	}
	return h.respond(c, "Teacher profile", func(ctx context.Context) (*model.TeacherProfile, error) {
		return h.svc.Get(ctx, id)
	})
}

func (h *Handler) GetByUser(c fiber.Ctx) error {
	userID, err := pathID(c, "userID")
	if err != nil {
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidParams, "invalid user id")
	}
	return h.respond(c, "Teacher profile", func(ctx context.Context) (*model.TeacherProfile, error) {
		return h.svc.GetByUser(ctx, userID)
	})
}

func (h *Handler) Update(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidParams, "invalid teacher id")
	}
	var req teachersvc.UpdateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidRequestBody, "invalid request body")
	}
	req.Normalize()
	if errs := validation.ValidateStruct(req); errs != nil {
		return apperror.ValidationFailed(config.ModuleTeacher, c, status.TeacherValidationFailed, errs)
	}
	return h.respond(c, "Teacher profile updated", func(ctx context.Context) (*model.TeacherProfile, error) {
		return h.svc.Update(ctx, id, req)
	})
}

func (h *Handler) Deactivate(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidParams, "invalid teacher id")
	}
	return h.respond(c, "Teacher profile deactivated", func(ctx context.Context) (*model.TeacherProfile, error) {
		return h.svc.Deactivate(ctx, id)
	})
}

func (h *Handler) Activate(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidParams, "invalid teacher id")
	}
	return h.respond(c, "Teacher profile activated", func(ctx context.Context) (*model.TeacherProfile, error) {
		return h.svc.Activate(ctx, id)
	})
}

// Search matches ?q= against profile embeddings; ?top_k= caps the result count.
func (h *Handler) Search(c fiber.Ctx) error {
	topK, err := queryInt(c, "top_k", 0)
	if err != nil || topK < 0 {
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidParams, "top_k must be a positive integer")
	}

	profiles, err := h.svc.Search(c.Context(), c.Query("q"), topK)
	if err != nil {
		return h.fail(c, err)
	}
	return apperror.Success(config.ModuleTeacher, c, apperror.FiberSuccessMessage{
		Message: "Search results",
		Data:    profiles,
	})
}

func (h *Handler) Reindex(c fiber.Ctx) error {
	n, err := h.svc.Reindex(c.Context())
	if errors.Is(err, teachersvc.ErrSearchDisabled) {
		return h.fail(c, err)
	}

	message := "Teacher profiles reindexed"
	if err != nil {
		logger.Error(err, "%v: reindex finished with errors", config.ModuleRetriever)
		message = "Teacher profiles reindexed with errors"
	}
	return apperror.Success(config.ModuleTeacher, c, apperror.FiberSuccessMessage{
		Message: message,
		Data:    reindexResponse{Indexed: n},
	})
}

func (h *Handler) respond(c fiber.Ctx, message string, fn func(ctx context.Context) (*model.TeacherProfile, error)) error {
	profile, err := fn(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return apperror.Success(config.ModuleTeacher, c, apperror.FiberSuccessMessage{
		Message: message,
		Data:    profile,
	})
}

func (h *Handler) fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, teachersvc.ErrNotFound):
		return apperror.NotFound(config.ModuleTeacher, c, status.TeacherNotFound, "Teacher profile not found")
	case errors.Is(err, teachersvc.ErrUserNotFound):
		return apperror.NotFound(config.ModuleTeacher, c, status.TeacherUserNotFound, "User not found")
	case errors.Is(err, teachersvc.ErrProfileExists):
		return apperror.Conflict(config.ModuleTeacher, c, status.TeacherProfileExists, err.Error())
	case errors.Is(err, teachersvc.ErrEmailTaken):
		return apperror.Conflict(config.ModuleTeacher, c, status.TeacherEmailTaken, "Email already registered")
	case errors.Is(err, teachersvc.ErrBlankName):
		return apperror.ValidationFailed(config.ModuleTeacher, c, status.TeacherValidationFailed, map[string]string{"name": err.Error()})
	case errors.Is(err, teachersvc.ErrForbidden):
		return apperror.Forbidden(config.ModuleTeacher, c, status.AuthForbidden, "insufficient permissions")
	case errors.Is(err, teachersvc.ErrInvalidPage), errors.Is(err, teachersvc.ErrEmptyQuery):
		return apperror.BadRequest(config.ModuleTeacher, c, status.TeacherInvalidParams, err.Error())
	case errors.Is(err, teachersvc.ErrSearchDisabled):
		return apperror.WriteError(config.ModuleTeacher, c, fiber.StatusServiceUnavailable, status.TeacherSearchDisabled, err.Error(), nil)
	}
	return apperror.InternalError(config.ModuleTeacher, c, err)
}

func queryInt(c fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func pathID(c fiber.Ctx, key string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(key), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
