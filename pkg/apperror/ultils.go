package apperror

import (
	"errors"
	"fmt"

	"school-api/config"
	"school-api/pkg/apperror/status"
	"school-api/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

type FiberSuccessMessage struct {
	Code       status.SuccessCode `json:"code"`
	Message    string             `json:"message"`
	TrackingID string             `json:"tracking_id"`
	Data       any                `json:"data"`
	Meta       *Meta              `json:"meta,omitempty"`
}

// Code renders an ErrorCode the way clients see it.
func Code(code status.ErrorCode) string {
	return fmt.Sprintf("SCH-%d", code)
}

// TrackingID returns the request id set by the client or by the requestid middleware.
func TrackingID(c fiber.Ctx) string {
	if id := c.Get(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

// WriteError logs a structured warning and returns a standardized JSON error
func WriteError(module config.Module, c fiber.Ctx, httpStatus int, code status.ErrorCode, message string, details map[string]string) error {
	logger.WithFields(map[string]interface{}{
		"module":        module,
		"status_code":   httpStatus,
		"error_code":    Code(code),
		"error_message": message,
		"http_method":   c.Method(),
		"path":          c.Path(),
		"ip":            c.IP(),
		"tracking_id":   TrackingID(c),
	}).Warnf("http error")

	return c.Status(httpStatus).JSON(ErrorResponse{
		Error:     message,
		ErrorCode: Code(code),
		Details:   details,
	})
}

// Shorthands for common error responses

func BadRequest(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusBadRequest, code, message, nil)
}

// ValidationFailed reports per-field validation messages.
func ValidationFailed(module config.Module, c fiber.Ctx, code status.ErrorCode, details map[string]string) error {
	return WriteError(module, c, fiber.StatusUnprocessableEntity, code, "validation failed", details)
}

func Unauthorized(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return WriteError(module, c, fiber.StatusUnauthorized, code, message, nil)
}

func Forbidden(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusForbidden, code, message, nil)
}

func NotFound(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusNotFound, code, message, nil)
}

func Conflict(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusConflict, code, message, nil)
}

func TooManyRequests(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusTooManyRequests, code, message, nil)
}

// InternalError logs the cause and answers with a generic 500.
func InternalError(module config.Module, c fiber.Ctx, err error) error {
	logger.WithFields(map[string]interface{}{
		"module":      module,
		"http_method": c.Method(),
		"path":        c.Path(),
		"tracking_id": TrackingID(c),
	}).WithError(err).Errorf("internal error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:     "internal server error",
		ErrorCode: Code(status.ErrorCodeInternal),
	})
}

// Success writes a standardized JSON success response
func Success(module config.Module, c fiber.Ctx, response FiberSuccessMessage) error {
	if response.Code == 0 {
		response.Code = status.OK
	}
	if response.TrackingID == "" {
		response.TrackingID = TrackingID(c)
	}
	return c.Status(int(response.Code)).JSON(response)
}

// Created is Success with a 201 status.
func Created(module config.Module, c fiber.Ctx, message string, data any) error {
	return Success(module, c, FiberSuccessMessage{
		Code:    status.Created,
		Message: message,
		Data:    data,
	})
}

// ErrorHandler is the fiber fallback for errors no handler mapped itself.
func ErrorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{
			Error:     fe.Message,
			ErrorCode: Code(fiberErrorCode(fe.Code)),
		})
	}
	return InternalError(config.ModuleServer, c, err)
}

func fiberErrorCode(httpStatus int) status.ErrorCode {
	switch {
	case httpStatus == fiber.StatusNotFound:
		return status.ErrorCodeRouteNotFound
	case httpStatus == fiber.StatusMethodNotAllowed:
		return status.ErrorCodeMethodNotAllowed
	case httpStatus < fiber.StatusInternalServerError:
		return status.ErrorCodeBadRequest
	}
	return status.ErrorCodeInternal
}
