package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"spa-comments/internal/domain"
	"spa-comments/internal/pkg/i18n"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorListResponse struct {
	Errors  []ErrorDetail `json:"errors"`
	TraceID string        `json:"trace_id"`
}

// StatusFor maps a domain error type to its HTTP status.
func StatusFor(t domain.ErrorType) int {
	switch t {
	case domain.ErrorTypeValidation:
		return fiber.StatusBadRequest
	case domain.ErrorTypeChallengeInvalid, domain.ErrorTypeAttachmentsNotFound:
		return fiber.StatusUnprocessableEntity
	case domain.ErrorTypeNotFound:
		return fiber.StatusNotFound
	case domain.ErrorTypeUpstream:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// NewErrorHandler renders domain errors as a localized error list and fiber
// errors in the single-error shape.
func NewErrorHandler(logger *log.Entry) fiber.ErrorHandler {
	logger = logger.WithField("component", "http")

	return func(c *fiber.Ctx, err error) error {
		traceID := uuid.New().String()[:8]

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(ErrorResponse{
				Code:    fiberErrorCode(fe.Code),
				Message: fe.Message,
				TraceID: traceID,
			})
		}

		list := domain.Errors(err)
		status := StatusFor(list.Type())
		if status >= fiber.StatusInternalServerError {
			logger.WithFields(log.Fields{
				"trace_id": traceID,
				"method":   c.Method(),
				"path":     c.Path(),
			}).Errorf("[http] request failed: %v", err)
		}

		locale := i18n.ParseLocale(c.Get(fiber.HeaderAcceptLanguage))
		details := make([]ErrorDetail, 0, len(list))
		for _, e := range list {
			details = append(details, ErrorDetail{
				Code:    e.Code,
				Message: i18n.TranslateOr(locale, e.Code, e.Message),
				Field:   e.Field,
			})
		}

		return c.Status(status).JSON(ErrorListResponse{Errors: details, TraceID: traceID})
	}
}

func fiberErrorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case fiber.StatusUpgradeRequired:
		return "UPGRADE_REQUIRED"
	}
	return "INTERNAL_ERROR"
}

func BadRequest(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

// InvalidBody is the validation error returned for unparsable request bodies.
func InvalidBody() domain.ErrorList {
	return domain.ErrorList{domain.Validation("", "request.body.invalid", "Request body is malformed")}
}
