package serverutils

import (
	"errors"

	"club-membership-be/internal/entity"
	"club-membership-be/pkg/gateway"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware renders errors returned by handlers into the
// response envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code, body := MapError(err)
		return ctx.Status(code).JSON(body)
	}
}

// MapError picks the HTTP status and body for an error.
func MapError(err error) (int, interface{}) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorResponse(fiberErr.Code, fiberErr.Message)
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest, ErrorResponseWithDetail(fiber.StatusBadRequest, "Validation failed", &ErrorDetail{Fields: validationErr.Fields})
	}

	var eligibilityErr *entity.EligibilityError
	if errors.As(err, &eligibilityErr) {
		return fiber.StatusConflict, ErrorResponseWithDetail(fiber.StatusConflict, eligibilityErr.Reason.Message(), &ErrorDetail{Reason: string(eligibilityErr.Reason)})
	}

	switch {
	case errors.Is(err, entity.ErrNotFound):
		return fiber.StatusNotFound, ErrorResponse(fiber.StatusNotFound, err.Error())
	case errors.Is(err, entity.ErrValidation):
		return fiber.StatusBadRequest, ErrorResponse(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrInvalidTransition):
		return fiber.StatusConflict, ErrorResponse(fiber.StatusConflict, err.Error())
	case errors.Is(err, entity.ErrConcurrentModification), errors.Is(err, entity.ErrLockBusy):
		return fiber.StatusConflict, ErrorResponseWithDetail(fiber.StatusConflict, err.Error(), &ErrorDetail{Retryable: true})
	case errors.Is(err, entity.ErrGatewayUnavailable):
		return fiber.StatusServiceUnavailable, ErrorResponseWithDetail(fiber.StatusServiceUnavailable, "Payment gateway unavailable, try again", &ErrorDetail{Retryable: true})
	case errors.Is(err, gateway.ErrRejected):
		return fiber.StatusBadGateway, ErrorResponse(fiber.StatusBadGateway, err.Error())
	}

	return fiber.StatusInternalServerError, ErrorResponse(fiber.StatusInternalServerError, "Internal server error")
}
