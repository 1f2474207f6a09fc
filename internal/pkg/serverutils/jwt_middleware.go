package serverutils

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	LocalUserID = "user_id"
	LocalRole   = "role"

	RoleStudent = "student"
	RoleLeader  = "leader"
)

// JwtMiddleware verifies an HS256 bearer token and stores user_id and role
// in the request locals.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
		}

		userId, _ := claims["user_id"].(string)
		if _, err := uuid.Parse(userId); err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
		}
		role, _ := claims["role"].(string)
		if role == "" {
			role = RoleStudent
		}

		ctx.Locals(LocalUserID, userId)
		ctx.Locals(LocalRole, role)
		return ctx.Next()
	}
}

// RequireRole must run after JwtMiddleware.
func RequireRole(role string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if r, _ := ctx.Locals(LocalRole).(string); r != role {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(fiber.StatusForbidden, "Insufficient role"))
		}
		return ctx.Next()
	}
}

// UserID returns the authenticated user id set by JwtMiddleware.
func UserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := ctx.Locals(LocalUserID).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Missing user")
	}
	return id, nil
}

// ParamUUID parses a path parameter as a uuid or fails with 400.
func ParamUUID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
