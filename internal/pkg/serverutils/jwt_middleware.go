package serverutils

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JwtMiddleware authenticates the request and stores user_id (uuid) and
// rol (string) in locals for the handlers.
func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ErrorResponse(ctx, fiber.StatusUnauthorized, "Falta el token")
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return ErrorResponse(ctx, fiber.StatusUnauthorized, "Token inválido")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrorResponse(ctx, fiber.StatusUnauthorized, "Claims inválidos")
	}

	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return ErrorResponse(ctx, fiber.StatusUnauthorized, "Token sin user_id válido")
	}

	role, _ := claims["rol"].(string)

	ctx.Locals("user_id", userID)
	ctx.Locals("rol", role)
	return ctx.Next()
}

// UserID reads the authenticated user from locals.
func UserID(ctx *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := ctx.Locals("user_id").(uuid.UUID)
	return id, ok
}

// Role reads the authenticated role from locals.
func Role(ctx *fiber.Ctx) string {
	role, _ := ctx.Locals("rol").(string)
	return role
}
