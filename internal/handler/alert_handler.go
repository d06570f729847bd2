package handler

import (
	"errors"
	"os"

	"club-hipico-be/internal/dto"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/internal/pkg/serverutils"
	"club-hipico-be/internal/service"
	internalWS "club-hipico-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AlertHandler exposes the alert inbox and the real-time channel.
type AlertHandler struct {
	service service.IAlertService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewAlertHandler(service service.IAlertService, hub *internalWS.Hub, log logger.ILogger) *AlertHandler {
	return &AlertHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

func (h *AlertHandler) RegisterRoutes(router fiber.Router) {
	alerts := router.Group("/alertas")
	alerts.Use(serverutils.JwtMiddleware)
	alerts.Use(serverutils.RequireAlertPermission(func(p serverutils.ModulePermissions) bool { return p.View }))

	alerts.Get("/", h.List)
	alerts.Get("/no-leidas", h.UnreadPreview)
	alerts.Get("/no-leidas/count", h.UnreadCount)
	alerts.Get("/estadisticas", h.Stats)
	alerts.Put("/marcar-todas-leidas", h.MarkAllRead)
	alerts.Post("/", serverutils.RequireAlertPermission(func(p serverutils.ModulePermissions) bool { return p.Create }), h.Create)
	alerts.Get("/:id", h.GetByID)
	alerts.Put("/:id/leer", h.MarkRead)
	alerts.Post("/:id/posponer", h.Snooze)
	alerts.Delete("/:id", h.Delete)

	// WebSocket, authenticated in the handshake (query token)
	router.Get("/ws", h.ServeWs)
}

func (h *AlertHandler) List(c *fiber.Ctx) error {
	userID, ok := serverutils.UserID(c)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "No autenticado")
	}

	var req dto.AlertListRequest
	if err := c.QueryParser(&req); err != nil {
		return serverutils.ErrorResponse(c, fiber.StatusBadRequest, "Filtros inválidos")
	}

	alerts, total, err := h.service.List(c.UserContext(), userID, req)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    alerts,
		"total":   total,
	})
}

func (h *AlertHandler) UnreadPreview(c *fiber.Ctx) error {
	userID, ok := serverutils.UserID(c)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "No autenticado")
	}

	alerts, count, err := h.service.UnreadPreview(c.UserContext(), userID)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    alerts,
		"total":   count,
	})
}

func (h *AlertHandler) UnreadCount(c *fiber.Ctx) error {
	userID, ok := serverutils.UserID(c)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "No autenticado")
	}

	count, err := h.service.CountUnread(c.UserContext(), userID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "count": count})
}

func (h *AlertHandler) Stats(c *fiber.Ctx) error {
	userID, ok := serverutils.UserID(c)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "No autenticado")
	}

	stats, err := h.service.Stats(c.UserContext(), userID)
	if err != nil {
		return h.mapError(c, err)
	}
	return serverutils.SuccessResponse(c, fiber.StatusOK, stats)
}

func (h *AlertHandler) GetByID(c *fiber.Ctx) error {
	userID, ok := serverutils.UserID(c)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "No autenticado")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(c, fiber.StatusBadRequest, "ID inválido")
	}

	alert, err := h.service.GetByID(c.UserContext(), userID, serverutils.Role(c), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return serverutils.SuccessResponse(c, fiber.StatusOK, alert)
}

func (h *AlertHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return serverutils.ErrorResponse(c, fiber.StatusBadRequest, "Cuerpo inválido")
	}

	created, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return h.mapError(c, err)
	}
	return serverutils.SuccessResponse(c, fiber.StatusCreated, created)
}

func (h *AlertHandler) MarkRead(c *fiber.Ctx) error {
	userID, ok := serverutils.UserID(c)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "No autenticado")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(c, fiber.StatusBadRequest, "ID inválido")
	}

	if err := h.service.MarkRead(c.UserContext(), userID, serverutils.Role(c), id); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *AlertHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, ok := serverutils.UserID(c)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "No autenticado")
	}

	affected, err := h.service.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "marcadas": affected})
}

func (h *AlertHandler) Snooze(c *fiber.Ctx) error {
	userID, ok := serverutils.UserID(c)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "No autenticado")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(c, fiber.StatusBadRequest, "ID inválido")
	}

	var req dto.SnoozeAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return serverutils.ErrorResponse(c, fiber.StatusBadRequest, "Cuerpo inválido")
	}

	alert, err := h.service.Snooze(c.UserContext(), userID, serverutils.Role(c), id, req.Dias)
	if err != nil {
		return h.mapError(c, err)
	}
	return serverutils.SuccessResponse(c, fiber.StatusOK, alert)
}

func (h *AlertHandler) Delete(c *fiber.Ctx) error {
	userID, ok := serverutils.UserID(c)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "No autenticado")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(c, fiber.StatusBadRequest, "ID inválido")
	}

	if err := h.service.Delete(c.UserContext(), userID, serverutils.Role(c), id); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// ServeWs authenticates the handshake (query token, since browsers cannot
// set headers on WebSocket upgrades) and hands the connection to the hub.
func (h *AlertHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "Falta el token")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("AlertHandler", "Token inválido en handshake WS", map[string]interface{}{"error": err})
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "Token inválido")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "Claims inválidos")
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "Token sin user_id")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return serverutils.ErrorResponse(c, fiber.StatusUnauthorized, "user_id inválido")
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("AlertHandler", "Sesión WebSocket iniciada", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, conn, userID)
			h.logger.Info("AlertHandler", "Sesión WebSocket finalizada", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *AlertHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAlertNotFound):
		return serverutils.ErrorResponse(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotAlertOwner):
		return serverutils.ErrorResponse(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrNoRecipients):
		return serverutils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	default:
		return serverutils.ErrorResponse(c, fiber.StatusInternalServerError, err.Error())
	}
}
