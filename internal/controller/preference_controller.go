package controller

import (
	"club-hipico-be/internal/dto"
	"club-hipico-be/internal/pkg/serverutils"
	"club-hipico-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PreferenceController lets a user tune how alerts reach them.
type PreferenceController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
	Get(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
}

type preferenceController struct {
	service service.IPreferenceService
}

func NewPreferenceController(service service.IPreferenceService) PreferenceController {
	return &preferenceController{service: service}
}

func (c *preferenceController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	prefs := api.Group("/preferencias-alertas")
	prefs.Use(jwtMiddleware)

	prefs.Get("/", c.Get)
	prefs.Put("/", c.Update)
}

func (c *preferenceController) Get(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, "No autenticado")
	}

	prefs, err := c.service.Get(ctx.UserContext(), userID)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusInternalServerError, err.Error())
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, prefs)
}

func (c *preferenceController) Update(ctx *fiber.Ctx) error {
	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, "No autenticado")
	}

	var req dto.PreferencesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "Cuerpo inválido")
	}

	prefs, err := c.service.Update(ctx.UserContext(), userID, req)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, err.Error())
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, prefs)
}
