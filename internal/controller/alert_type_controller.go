package controller

import (
	"club-hipico-be/internal/dto"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/internal/pkg/serverutils"
	"club-hipico-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AlertTypeController is the admin surface of the alert type registry.
type AlertTypeController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
	Create(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	GetByID(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	SetActive(ctx *fiber.Ctx) error
	SendTest(ctx *fiber.Ctx) error
}

type alertTypeController struct {
	service service.IAlertTypeService
	logger  logger.ILogger
}

func NewAlertTypeController(service service.IAlertTypeService, log logger.ILogger) AlertTypeController {
	return &alertTypeController{service: service, logger: log}
}

func (c *alertTypeController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	types := api.Group("/tipos-alerta")
	types.Use(jwtMiddleware)
	types.Use(serverutils.RequireAlertPermission(func(p serverutils.ModulePermissions) bool { return p.Configure }))

	types.Get("/", c.List)
	types.Post("/", c.Create)
	types.Get("/:id", c.GetByID)
	types.Put("/:id", c.Update)
	types.Delete("/:id", c.Delete)
	types.Put("/:id/activo", c.SetActive)
	types.Post("/:id/probar", c.SendTest)
}

func (c *alertTypeController) Create(ctx *fiber.Ctx) error {
	var req dto.AlertTypeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "Cuerpo inválido")
	}

	cfg, err := c.service.Create(ctx.UserContext(), req)
	if err != nil {
		c.logger.Warn("AlertTypeController", "No se pudo crear el tipo de alerta", map[string]interface{}{"error": err.Error()})
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, err.Error())
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusCreated, cfg)
}

func (c *alertTypeController) Update(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "ID inválido")
	}

	var req dto.AlertTypeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "Cuerpo inválido")
	}

	cfg, err := c.service.Update(ctx.UserContext(), id, req)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, err.Error())
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, cfg)
}

func (c *alertTypeController) Delete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "ID inválido")
	}

	if err := c.service.Delete(ctx.UserContext(), id); err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusNotFound, err.Error())
	}
	return ctx.JSON(fiber.Map{"success": true})
}

func (c *alertTypeController) GetByID(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "ID inválido")
	}

	cfg, err := c.service.GetByID(ctx.UserContext(), id)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusNotFound, err.Error())
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, cfg)
}

func (c *alertTypeController) List(ctx *fiber.Ctx) error {
	types, err := c.service.List(ctx.UserContext())
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusInternalServerError, err.Error())
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, types)
}

func (c *alertTypeController) SetActive(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "ID inválido")
	}

	var body struct {
		Activo *bool `json:"activo"`
	}
	if err := ctx.BodyParser(&body); err != nil || body.Activo == nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "Se requiere el campo activo")
	}

	if err := c.service.SetActive(ctx.UserContext(), id, *body.Activo); err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusNotFound, err.Error())
	}
	return ctx.JSON(fiber.Map{"success": true, "activo": *body.Activo})
}

// SendTest fires a sample alert of the type to the calling administrator,
// rendered with example data and marked as a test.
func (c *alertTypeController) SendTest(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, "ID inválido")
	}

	userID, ok := serverutils.UserID(ctx)
	if !ok {
		return serverutils.ErrorResponse(ctx, fiber.StatusUnauthorized, "No autenticado")
	}

	var req dto.SendTestAlertRequest
	// Body is optional, an empty body targets the caller.
	_ = ctx.BodyParser(&req)
	if req.UsuarioID != nil {
		userID = *req.UsuarioID
	}

	alert, err := c.service.SendTest(ctx.UserContext(), id, userID)
	if err != nil {
		return serverutils.ErrorResponse(ctx, fiber.StatusBadRequest, err.Error())
	}
	return serverutils.SuccessResponse(ctx, fiber.StatusOK, alert)
}
