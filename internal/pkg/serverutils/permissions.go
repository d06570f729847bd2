package serverutils

import "github.com/gofiber/fiber/v2"

// ModulePermissions is the fixed capability shape for the alert module.
// Every role maps to a complete struct, so a permission lookup can never
// hit a missing level: an unknown role simply gets the zero value (no
// access).
type ModulePermissions struct {
	View      bool // see own inbox
	Create    bool // create manual alerts
	Manage    bool // mark/delete/snooze any user's alerts
	Configure bool // alert type CRUD and send-test
}

var alertPermissions = map[string]ModulePermissions{
	"administrador": {View: true, Create: true, Manage: true, Configure: true},
	"profesor":      {View: true, Create: true},
	"caballerizo":   {View: true},
	"veterinario":   {View: true, Create: true},
	"socio":         {View: true},
}

// AlertPermissionsFor returns the capability set of a role.
func AlertPermissionsFor(role string) ModulePermissions {
	return alertPermissions[role]
}

// RequireAlertPermission gates a route on one capability.
func RequireAlertPermission(check func(ModulePermissions) bool) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		perms := AlertPermissionsFor(Role(ctx))
		if !check(perms) {
			return ErrorResponse(ctx, fiber.StatusForbidden, "No tienes permisos para esta operación")
		}
		return ctx.Next()
	}
}
