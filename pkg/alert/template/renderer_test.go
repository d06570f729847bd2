package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	got := Render("La vacuna de {nombre} vence en {dias} días", map[string]interface{}{
		"nombre": "Relámpago",
		"dias":   float64(7),
	})
	assert.Equal(t, "La vacuna de Relámpago vence en 7 días", got)
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	got := Render("Pago de {cliente} por {monto}", map[string]interface{}{"cliente": "Ana"})
	assert.Equal(t, "Pago de Ana por {monto}", got)
}

func TestRenderFormatsValues(t *testing.T) {
	when := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	got := Render("{fecha} - {monto} - {activo}", map[string]interface{}{
		"fecha":  when,
		"monto":  150.5,
		"activo": true,
	})
	assert.Equal(t, "15/03/2026 - 150.50 - true", got)
}

func TestRenderEmptyInputs(t *testing.T) {
	assert.Equal(t, "", Render("", map[string]interface{}{"x": 1}))
	assert.Equal(t, "sin variables", Render("sin variables", nil))
}
