package main

import (
	"club-hipico-be/internal/model"

	"github.com/fatih/color"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// SeedAlertTypes populates the registry with the club's default rules.
// Existing types (matched by nombre) are left untouched so administrator
// edits survive re-seeding.
func SeedAlertTypes(db *gorm.DB) {
	types := []model.AlertTypeConfig{
		{
			Name:            "Vacunación próxima",
			Category:        model.CategoryVaccine,
			Description:     strPtr("Avisa cuando a un caballo le toca la vacuna en los próximos días"),
			Active:          true,
			DefaultPriority: model.PriorityHigh,
			Frequency:       "diaria",
			LeadDays:        intPtr(7),
			SendTime:        strPtr("08:00"),
			SendToRoles:     datatypes.NewJSONSlice([]string{"veterinario", "administrador"}),
			SendToOwners:    true,
			ChannelSystem:   true,
			ChannelEmail:    true,
			TitleTemplate:   strPtr("Vacuna pendiente: {caballo_nombre}"),
			MessageTemplate: strPtr("Al caballo {caballo_nombre} le corresponde la vacuna en {dias_hasta_vencimiento} días."),
			Conditions:      datatypes.JSON([]byte(`[{"campo": "dias_hasta_vencimiento", "operador": "menor_igual", "valor": 7}]`)),
		},
		{
			Name:            "Herraje próximo",
			Category:        model.CategoryShoeing,
			Description:     strPtr("Avisa cuando a un caballo le toca el herraje"),
			Active:          true,
			DefaultPriority: model.PriorityMedium,
			Frequency:       "diaria",
			LeadDays:        intPtr(5),
			SendTime:        strPtr("08:00"),
			SendToRoles:     datatypes.NewJSONSlice([]string{"caballerizo"}),
			SendToOwners:    true,
			ChannelSystem:   true,
			TitleTemplate:   strPtr("Herraje pendiente: {caballo_nombre}"),
			MessageTemplate: strPtr("Al caballo {caballo_nombre} le corresponde el herraje en {dias_hasta_vencimiento} días."),
			Conditions:      datatypes.JSON([]byte(`[{"campo": "dias_hasta_vencimiento", "operador": "menor_igual", "valor": 5}]`)),
		},
		{
			Name:            "Pago por vencer",
			Category:        model.CategoryPayment,
			Description:     strPtr("Avisa de pagos pendientes que vencen en los próximos días"),
			Active:          true,
			DefaultPriority: model.PriorityMedium,
			Frequency:       "diaria",
			LeadDays:        intPtr(3),
			SendTime:        strPtr("09:00"),
			SendToRoles:     datatypes.NewJSONSlice([]string{"administrador"}),
			SendToOwners:    true,
			ChannelSystem:   true,
			ChannelEmail:    true,
			TitleTemplate:   strPtr("Pago próximo a vencer: {cliente_nombre}"),
			MessageTemplate: strPtr("El pago de {cliente_nombre} por ${monto} vence en {dias_hasta_vencimiento} días."),
			Conditions:      datatypes.JSON([]byte(`[{"campo": "dias_hasta_vencimiento", "operador": "entre", "valor": 0, "valor_maximo": 3}]`)),
		},
		{
			Name:            "Pago vencido",
			Category:        model.CategoryPayment,
			Description:     strPtr("Escala los pagos con más de 15 días de atraso"),
			Active:          true,
			DefaultPriority: model.PriorityHigh,
			Frequency:       "semanal",
			Weekdays:        datatypes.NewJSONSlice([]int{1}), // lunes
			SendTime:        strPtr("09:00"),
			SendToRoles:     datatypes.NewJSONSlice([]string{"administrador"}),
			ChannelSystem:   true,
			ChannelEmail:    true,
			TitleTemplate:   strPtr("Pago vencido: {cliente_nombre}"),
			MessageTemplate: strPtr("El pago de {cliente_nombre} por ${monto} lleva {dias_vencido} días vencido."),
			Conditions:      datatypes.JSON([]byte(`[{"campo": "dias_vencido", "operador": "mayor_igual", "valor": 15}]`)),
		},
		{
			Name:            "Pago críticamente vencido",
			Category:        model.CategoryPayment,
			Description:     strPtr("Escala los pagos con más de 30 días de atraso"),
			Active:          true,
			DefaultPriority: model.PriorityCritical,
			Frequency:       "diaria",
			SendTime:        strPtr("09:00"),
			SendToRoles:     datatypes.NewJSONSlice([]string{"administrador"}),
			ChannelSystem:   true,
			ChannelEmail:    true,
			ChannelPush:     true,
			TitleTemplate:   strPtr("Pago crítico: {cliente_nombre}"),
			MessageTemplate: strPtr("El pago de {cliente_nombre} por ${monto} lleva {dias_vencido} días vencido. Requiere gestión inmediata."),
			Conditions:      datatypes.JSON([]byte(`[{"campo": "dias_vencido", "operador": "mayor_igual", "valor": 30}]`)),
		},
		{
			Name:            "Evento próximo",
			Category:        model.CategoryEvent,
			Description:     strPtr("Recuerda los eventos del día siguiente"),
			Active:          true,
			DefaultPriority: model.PriorityMedium,
			Frequency:       "diaria",
			LeadDays:        intPtr(1),
			SendTime:        strPtr("18:00"),
			SendToRoles:     datatypes.NewJSONSlice([]string{"administrador"}),
			SendToOwners:    true,
			ChannelSystem:   true,
			TitleTemplate:   strPtr("Evento mañana: {evento_nombre}"),
			MessageTemplate: strPtr("El evento {evento_nombre} comienza en {dias_hasta_evento} día(s)."),
			Conditions:      datatypes.JSON([]byte(`[{"campo": "dias_hasta_evento", "operador": "menor_igual", "valor": 1}]`)),
		},
		{
			Name:            "Cumpleaños de clientes",
			Category:        model.CategoryBirthday,
			Description:     strPtr("Saluda a los clientes que cumplen años hoy"),
			Active:          true,
			DefaultPriority: model.PriorityLow,
			Frequency:       "diaria",
			SendTime:        strPtr("08:00"),
			SendToRoles:     datatypes.NewJSONSlice([]string{"administrador"}),
			ChannelSystem:   true,
			TitleTemplate:   strPtr("Cumpleaños: {cliente_nombre}"),
			MessageTemplate: strPtr("Hoy es el cumpleaños de {cliente_nombre}."),
			Conditions:      datatypes.JSON([]byte(`[{"campo": "dias_hasta_cumpleaños", "operador": "igual", "valor": 0}]`)),
		},
	}

	for _, t := range types {
		var existing model.AlertTypeConfig
		if err := db.Where("nombre = ?", t.Name).First(&existing).Error; err == nil {
			color.Yellow("Type '%s' already exists, skipping...", t.Name)
			continue
		}

		if err := db.Create(&t).Error; err != nil {
			color.Red("Error creating type '%s': %v", t.Name, err)
		} else {
			color.Green("Created alert type: %s (%s)", t.Name, t.Category)
		}
	}
}
