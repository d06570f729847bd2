package dto

import (
	"time"

	"club-hipico-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// --- Inbox ---

type AlertListRequest struct {
	Tipo      string `query:"tipo"`
	Prioridad string `query:"prioridad"`
	Leida     *bool  `query:"leida"`
	Desde     string `query:"desde"` // YYYY-MM-DD
	Hasta     string `query:"hasta"`
	Limit     int    `query:"limit"`
	Offset    int    `query:"offset"`
}

type SnoozeAlertRequest struct {
	Dias int `json:"dias" validate:"required,min=1,max=365"`
}

// CreateAlertRequest is the manual (ad-hoc) creation payload. Recipients
// come from usuario_id, enviar_a_roles and/or crear_para_admins; at least
// one must yield a user.
type CreateAlertRequest struct {
	Tipo      string `json:"tipo" validate:"required"`
	Prioridad string `json:"prioridad" validate:"omitempty,oneof=baja media alta critica"`
	Titulo    string `json:"titulo" validate:"required,max=255"`
	Mensaje   string `json:"mensaje" validate:"required"`

	UsuarioID       *uuid.UUID `json:"usuario_id,omitempty"`
	EnviarARoles    []string   `json:"enviar_a_roles,omitempty"`
	CrearParaAdmins bool       `json:"crear_para_admins,omitempty"`

	FechaEvento      *time.Time `json:"fecha_evento,omitempty"`
	FechaVencimiento *time.Time `json:"fecha_vencimiento,omitempty"`

	EntidadRelacionadaTipo *string    `json:"entidad_relacionada_tipo,omitempty"`
	EntidadRelacionadaID   *uuid.UUID `json:"entidad_relacionada_id,omitempty"`

	AccionesDisponibles datatypes.JSON `json:"acciones_disponibles,omitempty"`
	DatosAdicionales    datatypes.JSON `json:"datos_adicionales,omitempty"`
}

// --- Alert type config (admin) ---

type AlertTypeRequest struct {
	Nombre           string  `json:"nombre" validate:"required,max=255"`
	Tipo             string  `json:"tipo" validate:"required"`
	Descripcion      *string `json:"descripcion,omitempty"`
	Activo           *bool   `json:"activo,omitempty"`
	PrioridadDefault string  `json:"prioridad_default" validate:"omitempty,oneof=baja media alta critica"`

	Frecuencia       string  `json:"frecuencia" validate:"required"`
	DiasAnticipacion *int    `json:"dias_anticipacion,omitempty" validate:"omitempty,min=0"`
	IntervaloDias    *int    `json:"intervalo_dias,omitempty"`
	HoraEnvio        *string `json:"hora_envio,omitempty"`
	DiasSemana       []int   `json:"dias_semana,omitempty" validate:"omitempty,dive,min=0,max=6"`

	EnviarARoles        []string `json:"enviar_a_roles,omitempty"`
	EnviarAUsuarios     []string `json:"enviar_a_usuarios,omitempty" validate:"omitempty,dive,uuid"`
	EnviarAResponsables bool     `json:"enviar_a_responsables"`

	CanalSistema *bool `json:"canal_sistema,omitempty"`
	CanalEmail   bool  `json:"canal_email"`
	CanalPush    bool  `json:"canal_push"`

	PlantillaTitulo  *string `json:"plantilla_titulo,omitempty" validate:"omitempty,max=500"`
	PlantillaMensaje *string `json:"plantilla_mensaje,omitempty"`

	Condiciones datatypes.JSON `json:"condiciones,omitempty"`
}

type SendTestAlertRequest struct {
	UsuarioID *uuid.UUID `json:"usuario_id,omitempty"`
}

// --- Preferences ---

type PreferencesRequest struct {
	AlertasSistema *bool `json:"alertas_sistema,omitempty"`
	AlertasEmail   *bool `json:"alertas_email,omitempty"`
	AlertasPush    *bool `json:"alertas_push,omitempty"`

	TiposAlertas datatypes.JSON `json:"tipos_alertas,omitempty"`

	HorarioInicio *string `json:"horario_inicio,omitempty"`
	HorarioFin    *string `json:"horario_fin,omitempty"`
	DiasSemana    []int   `json:"dias_semana,omitempty" validate:"omitempty,dive,min=0,max=6"`

	AgruparAlertas      *bool `json:"agrupar_alertas,omitempty"`
	IntervaloAgrupacion *int  `json:"intervalo_agrupacion,omitempty" validate:"omitempty,min=5,max=1440"`
}

// --- Dispatch queue ---

// DispatchAlertMessage travels over the in-process queue from alert
// creation to the dispatcher. Channel flags come from the alert type
// config (or all-system for ad-hoc alerts).
type DispatchAlertMessage struct {
	Alert model.Alert `json:"alert"`

	CanalSistema bool `json:"canal_sistema"`
	CanalEmail   bool `json:"canal_email"`
	CanalPush    bool `json:"canal_push"`
}
