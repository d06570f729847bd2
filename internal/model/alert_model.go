package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AlertCategory is the closed set of alert categories (tipo on the wire).
type AlertCategory string

const (
	CategoryVaccine     AlertCategory = "vacuna"
	CategoryShoeing     AlertCategory = "herraje"
	CategoryPayment     AlertCategory = "pago"
	CategoryEvent       AlertCategory = "evento"
	CategoryBirthday    AlertCategory = "cumpleaños"
	CategoryContract    AlertCategory = "contrato"
	CategoryStock       AlertCategory = "stock"
	CategoryTask        AlertCategory = "tarea"
	CategoryMaintenance AlertCategory = "mantenimiento"
	CategoryVeterinary  AlertCategory = "veterinaria"
	CategoryOther       AlertCategory = "otro"
)

// AllCategories lists every valid category; used by validation and stats.
func AllCategories() []AlertCategory {
	return []AlertCategory{
		CategoryVaccine, CategoryShoeing, CategoryPayment, CategoryEvent,
		CategoryBirthday, CategoryContract, CategoryStock, CategoryTask,
		CategoryMaintenance, CategoryVeterinary, CategoryOther,
	}
}

func (c AlertCategory) Valid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// AlertPriority orders alerts in the inbox (prioridad on the wire).
type AlertPriority string

const (
	PriorityLow      AlertPriority = "baja"
	PriorityMedium   AlertPriority = "media"
	PriorityHigh     AlertPriority = "alta"
	PriorityCritical AlertPriority = "critica"
)

func (p AlertPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank maps priority to sort order, 0 being the most urgent.
func (p AlertPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// AlertChannel is a delivery medium with independent opt-in and outcome.
type AlertChannel string

const (
	ChannelSystem AlertChannel = "sistema"
	ChannelEmail  AlertChannel = "email"
	ChannelPush   AlertChannel = "push"
)

// DeliveryStatus is the per-channel delivery state (estado on the wire).
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pendiente"
	DeliverySent    DeliveryStatus = "enviado"
	DeliveryFailed  DeliveryStatus = "fallido"
	DeliveryRead    DeliveryStatus = "leido"
)

// AlertTypeConfig is an administrator-configured rule template describing
// when alerts of a category fire, to whom and through which channels.
// Column names follow the club schema shared with the frontend.
type AlertTypeConfig struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string        `gorm:"column:nombre;type:varchar(255);not null" json:"nombre"`
	Category    AlertCategory `gorm:"column:tipo;type:varchar(30);not null;index:idx_tipos_alerta_tipo" json:"tipo"`
	Description *string       `gorm:"column:descripcion;type:text" json:"descripcion,omitempty"`
	Active      bool          `gorm:"column:activo;default:true;index:idx_tipos_alerta_activo" json:"activo"`

	DefaultPriority AlertPriority `gorm:"column:prioridad_default;type:varchar(10);default:'media';not null" json:"prioridad_default"`

	// recurrence
	Frequency    string  `gorm:"column:frecuencia;type:varchar(20);default:'unica';not null" json:"frecuencia"`
	LeadDays     *int    `gorm:"column:dias_anticipacion" json:"dias_anticipacion,omitempty"`
	IntervalDays *int    `gorm:"column:intervalo_dias" json:"intervalo_dias,omitempty"`
	SendTime     *string `gorm:"column:hora_envio;type:varchar(5)" json:"hora_envio,omitempty"` // HH:MM 24h

	// weekday set for frecuencia semanal, 0 = domingo
	Weekdays datatypes.JSONSlice[int] `gorm:"column:dias_semana;type:jsonb" json:"dias_semana,omitempty"`

	// recipients
	SendToRoles  datatypes.JSONSlice[string] `gorm:"column:enviar_a_roles;type:jsonb" json:"enviar_a_roles,omitempty"`
	SendToUsers  datatypes.JSONSlice[string] `gorm:"column:enviar_a_usuarios;type:jsonb" json:"enviar_a_usuarios,omitempty"`
	SendToOwners bool                        `gorm:"column:enviar_a_responsables;default:false;not null" json:"enviar_a_responsables"`

	// channels, each independently toggleable
	ChannelSystem bool `gorm:"column:canal_sistema;default:true;not null" json:"canal_sistema"`
	ChannelEmail  bool `gorm:"column:canal_email;default:false;not null" json:"canal_email"`
	ChannelPush   bool `gorm:"column:canal_push;default:false;not null" json:"canal_push"`

	// {placeholder} templates
	TitleTemplate   *string `gorm:"column:plantilla_titulo;type:varchar(500)" json:"plantilla_titulo,omitempty"`
	MessageTemplate *string `gorm:"column:plantilla_mensaje;type:text" json:"plantilla_mensaje,omitempty"`

	// ordered trigger conditions, JSONB:
	// [{"campo": "dias_hasta_vencimiento", "operador": "menor_igual", "valor": 7}]
	Conditions datatypes.JSON `gorm:"column:condiciones;type:jsonb" json:"condiciones,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AlertTypeConfig) TableName() string { return "tipos_alerta" }

// Alert is one concrete per-recipient instance in the inbox.
//
// For recurring config-driven alerts DedupKey encodes the
// (type, recipient, related entity, firing period) tuple; the unique
// index over it is what makes the insert-if-absent path atomic. The
// tuple cannot be a composite unique index directly because Postgres
// treats NULL related-entity columns as distinct.
type Alert struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AlertTypeID *uuid.UUID `gorm:"column:tipo_alerta_id;type:uuid;index" json:"tipo_alerta_id,omitempty"` // nil for ad-hoc alerts
	UserID      uuid.UUID  `gorm:"column:usuario_id;type:uuid;not null;index:idx_alertas_usuario_leida,priority:1" json:"usuario_id"`

	Category AlertCategory `gorm:"column:tipo;type:varchar(30);not null" json:"tipo"`
	Priority AlertPriority `gorm:"column:prioridad;type:varchar(10);default:'media';not null" json:"prioridad"`
	Title    string        `gorm:"column:titulo;type:varchar(255);not null" json:"titulo"`
	Message  string        `gorm:"column:mensaje;type:text;not null" json:"mensaje"`

	Read   bool       `gorm:"column:leida;default:false;not null;index:idx_alertas_usuario_leida,priority:2" json:"leida"`
	ReadAt *time.Time `gorm:"column:fecha_lectura" json:"fecha_lectura,omitempty"`

	EventDate *time.Time `gorm:"column:fecha_evento" json:"fecha_evento,omitempty"`
	ExpiresAt *time.Time `gorm:"column:fecha_vencimiento" json:"fecha_vencimiento,omitempty"`

	RelatedEntityType *string    `gorm:"column:entidad_relacionada_tipo;type:varchar(50)" json:"entidad_relacionada_tipo,omitempty"`
	RelatedEntityID   *uuid.UUID `gorm:"column:entidad_relacionada_id;type:uuid;index" json:"entidad_relacionada_id,omitempty"`

	// firing-period bucket ("2026-03-04", "2026-W10-1", "cxd-3", "unica")
	PeriodKey string `gorm:"column:periodo_disparo;type:varchar(20);default:'';not null" json:"-"`

	// dedup key: tipo|usuario|entidad|periodo for engine-created alerts,
	// the instance id for ad-hoc alerts (which never dedupe)
	DedupKey string `gorm:"column:clave_dedup;type:varchar(200);not null;uniqueIndex:idx_alertas_dedup" json:"-"`

	Actions datatypes.JSON `gorm:"column:acciones_disponibles;type:jsonb" json:"acciones_disponibles,omitempty"`
	Extra   datatypes.JSON `gorm:"column:datos_adicionales;type:jsonb" json:"datos_adicionales,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Alert) TableName() string { return "alertas" }

// BuildDedupKey encodes the at-most-one-active-instance tuple for
// engine-created alerts. Deterministic, so a retried or re-evaluated tick
// regenerates the identical key and collides on the unique index.
func BuildDedupKey(typeID, userID uuid.UUID, entityType *string, entityID *uuid.UUID, periodKey string) string {
	entity := "-"
	if entityType != nil && entityID != nil {
		entity = *entityType + ":" + entityID.String()
	}
	return typeID.String() + "|" + userID.String() + "|" + entity + "|" + periodKey
}

// DeliveryRecord tracks the outcome of one channel attempt for one alert.
// The system channel's read state mirrors Alert.Read; email/push carry
// their own read receipts.
type DeliveryRecord struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AlertID uuid.UUID `gorm:"column:alerta_id;type:uuid;not null;index:idx_registros_alerta" json:"alerta_id"`
	UserID  uuid.UUID `gorm:"column:usuario_id;type:uuid;not null" json:"usuario_id"`

	Channel AlertChannel   `gorm:"column:canal;type:varchar(10);not null" json:"canal"`
	Status  DeliveryStatus `gorm:"column:estado;type:varchar(10);default:'pendiente';not null" json:"estado"`

	SentAt      *time.Time `gorm:"column:fecha_envio" json:"fecha_envio,omitempty"`
	ReadAt      *time.Time `gorm:"column:fecha_lectura" json:"fecha_lectura,omitempty"`
	ErrorDetail *string    `gorm:"column:error_mensaje;type:text" json:"error_mensaje,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (DeliveryRecord) TableName() string { return "registros_alerta" }

// UserAlertPreferences stores per-user delivery opt-ins. Read by the
// dispatcher before sending; it never blocks instance creation, only
// delivery through opted-out channels.
type UserAlertPreferences struct {
	UserID uuid.UUID `gorm:"column:usuario_id;type:uuid;primaryKey" json:"usuario_id"`

	SystemEnabled bool `gorm:"column:alertas_sistema;default:true;not null" json:"alertas_sistema"`
	EmailEnabled  bool `gorm:"column:alertas_email;default:false;not null" json:"alertas_email"`
	PushEnabled   bool `gorm:"column:alertas_push;default:false;not null" json:"alertas_push"`

	// per-category opt-in, {"vacuna": true, "pago": false, ...};
	// a category absent from the map counts as opted in
	CategoryOptIn datatypes.JSON `gorm:"column:tipos_alertas;type:jsonb" json:"tipos_alertas,omitempty"`

	// allowed send window for email/push
	WindowStart *string                  `gorm:"column:horario_inicio;type:varchar(5)" json:"horario_inicio,omitempty"` // HH:MM
	WindowEnd   *string                  `gorm:"column:horario_fin;type:varchar(5)" json:"horario_fin,omitempty"`
	Weekdays    datatypes.JSONSlice[int] `gorm:"column:dias_semana;type:jsonb" json:"dias_semana,omitempty"` // 0 = domingo

	// digest aggregation instead of immediate delivery
	Digest         bool `gorm:"column:agrupar_alertas;default:false;not null" json:"agrupar_alertas"`
	DigestInterval *int `gorm:"column:intervalo_agrupacion" json:"intervalo_agrupacion,omitempty"` // minutes

	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (UserAlertPreferences) TableName() string { return "configuracion_alertas_usuario" }
