package model

import (
	"time"

	"github.com/google/uuid"
)

// Read-only mirrors of the club schema owned by the entity CRUD modules.
// The alert engine only scans these tables for due dates and ownership;
// it never writes them. They are declared here so migrations can stand up
// a complete development database.

type Horse struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name          string     `gorm:"column:nombre;type:varchar(255);not null" json:"nombre"`
	Active        bool       `gorm:"column:activo;default:true" json:"activo"`
	NextVaccine   *time.Time `gorm:"column:proxima_vacuna" json:"proxima_vacuna,omitempty"`
	NextShoeing   *time.Time `gorm:"column:proximo_herraje" json:"proximo_herraje,omitempty"`
	ResponsibleID *uuid.UUID `gorm:"column:responsable_id;type:uuid" json:"responsable_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Horse) TableName() string { return "caballos" }

type Client struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string     `gorm:"column:nombre;type:varchar(255);not null" json:"nombre"`
	Active    bool       `gorm:"column:activo;default:true" json:"activo"`
	BirthDate *time.Time `gorm:"column:fecha_nacimiento" json:"fecha_nacimiento,omitempty"`
	UserID    *uuid.UUID `gorm:"column:usuario_id;type:uuid" json:"usuario_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Client) TableName() string { return "clientes" }

type Event struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string     `gorm:"column:nombre;type:varchar(255);not null" json:"nombre"`
	StartsAt    time.Time  `gorm:"column:fecha_inicio;not null" json:"fecha_inicio"`
	OrganizerID *uuid.UUID `gorm:"column:organizador_id;type:uuid" json:"organizador_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Event) TableName() string { return "eventos" }

type Payment struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ClientID uuid.UUID  `gorm:"column:cliente_id;type:uuid;not null" json:"cliente_id"`
	Amount   float64    `gorm:"column:monto;not null" json:"monto"`
	Status   string     `gorm:"column:estado;type:varchar(20);default:'pendiente';not null" json:"estado"`
	DueDate  *time.Time `gorm:"column:fecha_vencimiento" json:"fecha_vencimiento,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Payment) TableName() string { return "pagos" }
