package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a read-only mirror of the usuarios table owned by the user CRUD
// module. The alert engine only reads it to resolve recipients.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email    string    `gorm:"type:varchar(255)" json:"email"`
	FullName string    `gorm:"column:nombre_completo;type:varchar(255)" json:"nombre_completo"`
	Role     string    `gorm:"column:rol;type:varchar(30)" json:"rol"`
	Active   bool      `gorm:"column:activo;default:true" json:"activo"`

	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "usuarios" }
