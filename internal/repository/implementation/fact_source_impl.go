package implementation

import (
	"context"
	"errors"
	"time"

	"club-hipico-be/internal/model"
	"club-hipico-be/pkg/alert/facts"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FactSourceImpl reads the club schema owned by the entity CRUD modules
// (caballos, pagos, eventos, clientes, usuarios) and exposes it as
// evaluation snapshots. Strictly read-only.
type FactSourceImpl struct {
	db *gorm.DB
}

func NewFactSource(db *gorm.DB) facts.Source {
	return &FactSourceImpl{db: db}
}

func (s *FactSourceImpl) FactsForCategory(ctx context.Context, category string, asOf time.Time) ([]facts.Snapshot, error) {
	switch model.AlertCategory(category) {
	case model.CategoryVaccine:
		return s.horseDueDates(ctx, "proxima_vacuna", asOf)
	case model.CategoryShoeing:
		return s.horseDueDates(ctx, "proximo_herraje", asOf)
	case model.CategoryPayment:
		return s.pendingPayments(ctx, asOf)
	case model.CategoryEvent:
		return s.upcomingEvents(ctx, asOf)
	case model.CategoryBirthday:
		return s.clientBirthdays(ctx, asOf)
	default:
		// categories without a backing dataset (tarea, stock, ...) only
		// carry manually created alerts
		return []facts.Snapshot{}, nil
	}
}

type horseRow struct {
	ID      uuid.UUID
	Nombre  string
	DueDate time.Time
}

func (s *FactSourceImpl) horseDueDates(ctx context.Context, dateColumn string, asOf time.Time) ([]facts.Snapshot, error) {
	var rows []horseRow
	err := s.db.WithContext(ctx).
		Table("caballos").
		Select("id, nombre, "+dateColumn+" AS due_date").
		Where("activo = ?", true).
		Where(dateColumn + " IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	snaps := make([]facts.Snapshot, 0, len(rows))
	for _, row := range rows {
		due := row.DueDate
		snaps = append(snaps, facts.Snapshot{
			Entity:     facts.EntityRef{Kind: "caballo", ID: row.ID},
			TargetDate: &due,
			Facts: map[string]interface{}{
				"caballo_nombre":         row.Nombre,
				"fecha_vencimiento":      due,
				"dias_hasta_vencimiento": daysBetween(asOf, due),
			},
		})
	}
	return snaps, nil
}

type paymentRow struct {
	ID            uuid.UUID
	Monto         float64
	Estado        string
	Vencimiento   time.Time
	ClienteNombre string
}

func (s *FactSourceImpl) pendingPayments(ctx context.Context, asOf time.Time) ([]facts.Snapshot, error) {
	var rows []paymentRow
	err := s.db.WithContext(ctx).
		Table("pagos").
		Select("pagos.id, pagos.monto, pagos.estado, pagos.fecha_vencimiento AS vencimiento, clientes.nombre AS cliente_nombre").
		Joins("JOIN clientes ON clientes.id = pagos.cliente_id").
		Where("pagos.estado IN ?", []string{"pendiente", "vencido"}).
		Where("pagos.fecha_vencimiento IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	snaps := make([]facts.Snapshot, 0, len(rows))
	for _, row := range rows {
		due := row.Vencimiento
		daysLeft := daysBetween(asOf, due)
		overdue := 0
		if daysLeft < 0 {
			overdue = -daysLeft
		}
		snaps = append(snaps, facts.Snapshot{
			Entity:     facts.EntityRef{Kind: "pago", ID: row.ID},
			TargetDate: &due,
			Facts: map[string]interface{}{
				"monto":                  row.Monto,
				"estado":                 row.Estado,
				"cliente_nombre":         row.ClienteNombre,
				"fecha_vencimiento":      due,
				"dias_hasta_vencimiento": daysLeft,
				"dias_vencido":           overdue,
			},
		})
	}
	return snaps, nil
}

type eventRow struct {
	ID     uuid.UUID
	Nombre string
	Inicio time.Time
}

func (s *FactSourceImpl) upcomingEvents(ctx context.Context, asOf time.Time) ([]facts.Snapshot, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Table("eventos").
		Select("id, nombre, fecha_inicio AS inicio").
		Where("fecha_inicio >= ?", startOfDay(asOf)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	snaps := make([]facts.Snapshot, 0, len(rows))
	for _, row := range rows {
		start := row.Inicio
		snaps = append(snaps, facts.Snapshot{
			Entity:     facts.EntityRef{Kind: "evento", ID: row.ID},
			TargetDate: &start,
			Facts: map[string]interface{}{
				"evento_nombre":     row.Nombre,
				"fecha_evento":      start,
				"dias_hasta_evento": daysBetween(asOf, start),
			},
		})
	}
	return snaps, nil
}

type clientRow struct {
	ID         uuid.UUID
	Nombre     string
	Nacimiento time.Time
}

func (s *FactSourceImpl) clientBirthdays(ctx context.Context, asOf time.Time) ([]facts.Snapshot, error) {
	var rows []clientRow
	err := s.db.WithContext(ctx).
		Table("clientes").
		Select("id, nombre, fecha_nacimiento AS nacimiento").
		Where("activo = ?", true).
		Where("fecha_nacimiento IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	snaps := make([]facts.Snapshot, 0, len(rows))
	for _, row := range rows {
		next := nextBirthday(row.Nacimiento, asOf)
		snaps = append(snaps, facts.Snapshot{
			Entity:     facts.EntityRef{Kind: "cliente", ID: row.ID},
			TargetDate: &next,
			Facts: map[string]interface{}{
				"cliente_nombre":        row.Nombre,
				"fecha_cumpleaños":      next,
				"dias_hasta_cumpleaños": daysBetween(asOf, next),
			},
		})
	}
	return snaps, nil
}

// Owner resolves the responsible user per entity kind; nil when the
// entity has no assigned user.
func (s *FactSourceImpl) Owner(ctx context.Context, ref facts.EntityRef) (*uuid.UUID, error) {
	var table, column string
	switch ref.Kind {
	case "caballo":
		table, column = "caballos", "responsable_id"
	case "cliente":
		table, column = "clientes", "usuario_id"
	case "evento":
		table, column = "eventos", "organizador_id"
	case "pago":
		// payments belong to the client's linked user
		var ownerID *uuid.UUID
		err := s.db.WithContext(ctx).
			Table("pagos").
			Select("clientes.usuario_id").
			Joins("JOIN clientes ON clientes.id = pagos.cliente_id").
			Where("pagos.id = ?", ref.ID).
			Scan(&ownerID).Error
		return ownerID, err
	default:
		return nil, nil
	}

	var ownerID *uuid.UUID
	err := s.db.WithContext(ctx).
		Table(table).
		Select(column).
		Where("id = ?", ref.ID).
		Scan(&ownerID).Error
	return ownerID, err
}

func (s *FactSourceImpl) ActiveUserIDsWithRole(ctx context.Context, role string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("rol = ? AND activo = ?", role, true).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *FactSourceImpl) ActiveUserEmail(ctx context.Context, userID uuid.UUID) (string, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("id = ? AND activo = ?", userID, true).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", errors.New("usuario inactivo o inexistente")
	}
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days from a to b, negative when b is
// in the past.
func daysBetween(a, b time.Time) int {
	return int(startOfDay(b).Sub(startOfDay(a)).Hours() / 24)
}

func nextBirthday(born, asOf time.Time) time.Time {
	next := time.Date(asOf.Year(), born.Month(), born.Day(), 0, 0, 0, 0, asOf.Location())
	if next.Before(startOfDay(asOf)) {
		next = time.Date(asOf.Year()+1, born.Month(), born.Day(), 0, 0, 0, 0, asOf.Location())
	}
	return next
}
