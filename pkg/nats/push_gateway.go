package nats

import (
	"context"
	"encoding/json"
	"errors"

	"club-hipico-be/internal/model"
	"club-hipico-be/pkg/events"

	"github.com/google/uuid"
)

// ErrPublisherUnavailable is returned when the gateway was wired without a
// NATS connection; the delivery is recorded as failed instead of panicking.
var ErrPublisherUnavailable = errors.New("publicador NATS no disponible")

// PushGateway adapts the generic Publisher to the push channel contract:
// one event per alert (or digest) on the alertas.push.* subjects. The
// external push gateway owns device tokens and the mobile transport.
type PushGateway struct {
	publisher *Publisher
}

func NewPushGateway(publisher *Publisher) *PushGateway {
	return &PushGateway{publisher: publisher}
}

func (g *PushGateway) PublishPush(ctx context.Context, userID uuid.UUID, alert model.Alert) error {
	if g.publisher == nil {
		return ErrPublisherUnavailable
	}
	return g.publisher.Publish(ctx, events.NewEvent("push.enviar", map[string]interface{}{
		"usuario_id": userID.String(),
		"alerta":     alertPayload(alert),
	}))
}

func (g *PushGateway) PublishPushDigest(ctx context.Context, userID uuid.UUID, alerts []model.Alert) error {
	if g.publisher == nil {
		return ErrPublisherUnavailable
	}
	grouped := make([]map[string]interface{}, 0, len(alerts))
	for _, alert := range alerts {
		grouped = append(grouped, alertPayload(alert))
	}
	return g.publisher.Publish(ctx, events.NewEvent("push.resumen", map[string]interface{}{
		"usuario_id": userID.String(),
		"cantidad":   len(alerts),
		"alertas":    grouped,
	}))
}

func alertPayload(alert model.Alert) map[string]interface{} {
	payload := map[string]interface{}{
		"id":        alert.ID.String(),
		"tipo":      string(alert.Category),
		"prioridad": string(alert.Priority),
		"titulo":    alert.Title,
		"mensaje":   alert.Message,
	}
	if alert.RelatedEntityType != nil && alert.RelatedEntityID != nil {
		payload["entidad_relacionada_tipo"] = *alert.RelatedEntityType
		payload["entidad_relacionada_id"] = alert.RelatedEntityID.String()
	}
	if len(alert.Actions) > 0 {
		var actions interface{}
		if err := json.Unmarshal(alert.Actions, &actions); err == nil {
			payload["acciones_disponibles"] = actions
		}
	}
	return payload
}
