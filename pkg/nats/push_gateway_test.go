package nats

import (
	"context"
	"testing"

	"club-hipico-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// A gateway wired without a NATS connection (startup warning path) must
// fail the send, not panic inside the dispatcher's goroutine.
func TestPushGatewayWithoutPublisherFailsGracefully(t *testing.T) {
	g := NewPushGateway(nil)
	alert := model.Alert{ID: uuid.New(), Title: "Vacuna próxima"}

	err := g.PublishPush(context.Background(), uuid.New(), alert)
	assert.ErrorIs(t, err, ErrPublisherUnavailable)

	err = g.PublishPushDigest(context.Background(), uuid.New(), []model.Alert{alert})
	assert.ErrorIs(t, err, ErrPublisherUnavailable)
}
