package service

import (
	"context"
	"fmt"

	"club-hipico-be/internal/model"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/pkg/alert/facts"

	"github.com/google/uuid"
)

// RecipientResolver turns an alert type's recipient spec into the set of
// users who each get their own alert instance. The result is the union of
// configured roles, explicit user ids and the related entity's
// responsible user, deduplicated. An empty result is a valid outcome,
// not an error.
type RecipientResolver struct {
	source facts.Source
	logger logger.ILogger
}

func NewRecipientResolver(source facts.Source, log logger.ILogger) *RecipientResolver {
	return &RecipientResolver{source: source, logger: log}
}

func (r *RecipientResolver) Resolve(ctx context.Context, cfg *model.AlertTypeConfig, entity *facts.EntityRef) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var recipients []uuid.UUID

	add := func(id uuid.UUID) {
		if id != uuid.Nil && !seen[id] {
			seen[id] = true
			recipients = append(recipients, id)
		}
	}

	for _, role := range cfg.SendToRoles {
		ids, err := r.source.ActiveUserIDsWithRole(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("resolviendo rol %s: %w", role, err)
		}
		for _, id := range ids {
			add(id)
		}
	}

	for _, raw := range cfg.SendToUsers {
		id, err := uuid.Parse(raw)
		if err != nil {
			// a malformed id in config should not silence the rest
			r.logger.Warn("RecipientResolver", "Ignoring invalid user id in enviar_a_usuarios", map[string]interface{}{
				"tipo_alerta": cfg.ID.String(),
				"valor":       raw,
			})
			continue
		}
		add(id)
	}

	if cfg.SendToOwners && entity != nil {
		owner, err := r.source.Owner(ctx, *entity)
		if err != nil {
			return nil, fmt.Errorf("resolviendo responsable de %s: %w", entity.Kind, err)
		}
		if owner != nil {
			add(*owner)
		}
	}

	return recipients, nil
}

// ResolveRoles expands a plain role list, used by the manual-creation
// path (crear_para_admins and friends).
func (r *RecipientResolver) ResolveRoles(ctx context.Context, roles []string) ([]uuid.UUID, error) {
	cfg := &model.AlertTypeConfig{SendToRoles: roles}
	return r.Resolve(ctx, cfg, nil)
}
