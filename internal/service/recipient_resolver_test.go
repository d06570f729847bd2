package service

import (
	"context"
	"testing"

	"club-hipico-be/internal/model"
	"club-hipico-be/internal/pkg/logger"
	"club-hipico-be/internal/repository/memory"
	"club-hipico-be/pkg/alert/facts"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestResolverUnionsRolesUsersAndOwner(t *testing.T) {
	admin := uuid.New()
	groom := uuid.New()
	explicit := uuid.New()
	owner := uuid.New()
	horse := facts.EntityRef{Kind: "caballo", ID: uuid.New()}

	source := memory.NewFactSource()
	source.SetRole("administrador", admin)
	source.SetRole("caballerizo", groom)
	source.SetOwner(horse, owner)

	resolver := NewRecipientResolver(source, logger.NewNopLogger())

	cfg := &model.AlertTypeConfig{
		SendToRoles:  datatypes.NewJSONSlice([]string{"administrador", "caballerizo"}),
		SendToUsers:  datatypes.NewJSONSlice([]string{explicit.String()}),
		SendToOwners: true,
	}

	recipients, err := resolver.Resolve(context.Background(), cfg, &horse)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{admin, groom, explicit, owner}, recipients)
}

func TestResolverDeduplicatesOverlap(t *testing.T) {
	admin := uuid.New()
	horse := facts.EntityRef{Kind: "caballo", ID: uuid.New()}

	source := memory.NewFactSource()
	source.SetRole("administrador", admin)
	source.SetOwner(horse, admin) // owner is also an admin

	resolver := NewRecipientResolver(source, logger.NewNopLogger())

	cfg := &model.AlertTypeConfig{
		SendToRoles:  datatypes.NewJSONSlice([]string{"administrador"}),
		SendToUsers:  datatypes.NewJSONSlice([]string{admin.String()}),
		SendToOwners: true,
	}

	recipients, err := resolver.Resolve(context.Background(), cfg, &horse)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{admin}, recipients)
}

func TestResolverEmptySpecYieldsNoRecipients(t *testing.T) {
	resolver := NewRecipientResolver(memory.NewFactSource(), logger.NewNopLogger())

	recipients, err := resolver.Resolve(context.Background(), &model.AlertTypeConfig{}, nil)
	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestResolverSkipsMalformedUserIDs(t *testing.T) {
	valid := uuid.New()
	resolver := NewRecipientResolver(memory.NewFactSource(), logger.NewNopLogger())

	cfg := &model.AlertTypeConfig{
		SendToUsers: datatypes.NewJSONSlice([]string{"no-es-un-uuid", valid.String()}),
	}

	recipients, err := resolver.Resolve(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{valid}, recipients)
}

func TestResolverOwnerWithoutEntityIsIgnored(t *testing.T) {
	resolver := NewRecipientResolver(memory.NewFactSource(), logger.NewNopLogger())

	cfg := &model.AlertTypeConfig{SendToOwners: true}
	recipients, err := resolver.Resolve(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, recipients)
}
