package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vmodels "verigate/internal/verification/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
)

func TestSession(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	userID := id.UserID(uuid.New())

	t.Run("requires ids", func(t *testing.T) {
		_, err := NewSession(id.SessionID{}, userID, "", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("starts without a role", func(t *testing.T) {
		s, err := NewSession(id.NewSessionID(), userID, "Firefox on Linux", now)
		require.NoError(t, err)
		assert.Empty(t, s.CurrentRole)
		assert.Zero(t, s.Version)
		assert.True(t, s.BelongsTo(userID))
		assert.False(t, s.BelongsTo(id.UserID(uuid.New())))
	})

	t.Run("switch bumps version and keeps device when unknown", func(t *testing.T) {
		s, err := NewSession(id.NewSessionID(), userID, "Firefox on Linux", now)
		require.NoError(t, err)

		s.ApplySwitch(vmodels.RoleMerchant, "", now.Add(time.Minute))
		assert.Equal(t, vmodels.RoleMerchant, s.CurrentRole)
		assert.Equal(t, uint64(1), s.Version)
		assert.Equal(t, "Firefox on Linux", s.DeviceDisplayName)
		assert.Equal(t, now.Add(time.Minute), s.UpdatedAt)
	})
}

func TestAvailableFrom(t *testing.T) {
	verified := AvailableFrom(&vmodels.Evaluation{Role: vmodels.RoleCustomer, Status: vmodels.StatusVerified, Level: vmodels.LevelBasic, CompletionPercentage: 100})
	assert.True(t, verified.Switchable)
	assert.Empty(t, verified.Route)

	rejected := AvailableFrom(&vmodels.Evaluation{Role: vmodels.RoleDriver, Status: vmodels.StatusRejected})
	assert.False(t, rejected.Switchable)
	assert.Equal(t, vmodels.RouteResubmit, rejected.Route)
}
