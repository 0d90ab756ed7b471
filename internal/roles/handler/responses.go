package handler

import (
	"time"

	"verigate/internal/roles/models"
)

type RoleStateResponse struct {
	CurrentRole string                 `json:"current_role,omitempty"`
	Roles       []models.AvailableRole `json:"roles"`
}

type SessionResponse struct {
	SessionID   string    `json:"session_id"`
	CurrentRole string    `json:"current_role"`
	Device      string    `json:"device,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromSession(s *models.Session) SessionResponse {
	return SessionResponse{
		SessionID:   s.ID.String(),
		CurrentRole: string(s.CurrentRole),
		Device:      s.DeviceDisplayName,
		UpdatedAt:   s.UpdatedAt,
	}
}
