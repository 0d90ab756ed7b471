package handler

import (
	"strings"

	vmodels "verigate/internal/verification/models"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/validation"
)

type SwitchRoleRequest struct {
	Role string `json:"role" validate:"required"`

	parsedRole vmodels.Role
}

func (r *SwitchRoleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Role = strings.TrimSpace(r.Role)
	if err := validation.Struct(r); err != nil {
		return err
	}
	role, err := vmodels.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.parsedRole = role
	return nil
}

func (r *SwitchRoleRequest) ParsedRole() vmodels.Role {
	return r.parsedRole
}
