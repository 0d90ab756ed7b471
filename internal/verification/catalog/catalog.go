// Package catalog is the single table mapping roles to the steps they require.
package catalog

import (
	"verigate/internal/verification/models"
)

var baseSteps = []models.Step{
	{ID: "personal_info", Kind: models.StepPersonalInfo},
	documentStep(models.DocumentIdentity),
	documentStep(models.DocumentAddress),
}

// roleExtras holds the steps each role adds on top of the base steps. Every
// role in models.AllRoles must have an entry, even an empty one.
var roleExtras = map[models.Role][]models.Step{
	models.RoleCustomer: {},
	models.RoleMerchant: {
		documentStep(models.DocumentBusiness),
	},
	models.RoleDriver: {
		documentStep(models.DocumentDriverLicense),
		documentStep(models.DocumentVehicleRegistration),
	},
}

func documentStep(t models.DocumentType) models.Step {
	return models.Step{ID: string(t), Kind: models.StepDocument, DocumentType: t}
}

// Steps returns the ordered steps for role. The slice is a fresh copy.
func Steps(role models.Role) ([]models.Step, error) {
	extras, ok := roleExtras[role]
	if !ok {
		return nil, models.UnknownRoleError(string(role))
	}
	steps := make([]models.Step, 0, len(baseSteps)+len(extras))
	steps = append(steps, baseSteps...)
	return append(steps, extras...), nil
}

// HasExtras reports whether role requires steps beyond the base set.
func HasExtras(role models.Role) bool {
	return len(roleExtras[role]) > 0
}

// Roles lists roles with a catalog entry, in display order.
func Roles() []models.Role {
	var out []models.Role
	for _, r := range models.AllRoles() {
		if _, ok := roleExtras[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// RolesRequiring returns the roles whose steps include documents of type t.
func RolesRequiring(t models.DocumentType) []models.Role {
	var out []models.Role
	for _, r := range Roles() {
		steps, _ := Steps(r)
		for _, s := range steps {
			if s.Kind == models.StepDocument && s.DocumentType == t {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
