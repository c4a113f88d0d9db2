// Package policy is the single authorization decision point: a capability
// table from operation to the roles allowed to invoke it, checked by one
// pure function. No side effects, evaluated after authentication and before
// any state mutation.
package policy

import "volunteerhub/internal/model"

type Operation string

const (
	OpSubmitEvent         Operation = "event.submit"
	OpDecideEvent         Operation = "event.decide"
	OpListPendingEvents   Operation = "event.list_pending"
	OpListApprovalHistory Operation = "event.list_history"
	OpExportData          Operation = "admin.export"
	OpCreatePrivileged    Operation = "admin.create_user"
	OpRegister            Operation = "registration.register"
	OpDecideRegistration  Operation = "registration.decide"
)

var capabilities = map[Operation][]model.Role{
	OpSubmitEvent:         {model.RoleOrganizer, model.RoleAdmin},
	OpDecideEvent:         {model.RoleAdmin},
	OpListPendingEvents:   {model.RoleAdmin},
	OpListApprovalHistory: {model.RoleAdmin},
	OpExportData:          {model.RoleAdmin},
	OpCreatePrivileged:    {model.RoleAdmin},
	OpRegister:            {model.RoleVolunteer},
	OpDecideRegistration:  {model.RoleOrganizer, model.RoleAdmin},
}

// Allowed reports whether role may hold any of required. An empty required
// set means any authenticated identity.
func Allowed(role model.Role, required ...model.Role) bool {
	if len(required) == 0 {
		return role.Valid()
	}
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}

// Can answers from the capability table; unknown operations are denied.
func Can(role model.Role, op Operation) bool {
	roles, ok := capabilities[op]
	if !ok {
		return false
	}
	return Allowed(role, roles...)
}

// RolesFor exposes the table row for an operation so routing can wire the
// same set into its guard middleware.
func RolesFor(op Operation) []model.Role {
	return capabilities[op]
}
