package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"volunteerhub/internal/model"
)

func TestCapabilityTable(t *testing.T) {
	cases := []struct {
		role model.Role
		op   Operation
		want bool
	}{
		{model.RoleOrganizer, OpSubmitEvent, true},
		{model.RoleAdmin, OpSubmitEvent, true},
		{model.RoleVolunteer, OpSubmitEvent, false},
		{model.RoleAdmin, OpDecideEvent, true},
		{model.RoleOrganizer, OpDecideEvent, false},
		{model.RoleVolunteer, OpRegister, true},
		{model.RoleOrganizer, OpRegister, false},
		{model.RoleOrganizer, OpDecideRegistration, true},
		{model.RoleAdmin, OpDecideRegistration, true},
		{model.RoleVolunteer, OpDecideRegistration, false},
		{model.RoleAdmin, OpExportData, true},
		{model.RoleOrganizer, OpExportData, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Can(tc.role, tc.op), "%s / %s", tc.role, tc.op)
	}
}

func TestUnknownOperationDenied(t *testing.T) {
	assert.False(t, Can(model.RoleAdmin, Operation("made.up")))
}

func TestAllowedWithEmptySetMeansAnyValidRole(t *testing.T) {
	assert.True(t, Allowed(model.RoleVolunteer))
	assert.False(t, Allowed(model.Role("GUEST")))
}
