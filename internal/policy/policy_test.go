package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

func TestCan(t *testing.T) {
	admin := &model.Principal{ID: "u-admin", Role: model.RoleAdmin}
	owner := &model.Principal{ID: "u-owner", Role: model.RoleOwner}
	otherOwner := &model.Principal{ID: "u-other", Role: model.RoleOwner}
	staff := &model.Principal{ID: "u-staff", Role: model.RoleStaff}

	ev := &model.Event{ID: "ev-1", OwnerID: "u-owner"}

	tests := []struct {
		name   string
		p      *model.Principal
		action Action
		scope  Scope
		want   bool
	}{
		{"admin anything", admin, SystemAdmin, Scope{}, true},
		{"admin any event", admin, CheckInManage, ForEvent(ev, false), true},
		{"owner creates events", owner, EventCreate, Scope{}, true},
		{"owner checks in own event", owner, CheckInManage, ForEvent(ev, false), true},
		{"owner cannot touch another owner's event", otherOwner, CheckInManage, ForEvent(ev, false), false},
		{"owner is not system admin", owner, SystemAdmin, Scope{}, false},
		{"staff cannot create events", staff, EventCreate, Scope{}, false},
		{"staff cannot delete events", staff, EventDelete, ForEvent(ev, true), false},
		{"staff member checks in", staff, CheckInManage, ForEvent(ev, true), true},
		{"staff non-member refused", staff, CheckInManage, ForEvent(ev, false), false},
		{"staff moderates as member", staff, InteractionModerate, ForEvent(ev, true), true},
		{"nil principal", nil, EventRead, Scope{}, false},
		{"unknown role", &model.Principal{ID: "x", Role: "GUEST"}, EventRead, Scope{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.p, tt.action, tt.scope))
		})
	}
}

func TestRequire(t *testing.T) {
	staff := &model.Principal{ID: "u-staff", Role: model.RoleStaff}

	assert.ErrorIs(t, Require(nil, EventRead, Scope{}), model.ErrUnauthorized)
	assert.ErrorIs(t, Require(staff, SystemAdmin, Scope{}), model.ErrForbidden)
	assert.NoError(t, Require(staff, RegistrationRead, Scope{EventScoped: true, IsMember: true}))
}
