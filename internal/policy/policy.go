// Package policy answers whether a principal may perform an action. All
// role checks in the service go through Can.
package policy

import "github.com/Shivanand-hulikatti/event-rsvp/internal/model"

// Action names a guarded operation.
type Action string

const (
	EventCreate         Action = "event:create"
	EventRead           Action = "event:read"
	EventUpdate         Action = "event:update"
	EventDelete         Action = "event:delete"
	EventManageMembers  Action = "event:manage_members"
	RegistrationRead    Action = "registration:read"
	RegistrationManage  Action = "registration:manage"
	CheckInManage       Action = "checkin:manage"
	InteractionCreate   Action = "interaction:create"
	InteractionModerate Action = "interaction:moderate"
	InteractionDelete   Action = "interaction:delete"
	SystemAdmin         Action = "system:admin"
)

// Scope describes the event an action targets. A zero Scope means the action
// is not tied to a particular event.
type Scope struct {
	EventScoped bool
	OwnerID     string
	IsMember    bool
}

// ForEvent builds the Scope of an action on ev.
func ForEvent(ev *model.Event, isMember bool) Scope {
	return Scope{EventScoped: true, OwnerID: ev.OwnerID, IsMember: isMember}
}

var staffActions = []Action{
	EventRead, EventUpdate, EventManageMembers,
	RegistrationRead, RegistrationManage, CheckInManage,
	InteractionCreate, InteractionModerate, InteractionDelete,
}

var capabilities = map[model.Role]map[Action]bool{
	model.RoleStaff: set(staffActions...),
	model.RoleOwner: set(append([]Action{EventCreate, EventDelete}, staffActions...)...),
}

func set(actions ...Action) map[Action]bool {
	m := make(map[Action]bool, len(actions))
	for _, a := range actions {
		m[a] = true
	}
	return m
}

// Can reports whether p may perform action within scope. ADMIN may do
// anything. OWNER and STAFF need the capability and, for event-scoped
// actions, must own the event or be on its staff respectively.
func Can(p *model.Principal, action Action, scope Scope) bool {
	if p == nil || !p.Role.Valid() {
		return false
	}
	if p.Role == model.RoleAdmin {
		return true
	}
	if !capabilities[p.Role][action] {
		return false
	}
	if !scope.EventScoped {
		return true
	}
	switch p.Role {
	case model.RoleOwner:
		return scope.OwnerID == p.ID
	case model.RoleStaff:
		return scope.IsMember
	}
	return false
}

// Require is Can returning model.ErrUnauthorized or model.ErrForbidden.
func Require(p *model.Principal, action Action, scope Scope) error {
	if p == nil {
		return model.ErrUnauthorized
	}
	if !Can(p, action, scope) {
		return model.ErrForbidden
	}
	return nil
}
