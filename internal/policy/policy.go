// Package policy answers whether a role may perform an action.  It holds
// no state and touches nothing outside its arguments.
package policy

import "github.com/iliyamo/university-events/internal/model"

// Action names a guarded operation.
type Action string

const (
	CreateEvent      Action = "create_event"
	AddOrganizer     Action = "add_organizer"
	BuyTicket        Action = "buy_ticket"
	CancelTicket     Action = "cancel_ticket"
	CloseEvent       Action = "close_event"
	ViewParticipants Action = "view_participants"
)

// rules lists, per action, the roles allowed to perform it.  Anything
// absent is denied, including unknown roles and unknown actions.
var rules = map[Action]map[model.Role]bool{
	CreateEvent:      {model.RoleOrganizer: true},
	AddOrganizer:     {model.RoleAdmin: true},
	BuyTicket:        {model.RoleParticipant: true},
	CancelTicket:     {model.RoleParticipant: true},
	CloseEvent:       {model.RoleAdmin: true, model.RoleOrganizer: true},
	ViewParticipants: {model.RoleAdmin: true, model.RoleOrganizer: true},
}

// IsAllowed reports whether role may perform action.
func IsAllowed(role model.Role, action Action) bool {
	return rules[action][role]
}
