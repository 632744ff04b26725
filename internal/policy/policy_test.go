package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/university-events/internal/model"
)

func TestIsAllowed(t *testing.T) {
	type row struct{ admin, organizer, participant bool }
	table := map[Action]row{
		CreateEvent:      {false, true, false},
		AddOrganizer:     {true, false, false},
		BuyTicket:        {false, false, true},
		CancelTicket:     {false, false, true},
		CloseEvent:       {true, true, false},
		ViewParticipants: {true, true, false},
	}
	for action, want := range table {
		t.Run(string(action), func(t *testing.T) {
			assert.Equal(t, want.admin, IsAllowed(model.RoleAdmin, action), "admin")
			assert.Equal(t, want.organizer, IsAllowed(model.RoleOrganizer, action), "organizer")
			assert.Equal(t, want.participant, IsAllowed(model.RoleParticipant, action), "participant")
		})
	}
}

func TestUnknownInputsDenied(t *testing.T) {
	assert.False(t, IsAllowed(model.Role("root"), CloseEvent))
	assert.False(t, IsAllowed("", BuyTicket))
	assert.False(t, IsAllowed(model.RoleAdmin, Action("drop_tables")))
}

func TestDecisionIsStable(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.True(t, IsAllowed(model.RoleOrganizer, CreateEvent))
		assert.False(t, IsAllowed(model.RoleParticipant, CreateEvent))
	}
}
