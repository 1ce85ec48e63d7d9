package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tandemdrive/tandem/pkg/core"
	"github.com/tandemdrive/tandem/pkg/streaming"
)

func TestRoster_ElectsEarliest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var r Roster
	assert.Equal(t, core.NoParticipant, r.Owner())

	r.Join(streaming.RosterMember{ID: "late", JoinedAt: base.Add(time.Second)})
	r.Join(streaming.RosterMember{ID: "early", JoinedAt: base})
	r.Join(streaming.RosterMember{ID: "early", JoinedAt: base.Add(time.Hour)})

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, core.ParticipantID("early"), r.Owner())
	assert.Equal(t, []core.ParticipantID{"early", "late"}, r.IDs())
}

func TestRoster_LeaveMigratesOwner(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var r Roster
	r.Join(streaming.RosterMember{ID: "a", JoinedAt: base})
	r.Join(streaming.RosterMember{ID: "b", JoinedAt: base.Add(time.Second)})

	assert.False(t, r.Leave("b"))
	r.Join(streaming.RosterMember{ID: "b", JoinedAt: base.Add(2 * time.Second)})
	assert.True(t, r.Leave("a"))
	assert.Equal(t, core.ParticipantID("b"), r.Owner())
	assert.False(t, r.Leave("missing"))
}

func TestMembers_ConvertsPayload(t *testing.T) {
	var r Roster
	r.Join(streaming.RosterMember{ID: "a", Name: "Ana"})

	members := Members(r.Payload())
	require.Len(t, members, 1)
	assert.Equal(t, "Ana", members[0].Name)
	assert.Equal(t, core.ParticipantID("a"), members[0].ID)
}
