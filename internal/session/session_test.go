package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionDefaults(t *testing.T) {
	s := New("s-1", "u-1")

	assert.Equal(t, "s-1", s.ID)
	assert.Equal(t, "u-1", s.CreatorID)
	assert.Equal(t, StateIdle, s.State)
	assert.Equal(t, "uk", s.Locale)
	assert.Equal(t, FillingModePartial, s.FillingMode)
	assert.NotNil(t, s.RoleOwners)
	assert.NotNil(t, s.PartyFields)
	assert.NotNil(t, s.ContractFields)
	assert.NotNil(t, s.Signatures)
	assert.NotNil(t, s.AllData)
	assert.True(t, s.IsEmpty())
}

func TestIsFullySigned(t *testing.T) {
	s := New("s-1", "u-1")

	// No declared parties means nothing can be fully signed.
	assert.False(t, s.IsFullySigned())

	s.PartyTypes = map[string]string{"lessor": "company", "lessee": "individual"}
	assert.False(t, s.IsFullySigned())

	s.Signatures["lessor"] = true
	assert.False(t, s.IsFullySigned())

	s.Signatures["lessee"] = true
	assert.True(t, s.IsFullySigned())

	// A reset signature reopens the document.
	s.Signatures["lessor"] = false
	assert.False(t, s.IsFullySigned())
}

func TestRolesOwnedByAndParticipants(t *testing.T) {
	s := New("s-1", "creator")
	s.RoleOwners = map[string]string{
		"lessor": "alice",
		"lessee": "bob",
		"agent":  "alice",
	}

	assert.ElementsMatch(t, []string{"lessor", "agent"}, s.RolesOwnedBy("alice"))
	assert.ElementsMatch(t, []string{"lessee"}, s.RolesOwnedBy("bob"))
	assert.Empty(t, s.RolesOwnedBy(""))
	assert.Empty(t, s.RolesOwnedBy("nobody"))

	assert.ElementsMatch(t, []string{"alice", "bob", "creator"}, s.Participants())
}

func TestTouchNormalizesToUTC(t *testing.T) {
	s := New("s-1", "u-1")
	loc := time.FixedZone("EET", 2*60*60)
	s.Touch(time.Date(2025, 6, 1, 12, 0, 0, 0, loc))

	assert.Equal(t, time.UTC, s.UpdatedAt.Location())
	assert.Equal(t, 10, s.UpdatedAt.Hour())
}

func TestStateTransitions(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateIdle, StateCategorySelected},
		{StateIdle, StateTemplateSelected},
		{StateCategorySelected, StateTemplateSelected},
		{StateTemplateSelected, StateCollectingFields},
		{StateTemplateSelected, StateReadyToBuild},
		{StateCollectingFields, StateReadyToBuild},
		{StateReadyToBuild, StateBuilt},
		{StateReadyToBuild, StateCollectingFields},
		{StateBuilt, StateReadyToSign},
		{StateBuilt, StateCompleted},
		{StateBuilt, StateCollectingFields},
		{StateReadyToSign, StateCompleted},
		{StateReadyToSign, StateCollectingFields},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to State }{
		{StateIdle, StateBuilt},
		{StateIdle, StateCompleted},
		{StateCollectingFields, StateCompleted},
		{StateCompleted, StateCollectingFields},
		{StateCompleted, StateBuilt},
		{StateCompleted, StateIdle},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}

	// Self transitions are always fine, including on the terminal state.
	assert.True(t, CanTransition(StateCompleted, StateCompleted))
}

func TestParseStateFallsBackToIdle(t *testing.T) {
	assert.Equal(t, StateReadyToSign, ParseState("ready_to_sign"))
	assert.Equal(t, StateIdle, ParseState("no_such_state"))
	assert.Equal(t, StateIdle, ParseState(""))
}

func TestTTLPolicyHorizons(t *testing.T) {
	p := DefaultTTLPolicy()

	assert.Equal(t, 24*time.Hour, p.ForState(StateIdle))
	assert.Equal(t, 24*time.Hour, p.ForState(StateCollectingFields))
	assert.Equal(t, 7*24*time.Hour, p.ForState(StateBuilt))
	assert.Equal(t, 7*24*time.Hour, p.ForState(StateReadyToSign))
	assert.Equal(t, 365*24*time.Hour, p.ForState(StateCompleted))

	// Horizons never shrink along the lifecycle.
	assert.LessOrEqual(t, p.ForState(StateCollectingFields), p.ForState(StateBuilt))
	assert.LessOrEqual(t, p.ForState(StateBuilt), p.ForState(StateCompleted))
}

func TestTTLForSessionFloorsAtOneSecond(t *testing.T) {
	p := TTLPolicy{Draft: 0, Filled: time.Hour, Signed: time.Hour}
	s := New("s-1", "u-1")

	assert.Equal(t, time.Second, p.ForSession(s))
}
