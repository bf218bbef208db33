package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiri-bot/internal/workflow"
	"kiri-bot/internal/workflow/party"
	"kiri-bot/internal/workflow/roll"
	"kiri-bot/internal/workflow/teams"
)

func newRegistry(t *testing.T) *workflow.Registry {
	t.Helper()
	r := workflow.NewRegistry()
	require.NoError(t, r.Register(party.New(nil)))
	require.NoError(t, r.Register(teams.New(nil)))
	require.NoError(t, r.Register(roll.New(nil)))
	return r
}

func TestRegistry_Lookup(t *testing.T) {
	r := newRegistry(t)

	assert.Equal(t, 3, r.Count())
	assert.Equal(t, []string{"grouproll", "party", "teams"}, r.Commands())

	w, ok := r.ByCommand("grouproll")
	require.True(t, ok)
	assert.Equal(t, workflow.KindRoll, w.Kind())

	_, ok = r.ByCommand("roll")
	assert.False(t, ok, "single roll is not a session workflow")

	w, ok = r.Get(workflow.KindParty)
	require.True(t, ok)
	assert.Equal(t, "party", w.Command())
}

func TestRegistry_ByAction(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		action string
		kind   workflow.Kind
		typ    workflow.ActionType
	}{
		{"join_party", workflow.KindParty, workflow.ActionJoin},
		{"join_teams", workflow.KindTeams, workflow.ActionJoin},
		{"create_teams", workflow.KindTeams, workflow.ActionFinalize},
		{"retry_teams", workflow.KindTeams, workflow.ActionRetry},
		{"join_roll", workflow.KindRoll, workflow.ActionJoin},
		{"start_roll", workflow.KindRoll, workflow.ActionFinalize},
		{"retry_roll", workflow.KindRoll, workflow.ActionRetry},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			w, typ, ok := r.ByAction(tt.action)
			require.True(t, ok)
			assert.Equal(t, tt.kind, w.Kind())
			assert.Equal(t, tt.typ, typ)
		})
	}

	_, _, ok := r.ByAction("nope")
	assert.False(t, ok)
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := workflow.NewRegistry()
	assert.Error(t, r.Register(nil))

	require.NoError(t, r.Register(party.New(nil)))
	// Re-registering the same kind replaces it.
	require.NoError(t, r.Register(party.New(&party.Config{DefaultSize: 8})))
	w, ok := r.Get(workflow.KindParty)
	require.True(t, ok)
	assert.Equal(t, 8, w.Option().Default)
	assert.Equal(t, 1, r.Count())
}
