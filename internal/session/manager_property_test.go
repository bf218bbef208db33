// Package session property-based tests for roster and lifecycle invariants.
package session

import (
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"kiri-bot/internal/workflow"
)

// TestJoinOrderProperty tests that for any sequence of joins the roster holds
// exactly the accepted ids in first-acceptance order, and repeated ids are
// rejected with ErrAlreadyJoined.
func TestJoinOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newTestManager(t)
		snap, _, err := m.Start(channel, workflow.KindTeams, workflow.Settings{TeamCount: 2})
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		ids := rapid.SliceOfN(rapid.IntRange(0, 15), 0, 40).Draw(t, "ids")

		var expected []string
		seen := map[string]bool{}
		for _, n := range ids {
			id := fmt.Sprintf("u%d", n)
			_, err := m.Join(channel, workflow.KindTeams, snap.Generation, id, "name-"+id)
			if seen[id] {
				if !errors.Is(err, ErrAlreadyJoined) {
					t.Fatalf("rejoin of %s: expected ErrAlreadyJoined, got %v", id, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("join of %s failed: %v", id, err)
			}
			seen[id] = true
			expected = append(expected, id)
		}

		final, err := liveSession(m, channel, workflow.KindTeams)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if len(final.Participants) != len(expected) {
			t.Fatalf("roster size %d, expected %d", len(final.Participants), len(expected))
		}
		for i, p := range final.Participants {
			if p.ID != expected[i] {
				t.Fatalf("position %d holds %s, expected %s", i, p.ID, expected[i])
			}
		}
	})
}

// TestPartyFullOnceProperty tests that a party with threshold T fires Full on
// exactly the T-th accepted join and rejects every later newcomer.
func TestPartyFullOnceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newTestManager(t)
		threshold := rapid.IntRange(1, 10).Draw(t, "threshold")
		joins := rapid.IntRange(0, 25).Draw(t, "joins")

		snap, _, err := m.Start(channel, workflow.KindParty, workflow.Settings{Threshold: threshold})
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		fullCount := 0
		for i := 0; i < joins; i++ {
			res, err := m.Join(channel, workflow.KindParty, snap.Generation, fmt.Sprintf("u%d", i), "p")
			if i < threshold {
				if err != nil {
					t.Fatalf("join %d failed: %v", i, err)
				}
				if res.Full {
					fullCount++
					if i != threshold-1 {
						t.Fatalf("Full fired on join %d, threshold %d", i, threshold)
					}
					if len(res.Snapshot.Participants) != threshold {
						t.Fatalf("Full carried %d participants, expected %d", len(res.Snapshot.Participants), threshold)
					}
				}
				continue
			}
			if !errors.Is(err, ErrSessionClosed) {
				t.Fatalf("join %d after full: expected ErrSessionClosed, got %v", i, err)
			}
		}

		expectedFull := 0
		if joins >= threshold {
			expectedFull = 1
		}
		if fullCount != expectedFull {
			t.Fatalf("Full fired %d times, expected %d", fullCount, expectedFull)
		}
	})
}

// TestStaleTokenNeverMutatesProperty tests that after a restart, joins with
// the old generation are expired and neither roster changes.
func TestStaleTokenNeverMutatesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newTestManager(t)
		before := rapid.IntRange(0, 5).Draw(t, "before")
		after := rapid.IntRange(1, 5).Draw(t, "after")

		old, _, err := m.Start(channel, workflow.KindRoll, workflow.Settings{RollRange: 100})
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		for i := 0; i < before; i++ {
			if _, err := m.Join(channel, workflow.KindRoll, old.Generation, fmt.Sprintf("o%d", i), "old"); err != nil {
				t.Fatalf("join failed: %v", err)
			}
		}

		if _, _, err := m.Start(channel, workflow.KindRoll, workflow.Settings{RollRange: 100}); err != nil {
			t.Fatalf("restart failed: %v", err)
		}
		for i := 0; i < after; i++ {
			_, err := m.Join(channel, workflow.KindRoll, old.Generation, fmt.Sprintf("n%d", i), "new")
			if !errors.Is(err, ErrSessionExpired) {
				t.Fatalf("stale join: expected ErrSessionExpired, got %v", err)
			}
		}

		current, err := liveSession(m, channel, workflow.KindRoll)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if len(current.Participants) != 0 {
			t.Fatalf("new roster mutated by stale joins: %v", current.Participants)
		}
	})
}
