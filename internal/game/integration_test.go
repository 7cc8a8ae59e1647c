package game

import (
	"testing"
)

// TestIntegration_AIMatchInvariants runs AI against AI through several
// restarts and checks the arena stays consistent on every tick
func TestIntegration_AIMatchInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping long integration test in short mode")
	}

	e := NewEngineWithOptions(EngineOptions{
		AIPlayers:   []int{0, 1},
		RestartTime: 1,
	})

	matches := 0
	e.SetCallbacks(nil, func(MatchResult, []int) { matches++ })

	prevScore := 0
	// 60 simulated seconds at 60 TPS
	for i := 0; i < 3600; i++ {
		events := e.Step(1.0 / 60)
		snap := e.GetSnapshot()

		if snap.ShipCount > 2 {
			t.Fatalf("tick %d: %d ships for 2 players", i, snap.ShipCount)
		}
		for _, s := range snap.Ships {
			if s.X < 0 || s.X > snap.WorldWidth || s.Y < 0 || s.Y > snap.WorldHeight {
				t.Fatalf("tick %d: ship %d outside arena at (%v, %v)", i, s.Player, s.X, s.Y)
			}
			if s.Rotation < 0 || s.Rotation >= 360 {
				t.Fatalf("tick %d: rotation %v not normalized", i, s.Rotation)
			}
		}
		for _, p := range snap.Projectiles {
			if p.TimeLeft <= 0 {
				t.Fatalf("tick %d: expired projectile still alive", i)
			}
		}

		total := 0
		for _, p := range snap.Lifecycle.Players {
			total += p.Score
		}
		if total < prevScore {
			t.Fatalf("tick %d: total score dropped from %d to %d", i, prevScore, total)
		}
		if events.Result != nil && !events.Result.Tie && total != prevScore+1 {
			t.Fatalf("tick %d: a win should add exactly one point (%d -> %d)", i, prevScore, total)
		}
		prevScore = total
	}

	t.Logf("AI vs AI: %d matches decided, scores %v", matches, e.Scores())
}

// TestIntegration_KeyboardDuel drives both ships from a shared key state the
// way the HTTP and WebSocket transports do
func TestIntegration_KeyboardDuel(t *testing.T) {
	e := NewEngine(60)
	startEngine(t, e)

	// Both pilots hold shoot and turn
	e.KeyDown("LShift")
	e.KeyDown("D")
	e.KeyDown("RShift")
	e.KeyDown("J")

	shots := 0
	for i := 0; i < 120; i++ {
		events := e.Step(1.0 / 60)
		shots += len(events.ProjectilesCreated)
		if e.Lifecycle().State != "game" {
			break
		}
	}

	// One shot per pilot per second, fired on the first tick
	if shots < 2 {
		t.Errorf("expected both pilots to fire, got %d shots", shots)
	}

	snap := e.GetSnapshot()
	for _, p := range snap.Projectiles {
		if p.Owner != 0 && p.Owner != 1 {
			t.Errorf("projectile with unknown owner %d", p.Owner)
		}
	}
}
