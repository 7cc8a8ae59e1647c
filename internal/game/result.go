package game

import (
	"fmt"
	"log"

	"spacewar/internal/game/ecs"
)

// MatchResult is the verdict of a finished match.
type MatchResult struct {
	Tie    bool `json:"tie" msgpack:"tie"`
	Winner int  `json:"winner" msgpack:"winner"` // player index, -1 on a tie
}

// TieResult is the verdict when no ship survives.
var TieResult = MatchResult{Tie: true, Winner: -1}

// WinFor returns the verdict for a single victorious player.
func WinFor(player int) MatchResult {
	return MatchResult{Winner: player}
}

func (r MatchResult) String() string {
	if r.Tie {
		return "tie"
	}
	return fmt.Sprintf("player %d wins", r.Winner)
}

// EvaluateResult decides the match from the surviving ships.
// No ships left is a tie and a lone survivor wins. While two or more ships
// remain play continues, so in a duel the first kill decides the match and
// larger arenas fight down to the last ship. It only reads the world.
func EvaluateResult(w *World, players int) (MatchResult, bool) {
	live := w.Ships.Len()

	// More ships than players means a spawn bug, not a game outcome
	if live > players {
		assertThat(false, "live ships exceed player count", live, players)
		log.Printf("⚠️ Result check skipped: %d live ships for %d players", live, players)
		return MatchResult{}, false
	}

	switch {
	case live == 0:
		return TieResult, true
	case live == 1 && players > 1:
		winner := -1
		w.Ships.Each(func(_ ecs.Entity, s *IsShip) {
			winner = s.Player
		})
		return WinFor(winner), true
	default:
		return MatchResult{}, false
	}
}
