package game

import (
	"fmt"
	"log"

	"spacewar/internal/game/geom"
)

// Lifecycle timing.
const (
	DefaultTimeWhenRestart = 15.0 // seconds on the game-over screen before auto restart
	SlowMotionDuration     = 2.0  // seconds to ease from SlowMotionMin back to real time
	SlowMotionMin          = 0.2
)

// StateKind names a lifecycle state.
type StateKind uint8

const (
	StateStarting StateKind = iota
	StateInGame
	StateGameOver
)

// String returns the state name
func (k StateKind) String() string {
	switch k {
	case StateStarting:
		return "starting"
	case StateInGame:
		return "game"
	case StateGameOver:
		return "gameover"
	default:
		return "unknown"
	}
}

// State is one of *Starting, *InGame or *GameOver.
type State interface {
	Kind() StateKind
}

// Starting waits for every player to press a key (or hand over to the AI).
type Starting struct {
	Ready       []bool
	TimeInState float64
}

// InGame runs the simulation at real time.
type InGame struct {
	TimeInState float64
}

// GameOver keeps the world running in slow motion until a restart.
type GameOver struct {
	Result          MatchResult
	TimeInState     float64
	TimeWhenRestart float64
}

func (*Starting) Kind() StateKind { return StateStarting }
func (*InGame) Kind() StateKind   { return StateInGame }
func (*GameOver) Kind() StateKind { return StateGameOver }

// SlowMotionFactor is the time dilation applied t seconds into GameOver.
func SlowMotionFactor(t float64) float64 {
	return geom.Lerp(SlowMotionMin, 1, geom.Clamp(t/SlowMotionDuration, 0, 1))
}

// Match owns a world, its players and the lifecycle state. Not safe for
// concurrent use; the Engine serializes access.
type Match struct {
	world   *World
	players []*Player
	state   State

	timeWhenRestart  float64
	restartKey       Key
	restartRequested bool
}

// MatchOption configures a Match.
type MatchOption func(*Match)

// WithRestartTime sets how long GameOver lasts before an automatic restart.
func WithRestartTime(seconds float64) MatchOption {
	return func(m *Match) {
		if seconds > 0 {
			m.timeWhenRestart = seconds
		}
	}
}

// WithRestartKey changes the key that restarts a finished match.
func WithRestartKey(key Key) MatchOption {
	return func(m *Match) {
		if key != "" {
			m.restartKey = key
		}
	}
}

// NewMatch creates a match in the Starting state. Players already flagged
// as AI start out ready.
func NewMatch(world *World, players []*Player, opts ...MatchOption) *Match {
	m := &Match{
		world:           world,
		players:         players,
		timeWhenRestart: DefaultTimeWhenRestart,
		restartKey:      RestartKey,
	}
	for _, opt := range opts {
		opt(m)
	}

	ready := make([]bool, len(players))
	for i, p := range players {
		ready[i] = p.IsAI
	}
	m.state = &Starting{Ready: ready}

	return m
}

// World returns the simulated world.
func (m *Match) World() *World { return m.world }

// Players returns the participants in index order.
func (m *Match) Players() []*Player { return m.players }

// State returns the current lifecycle state.
func (m *Match) State() State { return m.state }

// Scores returns each player's score in index order.
func (m *Match) Scores() []int {
	scores := make([]int, len(m.players))
	for i, p := range m.players {
		scores[i] = p.Score
	}
	return scores
}

// HandleKeyReleased feeds a key-up into the ready check. Keys released in
// other states are ignored.
func (m *Match) HandleKeyReleased(key Key) {
	st, ok := m.state.(*Starting)
	if !ok {
		return
	}

	norm := key.Normalize()
	for i, p := range m.players {
		if p.Keymap.Contains(key) {
			st.Ready[i] = true
		}
		if p.MakeAIKey != "" && p.MakeAIKey.Normalize() == norm {
			p.IsAI = true
			st.Ready[i] = true
		}
	}
}

// SetPlayerAI hands a player's ship to the AI or back to the keyboard.
// During the ready check switching to AI also marks the player ready.
func (m *Match) SetPlayerAI(index int, ai bool) error {
	if index < 0 || index >= len(m.players) {
		return fmt.Errorf("player %d out of range [0, %d)", index, len(m.players))
	}
	m.players[index].IsAI = ai
	if st, ok := m.state.(*Starting); ok && ai {
		st.Ready[index] = true
	}
	return nil
}

// RequestRestart asks a finished match to restart on the next update.
// Returns false outside GameOver, where the request is ignored.
func (m *Match) RequestRestart() bool {
	if _, ok := m.state.(*GameOver); !ok {
		return false
	}
	m.restartRequested = true
	return true
}

// Update advances the lifecycle by dt seconds. dt is clamped to MaxDelta.
func (m *Match) Update(dt float64, controls Controls) FrameEvents {
	dt = ClampDelta(dt)

	switch st := m.state.(type) {
	case *Starting:
		st.TimeInState += dt
		for _, ready := range st.Ready {
			if !ready {
				return FrameEvents{}
			}
		}
		m.startGame()
		return FrameEvents{}

	case *InGame:
		st.TimeInState += dt
		m.applyInputs(controls)

		events := Simulate(m.world, dt)
		result, ok := EvaluateResult(m.world, len(m.players))
		if !ok {
			return events
		}

		if !result.Tie && result.Winner >= 0 && result.Winner < len(m.players) {
			m.players[result.Winner].Score++
		}
		log.Printf("🏁 Match over: %s (scores %v)", result, m.Scores())

		m.state = &GameOver{Result: result, TimeWhenRestart: m.timeWhenRestart}
		events.Result = &result
		return events

	case *GameOver:
		for _, p := range m.players {
			ApplyShipInput(m.world, p.Ship, ShipInput{})
		}

		events := Simulate(m.world, dt*SlowMotionFactor(st.TimeInState))
		st.TimeInState += dt

		restart := m.restartRequested || (controls != nil && controls.IsPressed(m.restartKey))
		if restart || st.TimeInState > st.TimeWhenRestart {
			m.startGame()
		}
		return events

	default:
		panic(fmt.Sprintf("unknown match state %T", m.state))
	}
}

// startGame rebuilds the world and enters InGame. Scores are kept.
func (m *Match) startGame() {
	m.world.RecreateWorld(m.players)
	m.restartRequested = false
	m.state = &InGame{}
	log.Printf("🚀 Match started with %d players", len(m.players))
}

func (m *Match) applyInputs(controls Controls) {
	for _, p := range m.players {
		if !m.world.Valid(p.Ship) {
			continue
		}

		var in ShipInput
		if p.IsAI {
			in = AIInput(m.world, p.Ship)
		} else {
			in = ReadKeymapInput(p.Keymap, controls)
		}
		ApplyShipInput(m.world, p.Ship, in)
	}
}

// PlayerView is the public state of a player.
type PlayerView struct {
	Index     int    `json:"index" msgpack:"index"`
	Name      string `json:"name" msgpack:"name"`
	IsAI      bool   `json:"isAi" msgpack:"isAi"`
	Score     int    `json:"score" msgpack:"score"`
	Alive     bool   `json:"alive" msgpack:"alive"`
	Ready     bool   `json:"ready" msgpack:"ready"`
	Keymap    Keymap `json:"keymap" msgpack:"keymap"`
	MakeAIKey Key    `json:"makeAiKey" msgpack:"makeAiKey"`
}

// LifecycleSnapshot is what a UI needs to draw the lifecycle screens.
type LifecycleSnapshot struct {
	State           string       `json:"state" msgpack:"state"`
	TimeInState     float64      `json:"timeInState" msgpack:"timeInState"`
	Result          *MatchResult `json:"result,omitempty" msgpack:"result,omitempty"`
	TimeWhenRestart float64      `json:"timeWhenRestart,omitempty" msgpack:"timeWhenRestart,omitempty"`
	SlowMotion      float64      `json:"slowMotion,omitempty" msgpack:"slowMotion,omitempty"`
	Players         []PlayerView `json:"players" msgpack:"players"`
}

// Snapshot returns a copy of the lifecycle state.
func (m *Match) Snapshot() LifecycleSnapshot {
	snap := LifecycleSnapshot{
		State:   m.state.Kind().String(),
		Players: make([]PlayerView, len(m.players)),
	}

	var ready []bool
	switch st := m.state.(type) {
	case *Starting:
		snap.TimeInState = st.TimeInState
		ready = st.Ready
	case *InGame:
		snap.TimeInState = st.TimeInState
	case *GameOver:
		result := st.Result
		snap.TimeInState = st.TimeInState
		snap.Result = &result
		snap.TimeWhenRestart = st.TimeWhenRestart
		snap.SlowMotion = SlowMotionFactor(st.TimeInState)
	}

	for i, p := range m.players {
		snap.Players[i] = PlayerView{
			Index:     p.Index,
			Name:      p.Name,
			IsAI:      p.IsAI,
			Score:     p.Score,
			Alive:     m.world.Valid(p.Ship),
			Ready:     ready == nil || ready[i],
			Keymap:    p.Keymap,
			MakeAIKey: p.MakeAIKey,
		}
	}

	return snap
}
