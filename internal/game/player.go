package game

import (
	"strings"
	"sync"

	"spacewar/internal/game/ecs"
)

// Key names a keyboard key, e.g. "A", "LShift", "Space".
// Clients send these names over the API; matching is case-insensitive.
type Key string

// Normalize returns the canonical form used for lookups.
func (k Key) Normalize() Key {
	return Key(strings.ToLower(strings.TrimSpace(string(k))))
}

// RestartKey restarts a finished match early.
const RestartKey Key = "Space"

// Keymap binds a player's ship controls.
type Keymap struct {
	Left        Key `json:"left"`
	Right       Key `json:"right"`
	Thrust      Key `json:"thrust"`
	ThrustBurst Key `json:"thrustBurst"`
	Shoot       Key `json:"shoot"`
}

// Keys returns every control key of the map.
func (k Keymap) Keys() []Key {
	return []Key{k.Left, k.Right, k.Shoot, k.Thrust, k.ThrustBurst}
}

// Contains reports whether key is one of the map's control keys.
func (k Keymap) Contains(key Key) bool {
	key = key.Normalize()
	for _, mk := range k.Keys() {
		if mk != "" && mk.Normalize() == key {
			return true
		}
	}
	return false
}

// DefaultKeymaps are the two-player layouts.
var DefaultKeymaps = [2]Keymap{
	{Left: "A", Right: "D", Thrust: "W", ThrustBurst: "S", Shoot: "LShift"},
	{Left: "J", Right: "L", Thrust: "I", ThrustBurst: "K", Shoot: "RShift"},
}

// DefaultMakeAIKeys hand a player's ship to the AI during the ready check.
var DefaultMakeAIKeys = [2]Key{"Q", "U"}

// Player is a participant. Lives outside the entity store.
type Player struct {
	Index     int        `json:"index"`
	Name      string     `json:"name"`
	Keymap    Keymap     `json:"keymap"`
	MakeAIKey Key        `json:"makeAiKey"`
	IsAI      bool       `json:"isAi"`
	Score     int        `json:"score"`
	Ship      ecs.Entity `json:"ship"` // weak reference; check World.Valid before use
}

// PlayerOptions customizes a new player.
type PlayerOptions struct {
	Name      string
	Keymap    *Keymap
	MakeAIKey Key
	IsAI      bool
}

// NewPlayer creates player index with default bindings for that slot.
func NewPlayer(index int, opts PlayerOptions) *Player {
	p := &Player{
		Index: index,
		Name:  opts.Name,
		IsAI:  opts.IsAI,
		Ship:  ecs.Nil,
	}
	if p.Name == "" {
		p.Name = defaultPlayerName(index)
	}

	if index >= 0 && index < len(DefaultKeymaps) {
		p.Keymap = DefaultKeymaps[index]
		p.MakeAIKey = DefaultMakeAIKeys[index]
	}
	if opts.Keymap != nil {
		p.Keymap = *opts.Keymap
	}
	if opts.MakeAIKey != "" {
		p.MakeAIKey = opts.MakeAIKey
	}

	return p
}

func defaultPlayerName(index int) string {
	names := []string{"Red", "Blue", "Green", "Yellow"}
	if index >= 0 && index < len(names) {
		return names[index]
	}
	return "Pilot"
}

// ShipInput is one tick of control for a ship.
type ShipInput struct {
	Rotate      float64 `json:"rotate"` // -1 left .. +1 right
	Thrust      bool    `json:"thrust"`
	ThrustBurst bool    `json:"thrustBurst"`
	Shoot       bool    `json:"shoot"`
}

// Controls is the per-tick view of the human input devices.
type Controls interface {
	IsPressed(key Key) bool
}

// ReadKeymapInput builds a ship input from the keys currently held.
func ReadKeymapInput(km Keymap, c Controls) ShipInput {
	var in ShipInput
	if c == nil {
		return in
	}
	if c.IsPressed(km.Left) {
		in.Rotate -= 1
	}
	if c.IsPressed(km.Right) {
		in.Rotate += 1
	}
	in.Thrust = c.IsPressed(km.Thrust)
	in.ThrustBurst = c.IsPressed(km.ThrustBurst)
	in.Shoot = c.IsPressed(km.Shoot)
	return in
}

// ApplyShipInput copies an input record into a ship's input-bearing components.
// A stale ship handle is skipped silently.
func ApplyShipInput(w *World, ship ecs.Entity, in ShipInput) {
	if !w.Valid(ship) {
		return
	}
	if th, ok := w.Thrusters.Get(ship); ok {
		th.Active = in.Thrust
	}
	if st, ok := w.Steering.Get(ship); ok {
		st.Axis = in.Rotate
	}
	if gun, ok := w.Weapons.Get(ship); ok {
		gun.Active = in.Shoot
	}
	if imp, ok := w.Impulses.Get(ship); ok {
		imp.Active = in.ThrustBurst
	}
}

// KeyState tracks which keys are held. Safe for concurrent use: transports
// write key events while the tick reads.
type KeyState struct {
	mu      sync.RWMutex
	pressed map[Key]bool
}

// NewKeyState creates an empty key state.
func NewKeyState() *KeyState {
	return &KeyState{pressed: make(map[Key]bool)}
}

// Set records a key going down or up.
func (ks *KeyState) Set(key Key, down bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if down {
		ks.pressed[key.Normalize()] = true
	} else {
		delete(ks.pressed, key.Normalize())
	}
}

// IsPressed implements Controls.
func (ks *KeyState) IsPressed(key Key) bool {
	if key == "" {
		return false
	}
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.pressed[key.Normalize()]
}

// Reset releases every key.
func (ks *KeyState) Reset() {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	clear(ks.pressed)
}
