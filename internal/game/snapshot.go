package game

import "time"

// ShrinkView is the zone countdown the client renders.
type ShrinkView struct {
	Active        bool         `json:"active"`
	Bounds        ShrinkBounds `json:"bounds"`
	NextShrinkMs  int64        `json:"nextShrinkIn"`
	WarningActive bool         `json:"warningActive"`
}

// AudioEvent is a directional sound cue attached to a snapshot. The
// engine emits none yet; the field keeps the wire shape stable for the
// client's stereo panning.
type AudioEvent struct {
	Sound    string  `json:"sound"`
	Bearing  float64 `json:"bearing"`
	Distance float64 `json:"distance"`
}

// Snapshot is one player's fog-filtered view of the room for one
// tick. Terrain the player has seen before but cannot see now arrives
// in ExploredCells so the client can render it dimmed. MyBombs repeats
// the player's own bombs so the client can track them even when the
// general bomb list fogs other reports down.
type Snapshot struct {
	Type          string         `json:"type"`
	Tick          uint64         `json:"tick"`
	ServerTime    int64          `json:"serverTime"`
	Phase         GamePhase      `json:"phase"`
	You           *Player        `json:"you"`
	VisibleCells  []VisibleCell  `json:"visibleCells"`
	ExploredCells []VisibleCell  `json:"exploredCells"`
	Players       []*Player      `json:"players"`
	Bombs         []VisibleBomb  `json:"bombs"`
	MyBombs       []VisibleBomb  `json:"myBombs"`
	PowerUps      []*PowerUpDrop `json:"powerUps"`
	Explosions    []*Explosion   `json:"explosions"`
	AudioEvents   []AudioEvent   `json:"audioEvents"`
	Shrink        *ShrinkView    `json:"shrinkZone,omitempty"`
	AliveCount    int            `json:"aliveCount"`
}

// fogSettings must be called with mu held.
func (r *Room) fogSettings() FogSettings {
	return FogSettings{
		BombAudioRange:    r.cfg.BombAudioRange,
		BombWarningTime:   r.cfg.BombWarningTime,
		BombWarningRange:  r.cfg.BombWarningRange,
		ExplosionVisRange: r.cfg.ExplosionVisRange,
	}
}

// snapshotFor builds the per-player view and advances that player's
// explored-terrain memory. Must be called with mu held.
func (r *Room) snapshotFor(p *Player, now time.Time) *Snapshot {
	players := r.playersInOrder()
	fog := r.fogSettings()

	visible := VisibleCells(p, r.grid)
	memory := r.explored[p.ID]
	if memory == nil {
		memory = make(ExploredMemory)
		r.explored[p.ID] = memory
	}
	explored := memory.Update(visible)

	own := make(map[string]*Bomb)
	for id, b := range r.bombs {
		if b.OwnerID == p.ID {
			own[id] = b
		}
	}

	snap := &Snapshot{
		Type:          "game_state",
		Tick:          r.tick,
		ServerTime:    now.UnixMilli(),
		Phase:         r.Phase,
		You:           p,
		VisibleCells:  visible,
		ExploredCells: explored,
		Players:       VisiblePlayers(p, players, r.grid),
		Bombs:         VisibleBombs(p, r.bombs, r.grid, now, fog),
		MyBombs:       VisibleBombs(p, own, r.grid, now, fog),
		PowerUps:      VisiblePowerUps(p, r.powerUps, r.grid),
		Explosions:    VisibleExplosions(p, r.explosions, fog),
		AudioEvents:   []AudioEvent{},
	}
	for _, q := range players {
		if q.Alive {
			snap.AliveCount++
		}
	}

	if r.shrink != nil {
		until := r.shrink.TimeUntilShrink(r.startedAt, now)
		snap.Shrink = &ShrinkView{
			Active:        r.shrink.Active,
			Bounds:        r.shrink.Bounds,
			NextShrinkMs:  until.Milliseconds(),
			WarningActive: until < 3*time.Second,
		}
	}
	return snap
}

// SnapshotFor exposes the per-tick snapshot query for one player,
// for callers outside the tick loop.
func (r *Room) SnapshotFor(playerID string, now time.Time) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok || len(r.grid) == 0 {
		return nil
	}
	return r.snapshotFor(p, now)
}

// LobbySeat is one row of the lobby roster.
type LobbySeat struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	Color       PlayerColor `json:"color"`
	Ready       bool        `json:"ready"`
	IsBot       bool        `json:"isBot"`
	IsHost      bool        `json:"isHost"`
}

// LobbyState is the phase-independent room roster broadcast on every
// lobby mutation (join, leave, ready, bots added or removed).
type LobbyState struct {
	Type       string      `json:"type"`
	RoomCode   string      `json:"roomCode"`
	Phase      GamePhase   `json:"phase"`
	HostID     string      `json:"hostId"`
	Seats      []LobbySeat `json:"players"`
	MaxPlayers int         `json:"maxPlayers"`
	WinnerID   string      `json:"winnerId,omitempty"`
}

// Lobby returns the current roster view.
func (r *Room) Lobby() *LobbyState {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := &LobbyState{
		Type:       "room_state",
		RoomCode:   r.Code,
		Phase:      r.Phase,
		HostID:     r.HostID,
		MaxPlayers: r.cfg.MaxPlayers,
		WinnerID:   r.winnerID,
	}
	for _, p := range r.playersInOrder() {
		state.Seats = append(state.Seats, LobbySeat{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Color:       p.Color,
			Ready:       p.Ready,
			IsBot:       p.IsBot,
			IsHost:      p.ID == r.HostID,
		})
	}
	return state
}

// PowerUpOffer is sent to a human player who walked onto a drop and
// must pick one of the offered upgrades.
type PowerUpOffer struct {
	Type    string      `json:"type"`
	DropID  string      `json:"dropId"`
	Choices []AbilityID `json:"choices"`
}

// PlayerDied announces an elimination the moment it happens. KillerID
// is empty when the shrink zone made the kill or the player bombed
// themselves.
type PlayerDied struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	KillerID string `json:"killerId,omitempty"`
}

// CountdownTick is one second of the pre-round countdown.
type CountdownTick struct {
	Type    string `json:"type"`
	Seconds int    `json:"seconds"`
}

// RoundStarted marks the end of the countdown; snapshots follow.
type RoundStarted struct {
	Type string `json:"type"`
}

// GameOver announces the end of a round with final standings.
type GameOver struct {
	Type       string    `json:"type"`
	WinnerID   string    `json:"winnerId,omitempty"`
	WinnerName string    `json:"winnerName,omitempty"`
	Players    []*Player `json:"players"`
}
