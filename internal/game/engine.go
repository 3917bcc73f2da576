package game

import (
	"log"
	"time"

	"bomber-royal/internal/config"
)

// Broadcaster delivers outbound messages; the websocket layer
// implements it. Delivery is fire-and-forget from the engine's side.
type Broadcaster interface {
	ToPlayer(roomCode, playerID string, msg interface{})
	ToRoom(roomCode string, msg interface{})
}

// TickObserver is an optional hook invoked after each tick with its
// wall-clock cost, used to feed the metrics layer.
type TickObserver func(roomCode string, d time.Duration)

// countdownSeconds is the pre-round countdown length.
const countdownSeconds = 3

// Engine runs the simulation loops. One goroutine per playing room,
// driven by a fixed-rate ticker; every tick body takes the room lock,
// so action handlers and the loop never interleave mid-mutation.
type Engine struct {
	cfg         config.GameConfig
	broadcaster Broadcaster
	observeTick TickObserver

	// countdownDelay is the gap between countdown broadcasts; one
	// second outside of tests.
	countdownDelay time.Duration
}

func NewEngine(cfg config.GameConfig, b Broadcaster) *Engine {
	return &Engine{cfg: cfg, broadcaster: b, countdownDelay: time.Second}
}

// SetTickObserver installs the per-tick metrics hook. Call before any
// round starts.
func (e *Engine) SetTickObserver(fn TickObserver) { e.observeTick = fn }

// SetBroadcaster wires the outbound message sink. The websocket hub
// needs the engine to dispatch actions, so the two are constructed
// first and connected here. Call before any round starts.
func (e *Engine) SetBroadcaster(b Broadcaster) { e.broadcaster = b }

// StartRound runs the pre-round countdown for a room that has just
// left the lobby, then spins up its tick loop.
func (e *Engine) StartRound(r *Room) {
	r.mu.Lock()
	if r.running || r.Phase != PhaseCountdown {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.bots.ResetThrottle()
	stop := r.stopChan
	r.mu.Unlock()
	go e.countdown(r, stop)
}

// countdown broadcasts the remaining seconds once per delay, then
// begins the round. Closing the stop channel aborts it.
func (e *Engine) countdown(r *Room, stop chan struct{}) {
	for s := countdownSeconds; s >= 1; s-- {
		e.broadcaster.ToRoom(r.Code, &CountdownTick{Type: "game_countdown", Seconds: s})
		select {
		case <-stop:
			return
		case <-time.After(e.countdownDelay):
		}
	}
	if !r.FinishCountdown(time.Now()) {
		return
	}
	e.broadcaster.ToRoom(r.Code, &RoundStarted{Type: "game_started"})
	e.run(r, stop)
}

// StopRound halts a room's tick loop, if one is running.
func (e *Engine) StopRound(r *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// stopLocked must be called with r.mu held.
func (r *Room) stopLocked() {
	if !r.running {
		return
	}
	r.running = false
	close(r.stopChan)
}

func (e *Engine) run(r *Room, stop chan struct{}) {
	interval := time.Second / time.Duration(e.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("▶️ Room %s: tick loop started (%v interval)", r.Code, interval)
	for {
		select {
		case <-stop:
			log.Printf("⏹️ Room %s: tick loop stopped", r.Code)
			return
		case now := <-ticker.C:
			e.tick(r, now)
		}
	}
}

// tick runs one full simulation step. A panic in the tick body is
// contained to that tick; the loop keeps running.
func (e *Engine) tick(r *Room, now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("💥 Room %s: tick panicked: %v", r.Code, rec)
		}
	}()
	started := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Phase != PhasePlaying {
		return
	}
	if len(r.grid) == 0 {
		log.Printf("⚠️ Room %s: tick with empty grid, skipping", r.Code)
		return
	}

	elapsed := now.Sub(r.lastTick)
	r.lastTick = now
	r.tick++
	players := r.playersInOrder()

	ProcessSlidingBombs(r.bombs, r.grid, players, elapsed, r.cfg.BombSlideSpeed)
	e.processDetonations(r, players, now)
	e.purgeExplosions(r, now)

	if r.shrink != nil {
		if shrunk, killed := r.shrink.Process(r.grid, players, r.startedAt, now); shrunk {
			log.Printf("🔥 Room %s: zone shrank to %+v (%d eliminated)", r.Code, r.shrink.Bounds, len(killed))
			for _, victim := range killed {
				e.broadcaster.ToRoom(r.Code, &PlayerDied{Type: "player_died", PlayerID: victim.ID})
			}
		}
	}

	e.runBots(r, players, now)
	e.collectPowerUps(r, players)

	if e.checkWin(r, players) {
		return
	}

	for _, p := range players {
		if p.IsBot {
			continue
		}
		e.broadcaster.ToPlayer(r.Code, p.ID, r.snapshotFor(p, now))
	}

	if e.observeTick != nil {
		e.observeTick(r.Code, time.Since(started))
	}
}

// processDetonations drains the fuse-expired bombs through a work
// queue so chain reactions discovered during destruction detonate in
// the same tick. The seen set keeps a bomb from detonating twice.
func (e *Engine) processDetonations(r *Room, players []*Player, now time.Time) {
	queue := ExpiredBombs(r.bombs, now)
	seen := make(map[string]bool, len(queue))

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true

		cells := ExplosionCells(b, r.grid)
		exp := NewExplosion(b, cells, now, r.cfg.ExplosionDuration)
		res := applyExplosion(exp, r.grid, players, r.bombs, r.registry)

		if owner := r.players[b.OwnerID]; owner != nil {
			owner.Stats.BlocksDestroyed += len(res.destroyedBlocks)
			for _, victim := range res.killed {
				if victim.ID != b.OwnerID {
					owner.Stats.Kills++
				}
			}
		}
		for _, victim := range res.killed {
			died := &PlayerDied{Type: "player_died", PlayerID: victim.ID}
			if b.OwnerID != victim.ID {
				died.KillerID = b.OwnerID
			}
			e.broadcaster.ToRoom(r.Code, died)
		}

		for _, cell := range res.destroyedBlocks {
			if r.rng.Float64() < r.cfg.PowerUpDropChance {
				if drop := NewPowerUpDrop(cell, r.registry, r.cfg.PowerUpChoices, r.rng); drop != nil {
					r.powerUps[drop.ID] = drop
				}
			}
		}

		ReturnBombCredit(b, players)
		delete(r.bombs, b.ID)
		r.explosions[exp.ID] = exp

		for _, chained := range res.chained {
			if !seen[chained.ID] {
				queue = append(queue, chained)
			}
		}
	}
}

func (e *Engine) purgeExplosions(r *Room, now time.Time) {
	for id, exp := range r.explosions {
		if exp.Expired(now) {
			delete(r.explosions, id)
		}
	}
}

// runBots asks the driver for each living bot's action and executes it
// through the same validation as human input. A failed decision is a
// logged no-op, never a crash.
func (e *Engine) runBots(r *Room, players []*Player, now time.Time) {
	world := &BotWorld{
		Grid:     r.grid,
		Players:  players,
		Bombs:    r.bombs,
		PowerUps: r.powerUps,
	}

	for _, p := range players {
		if !p.IsBot || !p.Alive {
			continue
		}
		act, err := r.bots.Decide(p, world, now)
		if err != nil {
			log.Printf("🤖 Room %s: bot %s decision failed: %v", r.Code, p.DisplayName, err)
			continue
		}
		switch act.Kind {
		case BotActMove:
			e.moveLocked(r, p, act.Dir)
		case BotActPlaceBomb:
			e.bombLocked(r, p, now)
		}
	}
}

// collectPowerUps resolves players standing on drops. A player with an
// unresolved choice cannot pick up another drop. Bots choose by
// personality preference on the spot; humans get an offer message and
// answer with a choose-powerup action.
func (e *Engine) collectPowerUps(r *Room, players []*Player) {
	for _, p := range players {
		if !p.Alive {
			continue
		}
		if _, waiting := r.pending[p.ID]; waiting {
			continue
		}
		drop := FindDropAt(p.Position, r.powerUps)
		if drop == nil {
			continue
		}

		choices := drop.ChoicesFor(p, r.registry)
		delete(r.powerUps, drop.ID)
		if len(choices) == 0 {
			continue
		}

		if p.IsBot {
			ApplyPowerUp(p, r.bots.ChoosePowerUp(p.ID, choices), r.registry)
			continue
		}

		r.pending[p.ID] = &pendingChoice{DropID: drop.ID, Choices: choices}
		e.broadcaster.ToPlayer(r.Code, p.ID, &PowerUpOffer{
			Type:    "powerup_offer",
			DropID:  drop.ID,
			Choices: choices,
		})
	}
}

// checkWin ends the round when zero players remain (no winner) or one
// remains in a multiplayer room. Returns true if the round ended.
// Must be called with r.mu held.
func (e *Engine) checkWin(r *Room, players []*Player) bool {
	alive := 0
	var last *Player
	for _, p := range players {
		if p.Alive {
			alive++
			last = p
		}
	}

	switch {
	case alive == 0:
		e.finishLocked(r, nil, players)
		return true
	case alive == 1 && len(players) > 1:
		e.finishLocked(r, last, players)
		return true
	}
	return false
}

// finishLocked must be called with r.mu held.
func (e *Engine) finishLocked(r *Room, winner *Player, players []*Player) {
	r.Phase = PhaseGameOver
	over := &GameOver{Type: "game_over", Players: players}
	if winner != nil {
		r.winnerID = winner.ID
		over.WinnerID = winner.ID
		over.WinnerName = winner.DisplayName
		log.Printf("🏆 Room %s: %s wins", r.Code, winner.DisplayName)
	} else {
		r.winnerID = ""
		log.Printf("💀 Room %s: round over with no survivors", r.Code)
	}
	e.broadcaster.ToRoom(r.Code, over)
	r.stopLocked()
	r.touch()
}

// ForceEndIfDecided ends a playing round that dropped to one or zero
// live players outside the tick loop, e.g. after a disconnect.
func (e *Engine) ForceEndIfDecided(r *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Phase != PhasePlaying {
		return
	}
	e.checkWin(r, r.playersInOrder())
}

// ApplyMove handles a move intent immediately against live state.
// Rejected moves are silent no-ops.
func (e *Engine) ApplyMove(r *Room, playerID string, dir Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.players[playerID]
	if r.Phase != PhasePlaying || p == nil || !p.Alive {
		return
	}
	e.moveLocked(r, p, dir)
}

// moveLocked must be called with r.mu held.
func (e *Engine) moveLocked(r *Room, p *Player, dir Direction) {
	target := p.Position.Step(dir)
	if !r.grid.InBounds(target) {
		return
	}

	players := r.playersInOrder()
	if bombAt(r.bombs, target, "") != nil {
		if TryKickBomb(p, target, dir, r.bombs, r.grid, players) {
			p.Position = target
		}
		return
	}
	if !r.grid.IsWalkable(target) {
		return
	}
	for _, o := range players {
		if o.ID != p.ID && o.Alive && o.Position == target {
			return
		}
	}
	p.Position = target
	r.touch()
}

// ApplyBomb handles a place-bomb intent. Capacity and cell occupancy
// checks happen in PlaceBomb; a rejected placement is silent.
func (e *Engine) ApplyBomb(r *Room, playerID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.players[playerID]
	if r.Phase != PhasePlaying || p == nil || !p.Alive {
		return
	}
	e.bombLocked(r, p, now)
}

// bombLocked must be called with r.mu held.
func (e *Engine) bombLocked(r *Room, p *Player, now time.Time) {
	if b := PlaceBomb(p, r.bombs, now); b != nil {
		r.bombs[b.ID] = b
		r.touch()
	}
}

// ApplyStop halts the player's own sliding bombs. Requires kick level
// 3; otherwise a silent no-op.
func (e *Engine) ApplyStop(r *Room, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.players[playerID]
	if r.Phase != PhasePlaying || p == nil || !p.Alive {
		return
	}
	if p.KickLevel < 3 {
		return
	}
	StopKickedBombs(r.bombs, p.ID)
}

// ApplyDetonate triggers the player's remote-detonable bombs by
// expiring their fuses; the explosions land on the next tick through
// the normal detonation path. Levels 1 and 2 fire the player's own
// bombs; level 3 additionally fires any bomb in line of sight.
func (e *Engine) ApplyDetonate(r *Room, playerID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.players[playerID]
	if r.Phase != PhasePlaying || p == nil || !p.Alive || !p.CanRemoteDetonate() {
		return
	}

	for _, b := range r.bombs {
		own := b.OwnerID == p.ID
		losAny := p.RemoteDetonateLevel >= 3 && HasLineOfSight(r.grid, p.Position, b.Position)
		if own || losAny {
			b.PlacedAt = now.Add(-b.FuseTime)
		}
	}
	r.touch()
}

// ApplyPowerUpChoice resolves a pending upgrade choice. Ignored when
// no choice is pending or the ability was not among the offered ones.
func (e *Engine) ApplyPowerUpChoice(r *Room, playerID string, ability AbilityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.players[playerID]
	if p == nil || !p.Alive {
		return
	}
	pc := r.pending[playerID]
	if pc == nil {
		return
	}
	for _, offered := range pc.Choices {
		if offered == ability {
			ApplyPowerUp(p, ability, r.registry)
			delete(r.pending, playerID)
			r.touch()
			return
		}
	}
}
