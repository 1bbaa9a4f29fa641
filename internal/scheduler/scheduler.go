package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lucky-agents/internal/broadcast"
	"lucky-agents/internal/chain"
	"lucky-agents/internal/composer"
	"lucky-agents/internal/config"
	"lucky-agents/internal/executor"
	"lucky-agents/internal/store"
)

// jumpProbability is the chance that AutoChat skips the round-robin
// cursor and picks a random agent instead.
const jumpProbability = 0.1

// recentWindowSize bounds the shared recent-message window.
const recentWindowSize = 20

// AgentSource lists agents for the behavior loops.
type AgentSource interface {
	EnabledAgents(ctx context.Context) ([]store.AgentWallet, error)
	ChatAgents(ctx context.Context) ([]store.AgentWallet, error)
}

// JoinExecutor is the slice of the transaction executor AutoPlay needs.
type JoinExecutor interface {
	Enabled() bool
	RoundInfo(ctx context.Context) (chain.RoundInfo, error)
	JoinRound(ctx context.Context, agent *store.AgentWallet, round uint64) (string, error)
}

// Scheduler drives the four autonomous behavior loops. All mutable
// rotation state lives on the instance so independent schedulers never
// interfere.
type Scheduler struct {
	agents   AgentSource
	executor JoinExecutor
	composer *composer.Composer
	sink     broadcast.Sink
	cfg      config.SchedulerConfig

	mu           sync.Mutex
	rng          *rand.Rand
	chatCursor   int
	streaks      map[string]*joinStreak
	participants map[uint64][]string
	invites      map[string]int
	recent       []composer.RecentMessage

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(agents AgentSource, exec JoinExecutor, comp *composer.Composer, sink broadcast.Sink, cfg config.SchedulerConfig) *Scheduler {
	if sink == nil {
		sink = broadcast.NopSink{}
	}
	return &Scheduler{
		agents:       agents,
		executor:     exec,
		composer:     comp,
		sink:         sink,
		cfg:          cfg,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		streaks:      map[string]*joinStreak{},
		participants: map[uint64][]string{},
		invites:      map[string]int{},
	}
}

// joinStreak counts consecutive rounds an agent has entered. Process
// local: loss on restart only resets bonus heuristics, never balances.
type joinStreak struct {
	Count     int
	LastRound uint64
}

// Start launches the four loops. AutoPlay runs on a fixed ticker with
// at most one cycle in flight; the three social loops re-arm themselves
// with a fresh jittered delay after every firing.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(4)
	go s.autoPlayLoop(ctx)
	go s.rearmingLoop(ctx, "auto_chat", s.cfg.ChatDelayMin, s.cfg.ChatDelayMax, s.fireAutoChat)
	go s.rearmingLoop(ctx, "dating", s.cfg.DatingDelayMin, s.cfg.DatingDelayMax, s.fireDating)
	go s.rearmingLoop(ctx, "private_chat", s.cfg.PrivateChatDelayMin, s.cfg.PrivateChatDelayMax, s.firePrivateChat)
}

// Stop cancels scheduling of new cycles and waits for any cycle already
// in flight to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) autoPlayLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.AutoPlayInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAutoPlay(ctx)
		}
	}
}

func (s *Scheduler) rearmingLoop(ctx context.Context, name string, min, max time.Duration, fire func(context.Context)) {
	defer s.wg.Done()
	for {
		timer := time.NewTimer(s.jitter(min, max))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.safeFire(ctx, name, fire)
		}
	}
}

// safeFire isolates one firing so a panic in a behavior never takes
// down the loop.
func (s *Scheduler) safeFire(ctx context.Context, name string, fire func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("loop", name).Interface("panic", r).Msg("behavior firing panicked")
		}
	}()
	fire(ctx)
}

func (s *Scheduler) jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}

// runAutoPlay processes every enabled agent sequentially against the
// current round. Skips the whole tick when the round is over or too
// close to closing for a confirmation to land.
func (s *Scheduler) runAutoPlay(ctx context.Context) {
	if s.executor == nil || !s.executor.Enabled() {
		return
	}
	info, err := s.executor.RoundInfo(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("round info fetch failed, skipping play tick")
		return
	}
	if info.IsEnded || info.TimeRemaining(time.Now()) < s.cfg.JoinSafetyMargin {
		return
	}
	agents, err := s.agents.EnabledAgents(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("listing enabled agents failed, skipping play tick")
		return
	}
	for i := range agents {
		s.joinOne(ctx, &agents[i], info)
	}
}

func (s *Scheduler) joinOne(ctx context.Context, agent *store.AgentWallet, info chain.RoundInfo) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("agent_id", agent.ID).Interface("panic", r).Msg("join panicked")
		}
	}()
	txHash, err := s.executor.JoinRound(ctx, agent, info.Round)
	switch {
	case err == nil:
		streak := s.markJoined(agent.ID, info.Round)
		s.sink.Emit(broadcast.Event{
			Type:      broadcast.EventRoundJoin,
			AgentID:   agent.ID,
			AgentName: agent.Config.DisplayName,
			Persona:   agent.Config.Persona,
			Round:     info.Round,
			TxHash:    txHash,
			Streak:    streak,
		})
	case errors.Is(err, executor.ErrAlreadyJoined):
		s.markJoined(agent.ID, info.Round)
	case errors.Is(err, executor.ErrInsufficientFunds):
		log.Debug().Str("agent_id", agent.ID).Uint64("round", info.Round).Msg("skipping join, insufficient funds")
	default:
		log.Warn().Err(err).Str("agent_id", agent.ID).Uint64("round", info.Round).Msg("join failed")
	}
}

// markJoined records the agent in the round's participant list and
// advances its consecutive-round streak, returning the new streak.
func (s *Scheduler) markJoined(agentID string, round uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.participants[round] {
		if id == agentID {
			return s.streaks[agentID].Count
		}
	}
	s.participants[round] = append(s.participants[round], agentID)
	delete(s.participants, round-2)

	st := s.streaks[agentID]
	if st == nil {
		st = &joinStreak{}
		s.streaks[agentID] = st
	}
	switch {
	case st.LastRound == round:
	case st.LastRound+1 == round:
		st.Count++
	default:
		st.Count = 1
	}
	st.LastRound = round
	return st.Count
}

// JoinPosition returns the 1-based order in which the agent entered the
// round, or 0 if it did not.
func (s *Scheduler) JoinPosition(agentID string, round uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range s.participants[round] {
		if id == agentID {
			return i + 1
		}
	}
	return 0
}

// fireAutoChat advances the round-robin cursor by one, occasionally
// jumping to a random agent so the order stays unpredictable while
// every agent still fires eventually.
func (s *Scheduler) fireAutoChat(ctx context.Context) {
	agents, err := s.agents.ChatAgents(ctx)
	if err != nil || len(agents) == 0 {
		return
	}
	s.mu.Lock()
	idx := s.chatCursor % len(agents)
	s.chatCursor++
	if s.rng.Float64() < jumpProbability {
		idx = s.rng.Intn(len(agents))
	}
	s.mu.Unlock()
	agent := &agents[idx]

	msg := s.composer.Compose(ctx, composeInput(agent), s.gameContext(ctx), s.recentWindow())
	s.appendRecent(composer.RecentMessage{SenderID: agent.ID, SenderName: agent.Config.DisplayName, IsAgent: true, Text: msg})
	s.sink.Emit(broadcast.Event{
		Type:      broadcast.EventChatMessage,
		AgentID:   agent.ID,
		AgentName: agent.Config.DisplayName,
		Persona:   agent.Config.Persona,
		Message:   msg,
	})
}

// fireDating picks one random agent, bumps its streak, and invites
// another random agent when one exists.
func (s *Scheduler) fireDating(ctx context.Context) {
	agent, target := s.randomPair(ctx)
	if agent == nil {
		return
	}
	s.mu.Lock()
	s.invites[agent.ID]++
	streak := s.invites[agent.ID]
	s.mu.Unlock()

	ev := broadcast.Event{
		Type:      broadcast.EventDatingInvite,
		AgentID:   agent.ID,
		AgentName: agent.Config.DisplayName,
		Persona:   agent.Config.Persona,
		Streak:    streak,
		Message:   s.composer.Compose(ctx, composeInput(agent), s.gameContext(ctx), nil),
	}
	if target != nil {
		ev.TargetID = target.ID
	}
	s.sink.Emit(ev)
}

// firePrivateChat needs two distinct agents; with fewer it is a no-op.
func (s *Scheduler) firePrivateChat(ctx context.Context) {
	agent, target := s.randomPair(ctx)
	if agent == nil || target == nil {
		return
	}
	recent := []composer.RecentMessage{{SenderID: target.ID, SenderName: target.Config.DisplayName, IsAgent: true, Text: "hey, how's your luck today?"}}
	msg := s.composer.Compose(ctx, composeInput(agent), s.gameContext(ctx), recent)
	s.sink.Emit(broadcast.Event{
		Type:      broadcast.EventPrivateChat,
		AgentID:   agent.ID,
		AgentName: agent.Config.DisplayName,
		Persona:   agent.Config.Persona,
		TargetID:  target.ID,
		Message:   msg,
	})
}

func (s *Scheduler) randomPair(ctx context.Context) (*store.AgentWallet, *store.AgentWallet) {
	agents, err := s.agents.ChatAgents(ctx)
	if err != nil || len(agents) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.rng.Intn(len(agents))
	if len(agents) == 1 {
		return &agents[i], nil
	}
	j := s.rng.Intn(len(agents) - 1)
	if j >= i {
		j++
	}
	return &agents[i], &agents[j]
}

// gameContext snapshots round state for message flavor. Best effort:
// a chat line does not need a live chain.
func (s *Scheduler) gameContext(ctx context.Context) composer.GameContext {
	if s.executor == nil || !s.executor.Enabled() {
		return composer.GameContext{}
	}
	info, err := s.executor.RoundInfo(ctx)
	if err != nil {
		return composer.GameContext{}
	}
	return composer.GameContext{
		PotWei:           info.PotWei,
		ParticipantCount: info.ParticipantCount,
		TimeRemaining:    info.TimeRemaining(time.Now()),
	}
}

func (s *Scheduler) appendRecent(msg composer.RecentMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, msg)
	if len(s.recent) > recentWindowSize {
		s.recent = s.recent[len(s.recent)-recentWindowSize:]
	}
}

func (s *Scheduler) recentWindow() []composer.RecentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]composer.RecentMessage, len(s.recent))
	copy(out, s.recent)
	return out
}

func composeInput(agent *store.AgentWallet) composer.Input {
	return composer.Input{
		AgentID:       agent.ID,
		DisplayName:   agent.Config.DisplayName,
		Persona:       agent.Config.Persona,
		CustomPersona: agent.Config.CustomPersona,
	}
}
