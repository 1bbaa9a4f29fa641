package composer

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"github.com/rs/zerolog/log"

	"lucky-agents/internal/llm"
	"lucky-agents/internal/persona"
)

const (
	maxMessageRunes = 160

	replyProbability   = 0.4
	llmProbability     = 0.7
	suffixProbability  = 0.3
	contextProbability = 0.5

	lowTimeThreshold   = 3 * time.Minute
	manyPlayersMinimum = 3
)

// largePotWei is the pot size above which the pot itself becomes
// conversation-worthy (0.05 native coin).
var largePotWei = new(big.Int).Mul(big.NewInt(50_000_000), big.NewInt(params.GWei))

// Input identifies the speaking agent.
type Input struct {
	AgentID       string
	DisplayName   string
	Persona       string
	CustomPersona string
}

// GameContext is a snapshot of the current round used to flavor messages.
type GameContext struct {
	PotWei           *big.Int
	ParticipantCount int
	TimeRemaining    time.Duration
}

// RecentMessage is one entry from the shared recent-message window.
type RecentMessage struct {
	SenderID   string
	SenderName string
	IsAgent    bool
	Text       string
}

var lowTimeLines = []string{
	"Clock is ticking, last chance to join this round!",
	"Almost over! Get in before the round closes",
	"Final minutes, who's still on the fence?",
}

var manyPlayersLines = []string{
	"Look at this crowd, %d players already in",
	"%d players this round, the table is heating up",
	"Busy round! %d of us chasing the same pot",
}

var largePotLines = []string{
	"That pot is getting serious: %s gwei and counting",
	"%s gwei in the pot, somebody is going home happy",
	"Have you seen the pot? %s gwei!",
}

// Composer produces persona-flavored chat lines. Generator strategies
// are tried in order and the first non-empty result wins; the generic
// table at the bottom guarantees a result.
type Composer struct {
	llm *llm.Client

	mu  sync.Mutex
	rng *rand.Rand
}

func New(client *llm.Client) *Composer {
	return &Composer{
		llm: client,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Composer) chance(p float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64() < p
}

func (c *Composer) pick(lines []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lines[c.rng.Intn(len(lines))]
}

// Compose returns a chat line for the agent. It never returns an empty
// string and never returns an error: generation failures fall through
// the ladder silently.
func (c *Composer) Compose(ctx context.Context, in Input, game GameContext, recent []RecentMessage) string {
	target := c.pickReplyTarget(in.AgentID, recent)

	if line := c.llmLine(ctx, in, game, target); line != "" {
		return truncate(line)
	}
	if target != nil {
		if line := c.replyLine(in.Persona, *target, game); line != "" {
			return truncate(line)
		}
	}
	if line := c.contextLine(game); line != "" {
		return truncate(line)
	}
	return truncate(c.pick(persona.Lookup(in.Persona).Generic))
}

// pickReplyTarget selects one of the three most recent messages from
// other senders, or nil when not replying this time.
func (c *Composer) pickReplyTarget(agentID string, recent []RecentMessage) *RecentMessage {
	var others []RecentMessage
	for i := len(recent) - 1; i >= 0 && len(others) < 3; i-- {
		if recent[i].SenderID != agentID {
			others = append(others, recent[i])
		}
	}
	if len(others) == 0 || !c.chance(replyProbability) {
		return nil
	}
	t := others[c.intn(len(others))]
	return &t
}

func (c *Composer) intn(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Intn(n)
}

func (c *Composer) llmLine(ctx context.Context, in Input, game GameContext, target *RecentMessage) string {
	if c.llm == nil || !c.llm.Enabled() {
		return ""
	}
	if in.CustomPersona == "" && !c.chance(llmProbability) {
		return ""
	}
	system := personaPrompt(in)
	user := gamePrompt(game, target)
	line, err := c.llm.Complete(ctx, system, user)
	if err != nil {
		log.Debug().Err(err).Str("agent_id", in.AgentID).Msg("chat generation unavailable, using canned lines")
		return ""
	}
	return line
}

// replyLine classifies the target message and draws from the persona's
// reply table, occasionally tagging on a game-state suffix.
func (c *Composer) replyLine(personaID string, target RecentMessage, game GameContext) string {
	p := persona.Lookup(personaID)
	category := persona.Classify(target.Text, target.IsAgent)
	lines := p.Replies[category]
	if len(lines) == 0 {
		return ""
	}
	line := c.pick(lines)
	if c.chance(suffixProbability) {
		if suffix := gameSuffix(game); suffix != "" {
			line += " " + suffix
		}
	}
	return line
}

// contextLine keys off round state with precedence low-time, then
// many-players, then large-pot.
func (c *Composer) contextLine(game GameContext) string {
	if !c.chance(contextProbability) {
		return ""
	}
	switch {
	case game.TimeRemaining > 0 && game.TimeRemaining < lowTimeThreshold:
		return c.pick(lowTimeLines)
	case game.ParticipantCount >= manyPlayersMinimum:
		return fmt.Sprintf(c.pick(manyPlayersLines), game.ParticipantCount)
	case game.PotWei != nil && game.PotWei.Cmp(largePotWei) >= 0:
		return fmt.Sprintf(c.pick(largePotLines), formatGwei(game.PotWei))
	}
	return ""
}

func personaPrompt(in Input) string {
	if in.CustomPersona != "" {
		return fmt.Sprintf("You are %s, a player in an on-chain lottery chat room. Persona: %s. Reply with one short casual chat line, no quotes.", in.DisplayName, in.CustomPersona)
	}
	p := persona.Lookup(in.Persona)
	return fmt.Sprintf("You are %s, a player in an on-chain lottery chat room with the personality of %s. Reply with one short casual chat line, no quotes.", in.DisplayName, p.Name)
}

func gamePrompt(game GameContext, target *RecentMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round state: %d players, pot %s gwei, %s remaining.", game.ParticipantCount, formatGwei(game.PotWei), game.TimeRemaining.Round(time.Second))
	if target != nil {
		fmt.Fprintf(&b, " Reply to %s who said: %q", target.SenderName, target.Text)
	} else {
		b.WriteString(" Say something to the room.")
	}
	return b.String()
}

func gameSuffix(game GameContext) string {
	if game.PotWei != nil && game.PotWei.Sign() > 0 {
		return fmt.Sprintf("Pot's at %s gwei by the way.", formatGwei(game.PotWei))
	}
	if game.ParticipantCount > 0 {
		return fmt.Sprintf("%d players in so far.", game.ParticipantCount)
	}
	return ""
}

func formatGwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return new(big.Int).Div(wei, big.NewInt(params.GWei)).String()
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxMessageRunes {
		return s
	}
	return string(runes[:maxMessageRunes])
}
