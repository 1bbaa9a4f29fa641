package broadcast

import "time"

// Event types emitted by the scheduler and executor.
const (
	EventRoundJoin    = "round_join"
	EventChatMessage  = "chat_message"
	EventPrivateChat  = "private_chat"
	EventDatingInvite = "dating_invite"
)

type Event struct {
	Type      string `json:"type"`
	AgentID   string `json:"agent_id,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
	Persona   string `json:"persona,omitempty"`
	Round     uint64 `json:"round,omitempty"`
	AmountWei string `json:"amount_wei,omitempty"`
	TxHash    string `json:"tx_hash,omitempty"`
	Message   string `json:"message,omitempty"`
	TargetID  string `json:"target_id,omitempty"`
	Streak    int    `json:"streak,omitempty"`
	ServerTS  int64  `json:"server_ts"`
}

func (e Event) withTimestamp() Event {
	if e.ServerTS == 0 {
		e.ServerTS = time.Now().UnixMilli()
	}
	return e
}

// Sink receives fire-and-forget events. One emission attempt, no delivery
// guarantee; implementations must never block the caller.
type Sink interface {
	Emit(ev Event)
}

type NopSink struct{}

func (NopSink) Emit(Event) {}
