// Command watch tails the agent event feed over websocket and prints
// one line per event. Useful for eyeballing a running fleet.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
)

type event struct {
	Type      string `json:"type"`
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Persona   string `json:"persona"`
	Round     uint64 `json:"round,omitempty"`
	AmountWei string `json:"amount_wei,omitempty"`
	TxHash    string `json:"tx_hash,omitempty"`
	Message   string `json:"message,omitempty"`
	TargetID  string `json:"target_id,omitempty"`
	Streak    int    `json:"streak,omitempty"`
	ServerTS  int64  `json:"server_ts"`
}

func main() {
	wsURL := getenv("WS_URL", "ws://localhost:8080/ws")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupt
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	log.Printf("watching %s", wsURL)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		fmt.Println(render(ev))
	}
}

func render(ev event) string {
	name := ev.AgentName
	if name == "" {
		name = ev.AgentID
	}
	switch ev.Type {
	case "round_join":
		return fmt.Sprintf("[join] %s entered round %d (%s)", name, ev.Round, ev.TxHash)
	case "chat_message":
		return fmt.Sprintf("[chat] %s: %s", name, ev.Message)
	case "private_chat":
		return fmt.Sprintf("[dm] %s -> %s: %s", name, ev.TargetID, ev.Message)
	case "dating_invite":
		return fmt.Sprintf("[date] %s (streak %d): %s", name, ev.Streak, ev.Message)
	default:
		return fmt.Sprintf("[%s] %s", ev.Type, name)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
