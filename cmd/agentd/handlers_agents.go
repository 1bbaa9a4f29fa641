package main

import (
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"lucky-agents/internal/config"
	"lucky-agents/internal/executor"
	"lucky-agents/internal/registry"
	"lucky-agents/internal/store"
)

func createAgentHandler(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OwnerAddress string `json:"owner_address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		agent, err := reg.GetOrCreate(r.Context(), body.OwnerAddress)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeSuccess(w, map[string]any{"agent": agentJSON(agent)})
	}
}

func getAgentHandler(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, err := reg.Get(r.Context(), chi.URLParam(r, "owner"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeSuccess(w, map[string]any{"agent": agentJSON(agent)})
	}
}

func enableAgentHandler(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, err := reg.Enable(r.Context(), chi.URLParam(r, "owner"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeSuccess(w, map[string]any{"agent": agentJSON(agent)})
	}
}

func disableAgentHandler(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := reg.Disable(r.Context(), chi.URLParam(r, "owner")); err != nil {
			writeServiceError(w, err)
			return
		}
		writeSuccess(w, nil)
	}
}

func updateConfigHandler(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			DisplayName     *string `json:"display_name"`
			Persona         *string `json:"persona"`
			CustomPersona   *string `json:"custom_persona"`
			PlayStyle       *string `json:"play_style"`
			AutoChatEnabled *bool   `json:"auto_chat_enabled"`
			MaxBetGwei      *int64  `json:"max_bet_gwei"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		patch := store.ConfigPatch{
			DisplayName:     body.DisplayName,
			Persona:         body.Persona,
			CustomPersona:   body.CustomPersona,
			PlayStyle:       body.PlayStyle,
			AutoChatEnabled: body.AutoChatEnabled,
		}
		if body.MaxBetGwei != nil {
			patch.MaxBetPerRound = config.GweiToWei(*body.MaxBetGwei)
		}
		agent, err := reg.UpdateConfig(r.Context(), chi.URLParam(r, "owner"), patch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeSuccess(w, map[string]any{"agent": agentJSON(agent)})
	}
}

func depositHandler(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AmountGwei int64  `json:"amount_gwei"`
			TxHash     string `json:"tx_hash"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.AmountGwei <= 0 {
			writeHTTPError(w, http.StatusBadRequest, "Deposit amount must be positive")
			return
		}
		agent, err := reg.RecordDeposit(r.Context(), chi.URLParam(r, "owner"), config.GweiToWei(body.AmountGwei), body.TxHash)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeSuccess(w, map[string]any{"agent": agentJSON(agent)})
	}
}

func withdrawHandler(reg *registry.Service, exec *executor.Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AmountGwei *int64 `json:"amount_gwei"`
		}
		// An empty body withdraws the full balance.
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		var requested *big.Int
		if body.AmountGwei != nil {
			requested = config.GweiToWei(*body.AmountGwei)
		}
		agent, amount, err := reg.WithdrawableWallet(r.Context(), chi.URLParam(r, "owner"), requested)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		txHash, err := exec.Withdraw(r.Context(), agent, amount)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeSuccess(w, map[string]any{
			"tx_hash":    txHash,
			"amount_wei": amount.String(),
		})
	}
}

func historyHandler(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)
		entries, err := reg.History(r.Context(), chi.URLParam(r, "owner"), limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			out = append(out, map[string]any{
				"id":          e.ID,
				"type":        e.Type,
				"amount_wei":  bigString(e.Amount),
				"tx_hash":     e.TxHash,
				"description": e.Description,
				"created_at":  e.CreatedAt.Format(time.RFC3339),
			})
		}
		writeSuccess(w, map[string]any{"history": out})
	}
}

// listAgentsHandler pages through every wallet for operators. Admin
// surface; the router gates it behind the admin key.
func listAgentsHandler(reg *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)
		wallets, err := reg.AllAgents(r.Context(), limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]map[string]any, 0, len(wallets))
		for i := range wallets {
			out = append(out, agentJSON(&wallets[i]))
		}
		writeSuccess(w, map[string]any{"agents": out})
	}
}

func roundHandler(exec *executor.Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := exec.RoundInfo(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeSuccess(w, map[string]any{
			"round":             info.Round,
			"start_time":        info.StartTime.Format(time.RFC3339),
			"end_time":          info.EndTime.Format(time.RFC3339),
			"pot_wei":           bigString(info.PotWei),
			"participant_count": info.ParticipantCount,
			"is_ended":          info.IsEnded,
			"remaining_seconds": int64(info.TimeRemaining(time.Now()).Seconds()),
		})
	}
}

func healthHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			writeHTTPError(w, http.StatusServiceUnavailable, "db_unreachable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}

// agentJSON renders a wallet for owner-facing callers. The encrypted
// key never leaves the store.
func agentJSON(a *store.AgentWallet) map[string]any {
	var lastPlayed any
	if a.Stats.LastPlayedAt != nil {
		lastPlayed = a.Stats.LastPlayedAt.Format(time.RFC3339)
	}
	return map[string]any{
		"agent_id":          a.ID,
		"owner_address":     a.OwnerAddress,
		"agent_address":     a.AgentAddress,
		"is_enabled":        a.IsEnabled,
		"display_name":      a.Config.DisplayName,
		"persona":           a.Config.Persona,
		"custom_persona":    a.Config.CustomPersona,
		"play_style":        a.Config.PlayStyle,
		"auto_chat_enabled": a.Config.AutoChatEnabled,
		"max_bet_wei":       bigString(a.Config.MaxBetPerRound),
		"balances": map[string]any{
			"deposited_wei":      bigString(a.Balances.Deposited),
			"current_wei":        bigString(a.Balances.Current),
			"total_winnings_wei": bigString(a.Balances.TotalWinnings),
			"total_losses_wei":   bigString(a.Balances.TotalLosses),
		},
		"stats": map[string]any{
			"games_played":   a.Stats.GamesPlayed,
			"games_won":      a.Stats.GamesWon,
			"last_played_at": lastPlayed,
		},
		"created_at": a.CreatedAt.Format(time.RFC3339),
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
