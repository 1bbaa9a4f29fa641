package store

import (
	"context"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const walletColumns = `id, owner_address, agent_address, encrypted_private_key, is_enabled,
	display_name, persona, custom_persona, play_style, auto_chat_enabled, max_bet_per_round,
	deposited, current_balance, total_winnings, total_losses,
	games_played, games_won, last_played_at, created_at, updated_at`

type walletRow interface {
	Scan(dest ...any) error
}

func scanWallet(row walletRow) (*AgentWallet, error) {
	var (
		w            AgentWallet
		maxBet       pgtype.Numeric
		deposited    pgtype.Numeric
		current      pgtype.Numeric
		winnings     pgtype.Numeric
		losses       pgtype.Numeric
		lastPlayedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&w.ID, &w.OwnerAddress, &w.AgentAddress, &w.EncryptedKey, &w.IsEnabled,
		&w.Config.DisplayName, &w.Config.Persona, &w.Config.CustomPersona, &w.Config.PlayStyle,
		&w.Config.AutoChatEnabled, &maxBet,
		&deposited, &current, &winnings, &losses,
		&w.Stats.GamesPlayed, &w.Stats.GamesWon, &lastPlayedAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.Config.MaxBetPerRound = numericVal(maxBet)
	w.Balances = AgentBalances{
		Deposited:     numericVal(deposited),
		Current:       numericVal(current),
		TotalWinnings: numericVal(winnings),
		TotalLosses:   numericVal(losses),
	}
	w.Stats.LastPlayedAt = timePtrVal(lastPlayedAt)
	return &w, nil
}

// InsertWallet inserts a freshly generated agent wallet. A unique
// violation on owner_address maps to ErrDuplicate so concurrent
// getOrCreate callers can re-fetch instead of failing.
func (s *Store) InsertWallet(ctx context.Context, w *AgentWallet) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO agent_wallets (id, owner_address, agent_address, encrypted_private_key,
			is_enabled, display_name, persona, custom_persona, play_style, auto_chat_enabled,
			max_bet_per_round)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		w.ID, w.OwnerAddress, w.AgentAddress, w.EncryptedKey,
		w.IsEnabled, w.Config.DisplayName, w.Config.Persona, w.Config.CustomPersona,
		w.Config.PlayStyle, w.Config.AutoChatEnabled, numericParam(w.Config.MaxBetPerRound),
	)
	return mapDuplicate(err)
}

func (s *Store) GetWalletByOwner(ctx context.Context, owner string) (*AgentWallet, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM agent_wallets WHERE owner_address = $1`, owner)
	w, err := scanWallet(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return w, nil
}

func (s *Store) GetWalletByID(ctx context.Context, id string) (*AgentWallet, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM agent_wallets WHERE id = $1`, id)
	w, err := scanWallet(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return w, nil
}

func (s *Store) listWallets(ctx context.Context, query string, args ...any) ([]AgentWallet, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]AgentWallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// ListEnabledWallets returns enabled agents in stable creation order. The
// scheduler relies on this order for deterministic per-tick processing.
func (s *Store) ListEnabledWallets(ctx context.Context) ([]AgentWallet, error) {
	return s.listWallets(ctx, `SELECT `+walletColumns+` FROM agent_wallets WHERE is_enabled ORDER BY created_at, id`)
}

// ListChatWallets returns enabled agents with auto-chat turned on.
func (s *Store) ListChatWallets(ctx context.Context) ([]AgentWallet, error) {
	return s.listWallets(ctx, `SELECT `+walletColumns+` FROM agent_wallets WHERE is_enabled AND auto_chat_enabled ORDER BY created_at, id`)
}

func (s *Store) ListWallets(ctx context.Context, limit, offset int) ([]AgentWallet, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.listWallets(ctx, `SELECT `+walletColumns+` FROM agent_wallets ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
}

func (s *Store) SetEnabled(ctx context.Context, owner string, enabled bool) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE agent_wallets SET is_enabled = $2, updated_at = now() WHERE owner_address = $1`,
		owner, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateConfig merge-patches the agent config; nil patch fields keep the
// stored values.
func (s *Store) UpdateConfig(ctx context.Context, owner string, patch ConfigPatch) (*AgentWallet, error) {
	var maxBet pgtype.Numeric
	if patch.MaxBetPerRound != nil {
		maxBet = numericParam(patch.MaxBetPerRound)
	}
	row := s.Pool.QueryRow(ctx, `
		UPDATE agent_wallets SET
			display_name = COALESCE($2, display_name),
			persona = COALESCE($3, persona),
			custom_persona = COALESCE($4, custom_persona),
			play_style = COALESCE($5, play_style),
			auto_chat_enabled = COALESCE($6, auto_chat_enabled),
			max_bet_per_round = COALESCE($7, max_bet_per_round),
			updated_at = now()
		WHERE owner_address = $1
		RETURNING `+walletColumns,
		owner,
		textPtrParam(patch.DisplayName), textPtrParam(patch.Persona),
		textPtrParam(patch.CustomPersona), textPtrParam(patch.PlayStyle),
		boolPtrParam(patch.AutoChatEnabled), maxBet,
	)
	w, err := scanWallet(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return w, nil
}

// RecordDeposit credits the wallet and appends a deposit history row in
// one transaction.
func (s *Store) RecordDeposit(ctx context.Context, agentID string, amount *big.Int, txHash, description string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE agent_wallets SET
				deposited = deposited + $2,
				current_balance = current_balance + $2,
				updated_at = now()
			WHERE id = $1`,
			agentID, numericParam(amount))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return appendHistory(ctx, tx, agentID, HistoryDeposit, amount, txHash, description)
	})
}

// RecordGameResult updates stats and win/loss aggregates after a settled
// round and appends the matching bet/win history row. It never touches
// current_balance; the executor resyncs that from the chain, and local
// arithmetic on top of a resynced value would count the entry fee twice.
func (s *Store) RecordGameResult(ctx context.Context, agentID string, won bool, amount *big.Int, txHash, description string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var entryType string
		now := time.Now()
		if won {
			entryType = HistoryWin
			_, err := tx.Exec(ctx, `
				UPDATE agent_wallets SET
					total_winnings = total_winnings + $2,
					games_played = games_played + 1,
					games_won = games_won + 1,
					last_played_at = $3,
					updated_at = now()
				WHERE id = $1`,
				agentID, numericParam(amount), now)
			if err != nil {
				return err
			}
		} else {
			entryType = HistoryBet
			_, err := tx.Exec(ctx, `
				UPDATE agent_wallets SET
					total_losses = total_losses + $2,
					games_played = games_played + 1,
					last_played_at = $3,
					updated_at = now()
				WHERE id = $1`,
				agentID, numericParam(amount), now)
			if err != nil {
				return err
			}
		}
		return appendHistory(ctx, tx, agentID, entryType, amount, txHash, description)
	})
}

// RecordWithdrawal appends the withdraw history row for a transfer that
// already confirmed on chain. The balance itself is resynced from the
// chain by the caller, so there is no debit and no balance guard here;
// the row lock only serializes against a concurrent deposit credit.
func (s *Store) RecordWithdrawal(ctx context.Context, agentID string, amount *big.Int, txHash, description string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `
			SELECT id FROM agent_wallets WHERE id = $1 FOR UPDATE`,
			agentID).Scan(&id)
		if err != nil {
			return mapNotFound(err)
		}
		return appendHistory(ctx, tx, agentID, HistoryWithdraw, amount, txHash, description)
	})
}

// SyncBalance overwrites the cached balance with the on-chain value.
func (s *Store) SyncBalance(ctx context.Context, agentID string, current *big.Int) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE agent_wallets SET current_balance = $2, updated_at = now() WHERE id = $1`,
		agentID, numericParam(current))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
