package store

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func appendHistory(ctx context.Context, tx pgx.Tx, agentID, entryType string, amount *big.Int, txHash, description string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transaction_history (id, agent_id, type, amount, tx_hash, description)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		NewID(), agentID, entryType, numericParam(amount), textParam(txHash), description)
	return err
}

func (s *Store) ListHistory(ctx context.Context, agentID string, limit, offset int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, agent_id, type, amount, tx_hash, description, created_at
		FROM transaction_history
		WHERE agent_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		agentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HistoryEntry, 0)
	for rows.Next() {
		var (
			e      HistoryEntry
			amount pgtype.Numeric
			txHash pgtype.Text
		)
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Type, &amount, &txHash, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Amount = numericVal(amount)
		e.TxHash = textVal(txHash)
		out = append(out, e)
	}
	return out, rows.Err()
}
