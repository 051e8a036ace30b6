package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"xdao.co/nftmint/ledger"
)

var _ ledger.HistoryStore = (*Store)(nil)

// CommitProgress applies updates and records p in one SQL transaction,
// pruning rows that left the blockhash window.
func (s *Store) CommitProgress(ctx context.Context, updates []ledger.AccountUpdate, p ledger.Progress) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := applyUpdates(ctx, tx, updates); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO blockhashes (slot, hash) VALUES (?, ?)`, int64(p.Slot), p.Blockhash[:]); err != nil {
			return fmt.Errorf("record blockhash: %w", err)
		}
		if p.Signature != (ledger.Signature{}) {
			if _, err := tx.ExecContext(ctx, `INSERT INTO processed (signature, slot) VALUES (?, ?)`, p.Signature[:], int64(p.Slot)); err != nil {
				return fmt.Errorf("record signature: %w", err)
			}
		}
		return prune(ctx, tx, p.Slot)
	})
}

// CommitState applies updates and replaces the recorded history with st.
// Blockhashes are numbered so the last one sits at st.Slot.
func (s *Store) CommitState(ctx context.Context, updates []ledger.AccountUpdate, st ledger.State) error {
	if uint64(len(st.Blockhashes)) > st.Slot+1 {
		return fmt.Errorf("sqlite: %d blockhashes cannot end at slot %d", len(st.Blockhashes), st.Slot)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := applyUpdates(ctx, tx, updates); err != nil {
			return err
		}
		for _, q := range []string{`DELETE FROM blockhashes`, `DELETE FROM processed`} {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("reset history: %w", err)
			}
		}
		first := st.Slot + 1 - uint64(len(st.Blockhashes))
		for i, h := range st.Blockhashes {
			if _, err := tx.ExecContext(ctx, `INSERT INTO blockhashes (slot, hash) VALUES (?, ?)`, int64(first)+int64(i), h[:]); err != nil {
				return fmt.Errorf("record blockhash: %w", err)
			}
		}
		for sig, slot := range st.Processed {
			if _, err := tx.ExecContext(ctx, `INSERT INTO processed (signature, slot) VALUES (?, ?)`, sig[:], int64(slot)); err != nil {
				return fmt.Errorf("record signature: %w", err)
			}
		}
		return nil
	})
}

// History reads the recorded window. A history that was only ever appended
// to lacks slot 0, whose blockhash is the genesis blockhash.
func (s *Store) History(ctx context.Context) (ledger.State, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot, hash FROM blockhashes ORDER BY slot`)
	if err != nil {
		return ledger.State{}, false, fmt.Errorf("read blockhashes: %w", err)
	}
	var st ledger.State
	var lowest int64 = -1
	for rows.Next() {
		var slot int64
		var raw []byte
		if err := rows.Scan(&slot, &raw); err != nil {
			_ = rows.Close()
			return ledger.State{}, false, fmt.Errorf("scan blockhash: %w", err)
		}
		if lowest < 0 {
			lowest = slot
		}
		var h ledger.Hash
		copy(h[:], raw)
		st.Blockhashes = append(st.Blockhashes, h)
		st.Slot = uint64(slot)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return ledger.State{}, false, fmt.Errorf("read blockhashes: %w", err)
	}
	_ = rows.Close()
	if len(st.Blockhashes) == 0 {
		return ledger.State{}, false, nil
	}
	if lowest == 1 && len(st.Blockhashes) < ledger.MaxRecentBlockhashes {
		st.Blockhashes = append([]ledger.Hash{ledger.GenesisBlockhash}, st.Blockhashes...)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT signature, slot FROM processed`)
	if err != nil {
		return ledger.State{}, false, fmt.Errorf("read signatures: %w", err)
	}
	defer rows.Close()
	st.Processed = make(map[ledger.Signature]uint64)
	for rows.Next() {
		var raw []byte
		var slot int64
		if err := rows.Scan(&raw, &slot); err != nil {
			return ledger.State{}, false, fmt.Errorf("scan signature: %w", err)
		}
		var sig ledger.Signature
		copy(sig[:], raw)
		st.Processed[sig] = uint64(slot)
	}
	if err := rows.Err(); err != nil {
		return ledger.State{}, false, fmt.Errorf("read signatures: %w", err)
	}
	return st, true, nil
}

// prune drops blockhashes and signatures that are outside the window ending
// at slot.
func prune(ctx context.Context, tx *sql.Tx, slot uint64) error {
	if slot < ledger.MaxRecentBlockhashes {
		return nil
	}
	cutoff := int64(slot - ledger.MaxRecentBlockhashes)
	if _, err := tx.ExecContext(ctx, `DELETE FROM blockhashes WHERE slot <= ?`, cutoff); err != nil {
		return fmt.Errorf("prune blockhashes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM processed WHERE slot <= ?`, cutoff); err != nil {
		return fmt.Errorf("prune signatures: %w", err)
	}
	return nil
}
