// Package history archives resolved rounds for the read-only lottery
// history endpoint. The coordination core writes here best-effort and never
// reads back; losing a row costs a line on a history screen, nothing more.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sqlc-dev/pqtype"

	"github.com/spinroom/spinroom/go/internal/models"
	"github.com/spinroom/spinroom/go/internal/sqlutil"
)

// keepPerRoom caps archived rounds per room; older rows are pruned on insert.
const keepPerRoom = 100

// Repository implements lottery history data access on Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a history repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the lotteries table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lotteries (
			id           BIGSERIAL PRIMARY KEY,
			room_code    TEXT NOT NULL,
			participants JSONB NOT NULL,
			winner       TEXT NOT NULL,
			draw_value   DOUBLE PRECISION NOT NULL,
			resolved_at  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure lotteries schema: %w", err)
	}
	return nil
}

// RecordLottery inserts one resolved round and prunes the room's archive
// beyond the retention cap, in a single transaction.
func (r *Repository) RecordLottery(ctx context.Context, rec models.LotteryRecord) error {
	participants, err := json.Marshal(rec.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}

	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO lotteries (room_code, participants, winner, draw_value, resolved_at)
			VALUES ($1, $2, $3, $4, $5)`,
			rec.RoomCode,
			pqtype.NullRawMessage{RawMessage: participants, Valid: len(participants) > 0},
			rec.Winner,
			rec.DrawValue,
			rec.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("insert lottery record: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM lotteries
			WHERE room_code = $1 AND id NOT IN (
				SELECT id FROM lotteries
				WHERE room_code = $1
				ORDER BY resolved_at DESC
				LIMIT $2
			)`,
			rec.RoomCode, keepPerRoom,
		)
		if err != nil {
			return fmt.Errorf("prune lottery history: %w", err)
		}
		return nil
	})
}

// ListByParticipant returns the rounds a display name took part in, newest
// first. Names are not unique, so this is a display-only best match.
func (r *Repository) ListByParticipant(ctx context.Context, username string, limit int) ([]models.LotteryRecord, error) {
	needle, err := json.Marshal([]string{username})
	if err != nil {
		return nil, fmt.Errorf("marshal participant filter: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, room_code, participants, winner, draw_value, resolved_at
		FROM lotteries
		WHERE participants @> $1::jsonb
		ORDER BY resolved_at DESC
		LIMIT $2`,
		string(needle), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query lotteries by participant: %w", err)
	}
	defer rows.Close()

	var records []models.LotteryRecord
	for rows.Next() {
		var (
			rec          models.LotteryRecord
			participants pqtype.NullRawMessage
		)
		if err := rows.Scan(&rec.ID, &rec.RoomCode, &participants, &rec.Winner, &rec.DrawValue, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan lottery record: %w", err)
		}
		if participants.Valid {
			if err := json.Unmarshal(participants.RawMessage, &rec.Participants); err != nil {
				return nil, fmt.Errorf("unmarshal participants: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lottery records: %w", err)
	}
	return records, nil
}
