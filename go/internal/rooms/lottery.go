package rooms

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spinroom/spinroom/go/internal/models"
	"github.com/spinroom/spinroom/go/internal/rooms/events"
	"github.com/spinroom/spinroom/go/internal/wheel"
)

// StartLottery runs one round for a room: draws a value, selects the winner
// against the participant count captured at this instant, and broadcasts the
// outcome. The draw is a pure computation inside the room's serialized
// section, so no one can observe a half-resolved round.
//
// A request while a round is still Spinning is silently ignored: two near
// simultaneous spin presses are a harmless race, and at most one round may
// be in flight per room. The round settles to Resolved once the spin window
// elapses, after which a new start is accepted.
func (r *Registry) StartLottery(ctx context.Context, code, connID string) error {
	code, err := NormalizeCode(code)
	if err != nil {
		return err
	}

	r.mu.RLock()
	rs, exists := r.rooms[code]
	r.mu.RUnlock()
	if !exists {
		return ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.closed {
		return ErrRoomNotFound
	}

	if indexOf(rs.participants, connID) < 0 {
		// The requester left (or was dropped) before the request landed.
		log.Warn().Str("room", code).Str("conn_id", connID).Msg("start request from non-member ignored")
		return nil
	}

	if rs.round != nil && rs.round.State == models.RoundStateSpinning {
		log.Debug().Str("room", code).Msg("duplicate start while spinning ignored")
		return nil
	}

	// A room with zero participants is discarded, so the count here is ≥ 1.
	count := len(rs.participants)
	drawValue := r.draw()
	now := r.clock.Now()

	rs.roundSeq++
	round := &models.LotteryRound{
		ID:             uuid.New(),
		State:          models.RoundStateSpinning,
		Seq:            rs.roundSeq,
		DrawValue:      drawValue,
		WinnerIndex:    wheel.Select(count, drawValue),
		PartitionCount: count,
		StartedAt:      now,
		ResolvedAt:     now,
	}
	rs.round = round
	winnerName := rs.participants[round.WinnerIndex-1].DisplayName

	roundID := round.ID
	rs.spinTimer = r.clock.AfterFunc(r.config.SpinDuration, func() {
		r.settleRound(rs, roundID)
	})

	r.publish(ctx, events.TypeRoundResolved, code, events.RoundResolvedPayload{
		Room:           code,
		RoundSeq:       round.Seq,
		RandomNumber:   round.DrawValue,
		Winner:         round.WinnerIndex,
		WinnerName:     winnerName,
		PartitionCount: round.PartitionCount,
		ResolvedAt:     now,
	})

	log.Info().
		Str("room", code).
		Uint64("round_seq", round.Seq).
		Float64("draw", round.DrawValue).
		Int("winner", round.WinnerIndex).
		Str("winner_name", winnerName).
		Int("partitions", round.PartitionCount).
		Msg("round resolved")

	if r.recorder != nil {
		rec := models.LotteryRecord{
			RoomCode:     code,
			Participants: displayNames(rs.participants),
			Winner:       winnerName,
			DrawValue:    round.DrawValue,
			ResolvedAt:   now,
		}
		go r.record(rec)
	}

	return nil
}

// settleRound flips a round from Spinning to Resolved once the visual spin
// window has elapsed. Membership changes during the window do not touch the
// round: it already resolved against the count captured at the draw.
func (r *Registry) settleRound(rs *roomState, roundID uuid.UUID) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.closed || rs.round == nil || rs.round.ID != roundID {
		return
	}
	if rs.round.State == models.RoundStateSpinning {
		rs.round.State = models.RoundStateResolved
		log.Debug().Str("room", rs.code).Uint64("round_seq", rs.round.Seq).Msg("round settled")
	}
}

// record archives a finished round. Best-effort: history is display-only and
// never authoritative.
func (r *Registry) record(rec models.LotteryRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.RecordTimeout)
	defer cancel()

	if err := r.recorder.RecordLottery(ctx, rec); err != nil {
		log.Error().
			Err(err).
			Str("room", rec.RoomCode).
			Str("winner", rec.Winner).
			Msg("failed to record lottery history")
	}
}
