package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundState is the lifecycle state of a lottery round.
type RoundState string

const (
	RoundStateIdle     RoundState = "IDLE"
	RoundStateSpinning RoundState = "SPINNING"
	RoundStateResolved RoundState = "RESOLVED"
)

// LotteryRound is one drawing for a room. A new round replaces the prior one;
// rounds are never mutated after resolution.
type LotteryRound struct {
	ID             uuid.UUID  `json:"id"`
	State          RoundState `json:"state"`
	Seq            uint64     `json:"seq"`
	DrawValue      float64    `json:"draw_value"`      // degrees in [0, 360)
	WinnerIndex    int        `json:"winner_index"`    // 1-based; 0 means unresolved
	PartitionCount int        `json:"partition_count"` // captured at draw time
	StartedAt      time.Time  `json:"started_at"`
	ResolvedAt     time.Time  `json:"resolved_at"`
}
