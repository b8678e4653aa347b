package models

import "time"

// RoomCodeLength is the fixed length of a room code.
const RoomCodeLength = 6

// Participant is one occupied slot on a room's wheel. Identity is the
// connection ID, not the display name; duplicate names are allowed.
type Participant struct {
	ConnID      string    `json:"conn_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Room is a named, ephemeral group of participants sharing one wheel.
// Partition indices are positions in Participants — contiguous, re-derived
// from list order, never stored independently.
type Room struct {
	Code         string        `json:"code"`
	Participants []Participant `json:"participants"`
	Round        *LotteryRound `json:"round,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// DisplayNames returns participant names in partition-index order.
func (r *Room) DisplayNames() []string {
	names := make([]string, len(r.Participants))
	for i, p := range r.Participants {
		names[i] = p.DisplayName
	}
	return names
}

// RoundState reports the room's round lifecycle state. A room with no round
// yet is Idle.
func (r *Room) RoundState() RoundState {
	if r.Round == nil {
		return RoundStateIdle
	}
	return r.Round.State
}

// IndexOf returns the partition index for a connection identity, or -1.
func (r *Room) IndexOf(connID string) int {
	for i, p := range r.Participants {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}
