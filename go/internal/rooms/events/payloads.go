package events

import (
	"encoding/json"
	"time"
)

// Event types shared between the rooms core and the gateway.

const (
	TypeMembershipChanged = "MembershipChanged"
	TypeRoundResolved     = "RoundResolved"
)

// Envelope wraps every room event published to the bus.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	RoomCode  string          `json:"roomCode"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// MembershipChangedPayload carries the full ordered participant list.
// Participant order is partition-index order; clients derive labels and
// partition count from it rather than tracking deltas.
type MembershipChangedPayload struct {
	Room         string    `json:"room"`
	Participants []string  `json:"participants"`
	Count        int       `json:"count"`
	Seq          uint64    `json:"seq"`
	ChangedAt    time.Time `json:"changedAt"`
}

// RoundResolvedPayload announces a round's outcome. It always carries the
// partition count the draw was made against so a client whose membership
// mirror is briefly stale still renders a self-consistent spin.
type RoundResolvedPayload struct {
	Room           string    `json:"room"`
	RoundSeq       uint64    `json:"roundSeq"`
	RandomNumber   float64   `json:"randomNumber"` // degrees in [0, 360)
	Winner         int       `json:"winner"`       // 1-based partition index
	WinnerName     string    `json:"winnerName"`
	PartitionCount int       `json:"partitionCount"`
	ResolvedAt     time.Time `json:"resolvedAt"`
}
