// Package mirror is the client-side contract for room state: a read-only
// local copy updated only by received events, producing the derived values
// (partition labels, target rotation) that a renderer consumes. It holds no
// authoritative state and recomputes outcomes through the same shared wheel
// package the server draws with.
package mirror

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spinroom/spinroom/go/internal/rooms/events"
	"github.com/spinroom/spinroom/go/internal/wheel"
)

// Mirror tracks one room from the point of view of a single client.
type Mirror struct {
	mu sync.Mutex

	room         string
	participants []string

	membershipSeq uint64
	roundSeq      uint64

	winnerIndex    int // 1-based; wheel.NoWinner before the first outcome
	winnerName     string
	drawValue      float64
	partitionCount int // from the last outcome, not the live list
	targetRotation float64
}

// New creates a mirror for a room code.
func New(room string) *Mirror {
	return &Mirror{room: room, winnerIndex: wheel.NoWinner}
}

// Apply routes an event envelope to the matching handler. Events for other
// rooms and unknown event types are ignored.
func (m *Mirror) Apply(env events.Envelope) error {
	if env.RoomCode != m.room {
		return nil
	}

	switch env.EventType {
	case events.TypeMembershipChanged:
		var payload events.MembershipChangedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal membership payload: %w", err)
		}
		m.ApplyMembership(payload)
	case events.TypeRoundResolved:
		var payload events.RoundResolvedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal outcome payload: %w", err)
		}
		m.ApplyOutcome(payload)
	}
	return nil
}

// ApplyMembership replaces the participant list. Reports false when the
// event is stale (sequence at or below the last applied) and was discarded.
func (m *Mirror) ApplyMembership(payload events.MembershipChangedPayload) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if payload.Seq <= m.membershipSeq {
		return false
	}
	m.membershipSeq = payload.Seq
	m.participants = append([]string(nil), payload.Participants...)
	return true
}

// ApplyOutcome applies a round outcome. Delivery is at-least-once, so a
// repeated or out-of-order outcome (round sequence at or below the last
// applied) is a no-op; applying the same event twice leaves the mirror
// unchanged. Reports whether the outcome was applied.
func (m *Mirror) ApplyOutcome(payload events.RoundResolvedPayload) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if payload.RoundSeq <= m.roundSeq {
		return false
	}
	m.roundSeq = payload.RoundSeq
	m.winnerIndex = payload.Winner
	m.winnerName = payload.WinnerName
	m.drawValue = payload.RandomNumber
	m.partitionCount = payload.PartitionCount
	m.targetRotation = wheel.TargetRotation(payload.RandomNumber)
	return true
}

// Participants returns the current labels in partition-index order.
func (m *Mirror) Participants() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.participants...)
}

// Winner returns the last outcome's 1-based index and display name.
// Index wheel.NoWinner means no round has resolved yet.
func (m *Mirror) Winner() (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winnerIndex, m.winnerName
}

// TargetRotation returns the rotation in degrees for the last outcome.
// Every client of the room computes the same value.
func (m *Mirror) TargetRotation() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targetRotation
}

// SpinCommand builds the render-layer command for the last outcome.
func (m *Mirror) SpinCommand() SpinCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SpinCommand{TargetDegrees: m.targetRotation, Duration: DefaultSpinDuration}
}

// Slice is one rendered partition: arc path, label placement, display name.
type Slice struct {
	Path  string
	Label wheel.LabelPlacement
	Name  string
}

// Layout returns the geometry for the current membership, one slice per
// participant, for a wheel of the given pixel size.
func (m *Mirror) Layout(size float64) []Slice {
	m.mu.Lock()
	defer m.mu.Unlock()

	slices := make([]Slice, len(m.participants))
	for i, name := range m.participants {
		slices[i] = Slice{
			Path:  wheel.PartitionPath(len(m.participants), i, size),
			Label: wheel.LabelPosition(len(m.participants), i, size),
			Name:  name,
		}
	}
	return slices
}
