package mirror

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinroom/spinroom/go/internal/rooms/events"
	"github.com/spinroom/spinroom/go/internal/wheel"
)

func membership(seq uint64, names ...string) events.MembershipChangedPayload {
	return events.MembershipChangedPayload{
		Room:         "ABC123",
		Participants: names,
		Count:        len(names),
		Seq:          seq,
	}
}

func outcome(seq uint64, r float64, winner int, name string, count int) events.RoundResolvedPayload {
	return events.RoundResolvedPayload{
		Room:           "ABC123",
		RoundSeq:       seq,
		RandomNumber:   r,
		Winner:         winner,
		WinnerName:     name,
		PartitionCount: count,
	}
}

func TestApplyMembershipReplacesList(t *testing.T) {
	m := New("ABC123")

	require.True(t, m.ApplyMembership(membership(1, "alice", "bob")))
	require.True(t, m.ApplyMembership(membership(2, "alice", "bob", "carol")))

	if diff := cmp.Diff([]string{"alice", "bob", "carol"}, m.Participants()); diff != "" {
		t.Fatalf("participants mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyMembershipDiscardsStale(t *testing.T) {
	m := New("ABC123")

	require.True(t, m.ApplyMembership(membership(2, "alice", "bob")))
	assert.False(t, m.ApplyMembership(membership(1, "alice")))
	assert.Equal(t, []string{"alice", "bob"}, m.Participants())
}

func TestApplyOutcomeIdempotent(t *testing.T) {
	m := New("ABC123")
	m.ApplyMembership(membership(1, "alice", "bob", "carol", "dave"))

	payload := outcome(1, 95, 2, "bob", 4)
	require.True(t, m.ApplyOutcome(payload))

	index, name := m.Winner()
	rotation := m.TargetRotation()

	// Applying the same sequence again is a no-op.
	assert.False(t, m.ApplyOutcome(payload))
	index2, name2 := m.Winner()
	assert.Equal(t, index, index2)
	assert.Equal(t, name, name2)
	assert.Equal(t, rotation, m.TargetRotation())
}

func TestApplyOutcomeDiscardsLowerSequence(t *testing.T) {
	m := New("ABC123")

	require.True(t, m.ApplyOutcome(outcome(3, 200, 3, "carol", 4)))
	assert.False(t, m.ApplyOutcome(outcome(2, 10, 1, "alice", 4)))

	index, name := m.Winner()
	assert.Equal(t, 3, index)
	assert.Equal(t, "carol", name)
}

func TestOutcomeDerivesRotationFromSharedFormula(t *testing.T) {
	m := New("ABC123")

	require.True(t, m.ApplyOutcome(outcome(1, 95, 2, "bob", 4)))
	assert.Equal(t, wheel.TargetRotation(95), m.TargetRotation())
	assert.Equal(t, 1080+450-95.0, m.TargetRotation())
}

func TestNoWinnerSentinelBeforeFirstOutcome(t *testing.T) {
	m := New("ABC123")
	index, name := m.Winner()
	assert.Equal(t, wheel.NoWinner, index)
	assert.Empty(t, name)
}

func TestApplyEnvelopeRoutesByType(t *testing.T) {
	m := New("ABC123")

	data, err := json.Marshal(membership(1, "alice"))
	require.NoError(t, err)
	require.NoError(t, m.Apply(events.Envelope{
		EventType: events.TypeMembershipChanged,
		RoomCode:  "ABC123",
		Payload:   data,
	}))
	assert.Equal(t, []string{"alice"}, m.Participants())

	// Events for other rooms are ignored.
	other, err := json.Marshal(membership(5, "mallory"))
	require.NoError(t, err)
	require.NoError(t, m.Apply(events.Envelope{
		EventType: events.TypeMembershipChanged,
		RoomCode:  "XYZ789",
		Payload:   other,
	}))
	assert.Equal(t, []string{"alice"}, m.Participants())
}

func TestLayoutOneSlicePerParticipant(t *testing.T) {
	m := New("ABC123")
	m.ApplyMembership(membership(1, "alice", "bob", "carol"))

	slices := m.Layout(300)
	require.Len(t, slices, 3)
	assert.Equal(t, "alice", slices[0].Name)
	assert.Equal(t, wheel.PartitionPath(3, 1, 300), slices[1].Path)
}

func TestRotationStateAnimates(t *testing.T) {
	clock := clockwork.NewFakeClock()
	state := NewRotationState(clock)

	settled := make(chan float64, 1)
	state.OnSettled(func(degrees float64) { settled <- degrees })

	state.Animate(SpinCommand{TargetDegrees: 1435, Duration: DefaultSpinDuration})
	_, spinning := state.Current()
	require.True(t, spinning)

	clock.Advance(DefaultSpinDuration + time.Millisecond)

	select {
	case degrees := <-settled:
		assert.Equal(t, 1435.0, degrees)
	case <-time.After(time.Second):
		t.Fatal("animation never settled")
	}

	current, spinning := state.Current()
	assert.False(t, spinning)
	assert.Equal(t, 1435.0, current)
}

func TestRotationStateRetargetsMidSpin(t *testing.T) {
	clock := clockwork.NewFakeClock()
	state := NewRotationState(clock)

	state.Animate(SpinCommand{TargetDegrees: 1000, Duration: DefaultSpinDuration})
	state.Animate(SpinCommand{TargetDegrees: 1435, Duration: DefaultSpinDuration})

	clock.Advance(2 * DefaultSpinDuration)

	current, spinning := state.Current()
	assert.False(t, spinning)
	assert.Equal(t, 1435.0, current, "only the retargeted spin settles")
}
