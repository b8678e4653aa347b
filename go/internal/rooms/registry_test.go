package rooms

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinroom/spinroom/go/internal/models"
	"github.com/spinroom/spinroom/go/internal/rooms/events"
)

type capturePublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (p *capturePublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

func (p *capturePublisher) byType(eventType string) []events.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Envelope
	for _, env := range p.envs {
		if env.EventType == eventType {
			out = append(out, env)
		}
	}
	return out
}

func decodePayload[T any](t *testing.T, env events.Envelope) T {
	t.Helper()
	var payload T
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	return payload
}

func newTestRegistry(t *testing.T) (*Registry, *capturePublisher, *clockwork.FakeClock) {
	t.Helper()
	pub := &capturePublisher{}
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(pub, nil, DefaultConfig()).WithClock(clock)
	return reg, pub, clock
}

func TestJoinCreatesRoomOnDemand(t *testing.T) {
	reg, pub, _ := newTestRegistry(t)

	index, names, err := reg.Join(context.Background(), "zzz999", "conn-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.Equal(t, []string{"alice"}, names)

	envs := pub.byType(events.TypeMembershipChanged)
	require.Len(t, envs, 1)
	payload := decodePayload[events.MembershipChangedPayload](t, envs[0])
	assert.Equal(t, "ZZZ999", payload.Room)
	assert.Equal(t, []string{"alice"}, payload.Participants)
	assert.Equal(t, 1, payload.Count)
}

func TestJoinIsIdempotentPerConnection(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := reg.Join(ctx, "ABC123", "conn-1", "alice")
	require.NoError(t, err)
	index, names, err := reg.Join(ctx, "ABC123", "conn-1", "alicia")
	require.NoError(t, err)

	assert.Equal(t, 0, index)
	assert.Equal(t, []string{"alicia"}, names)
}

func TestJoinDuplicateNamesAllowed(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := reg.Join(ctx, "ABC123", "conn-1", "alice")
	require.NoError(t, err)
	index, names, err := reg.Join(ctx, "ABC123", "conn-2", "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, index)
	assert.Equal(t, []string{"alice", "alice"}, names)
}

func TestJoinRejectsMalformedCode(t *testing.T) {
	reg, pub, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, code := range []string{"", "ABC", "ABC1234", "ABC12!", "ABC 12"} {
		_, _, err := reg.Join(ctx, code, "conn-1", "alice")
		assert.ErrorIs(t, err, ErrInvalidRoomCode, "code %q", code)
	}
	assert.Empty(t, pub.envs, "format errors must not broadcast")
}

func TestLeaveCompactsIndices(t *testing.T) {
	reg, pub, _ := newTestRegistry(t)
	ctx := context.Background()

	for i, name := range []string{"alice", "bob", "carol"} {
		_, _, err := reg.Join(ctx, "ABC123", []string{"c1", "c2", "c3"}[i], name)
		require.NoError(t, err)
	}

	before := len(pub.byType(events.TypeMembershipChanged))
	reg.Leave(ctx, "ABC123", "c2")

	envs := pub.byType(events.TypeMembershipChanged)
	require.Len(t, envs, before+1, "leave triggers exactly one membership broadcast")
	payload := decodePayload[events.MembershipChangedPayload](t, envs[len(envs)-1])
	assert.Equal(t, []string{"alice", "carol"}, payload.Participants)

	room, err := reg.Get("ABC123")
	require.NoError(t, err)
	assert.Equal(t, 1, room.IndexOf("c3"), "carol shifted down one slot")
}

func TestLeaveUnknownMemberIsNoOp(t *testing.T) {
	reg, pub, _ := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := reg.Join(ctx, "ABC123", "c1", "alice")
	require.NoError(t, err)
	before := len(pub.envs)

	reg.Leave(ctx, "ABC123", "ghost")
	reg.Leave(ctx, "NOROOM", "c1")

	assert.Len(t, pub.envs, before)
}

func TestEmptyRoomIsDiscarded(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := reg.Join(ctx, "ABC123", "c1", "alice")
	require.NoError(t, err)
	reg.Leave(ctx, "ABC123", "c1")

	_, err = reg.Get("ABC123")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, 0, reg.RoomCount())
}

func TestRejoinIndexIsPositionBased(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := reg.Join(ctx, "ABC123", "c1", "alice")
	require.NoError(t, err)
	_, _, err = reg.Join(ctx, "ABC123", "c2", "bob")
	require.NoError(t, err)

	reg.Leave(ctx, "ABC123", "c1")
	index, names, err := reg.Join(ctx, "ABC123", "c1", "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, index, "slot is position-based, not identity-sticky")
	assert.Equal(t, []string{"bob", "alice"}, names)
}

func TestStartLotteryUnknownRoom(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	err := reg.StartLottery(context.Background(), "NOROOM", "c1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestStartLotteryFourParticipantScenario(t *testing.T) {
	reg, pub, _ := newTestRegistry(t)
	reg.WithDraw(func() float64 { return 95 })
	ctx := context.Background()

	for i, name := range []string{"alice", "bob", "carol", "dave"} {
		_, _, err := reg.Join(ctx, "ABC123", []string{"c1", "c2", "c3", "c4"}[i], name)
		require.NoError(t, err)
	}

	require.NoError(t, reg.StartLottery(ctx, "ABC123", "c1"))

	envs := pub.byType(events.TypeRoundResolved)
	require.Len(t, envs, 1)
	payload := decodePayload[events.RoundResolvedPayload](t, envs[0])
	assert.Equal(t, 2, payload.Winner, "arc width 90, ceil(95/90) = 2")
	assert.Equal(t, "bob", payload.WinnerName, "1-based index 2 is zero-based participant 1")
	assert.Equal(t, 95.0, payload.RandomNumber)
	assert.Equal(t, 4, payload.PartitionCount)
	assert.Equal(t, uint64(1), payload.RoundSeq)
}

func TestStartLotteryAtMostOneInFlight(t *testing.T) {
	reg, pub, clock := newTestRegistry(t)
	reg.WithDraw(func() float64 { return 180 })
	ctx := context.Background()

	_, _, err := reg.Join(ctx, "ABC123", "c1", "alice")
	require.NoError(t, err)
	_, _, err = reg.Join(ctx, "ABC123", "c2", "bob")
	require.NoError(t, err)

	// Two presses before the spin window elapses: one outcome.
	require.NoError(t, reg.StartLottery(ctx, "ABC123", "c1"))
	require.NoError(t, reg.StartLottery(ctx, "ABC123", "c2"))
	require.Len(t, pub.byType(events.TypeRoundResolved), 1)

	// Once the wheel has settled a new round is accepted, with a higher seq.
	clock.Advance(DefaultConfig().SpinDuration + time.Millisecond)
	require.NoError(t, reg.StartLottery(ctx, "ABC123", "c1"))

	envs := pub.byType(events.TypeRoundResolved)
	require.Len(t, envs, 2)
	assert.Equal(t, uint64(2), decodePayload[events.RoundResolvedPayload](t, envs[1]).RoundSeq)
}

func TestRoundStateLifecycle(t *testing.T) {
	reg, _, clock := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := reg.Join(ctx, "ABC123", "c1", "alice")
	require.NoError(t, err)

	room, err := reg.Get("ABC123")
	require.NoError(t, err)
	assert.Equal(t, models.RoundStateIdle, room.RoundState())

	require.NoError(t, reg.StartLottery(ctx, "ABC123", "c1"))
	room, err = reg.Get("ABC123")
	require.NoError(t, err)
	assert.Equal(t, models.RoundStateSpinning, room.RoundState())

	clock.Advance(DefaultConfig().SpinDuration + time.Millisecond)
	room, err = reg.Get("ABC123")
	require.NoError(t, err)
	assert.Equal(t, models.RoundStateResolved, room.RoundState())
}

func TestRoundKeepsPartitionCountFromDraw(t *testing.T) {
	reg, pub, _ := newTestRegistry(t)
	reg.WithDraw(func() float64 { return 10 })
	ctx := context.Background()

	_, _, err := reg.Join(ctx, "ABC123", "c1", "alice")
	require.NoError(t, err)
	_, _, err = reg.Join(ctx, "ABC123", "c2", "bob")
	require.NoError(t, err)

	require.NoError(t, reg.StartLottery(ctx, "ABC123", "c1"))

	// Membership changes mid-spin do not touch the in-flight round.
	_, _, err = reg.Join(ctx, "ABC123", "c3", "carol")
	require.NoError(t, err)
	reg.Leave(ctx, "ABC123", "c2")

	room, err := reg.Get("ABC123")
	require.NoError(t, err)
	require.NotNil(t, room.Round)
	assert.Equal(t, 2, room.Round.PartitionCount)
	assert.Equal(t, models.RoundStateSpinning, room.Round.State)

	payload := decodePayload[events.RoundResolvedPayload](t, pub.byType(events.TypeRoundResolved)[0])
	assert.Equal(t, 2, payload.PartitionCount)
}

func TestStartFromNonMemberIgnored(t *testing.T) {
	reg, pub, _ := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := reg.Join(ctx, "ABC123", "c1", "alice")
	require.NoError(t, err)

	require.NoError(t, reg.StartLottery(ctx, "ABC123", "ghost"))
	assert.Empty(t, pub.byType(events.TypeRoundResolved))
}

type captureRecorder struct {
	mu   sync.Mutex
	recs []models.LotteryRecord
}

func (r *captureRecorder) RecordLottery(_ context.Context, rec models.LotteryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

func TestResolvedRoundIsRecorded(t *testing.T) {
	pub := &capturePublisher{}
	rec := &captureRecorder{}
	reg := NewRegistry(pub, rec, DefaultConfig()).
		WithClock(clockwork.NewFakeClock()).
		WithDraw(func() float64 { return 95 })
	ctx := context.Background()

	_, _, err := reg.Join(ctx, "ABC123", "c1", "alice")
	require.NoError(t, err)
	_, _, err = reg.Join(ctx, "ABC123", "c2", "bob")
	require.NoError(t, err)
	require.NoError(t, reg.StartLottery(ctx, "ABC123", "c1"))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "ABC123", rec.recs[0].RoomCode)
	assert.Equal(t, []string{"alice", "bob"}, rec.recs[0].Participants)
	assert.Equal(t, "alice", rec.recs[0].Winner, "draw 95 with two slots: arc 180, winner index 1")
}

func TestGenerateCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateCode()
		normalized, err := NormalizeCode(code)
		require.NoError(t, err)
		assert.Equal(t, code, normalized)
	}
}
