package rooms

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spinroom/spinroom/go/internal/models"
	"github.com/spinroom/spinroom/go/internal/rooms/events"
)

// DrawFunc produces a draw value in [0, 360). Injectable for tests.
type DrawFunc func() float64

// HistoryRecorder defines what the registry needs from the history layer.
// Recording is best-effort and never blocks or fails a round.
type HistoryRecorder interface {
	RecordLottery(ctx context.Context, rec models.LotteryRecord) error
}

// Config holds tunables for the room registry.
type Config struct {
	// SpinDuration is how long a round stays Spinning after its outcome is
	// broadcast. It matches the client spin animation, so two near
	// simultaneous start presses produce one winner per visual spin.
	SpinDuration time.Duration

	// PublishTimeout bounds a single event publish.
	PublishTimeout time.Duration

	// RecordTimeout bounds a single history insert.
	RecordTimeout time.Duration
}

// DefaultConfig returns default registry configuration.
func DefaultConfig() Config {
	return Config{
		SpinDuration:   5 * time.Second,
		PublishTimeout: 5 * time.Second,
		RecordTimeout:  10 * time.Second,
	}
}

// Registry is the authoritative owner of rooms and their lottery rounds.
//
// All mutating operations on one room are serialized by that room's mutex;
// operations on different rooms never contend beyond the brief map access.
// The registry is the single sequencer per room: events are published in the
// order they were produced, and fan-out to individual connections happens
// downstream in the gateway.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*roomState

	publisher events.Publisher
	recorder  HistoryRecorder // optional
	clock     clockwork.Clock
	draw      DrawFunc
	config    Config
}

type roomState struct {
	mu sync.Mutex

	code          string
	participants  []models.Participant
	round         *models.LotteryRound
	membershipSeq uint64
	roundSeq      uint64
	createdAt     time.Time

	spinTimer clockwork.Timer
	closed    bool // set when the room is discarded
}

// NewRegistry creates a room registry publishing to the given bus.
func NewRegistry(publisher events.Publisher, recorder HistoryRecorder, config Config) *Registry {
	return &Registry{
		rooms:     make(map[string]*roomState),
		publisher: publisher,
		recorder:  recorder,
		clock:     clockwork.NewRealClock(),
		draw:      func() float64 { return rand.Float64() * 360 },
		config:    config,
	}
}

// WithClock swaps the clock. Use a clockwork.FakeClock in tests.
func (r *Registry) WithClock(clock clockwork.Clock) *Registry {
	r.clock = clock
	return r
}

// WithDraw swaps the draw source. Use a fixed value in tests.
func (r *Registry) WithDraw(draw DrawFunc) *Registry {
	r.draw = draw
	return r
}

// Join admits a participant into a room, creating the room on demand.
// It is idempotent per connection identity: re-joining while already a member
// updates the display name without duplicating the slot. Returns the assigned
// partition index and the ordered participant list, and broadcasts the
// updated membership to the room.
func (r *Registry) Join(ctx context.Context, code, connID, displayName string) (int, []string, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return 0, nil, err
	}

	var rs *roomState
	for {
		r.mu.Lock()
		existing, exists := r.rooms[code]
		if !exists {
			existing = &roomState{code: code, createdAt: r.clock.Now()}
			r.rooms[code] = existing
			log.Info().Str("room", code).Msg("room created")
		}
		r.mu.Unlock()

		existing.mu.Lock()
		if existing.closed {
			// Lost a race with the room being discarded; retry against a
			// fresh room.
			existing.mu.Unlock()
			continue
		}
		rs = existing
		break
	}
	defer rs.mu.Unlock()

	index := indexOf(rs.participants, connID)
	if index >= 0 {
		rs.participants[index].DisplayName = displayName
	} else {
		rs.participants = append(rs.participants, models.Participant{
			ConnID:      connID,
			DisplayName: displayName,
			JoinedAt:    r.clock.Now(),
		})
		index = len(rs.participants) - 1
	}

	names := displayNames(rs.participants)
	r.emitMembership(ctx, rs)

	log.Info().
		Str("room", code).
		Str("conn_id", connID).
		Str("display_name", displayName).
		Int("index", index).
		Int("room_size", len(names)).
		Msg("participant joined")

	return index, names, nil
}

// Leave removes a participant. No-op if the room or membership does not
// exist. Later participants shift down one partition index, which is
// re-broadcast; an empty room is discarded immediately along with any
// in-flight round.
func (r *Registry) Leave(ctx context.Context, code, connID string) {
	code, err := NormalizeCode(code)
	if err != nil {
		return
	}

	r.mu.Lock()
	rs, exists := r.rooms[code]
	if !exists {
		r.mu.Unlock()
		return
	}
	rs.mu.Lock()

	index := indexOf(rs.participants, connID)
	if index < 0 {
		r.mu.Unlock()
		rs.mu.Unlock()
		return
	}

	rs.participants = append(rs.participants[:index], rs.participants[index+1:]...)

	if len(rs.participants) == 0 {
		rs.closed = true
		if rs.spinTimer != nil {
			rs.spinTimer.Stop()
		}
		delete(r.rooms, code)
		r.mu.Unlock()
		rs.mu.Unlock()
		log.Info().Str("room", code).Msg("room discarded (empty)")
		return
	}
	r.mu.Unlock()
	defer rs.mu.Unlock()

	r.emitMembership(ctx, rs)

	log.Info().
		Str("room", code).
		Str("conn_id", connID).
		Int("room_size", len(rs.participants)).
		Msg("participant left")
}

// Get returns a read-only snapshot of a room.
func (r *Registry) Get(code string) (*models.Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	rs, exists := r.rooms[code]
	r.mu.RUnlock()
	if !exists {
		return nil, ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.closed {
		return nil, ErrRoomNotFound
	}

	room := &models.Room{
		Code:         rs.code,
		Participants: append([]models.Participant(nil), rs.participants...),
		CreatedAt:    rs.createdAt,
	}
	if rs.round != nil {
		round := *rs.round
		room.Round = &round
	}
	return room, nil
}

// RoomCount reports the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// emitMembership publishes the room's ordered participant list. Caller holds
// the room lock, which is what sequences events within a room.
func (r *Registry) emitMembership(ctx context.Context, rs *roomState) {
	rs.membershipSeq++
	r.publish(ctx, events.TypeMembershipChanged, rs.code, events.MembershipChangedPayload{
		Room:         rs.code,
		Participants: displayNames(rs.participants),
		Count:        len(rs.participants),
		Seq:          rs.membershipSeq,
		ChangedAt:    r.clock.Now(),
	})
}

// publish sends one event to the bus. Fire-and-forget: a failed publish is
// logged, never retried; clients resynchronize on the next broadcast.
func (r *Registry) publish(ctx context.Context, eventType, code string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		return
	}

	env := events.Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		RoomCode:  code,
		Timestamp: r.clock.Now(),
		Payload:   data,
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.PublishTimeout)
	defer cancel()

	if err := r.publisher.Publish(ctx, env); err != nil {
		log.Error().
			Err(err).
			Str("event_type", eventType).
			Str("room", code).
			Msg("failed to publish room event")
	}
}

func indexOf(participants []models.Participant, connID string) int {
	for i, p := range participants {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

func displayNames(participants []models.Participant) []string {
	names := make([]string, len(participants))
	for i, p := range participants {
		names[i] = p.DisplayName
	}
	return names
}
