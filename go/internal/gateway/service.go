package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Service is the room gateway: WebSocket connections in, room events out.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
	historyHandler    *HistoryHandler
}

// Config holds configuration for the room gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
}

// DefaultConfig returns default gateway configuration.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService wires the gateway together.
func NewService(config Config, roomService RoomService, history HistoryProvider) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	wsHandler := NewWebSocketHandler(connectionManager, roomService)

	eventConsumer, err := NewEventConsumer(connectionManager, config.JetStreamConfig)
	if err != nil {
		return nil, fmt.Errorf("create event consumer: %w", err)
	}

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         wsHandler,
		eventConsumer:     eventConsumer,
		historyHandler:    NewHistoryHandler(history),
	}, nil
}

// Start runs the gateway until the context is canceled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting room gateway service")

	go s.connectionManager.Start(ctx)

	go func() {
		if err := s.eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("room gateway service shutting down")
	return s.Stop()
}

// Stop tears the gateway down.
func (s *Service) Stop() error {
	if err := s.eventConsumer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event consumer")
	}
	log.Info().Msg("room gateway service stopped")
	return nil
}

// RegisterRoutes registers the gateway's HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.historyHandler.RegisterRoutes(mux)
	mux.HandleFunc("/ws/stats", s.handleStats)
	log.Info().Msg("room gateway routes registered")
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	connections, roomPools := s.connectionManager.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"total_connections":` + strconv.Itoa(connections) +
		`,"active_rooms":` + strconv.Itoa(roomPools) + `}`))
}
