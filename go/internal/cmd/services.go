package main

import (
	"database/sql"
	"fmt"

	"github.com/spinroom/spinroom/go/internal/gateway"
	"github.com/spinroom/spinroom/go/internal/history"
	"github.com/spinroom/spinroom/go/internal/rooms"
	"github.com/spinroom/spinroom/go/internal/rooms/events"
)

type Services struct {
	Registry  *rooms.Registry
	Gateway   *gateway.Service
	Publisher *events.JetStreamPublisher
	History   *history.Repository
}

func setupServices(database *sql.DB, config *Config) (*Services, error) {
	// Wiring chain: registry → JetStream → gateway consumer → WebSockets.

	historyRepo := history.NewRepository(database)

	publisherCfg := events.DefaultJetStreamConfig()
	publisherCfg.URL = config.NATS.URL
	publisherCfg.StreamName = config.NATS.StreamName
	publisher, err := events.NewJetStreamPublisher(publisherCfg)
	if err != nil {
		return nil, fmt.Errorf("create event publisher: %w", err)
	}

	registryCfg := rooms.DefaultConfig()
	registryCfg.SpinDuration = config.spinDuration()
	registry := rooms.NewRegistry(publisher, historyRepo, registryCfg)

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.JetStreamConfig.URL = config.NATS.URL
	gatewayCfg.JetStreamConfig.StreamName = config.NATS.StreamName
	roomGateway, err := gateway.NewService(gatewayCfg, registry, historyRepo)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("create room gateway: %w", err)
	}

	return &Services{
		Registry:  registry,
		Gateway:   roomGateway,
		Publisher: publisher,
		History:   historyRepo,
	}, nil
}
