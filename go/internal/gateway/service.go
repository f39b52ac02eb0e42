package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service is the game channel gateway: it relays bus events to every
// connected client
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates a gateway service connected to the event stream
func NewService(ctx context.Context, config Config) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)

	eventConsumer, err := NewEventConsumer(ctx, connectionManager, config.JetStreamConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		eventConsumer:     eventConsumer,
	}, nil
}

// Start runs the connection manager and the event consumer until ctx is done
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")

	go s.connectionManager.Start(ctx)

	go func() {
		if err := s.eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("game gateway service shutting down")
	return s.Stop()
}

// Stop shuts down the event consumer. Connections close with the context
// passed to Start.
func (s *Service) Stop() error {
	if err := s.eventConsumer.Stop(); err != nil {
		return fmt.Errorf("failed to stop event consumer: %w", err)
	}
	log.Info().Msg("game gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// ConnectionCount returns the number of connected clients
func (s *Service) ConnectionCount() int {
	return s.connectionManager.ConnectionCount()
}

// Broadcast sends an envelope to every client without going through the bus
func (s *Service) Broadcast(env Envelope) {
	s.connectionManager.Broadcast(env)
}
