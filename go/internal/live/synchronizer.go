package live

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithClock replaces the real clock, e.g. with clockwork.NewFakeClock() in tests
func WithClock(clock clockwork.Clock) Option {
	return func(s *Synchronizer) {
		s.clock = clock
	}
}

// WithDialer replaces the default gorilla dialer
func WithDialer(dial Dialer) Option {
	return func(s *Synchronizer) {
		s.dial = dial
	}
}

// Synchronizer keeps one live connection to the game endpoint, folds inbound
// messages into its state and reconnects after a fixed delay when the
// connection drops. None of its methods block on the network.
type Synchronizer struct {
	cfg   Config
	clock clockwork.Clock
	dial  Dialer
	store *store

	mu    sync.Mutex
	state ConnectionState
	// generation is bumped by every connect attempt and every Disconnect;
	// callbacks carrying an older generation are ignored.
	generation uint64
	conn       *connection
	cancelDial context.CancelFunc

	retryTimer  clockwork.Timer
	retryCancel chan struct{}

	// set by Disconnect, cleared by Connect
	disconnected bool
}

// NewSynchronizer creates a disconnected Synchronizer. An invalid config falls
// back to the defaults instead of failing.
func NewSynchronizer(cfg Config, opts ...Option) *Synchronizer {
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Str("url", cfg.URL).Msg("invalid live config, falling back to defaults")
		cfg = DefaultConfig()
		cfg.URL = DefaultURL
	}

	s := &Synchronizer{
		cfg:   cfg,
		clock: clockwork.NewRealClock(),
		store: newStore(cfg.RecentTagsLimit),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dial == nil {
		s.dial = NewDialer(cfg)
	}
	return s
}

// Connect opens the live connection. It is a no-op while a connection is open
// or being opened.
func (s *Synchronizer) Connect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disconnected = false
	s.connectLocked()
}

// Disconnect closes the connection, aborts a dial in flight and cancels any
// pending reconnect. Retained game data is kept.
func (s *Synchronizer) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disconnected = true
	s.stopRetryLocked()
	s.generation++

	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	if s.conn != nil {
		s.conn.close()
		s.conn = nil
	}

	if s.state != Disconnected {
		log.Info().Str("url", s.cfg.URL).Msg("live connection closed")
	}
	s.setStateLocked(Disconnected)
}

// Close tears the synchronizer down: it disconnects and clears all retained
// game data.
func (s *Synchronizer) Close() {
	s.Disconnect()
	s.store.clear()
}

// State returns the current connection state
func (s *Synchronizer) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the live game view
func (s *Synchronizer) Snapshot() Snapshot {
	return s.store.Snapshot()
}

// Subscribe returns a channel of snapshots published after every change
func (s *Synchronizer) Subscribe(buffer int) (<-chan Snapshot, func()) {
	return s.store.Subscribe(buffer)
}

// View returns the read-only surface for consumers
func (s *Synchronizer) View() View {
	return s.store
}

func (s *Synchronizer) connectLocked() {
	if s.state != Disconnected {
		return
	}

	// an explicit or scheduled connect supersedes any pending retry
	s.stopRetryLocked()

	s.generation++
	gen := s.generation
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HandshakeTimeout)
	s.cancelDial = cancel
	s.setStateLocked(Connecting)

	log.Debug().Str("url", s.cfg.URL).Uint64("generation", gen).Msg("opening live connection")

	go s.dialAndServe(ctx, cancel, gen)
}

func (s *Synchronizer) dialAndServe(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	ws, err := s.dial(ctx, s.cfg.URL)
	cancel()

	s.mu.Lock()
	if gen != s.generation {
		// Disconnect ran while dialing
		s.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		return
	}
	s.cancelDial = nil

	if err != nil {
		log.Warn().Err(err).Str("url", s.cfg.URL).Msg("live connection failed")
		s.dropLocked()
		s.mu.Unlock()
		return
	}

	conn := newConnection(ws, s.cfg, s.clock)
	s.conn = conn
	s.setStateLocked(Connected)
	s.mu.Unlock()

	log.Info().Str("url", s.cfg.URL).Msg("live connection established")

	go conn.keepalive()
	err = conn.readLoop(func(data []byte) {
		s.handleFrame(gen, data)
	})
	conn.close()
	s.handleClosed(gen, err)
}

func (s *Synchronizer) handleFrame(gen uint64, data []byte) {
	msg, err := DecodeMessage(data)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(data)).Msg("discarding malformed live message")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}

	if _, ok := msg.(Unknown); ok {
		log.Debug().Str("type", string(msg.Type())).Msg("ignoring unknown live message type")
		return
	}
	s.store.apply(msg, s.clock.Now())
}

func (s *Synchronizer) handleClosed(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}
	s.conn = nil

	level := zerolog.WarnLevel
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		level = zerolog.InfoLevel
	}
	event := log.WithLevel(level).Str("url", s.cfg.URL)
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		event = event.Int("close_code", closeErr.Code)
	}
	event.Err(err).Msg("live connection lost")

	s.dropLocked()
}

// dropLocked marks the connection lost and schedules a single reconnect unless
// one is already pending or the caller asked to stay disconnected.
func (s *Synchronizer) dropLocked() {
	s.setStateLocked(Disconnected)

	if s.disconnected || s.retryTimer != nil {
		return
	}

	timer := s.clock.NewTimer(s.cfg.ReconnectDelay)
	cancel := make(chan struct{})
	s.retryTimer = timer
	s.retryCancel = cancel

	log.Debug().Dur("delay", s.cfg.ReconnectDelay).Msg("scheduled live reconnect")

	go func() {
		select {
		case <-timer.Chan():
			s.retry(timer)
		case <-cancel:
		}
	}()
}

func (s *Synchronizer) retry(timer clockwork.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryTimer != timer {
		return
	}
	s.retryTimer = nil
	s.retryCancel = nil

	if s.disconnected {
		return
	}
	s.connectLocked()
}

func (s *Synchronizer) stopRetryLocked() {
	if s.retryTimer == nil {
		return
	}
	stopAndDrainTimer(s.retryTimer)
	close(s.retryCancel)
	s.retryTimer = nil
	s.retryCancel = nil
	log.Debug().Msg("cancelled pending live reconnect")
}

func (s *Synchronizer) setStateLocked(state ConnectionState) {
	s.state = state
	s.store.setState(state)
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
