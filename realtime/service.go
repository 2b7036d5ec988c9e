package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bosbase/realtime-go/client"
	"github.com/bosbase/realtime-go/client/sse"
	"github.com/bosbase/realtime-go/logger"
)

// Service is the SSE realtime transport. The zero value is not usable; use New.
type Service struct {
	client *client.Client
	cfg    Config
	log    *logger.Logger

	state atomic.Int32
	stop  atomic.Bool

	mu           sync.Mutex
	subs         map[string][]subEntry
	clientID     string
	onDisconnect func(activeTopics []string)
	loopCtx      context.Context
	loopCancel   context.CancelFunc
	loopDone     chan struct{}
}

type subEntry struct {
	id string
	fn Listener
}

// New creates a realtime service over the given client.
func New(c *client.Client, cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		client: c,
		cfg:    cfg,
		log:    c.Logger().WithComponent("realtime"),
		subs:   make(map[string][]subEntry),
	}, nil
}

// State returns the current connection state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// IsConnected reports whether the stream is live and confirmed by the server.
func (s *Service) IsConnected() bool {
	return s.State() == StateConnected
}

// ClientID returns the server-assigned connection id. Empty unless connected.
func (s *Service) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientID
}

// OnDisconnect registers the connection-gap hook. It is called with the
// currently registered topics when the stream drops, and with an empty list
// once the stream is (re)established.
func (s *Service) OnDisconnect(fn func(activeTopics []string)) {
	s.mu.Lock()
	s.onDisconnect = fn
	s.mu.Unlock()
}

// Disconnect stops the background loop and blocks until it has exited.
// The service does not resume on its own afterwards; a later Subscribe
// starts a fresh loop.
func (s *Service) Disconnect() {
	s.mu.Lock()
	done := s.loopDone
	cancel := s.loopCancel
	s.mu.Unlock()

	if done == nil {
		s.state.Store(int32(StateDisconnected))
		return
	}

	s.state.Store(int32(StateClosing))
	s.stop.Store(true)
	if cancel != nil {
		cancel()
	}
	<-done

	s.mu.Lock()
	if s.loopDone == done {
		s.loopDone = nil
		s.loopCancel = nil
		s.loopCtx = nil
	}
	s.clientID = ""
	s.mu.Unlock()
	s.state.Store(int32(StateDisconnected))
}

// teardown requests a stop without waiting for the loop to exit. Used when
// the registry empties, which can happen from inside a listener callback
// running on the loop goroutine itself.
func (s *Service) teardown() {
	s.stop.Store(true)
	s.mu.Lock()
	cancel := s.loopCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ensureLoop starts the background loop if none is running. A loop that is
// draining after a teardown is waited out first so two loops never hold
// connections concurrently.
func (s *Service) ensureLoop() {
	for {
		s.mu.Lock()
		done := s.loopDone
		if done == nil {
			ctx, cancel := context.WithCancel(context.Background())
			d := make(chan struct{})
			s.loopCtx, s.loopCancel, s.loopDone = ctx, cancel, d
			s.stop.Store(false)
			s.mu.Unlock()
			go func() {
				defer close(d)
				s.run(ctx)
			}()
			return
		}
		stopping := s.stop.Load()
		s.mu.Unlock()
		if !stopping {
			return
		}
		<-done
		s.mu.Lock()
		if s.loopDone == done {
			s.loopDone = nil
			s.loopCancel = nil
			s.loopCtx = nil
		}
		s.mu.Unlock()
	}
}

// ensureConnected blocks until the stream reaches Connected, polling at the
// configured interval, and fails with a timeout error after ConnectTimeout.
func (s *Service) ensureConnected(ctx context.Context) error {
	deadline := time.Now().Add(s.cfg.ConnectTimeout)
	for s.State() != StateConnected {
		select {
		case <-ctx.Done():
			return client.NewAbortError(ctx.Err())
		case <-time.After(s.cfg.PollInterval):
		}
		if time.Now().After(deadline) {
			return client.NewTimeoutError(errors.New("realtime connection not established"))
		}
	}
	return nil
}

// run is the supervisor loop: connect, drain the stream, report the gap,
// back off, repeat. Runs until an explicit stop.
func (s *Service) run(ctx context.Context) {
	defer s.state.Store(int32(StateDisconnected))

	for {
		if s.stop.Load() || ctx.Err() != nil {
			return
		}

		s.state.Store(int32(StateConnecting))
		s.streamOnce(ctx)

		s.mu.Lock()
		s.clientID = ""
		s.mu.Unlock()
		s.state.Store(int32(StateDisconnected))

		if s.stop.Load() || ctx.Err() != nil {
			return
		}

		s.notifyDisconnect(s.ActiveTopics())

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.Backoff):
		}
	}
}

// streamOnce opens the streaming GET and consumes frames until the stream
// terminates. The bearer token is re-read from the auth store on every call
// by the client layer.
func (s *Service) streamOnce(ctx context.Context) {
	stream, err := s.client.DoStream(ctx, client.Request{
		Method: http.MethodGet,
		Path:   s.cfg.Path,
		Headers: map[string]string{
			"Accept":        "text/event-stream",
			"Cache-Control": "no-store",
		},
	})
	if err != nil {
		s.log.Debug("stream open failed", logger.Fields(logger.FieldError, err.Error()))
		return
	}
	defer stream.Close()

	if stream.SSE == nil {
		s.log.Warn("realtime endpoint did not return an event stream")
		return
	}

	for {
		frame, err := stream.SSE.Next()
		if err != nil {
			s.log.Debug("stream terminated", logger.Fields(logger.FieldError, err.Error()))
			return
		}
		s.handleFrame(ctx, frame)
	}
}

// handleFrame routes one decoded frame: control frames update connection
// state, everything else fans out to topic listeners.
func (s *Service) handleFrame(ctx context.Context, frame *sse.Frame) {
	if frame.Event == connectEvent {
		var p connectPayload
		_ = json.Unmarshal(frame.Payload(), &p)

		s.mu.Lock()
		s.clientID = p.ClientID
		s.mu.Unlock()

		s.log.Debug("stream connected", logger.Fields(logger.FieldClientID, p.ClientID))

		// The topic set is confirmed before the state flips to Connected,
		// so callers blocked in Subscribe never observe a connection whose
		// resubmission is still in flight.
		if err := s.submitSubscriptions(ctx); err != nil {
			s.log.Warn("subscription resubmission failed", logger.Fields(logger.FieldError, err.Error()))
		}
		s.state.Store(int32(StateConnected))
		// Empty topic list signals "now connected" to the gap hook.
		s.notifyDisconnect([]string{})
		return
	}

	s.dispatch(Event{ID: frame.ID, Topic: frame.Event, Payload: frame.Payload()})
}

// dispatch snapshots the topic's listeners under the lock and invokes them
// outside it, so a listener can re-enter Subscribe/Unsubscribe without
// deadlocking. A panicking listener never stops delivery to the others.
func (s *Service) dispatch(e Event) {
	s.mu.Lock()
	entries := s.subs[e.Topic]
	listeners := make([]Listener, len(entries))
	for i, entry := range entries {
		listeners[i] = entry.fn
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Warn("listener panicked", logger.Fields(logger.FieldTopic, e.Topic, "panic", r))
				}
			}()
			fn(e)
		}()
	}
}

// notifyDisconnect invokes the gap hook with the given topic list.
func (s *Service) notifyDisconnect(topics []string) {
	s.mu.Lock()
	fn := s.onDisconnect
	s.mu.Unlock()
	if fn == nil {
		return
	}
	func() {
		defer func() { _ = recover() }()
		fn(topics)
	}()
}
