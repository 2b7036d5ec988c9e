package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/bosbase/realtime-go/client"
	"github.com/bosbase/realtime-go/logger"
)

// Service is the WebSocket pubsub transport. The zero value is not usable;
// use New.
type Service struct {
	client *client.Client
	cfg    Config
	log    *logger.Logger

	// dialMu serializes socket establishment so concurrent callers never
	// race two handshakes.
	dialMu sync.Mutex
	// writeMu serializes frame writes; the websocket connection permits
	// only one concurrent writer.
	writeMu sync.Mutex

	mu          sync.Mutex
	subs        map[string][]subEntry
	conn        *websocket.Conn
	ready       bool
	manualClose bool
	connCancel  context.CancelFunc
	readerDone  chan struct{}
}

type subEntry struct {
	id string
	fn Listener
}

// New creates a pubsub service over the given client.
func New(c *client.Client, cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		client: c,
		cfg:    cfg,
		log:    c.Logger().WithComponent("pubsub"),
		subs:   make(map[string][]subEntry),
	}, nil
}

// IsConnected reports whether the socket is open.
func (s *Service) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Publish sends one message to a topic and returns a local echo of it
// immediately. Fire-and-forget: no broker acknowledgment is awaited. The
// socket is opened first if needed.
func (s *Service) Publish(ctx context.Context, topic string, data any) (Message, error) {
	if topic == "" {
		return Message{}, client.NewValidationError("topic must be set")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, client.NewValidationError("data is not serializable: " + err.Error())
	}

	s.resume()
	if err := s.ensureSocket(ctx); err != nil {
		return Message{}, err
	}
	if err := s.sendEnvelope(ctx, envelope{Type: envelopePublish, Topic: topic, Data: raw}); err != nil {
		return Message{}, err
	}
	return Message{Topic: topic, Data: raw}, nil
}

// Subscribe registers a listener for a topic, opening the socket if needed.
// The topic's first listener pushes a subscribe envelope to the broker; the
// returned UnsubscribeFunc removes exactly this registration.
//
// On a connect failure the registration is kept and the returned
// UnsubscribeFunc is valid either way.
func (s *Service) Subscribe(ctx context.Context, topic string, fn Listener) (UnsubscribeFunc, error) {
	if topic == "" {
		return nil, client.NewValidationError("topic must be set")
	}
	if fn == nil {
		return nil, client.NewValidationError("listener must be set")
	}

	id := uuid.NewString()
	s.mu.Lock()
	first := len(s.subs[topic]) == 0
	s.subs[topic] = append(s.subs[topic], subEntry{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	unsub := func() error {
		var err error
		once.Do(func() {
			err = s.removeListener(topic, id)
		})
		return err
	}

	s.resume()
	if err := s.ensureSocket(ctx); err != nil {
		return unsub, err
	}
	if first {
		if err := s.sendEnvelope(ctx, envelope{Type: envelopeSubscribe, Topic: topic}); err != nil {
			return unsub, err
		}
	}
	return unsub, nil
}

// Unsubscribe removes every listener for the given topic and pushes its
// unsubscribe envelope. The socket is closed when no topics remain.
func (s *Service) Unsubscribe(ctx context.Context, topic string) error {
	s.mu.Lock()
	delete(s.subs, topic)
	empty := len(s.subs) == 0
	s.mu.Unlock()

	err := s.sendEnvelope(ctx, envelope{Type: envelopeUnsubscribe, Topic: topic})
	if empty {
		s.teardown()
	}
	return err
}

// UnsubscribeAll removes every registration, pushes a global unsubscribe
// envelope (no topic), and closes the socket.
func (s *Service) UnsubscribeAll(ctx context.Context) error {
	s.mu.Lock()
	s.subs = make(map[string][]subEntry)
	s.mu.Unlock()

	err := s.sendEnvelope(ctx, envelope{Type: envelopeUnsubscribe})
	s.teardown()
	return err
}

// Disconnect closes the socket and blocks until the reader goroutine has
// exited. Auto-reconnect is suppressed; a later Publish or Subscribe opens a
// fresh socket. An in-flight redial is waited out so that its socket, too,
// is torn down before Disconnect returns.
func (s *Service) Disconnect() {
	s.dialMu.Lock()
	defer s.dialMu.Unlock()

	s.teardown()

	s.mu.Lock()
	done := s.readerDone
	s.readerDone = nil
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// removeListener drops one registration by handle. The topic's last listener
// pushes the unsubscribe envelope; an empty registry closes the socket.
func (s *Service) removeListener(topic, id string) error {
	s.mu.Lock()
	entries, ok := s.subs[topic]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	found := false
	kept := entries[:0]
	for _, entry := range entries {
		if entry.id == id {
			found = true
			continue
		}
		kept = append(kept, entry)
	}
	if !found {
		s.mu.Unlock()
		return nil
	}
	last := len(kept) == 0
	if last {
		delete(s.subs, topic)
	} else {
		s.subs[topic] = kept
	}
	empty := len(s.subs) == 0
	s.mu.Unlock()

	var err error
	if last {
		err = s.sendEnvelope(context.Background(), envelope{Type: envelopeUnsubscribe, Topic: topic})
	}
	if empty {
		s.teardown()
	}
	return err
}

// resume clears the manual-close flag so ensureSocket may open a fresh
// socket. Called only from application entry points; the automatic redial
// path must never override an explicit Disconnect.
func (s *Service) resume() {
	s.mu.Lock()
	s.manualClose = false
	s.mu.Unlock()
}

// ensureSocket opens the socket if it is not already open and blocks until
// the open handshake completes, bounded by ConnectTimeout. Idempotent. A
// manual close that lands before or during the dial wins: the socket is not
// installed and no reader is started.
func (s *Service) ensureSocket(ctx context.Context) error {
	s.dialMu.Lock()
	defer s.dialMu.Unlock()

	s.mu.Lock()
	if s.ready || s.manualClose {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, s.socketURL(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		switch {
		case errors.Is(dialCtx.Err(), context.DeadlineExceeded):
			return client.NewTimeoutError(errors.New("pubsub connection not established"))
		case errors.Is(ctx.Err(), context.Canceled):
			return client.NewAbortError(ctx.Err())
		default:
			return client.NewConnectionError(err)
		}
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	// A teardown may have raced the dial; discard the fresh socket rather
	// than resurrecting a connection the application just closed.
	if s.manualClose {
		s.mu.Unlock()
		connCancel()
		_ = conn.Close(websocket.StatusNormalClosure, "closing")
		return nil
	}
	s.conn = conn
	s.ready = true
	s.connCancel = connCancel
	s.readerDone = done
	s.mu.Unlock()

	s.log.Debug("socket connected")
	go s.readLoop(connCtx, conn, done)
	return nil
}

// socketURL derives the WebSocket endpoint from the HTTP base URL by scheme
// substitution, carrying the auth token as a query parameter when valid.
func (s *Service) socketURL() string {
	query := make(map[string]string)
	if store := s.client.AuthStore(); store != nil && store.IsValid() {
		query["token"] = store.Token()
	}
	u := s.client.BuildURL(s.cfg.Path, query)
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return "ws://" + u
	}
}

// readLoop is the sole reader of the socket. It exits when the connection
// closes for any reason, scheduling a redial unless the close was manual.
func (s *Service) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				s.log.Debug("socket closed", logger.Fields(logger.FieldError, err.Error()))
			}
			s.handleClose(conn)
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		s.handleMessage(data)
	}
}

// handleClose records the gone connection and schedules the redial when the
// close was not requested and listeners remain.
func (s *Service) handleClose(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.ready = false
	}
	manual := s.manualClose
	hasSubs := len(s.subs) > 0
	s.mu.Unlock()

	if manual || !hasSubs {
		return
	}
	go s.reconnect()
}

// reconnect redials after the fixed delay until the socket is back, the
// registry empties, or a manual close intervenes.
func (s *Service) reconnect() {
	for {
		time.Sleep(s.cfg.ReconnectDelay)

		s.mu.Lock()
		stop := s.manualClose || s.ready || len(s.subs) == 0
		s.mu.Unlock()
		if stop {
			return
		}

		if err := s.ensureSocket(context.Background()); err == nil {
			return
		}
		s.log.Debug("redial failed, retrying")
	}
}

// handleMessage decodes one inbound frame and fans it out to the topic's
// listeners. Malformed frames are dropped.
func (s *Service) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Debug("dropping malformed message", logger.Fields(logger.FieldError, err.Error()))
		return
	}

	s.mu.Lock()
	entries := s.subs[msg.Topic]
	listeners := make([]Listener, len(entries))
	for i, entry := range entries {
		listeners[i] = entry.fn
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Warn("listener panicked", logger.Fields(logger.FieldTopic, msg.Topic, "panic", r))
				}
			}()
			fn(msg)
		}()
	}
}

// sendEnvelope writes one outgoing frame. A no-op when the socket is not
// open; topic interest is carried by the envelopes sent while it is.
func (s *Service) sendEnvelope(ctx context.Context, env envelope) error {
	s.mu.Lock()
	conn := s.conn
	ready := s.ready
	s.mu.Unlock()
	if !ready || conn == nil {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return client.NewValidationError("envelope is not serializable: " + err.Error())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return client.NewConnectionError(err)
	}
	return nil
}

// teardown marks the close as manual and drops the connection without
// waiting for the reader to exit, so it is safe to call from a listener
// running on the reader goroutine itself.
func (s *Service) teardown() {
	s.mu.Lock()
	s.manualClose = true
	conn := s.conn
	cancel := s.connCancel
	s.conn = nil
	s.ready = false
	s.connCancel = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "closing")
	}
	if cancel != nil {
		cancel()
	}
}
