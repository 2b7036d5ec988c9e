package realtime

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/bosbase/realtime-go/client"
	"github.com/google/uuid"
)

// Subscribe registers a listener for a topic, establishes the stream if
// needed, and confirms the updated topic set with the server. The returned
// UnsubscribeFunc removes exactly this registration.
//
// On a connection-timeout or resubmission error the registration is kept
// (the topic set is re-pushed automatically on the next connect); the
// returned UnsubscribeFunc is valid either way.
func (s *Service) Subscribe(ctx context.Context, topic string, fn Listener) (UnsubscribeFunc, error) {
	if topic == "" {
		return nil, client.NewValidationError("topic must be set")
	}
	if fn == nil {
		return nil, client.NewValidationError("listener must be set")
	}

	id := uuid.NewString()
	s.mu.Lock()
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

	s.ensureLoop()
	if err := s.ensureConnected(ctx); err != nil {
		return unsub, err
	}
	if err := s.submitSubscriptions(ctx); err != nil {
		return unsub, err
	}
	return unsub, nil
}

// Unsubscribe removes every listener for the given topic and confirms the
// reduced set with the server. The connection is torn down when no topics
// remain.
func (s *Service) Unsubscribe(ctx context.Context, topic string) error {
	s.mu.Lock()
	_, existed := s.subs[topic]
	delete(s.subs, topic)
	empty := len(s.subs) == 0
	s.mu.Unlock()

	var err error
	if existed {
		err = s.submitSubscriptions(ctx)
	}
	if empty {
		s.teardown()
	}
	return err
}

// UnsubscribeAll removes every registration. The connection teardown is the
// server-side global unsubscribe.
func (s *Service) UnsubscribeAll() error {
	s.mu.Lock()
	s.subs = make(map[string][]subEntry)
	s.mu.Unlock()

	s.teardown()
	return nil
}

// UnsubscribeByPrefix removes every topic whose name starts with prefix in
// one pass, then issues a single consolidated resubmission. Used when all
// callbacks scoped to one collection must be dropped together.
func (s *Service) UnsubscribeByPrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	removed := false
	for topic := range s.subs {
		if strings.HasPrefix(topic, prefix) {
			delete(s.subs, topic)
			removed = true
		}
	}
	empty := len(s.subs) == 0
	s.mu.Unlock()

	var err error
	if removed && !empty {
		err = s.submitSubscriptions(ctx)
	}
	if empty {
		s.teardown()
	}
	return err
}

// removeListener drops one registration by handle. Removing the topic's last
// listener confirms the reduced set; an empty registry tears the connection
// down.
func (s *Service) removeListener(topic, id string) error {
	s.mu.Lock()
	entries := s.subs[topic]
	found := false
	for i, entry := range entries {
		if entry.id == id {
			s.subs[topic] = append(entries[:i:i], entries[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return nil
	}
	topicRemoved := false
	if len(s.subs[topic]) == 0 {
		delete(s.subs, topic)
		topicRemoved = true
	}
	empty := len(s.subs) == 0
	s.mu.Unlock()

	var err error
	if topicRemoved && !empty {
		err = s.submitSubscriptions(context.Background())
	}
	if empty {
		s.teardown()
	}
	return err
}

// ActiveTopics returns the sorted set of topics with at least one listener.
func (s *Service) ActiveTopics() []string {
	s.mu.Lock()
	topics := make([]string, 0, len(s.subs))
	for topic, entries := range s.subs {
		if len(entries) > 0 {
			topics = append(topics, topic)
		}
	}
	s.mu.Unlock()
	sort.Strings(topics)
	return topics
}

// submitSubscriptions POSTs the full active topic set to the confirmation
// endpoint. Safe to resend at any time; a no-op until the server has
// assigned a clientId. Abort-class failures from a concurrent intentional
// disconnect are swallowed as benign races.
func (s *Service) submitSubscriptions(ctx context.Context) error {
	s.mu.Lock()
	clientID := s.clientID
	loopCtx := s.loopCtx
	s.mu.Unlock()

	if clientID == "" {
		return nil
	}
	topics := s.ActiveTopics()
	if len(topics) == 0 {
		return nil
	}

	if ctx == nil || ctx == context.Background() {
		if loopCtx != nil {
			ctx = loopCtx
		} else {
			ctx = context.Background()
		}
	}

	_, err := s.client.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   s.cfg.Path,
		Body: submitPayload{
			ClientID:      clientID,
			Subscriptions: topics,
		},
	})
	if err != nil {
		if client.IsAbort(err) {
			return nil
		}
		return err
	}
	return nil
}
