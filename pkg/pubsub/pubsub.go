// Package pubsub carries live update streams over Redis channels.
//
// Publishing goes through a circuit breaker so a Redis outage fails fast instead of
// stalling every write path that fans out an event.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/metrics"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
)

var ErrUnavailable = errors.New("live streams are unavailable")

func NotificationChannel(userID string) string {
	return fmt.Sprintf("user_notifications:%s", userID)
}

func ConversationChannel(conversationID string) string {
	return fmt.Sprintf("conversation_messages:%s", conversationID)
}

type Broker struct {
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker[interface{}]
}

// NewBroker returns a broker over rdb. A nil client yields a broker whose Publish is a
// no-op and whose Subscribe reports ErrUnavailable.
func NewBroker(rdb *redis.Client) *Broker {
	settings := gobreaker.Settings{
		Name:        "redis-publish",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &Broker{
		rdb:     rdb,
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

// Publish encodes v as JSON and publishes it on channel.
func (b *Broker) Publish(ctx context.Context, channel string, v interface{}) error {
	if b == nil || b.rdb == nil {
		return nil
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	_, err = b.breaker.Execute(func() (interface{}, error) {
		return nil, b.rdb.Publish(ctx, channel, payload).Err()
	})
	return err
}

// Subscription is a live stream the caller owns. Close releases it; C is closed afterwards.
type Subscription struct {
	C <-chan []byte

	ps     *redis.PubSub
	done   <-chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	kind   string
}

func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
		metrics.ActiveStreams.WithLabelValues(s.kind).Dec()
	})
	return err
}

// Subscribe opens a stream of raw payloads published on channel. The stream ends when ctx
// is cancelled or Close is called.
func (b *Broker) Subscribe(ctx context.Context, kind, channel string) (*Subscription, error) {
	if b == nil || b.rdb == nil {
		return nil, ErrUnavailable
	}

	ctx, cancel := context.WithCancel(ctx)
	ps := b.rdb.Subscribe(ctx, channel)

	// Wait for confirmation that subscription is created
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 16)
	sub := &Subscription{C: out, ps: ps, done: ctx.Done(), cancel: cancel, kind: kind}
	metrics.ActiveStreams.WithLabelValues(kind).Inc()

	go func() {
		defer close(out)
		in := ps.Channel()
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// Decode adapts a raw subscription into a typed stream. Payloads that fail to decode are
// logged and skipped.
func Decode[T any](sub *Subscription) <-chan T {
	out := make(chan T, cap(sub.C))
	go func() {
		defer close(out)
		for payload := range sub.C {
			var v T
			if err := json.Unmarshal(payload, &v); err != nil {
				logger.Warn().Err(err).Str("stream", sub.kind).Msg("dropping undecodable payload")
				continue
			}
			select {
			case out <- v:
			case <-sub.done:
				return
			}
		}
	}()
	return out
}
