package cache

import (
	"context"
	"encoding/json"
	"time"

	"LiveFM/core/events"
	"LiveFM/logger"

	"github.com/go-redis/redis/v8"
)

// DefaultEventChannel is the pub/sub channel events are relayed to.
const DefaultEventChannel = "livefm:events"

// EventRelay republishes bus events on a Redis channel for other processes.
type EventRelay struct {
	client  *redis.Client
	channel string
}

// NewEventRelay creates a relay publishing to channel.
func NewEventRelay(client *redis.Client, channel string) *EventRelay {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &EventRelay{client: client, channel: channel}
}

// Run forwards events from sub until ctx is done or sub is closed.
func (r *EventRelay) Run(ctx context.Context, sub *events.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			r.publish(ctx, ev)
		}
	}
}

func (r *EventRelay) publish(ctx context.Context, ev events.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Warn("failed to encode event", logger.ErrorField(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		logger.Warn("failed to relay event",
			logger.String("type", string(ev.Type)),
			logger.ErrorField(err))
	}
}

// Listen decodes events published on the relay channel, e.g. by another
// instance, and hands them to fn until ctx is done.
func (r *EventRelay) Listen(ctx context.Context, fn func(events.Event)) error {
	ps := r.client.Subscribe(ctx, r.channel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Debug("ignoring malformed relayed event", logger.ErrorField(err))
				continue
			}
			fn(ev)
		}
	}
}
