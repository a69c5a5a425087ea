package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"runner-service/internal/events"
	"runner-service/internal/logging"
	"runner-service/pkg/kafka"
)

// Subscriber starts a consumer for one topic.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, groupID string, handler kafka.Handler)
}

// Broadcaster fans a message out to a company's connections.
type Broadcaster interface {
	Broadcast(ctx context.Context, company string, msg any) int
}

// Dispatcher consumes token lifecycle topics and forwards each event to the
// issuing company's live feed.
type Dispatcher struct {
	sub     Subscriber
	hub     Broadcaster
	groupID string
	log     logging.Logger
}

// NewDispatcher creates a dispatcher consuming under a group of its own,
// groupPrefix plus a random suffix. Sockets are local to an instance, so
// every instance must see every event.
func NewDispatcher(sub Subscriber, hub Broadcaster, groupPrefix string, log logging.Logger) *Dispatcher {
	return &Dispatcher{
		sub:     sub,
		hub:     hub,
		groupID: groupPrefix + "-" + uuid.NewString(),
		log:     log,
	}
}

// Start begins consuming every token topic in background goroutines.
func (d *Dispatcher) Start(ctx context.Context) {
	d.log.Info(ctx, "feed dispatcher starting", "group", d.groupID)
	for _, topic := range kafka.Topics {
		d.sub.Subscribe(ctx, topic, d.groupID, func(ctx context.Context, data []byte) error {
			return d.Handle(ctx, topic, data)
		})
	}
}

// Handle decodes one message from topic and broadcasts it.
func (d *Dispatcher) Handle(ctx context.Context, topic string, data []byte) error {
	var (
		company string
		payload any
	)
	switch topic {
	case kafka.TopicTokenGenerated:
		var ev events.TokensGeneratedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		company, payload = ev.CompanyName, ev
	case kafka.TopicTokenClaimed:
		var ev events.TokenClaimedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		company, payload = ev.CompanyName, ev
	case kafka.TopicTokenRedeemed:
		var ev events.TokenRedeemedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		company, payload = ev.CompanyName, ev
	default:
		return fmt.Errorf("unexpected topic %q", topic)
	}

	n := d.hub.Broadcast(ctx, company, events.FeedMessage{Type: topic, Payload: payload})
	d.log.Debug(ctx, "feed event dispatched", "topic", topic, "company", company, "subscribers", n)
	return nil
}
