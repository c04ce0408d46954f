package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Bus bundles the publisher, subscriber and router used to move lifecycle
// events from the controller goroutine to the UI goroutine.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Router     *message.Router
	Topic      string

	closers []func() error
}

// BuildBus wires an in-process bus, or a Redis Streams bus when enabled.
func BuildBus(ctx context.Context, s Settings) (*Bus, error) {
	logger := NewWatermillLogger(log.Logger)
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "redisstream: create router")
	}
	b := &Bus{Router: router, Topic: s.topic()}

	if !s.Enabled {
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
			// keeps per-subscriber ordering: reveal events must arrive in order
			BlockPublishUntilSubscriberAck: true,
		}, logger)
		b.Publisher = ch
		b.Subscriber = ch
		b.closers = append(b.closers, ch.Close)
		return b, nil
	}

	if strings.TrimSpace(s.Addr) == "" {
		return nil, errors.New("redisstream: empty redis addr")
	}
	if err := EnsureGroupAtTail(ctx, s.Addr, b.Topic, s.group()); err != nil {
		return nil, errors.Wrap(err, "redisstream: ensure consumer group")
	}
	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redisstream: create publisher")
	}
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.group(),
		Consumer:      s.consumer(),
	}, logger)
	if err != nil {
		_ = pub.Close()
		_ = client.Close()
		return nil, errors.Wrap(err, "redisstream: create subscriber")
	}
	b.Publisher = pub
	b.Subscriber = sub
	b.closers = append(b.closers, sub.Close, pub.Close, client.Close)
	return b, nil
}

// AddForwarder registers a handler consuming the bus topic.
func (b *Bus) AddForwarder(name string, h message.NoPublishHandlerFunc) {
	b.Router.AddNoPublisherHandler(name, b.Topic, b.Subscriber, h)
}

// Publish sends payload on the bus topic.
func (b *Bus) Publish(payload []byte) error {
	return b.Publisher.Publish(b.Topic, message.NewMessage(watermill.NewUUID(), payload))
}

// Run blocks until ctx is done or the router stops.
func (b *Bus) Run(ctx context.Context) error {
	return b.Router.Run(ctx)
}

func (b *Bus) Running() chan struct{} {
	return b.Router.Running()
}

func (b *Bus) Close() error {
	var first error
	if err := b.Router.Close(); err != nil {
		first = err
	}
	for _, c := range b.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// EnsureGroupAtTail creates the consumer group for a given stream at the tail ($) if it doesn't exist.
// This prevents full historical replay on first subscribe.
func EnsureGroupAtTail(ctx context.Context, addr, stream, group string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		// Ignore BUSYGROUP errors (group already exists)
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return err
	}
	log.Info().Str("stream", stream).Str("group", group).Msg("created redis consumer group at $ (tail)")
	return nil
}
