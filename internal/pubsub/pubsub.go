// Package pubsub broadcasts SAP-addressed notifications across base-station
// processes that share a Redis instance: hangtime circuit invalidation and
// fragment-chain eviction. A topic is a plain string; within a single
// process the in-memory backend is used instead.
package pubsub

import (
	"context"

	"github.com/trunkctl/tetrabase/internal/config"
)

type PubSub interface {
	Publish(topic string, message []byte) error
	Subscribe(topic string) Subscription
	Close() error
}

type Subscription interface {
	Close() error
	Channel() <-chan []byte
}

func MakePubSub(ctx context.Context, config *config.Config) (PubSub, error) {
	if config.Redis.Enabled {
		return makePubSubFromRedis(ctx, config)
	}
	return makeInMemoryPubSub(config)
}
