package pubsub

import "github.com/trunkctl/tetrabase/internal/config"

// A single-process base station has no peer to broadcast to, so the
// in-memory backend is a no-op: nothing else in the deployment is listening.
func makeInMemoryPubSub(_ *config.Config) (PubSub, error) {
	return inMemoryPubSub{}, nil
}

type inMemoryPubSub struct {
}

func (ps inMemoryPubSub) Publish(_ string, _ []byte) error {
	return nil
}

func (ps inMemoryPubSub) Subscribe(_ string) Subscription {
	return inMemorySubscription{
		ch: make(chan []byte),
	}
}

func (ps inMemoryPubSub) Close() error {
	return nil
}

type inMemorySubscription struct {
	ch chan []byte
}

func (s inMemorySubscription) Close() error {
	close(s.ch)
	return nil
}

func (s inMemorySubscription) Channel() <-chan []byte {
	return s.ch
}
