package masq

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Broker matches pairing replies arriving on the hub endpoint with the
// device waiting for them.
type Broker struct {
	mu       sync.Mutex
	channels map[string]*pending
}

type pending struct {
	key      []byte
	answered bool
	reply    chan Reply
	closed   chan struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{channels: make(map[string]*pending)}
}

// Open registers a channel whose replies must be signed with key.
func (b *Broker) Open(channel string, key []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels[channel] = &pending{
		key:    key,
		reply:  make(chan Reply, 1),
		closed: make(chan struct{}),
	}
}

// Close drops a channel. A pending Wait on it returns ErrPairingSuperseded.
func (b *Broker) Close(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.channels[channel]; ok {
		close(p.closed)
		delete(b.channels, channel)
	}
}

// Deliver verifies reply and hands it to the channel's waiter.
// A channel holds at most one unconsumed reply.
func (b *Broker) Deliver(reply Reply) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.channels[reply.Channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, reply.Channel)
	}
	if err := reply.Verify(p.key); err != nil {
		return err
	}
	if p.answered {
		return ErrAlreadyAnswered
	}
	p.answered = true
	p.reply <- reply
	return nil
}

// Wait blocks until channel is answered, closed, or ctx is done.
// An accepted reply removes the channel. A rejection leaves it open for
// another answer, so the same link can still be accepted later.
func (b *Broker) Wait(ctx context.Context, channel string) (Reply, error) {
	b.mu.Lock()
	p, ok := b.channels[channel]
	b.mu.Unlock()
	if !ok {
		return Reply{}, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	select {
	case reply := <-p.reply:
		b.mu.Lock()
		switch {
		case b.channels[channel] != p:
		case reply.Accepted:
			delete(b.channels, channel)
		default:
			p.answered = false
		}
		b.mu.Unlock()
		return reply, nil
	case <-p.closed:
		return Reply{}, ErrPairingSuperseded
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Reply{}, ErrPairingTimeout
		}
		return Reply{}, ctx.Err()
	}
}
