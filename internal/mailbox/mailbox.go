package mailbox

import (
	"context"
	"errors"
	"sync"
)

// DefaultKey is the well-known mailbox key.
const DefaultKey = 5445

// ErrClosed is returned by Send after Close, and by receives once the mailbox
// is closed and holds no matching message.
var ErrClosed = errors.New("mailbox closed")

// Message is one queued message.
type Message struct {
	Tag     int64
	Payload []byte
}

// Mailbox is a thread-safe FIFO of tagged messages.
//
// Waiters block on notify, which is closed and replaced on every Send so all
// of them re-scan the queue. Close closes it for good.
type Mailbox struct {
	key int

	mu     sync.Mutex
	msgs   []Message
	closed bool
	notify chan struct{}
}

// New creates an empty mailbox identified by key.
func New(key int) *Mailbox {
	return &Mailbox{
		key:    key,
		msgs:   make([]Message, 0, 16),
		notify: make(chan struct{}),
	}
}

// Key returns the mailbox key.
func (b *Mailbox) Key() int {
	return b.key
}

// Send enqueues payload under tag. It never blocks.
func (b *Mailbox) Send(tag int64, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	p := make([]byte, len(payload))
	copy(p, payload)
	b.msgs = append(b.msgs, Message{Tag: tag, Payload: p})

	close(b.notify)
	b.notify = make(chan struct{})
	return nil
}

// Receive blocks until a message tagged tag is available and returns its
// payload.
func (b *Mailbox) Receive(ctx context.Context, tag int64) ([]byte, error) {
	m, err := b.ReceiveAny(ctx, tag)
	if err != nil {
		return nil, err
	}
	return m.Payload, nil
}

// ReceiveAny blocks until the oldest message whose tag is in tags is available
// and removes it. With no tags any message matches.
func (b *Mailbox) ReceiveAny(ctx context.Context, tags ...int64) (Message, error) {
	for {
		b.mu.Lock()
		if m, ok := b.take(tags); ok {
			b.mu.Unlock()
			return m, nil
		}
		if b.closed {
			b.mu.Unlock()
			return Message{}, ErrClosed
		}
		wait := b.notify
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-wait:
		}
	}
}

// TryReceive removes the oldest message matching tags without blocking.
func (b *Mailbox) TryReceive(tags ...int64) (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.take(tags)
}

// take must be called with mu held.
func (b *Mailbox) take(tags []int64) (Message, bool) {
	for i, m := range b.msgs {
		if !matches(m.Tag, tags) {
			continue
		}
		copy(b.msgs[i:], b.msgs[i+1:])
		b.msgs[len(b.msgs)-1] = Message{}
		b.msgs = b.msgs[:len(b.msgs)-1]
		return m, true
	}
	return Message{}, false
}

func matches(tag int64, tags []int64) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Len returns the number of queued messages.
func (b *Mailbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}

// Close destroys the mailbox and wakes every waiter. Closing twice is a no-op.
func (b *Mailbox) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.notify)
}
