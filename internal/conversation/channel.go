package conversation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrReceiveTimeout is returned by a Channel when the user did not answer
// within the allowed window.
var ErrReceiveTimeout = errors.New("timed out waiting for an answer")

// Channel carries the dialogue between the engine and the person filling
// the form. Send delivers a prompt; Receive blocks for the next reply.
type Channel interface {
	Send(ctx context.Context, text string) error
	Receive(ctx context.Context, timeout time.Duration) (string, error)
}

// MemoryChannel is a Channel backed by in-process queues. It is what the
// tool server uses: prompts accumulate for polling and answers arrive via
// Submit.
type MemoryChannel struct {
	mu      sync.Mutex
	prompts []string
	inbox   chan string
}

// NewMemoryChannel creates a channel with room for one pending answer.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{inbox: make(chan string, 1)}
}

func (c *MemoryChannel) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	c.prompts = append(c.prompts, text)
	c.mu.Unlock()
	return nil
}

func (c *MemoryChannel) Receive(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case answer := <-c.inbox:
		return answer, nil
	case <-timer.C:
		return "", ErrReceiveTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Submit hands an answer to the next Receive. A second answer arriving
// before the engine consumed the first is dropped as stale.
func (c *MemoryChannel) Submit(answer string) bool {
	select {
	case c.inbox <- answer:
		return true
	default:
		return false
	}
}

// DrainPrompts returns the prompts sent since the last call.
func (c *MemoryChannel) DrainPrompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.prompts
	c.prompts = nil
	return out
}
