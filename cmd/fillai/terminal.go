package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/conversation"
)

// TerminalChannel carries the interview through the terminal. Prompts go
// to stdout and answers come from a survey input.
type TerminalChannel struct {
	out io.Writer

	// pending holds a reader that outlived its Receive deadline, so the
	// next Receive reuses it instead of stacking stdin readers.
	pending chan readResult
}

type readResult struct {
	answer string
	err    error
}

// NewTerminalChannel creates a channel over stdout and stdin.
func NewTerminalChannel() *TerminalChannel {
	return &TerminalChannel{out: os.Stdout}
}

func (c *TerminalChannel) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintln(c.out, text)
	return err
}

func (c *TerminalChannel) Receive(ctx context.Context, timeout time.Duration) (string, error) {
	resultCh := c.pending
	if resultCh == nil {
		resultCh = make(chan readResult, 1)
		go func() {
			var answer string
			err := survey.AskOne(&survey.Input{Message: ">"}, &answer)
			resultCh <- readResult{answer: answer, err: err}
		}()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-resultCh:
		c.pending = nil
		if r.err != nil {
			return "", r.err
		}
		return r.answer, nil
	case <-timer.C:
		c.pending = resultCh
		return "", conversation.ErrReceiveTimeout
	case <-ctx.Done():
		c.pending = resultCh
		return "", ctx.Err()
	}
}
