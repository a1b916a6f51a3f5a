package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type flakySender struct {
	mu       sync.Mutex
	failures int
	sent     []Message
	attempts int
}

func (s *flakySender) Send(ctx context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *flakySender) snapshot() (int, []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts, append([]Message(nil), s.sent...)
}

func TestDispatcherRetriesUntilDelivered(t *testing.T) {
	sender := &flakySender{failures: 2}
	d := NewDispatcher(sender, Options{Workers: 1, QueueSize: 4, MaxRetries: 3, BaseDelay: time.Millisecond}, zaptest.NewLogger(t))
	d.Start()

	require.NoError(t, d.Enqueue(Message{Recipient: "a@example.test", Template: TemplateBookingCreated}))
	require.NoError(t, d.Stop(context.Background()))

	attempts, sent := sender.snapshot()
	assert.Equal(t, 3, attempts)
	require.Len(t, sent, 1)
	assert.Equal(t, "a@example.test", sent[0].Recipient)
}

func TestDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	sender := &flakySender{failures: 10}
	d := NewDispatcher(sender, Options{Workers: 2, QueueSize: 4, MaxRetries: 2, BaseDelay: time.Millisecond}, zaptest.NewLogger(t))
	d.Start()

	require.NoError(t, d.Enqueue(Message{Recipient: "a@example.test", Template: TemplatePaymentFailed}))
	require.NoError(t, d.Stop(context.Background()))

	attempts, sent := sender.snapshot()
	assert.Equal(t, 3, attempts)
	assert.Empty(t, sent)
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(&flakySender{}, Options{Workers: 1, QueueSize: 1}, zaptest.NewLogger(t))

	require.NoError(t, d.Enqueue(Message{Recipient: "a"}))
	assert.ErrorIs(t, d.Enqueue(Message{Recipient: "b"}), ErrQueueFull)

	d.Start()
	require.NoError(t, d.Stop(context.Background()))
	assert.Error(t, d.Enqueue(Message{Recipient: "c"}), "stopped dispatcher rejects work")
}

type blockingSender struct{}

func (blockingSender) Send(ctx context.Context, m Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatcherStopHonoursDeadline(t *testing.T) {
	d := NewDispatcher(blockingSender{}, Options{Workers: 1, QueueSize: 1}, zaptest.NewLogger(t))
	d.Start()
	require.NoError(t, d.Enqueue(Message{Recipient: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
