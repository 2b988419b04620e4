package framework

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debugf(ctx context.Context, format string, args ...interface{}) {}
func (nopLogger) Infof(ctx context.Context, format string, args ...interface{})  {}
func (nopLogger) Warnf(ctx context.Context, format string, args ...interface{})  {}
func (nopLogger) Errorf(ctx context.Context, format string, args ...interface{}) {}

// fakeSource 通道驱动的消息源
type fakeSource struct {
	ch    chan *Message
	mu    sync.Mutex
	acked []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan *Message, 16)}
}

func (s *fakeSource) Receive(ctx context.Context) (*Message, error) {
	select {
	case msg := <-s.ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSource) Ack(msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, msg.ID)
	return nil
}

func TestSubscriberForwardsMessages(t *testing.T) {
	source := newFakeSource()
	sub := NewSubscriber(&SubscriberConfig{ChannelName: "jobs", ErrorBackoff: time.Millisecond}, source, nopLogger{})

	inputChan := make(chan *Message, 4)
	require.NoError(t, sub.Start(context.Background(), inputChan))
	defer func() {
		sub.Stop()
		sub.Wait()
	}()

	source.ch <- &Message{ID: "m-1", Data: []byte("a")}

	select {
	case msg := <-inputChan:
		assert.Equal(t, "m-1", msg.ID)
	case <-time.After(time.Second):
		t.Fatal("message was not forwarded")
	}
}

func TestProcessorSlowHandlerDoesNotBlockNextMessage(t *testing.T) {
	// 慢 Handler（如多分钟批量轮询）不能阻塞后续不相关消息的处理
	source := newFakeSource()
	gate := make(chan struct{})
	handled := make(chan string, 4)

	proc := func(ctx context.Context, msg *Message) {
		if msg.ID == "slow" {
			<-gate
		}
		handled <- msg.ID
	}

	p := NewProcessor(&ProcessorConfig{BufferSize: 4}, proc, source, nopLogger{})
	inputChan := make(chan *Message, 4)
	require.NoError(t, p.Start(context.Background(), inputChan))

	inputChan <- &Message{ID: "slow"}
	inputChan <- &Message{ID: "fast"}

	select {
	case id := <-handled:
		assert.Equal(t, "fast", id)
	case <-time.After(time.Second):
		t.Fatal("fast message blocked behind slow handler")
	}

	close(gate)
	select {
	case id := <-handled:
		assert.Equal(t, "slow", id)
	case <-time.After(time.Second):
		t.Fatal("slow handler did not finish")
	}

	p.SignalShutdown()
	p.Wait()

	// 两条消息都被确认
	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Len(t, source.acked, 2)
}

func TestProcessorDrainsRemainingMessagesOnShutdown(t *testing.T) {
	source := newFakeSource()
	var mu sync.Mutex
	var order []string

	proc := func(ctx context.Context, msg *Message) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, msg.ID)
	}

	p := NewProcessor(&ProcessorConfig{BufferSize: 8}, proc, source, nopLogger{})
	inputChan := make(chan *Message, 8)
	require.NoError(t, p.Start(context.Background(), inputChan))

	inputChan <- &Message{ID: "m-1"}
	inputChan <- &Message{ID: "m-2"}

	p.SignalShutdown()
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"m-1", "m-2"}, order)
}
