package broadcast_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/broadcast"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

// testLogger implements the Logger interface for testing
type testLogger struct{}

func (l *testLogger) Infof(format string, args ...interface{})  {}
func (l *testLogger) Errorf(format string, args ...interface{}) {}

// recordChannel collects delivered events
type recordChannel struct {
	mu     sync.Mutex
	events []models.AgentLogEvent
	fail   bool
}

func (c *recordChannel) Send(e models.AgentLogEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return fmt.Errorf("channel closed")
	}
	c.events = append(c.events, e)
	return nil
}

func (c *recordChannel) received() []models.AgentLogEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.AgentLogEvent, len(c.events))
	copy(out, c.events)
	return out
}

func event(taskID, msg string) models.AgentLogEvent {
	return models.AgentLogEvent{
		ID:        msg,
		TaskID:    taskID,
		AgentName: "Planner",
		Message:   msg,
		Timestamp: time.Now().UTC(),
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	bc := broadcast.NewBroadcaster(&testLogger{})
	ch := &recordChannel{}
	bc.Register("t1", ch)

	for i := 0; i < 10; i++ {
		bc.Publish("t1", event("t1", fmt.Sprintf("e%d", i)))
	}

	got := ch.received()
	assert.Len(t, got, 10)
	for i, e := range got {
		assert.Equal(t, fmt.Sprintf("e%d", i), e.Message)
	}
}

func TestPublishWithoutSubscriberDrops(t *testing.T) {
	bc := broadcast.NewBroadcaster(&testLogger{})

	// No registration: publishing is a silent no-op.
	bc.Publish("t1", event("t1", "early"))

	// A later subscriber gets no backlog.
	ch := &recordChannel{}
	bc.Register("t1", ch)
	bc.Publish("t1", event("t1", "late"))

	got := ch.received()
	assert.Len(t, got, 1)
	assert.Equal(t, "late", got[0].Message)
}

func TestRegisterReplacesPriorChannel(t *testing.T) {
	bc := broadcast.NewBroadcaster(&testLogger{})
	chA := &recordChannel{}
	chB := &recordChannel{}

	bc.Register("t1", chA)
	bc.Publish("t1", event("t1", "for-a"))

	bc.Register("t1", chB)
	bc.Publish("t1", event("t1", "for-b"))
	bc.Publish("t1", event("t1", "also-for-b"))

	assert.Len(t, chA.received(), 1)
	assert.Equal(t, "for-a", chA.received()[0].Message)
	got := chB.received()
	assert.Len(t, got, 2)
	assert.Equal(t, "for-b", got[0].Message)
}

func TestSendFailureUnregisters(t *testing.T) {
	bc := broadcast.NewBroadcaster(&testLogger{})
	ch := &recordChannel{fail: true}
	bc.Register("t1", ch)

	// The failed send drops the registration; the event is not retried.
	bc.Publish("t1", event("t1", "lost"))

	ch.mu.Lock()
	ch.fail = false
	ch.mu.Unlock()
	bc.Publish("t1", event("t1", "after-disconnect"))
	assert.Empty(t, ch.received())
}

func TestSendFailureKeepsNewerRegistration(t *testing.T) {
	bc := broadcast.NewBroadcaster(&testLogger{})
	chA := &recordChannel{fail: true}
	bc.Register("t1", chA)
	bc.Publish("t1", event("t1", "lost"))

	chB := &recordChannel{}
	bc.Register("t1", chB)
	// A's disconnect cleanup must not remove B.
	bc.UnregisterChannel("t1", chA)
	bc.Publish("t1", event("t1", "for-b"))

	got := chB.received()
	assert.Len(t, got, 1)
	assert.Equal(t, "for-b", got[0].Message)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	bc := broadcast.NewBroadcaster(&testLogger{})
	ch := &recordChannel{}
	bc.Register("t1", ch)
	bc.Unregister("t1")
	bc.Unregister("t1") // no-op when absent

	bc.Publish("t1", event("t1", "dropped"))
	assert.Empty(t, ch.received())
}

func TestPublishIsIndependentAcrossTasks(t *testing.T) {
	bc := broadcast.NewBroadcaster(&testLogger{})
	ch1 := &recordChannel{}
	ch2 := &recordChannel{}
	bc.Register("t1", ch1)
	bc.Register("t2", ch2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		taskID := fmt.Sprintf("t%d", i+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bc.Publish(taskID, event(taskID, fmt.Sprintf("e%d", j)))
			}
		}()
	}
	wg.Wait()

	// FIFO holds per task even while tasks publish concurrently.
	for _, ch := range []*recordChannel{ch1, ch2} {
		got := ch.received()
		assert.Len(t, got, 50)
		for i, e := range got {
			assert.Equal(t, fmt.Sprintf("e%d", i), e.Message)
		}
	}
}
