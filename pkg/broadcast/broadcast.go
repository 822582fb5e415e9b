// Package broadcast routes agent log events to live subscribers.
// Delivery is at-most-once and best-effort: there is no buffering, no
// replay for late subscribers, and a broken channel is simply dropped.
package broadcast

import (
	"sync"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
)

// LiveChannel is one subscriber's handle. Send must not block indefinitely;
// a returned error is treated as a disconnect.
type LiveChannel interface {
	Send(e models.AgentLogEvent) error
}

// Logger defines the logging interface for the broadcaster
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Broadcaster maps a task ID to at most one live channel. Registrations,
// unregistrations and publishes for many tasks may race; the registry map
// is the only shared state and is guarded by a single mutex. The lock is
// never held across a Send.
type Broadcaster struct {
	mu       sync.Mutex
	channels map[string]LiveChannel
	logger   Logger
}

func NewBroadcaster(logger Logger) *Broadcaster {
	return &Broadcaster{
		channels: make(map[string]LiveChannel),
		logger:   logger,
	}
}

// Register installs ch as the subscriber for taskID, unconditionally
// replacing any prior registration. The replaced channel gets no
// notification; it is simply no longer reachable from here.
func (b *Broadcaster) Register(taskID string, ch LiveChannel) {
	b.mu.Lock()
	b.channels[taskID] = ch
	b.mu.Unlock()
	b.logger.Infof("Registered live channel for task %s", taskID)
}

// Unregister removes the current registration for taskID, if any.
func (b *Broadcaster) Unregister(taskID string) {
	b.mu.Lock()
	_, ok := b.channels[taskID]
	delete(b.channels, taskID)
	b.mu.Unlock()
	if ok {
		b.logger.Infof("Unregistered live channel for task %s", taskID)
	}
}

// UnregisterChannel removes the registration for taskID only when it still
// points at ch. A disconnecting subscriber that has already been replaced
// must not tear down its replacement.
func (b *Broadcaster) UnregisterChannel(taskID string, ch LiveChannel) {
	b.mu.Lock()
	cur, ok := b.channels[taskID]
	if ok && cur == ch {
		delete(b.channels, taskID)
	}
	b.mu.Unlock()
	if ok && cur == ch {
		b.logger.Infof("Unregistered live channel for task %s", taskID)
	}
}

// Publish delivers e to the channel registered for taskID. No registration
// means the event is silently dropped. A send failure is an implicit
// disconnect: the registration is cleared and the event is not retried.
func (b *Broadcaster) Publish(taskID string, e models.AgentLogEvent) {
	b.mu.Lock()
	ch, ok := b.channels[taskID]
	b.mu.Unlock()
	if !ok {
		return
	}
	if err := ch.Send(e); err != nil {
		b.logger.Errorf("Live channel for task %s failed, dropping it: %v", taskID, err)
		b.mu.Lock()
		// Only clear the entry if it still points at the broken channel;
		// a newer registration must not be torn down.
		if cur, ok := b.channels[taskID]; ok && cur == ch {
			delete(b.channels, taskID)
		}
		b.mu.Unlock()
	}
}
