package events

import (
	"context"
	"strconv"
	"sync"
)

// Event is one recorded publication.
type Event struct {
	Topic   string
	Payload []byte
}

// MemoryPublisher records events in memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory builds an empty MemoryPublisher.
func NewMemory() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, topic string, payload []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Topic: topic, Payload: append([]byte(nil), payload...)})
	return strconv.Itoa(len(p.events)), nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}
