// Package notify fans planner events out to interested listeners: the TUI,
// the log and an optional Telegram chat.
package notify

import (
	"sync"
	"sync/atomic"
	"time"
)

type Kind string

const (
	KindTimelineCreated Kind = "timeline.created"
	KindTimelineMoved   Kind = "timeline.rescheduled"
	KindEventAdded      Kind = "event.added"
	KindEventUpdated    Kind = "event.updated"
	KindEventRemoved    Kind = "event.removed"
	KindEventCompleted  Kind = "event.completed"
	KindEventReopened   Kind = "event.reopened"
	KindTaskAdded       Kind = "task.added"
	KindTaskRemoved     Kind = "task.removed"
	KindTaskUpdated     Kind = "task.updated"
	KindReminder        Kind = "reminder"
	KindDigest          Kind = "digest"
)

type Event struct {
	Kind    Kind
	UserID  string
	EntryID string
	TaskID  string
	Title   string
	Date    time.Time
	Message string
	At      time.Time
}

// Publisher is implemented by Bus.
type Publisher interface {
	Publish(ev Event)
}

// Bus delivers each published event to every open subscription. Delivery never
// blocks the publisher: a subscriber whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	closed  bool
	dropped atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

type Subscription struct {
	id   uint64
	bus  *Bus
	ch   chan Event
	once sync.Once
}

// C is closed when the subscription or the bus is closed.
func (s *Subscription) C() <-chan Event { return s.ch }

func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if _, ok := s.bus.subs[s.id]; ok {
		delete(s.bus.subs, s.id)
		s.closeChan()
	}
}

func (s *Subscription) closeChan() {
	s.once.Do(func() { close(s.ch) })
}

func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &Subscription{id: b.nextID, bus: b, ch: make(chan Event, buffer)}
	b.nextID++
	if b.closed {
		sub.closeChan()
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.closeChan()
		delete(b.subs, id)
	}
}
