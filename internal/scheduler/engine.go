// Package scheduler fires deadline reminders for timeline entries a fixed
// number of days before they are due.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/notify"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrStopped            = errors.New("scheduler: engine stopped")
)

type Reminder struct {
	ID        string
	UserID    string
	EntryID   string
	Title     string
	Due       time.Time
	TriggerAt time.Time
}

type queueItem struct {
	reminder Reminder
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].reminder.TriggerAt.Before(pq[j].reminder.TriggerAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	out     chan Reminder
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
	now     func() time.Time
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(priorityQueue, 0),
		out:    make(chan Reminder, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// C yields due reminders. It is closed once the engine stops.
func (e *Engine) C() <-chan Reminder {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Schedule(r Reminder) error {
	if r.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}

	heap.Push(&e.queue, queueItem{reminder: r})
	e.signalWakeup()
	return nil
}

// Plan replaces the queued reminders of userID with one per open entry,
// triggered lead days before the entry date. Entries already past due are
// skipped; reminders whose trigger has passed fire immediately.
func (e *Engine) Plan(userID string, entries []model.Entry, lead int) (int, error) {
	if lead < 0 {
		lead = 0
	}
	now := e.now()
	today := model.Day(now)
	e.Cancel(userID)

	n := 0
	for _, entry := range entries {
		if entry.IsCompleted || entry.Date.Before(today) {
			continue
		}
		trigger := model.DateFor(entry.Date, lead)
		if trigger.Before(now) {
			trigger = now
		}
		err := e.Schedule(Reminder{
			ID:        userID + "/" + entry.ID,
			UserID:    userID,
			EntryID:   entry.ID,
			Title:     entry.Title,
			Due:       entry.Date,
			TriggerAt: trigger,
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Cancel drops every queued reminder that belongs to userID.
func (e *Engine) Cancel(userID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.queue[:0]
	removed := 0
	for _, item := range e.queue {
		if item.reminder.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	e.queue = kept
	heap.Init(&e.queue)
	if removed > 0 {
		e.signalWakeup()
	}
	return removed
}

// Pending reports how many reminders are queued.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

// Forward publishes every due reminder on pub until ctx is done or the engine
// stops.
func (e *Engine) Forward(ctx context.Context, pub notify.Publisher) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-e.out:
			if !ok {
				return
			}
			pub.Publish(notify.Event{
				Kind:    notify.KindReminder,
				UserID:  r.UserID,
				EntryID: r.EntryID,
				Title:   r.Title,
				Date:    r.Due,
			})
		}
	}
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.TriggerAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now().UTC())
			for _, r := range due {
				select {
				case e.out <- r:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Reminder, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Reminder{}, false
	}
	return e.queue[0].reminder, true
}

func (e *Engine) popDue(now time.Time) []Reminder {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Reminder
	for len(e.queue) > 0 {
		next := e.queue[0].reminder
		if next.TriggerAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(queueItem)
		out = append(out, item.reminder)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
