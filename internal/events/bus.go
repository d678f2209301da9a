// Package events broadcasts job and batch events in-process. Delivery to
// each subscriber is asynchronous; subscribers that need strict ordering
// with the engine should use a reporter instead.
package events

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kelindar/event"

	"github.com/five82/lutgrade/internal/reporter"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher

	mu   sync.Mutex
	subs map[uint32][]*subscription
}

// subscription counts the events queued for and handled by one handler.
type subscription struct {
	published atomic.Int64
	delivered atomic.Int64
}

func (s *subscription) idle() bool {
	return s.delivered.Load() >= s.published.Load()
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
		subs:       make(map[uint32][]*subscription),
	}
}

// Publish publishes an event to all subscribers.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case LogEvent:
		publish(b, e)
	case JobStartedEvent:
		publish(b, e)
	case JobProgressEvent:
		publish(b, e)
	case JobCompleteEvent:
		publish(b, e)
	case BatchStartedEvent:
		publish(b, e)
	case BatchProgressEvent:
		publish(b, e)
	case BatchCompleteEvent:
		publish(b, e)
	case WarningEvent:
		publish(b, e)
	case ErrorEvent:
		publish(b, e)
	}
}

// Subscribe registers handler for the event type it accepts and returns an
// unsubscribe function. Unknown handler types get a no-op unsubscribe.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(LogEvent):
		return subscribe(b, h)
	case func(JobStartedEvent):
		return subscribe(b, h)
	case func(JobProgressEvent):
		return subscribe(b, h)
	case func(JobCompleteEvent):
		return subscribe(b, h)
	case func(BatchStartedEvent):
		return subscribe(b, h)
	case func(BatchProgressEvent):
		return subscribe(b, h)
	case func(BatchCompleteEvent):
		return subscribe(b, h)
	case func(WarningEvent):
		return subscribe(b, h)
	case func(ErrorEvent):
		return subscribe(b, h)
	default:
		return func() {}
	}
}

// drainPoll is how often Drain rechecks the subscriptions.
const drainPoll = 5 * time.Millisecond

// Drain waits until every live subscription has handled the events
// published to it, or timeout elapses. Subscriptions removed in the
// meantime are not waited for. Reports whether the bus drained.
func (b *Bus) Drain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for !b.idle() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(drainPoll)
	}
	return true
}

// Close stops the dispatcher. The bus must not be used afterwards.
func (b *Bus) Close() error {
	return b.dispatcher.Close()
}

func (b *Bus) idle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subs := range b.subs {
		for _, s := range subs {
			if !s.idle() {
				return false
			}
		}
	}
	return true
}

func publish[T Event](b *Bus, ev T) {
	b.mu.Lock()
	for _, s := range b.subs[ev.Type()] {
		s.published.Add(1)
	}
	b.mu.Unlock()
	event.Publish(b.dispatcher, ev)
}

func subscribe[T Event](b *Bus, h func(T)) func() {
	var zero T
	typ := zero.Type()
	sub := &subscription{}

	// Counted only once the dispatcher queues for it, so every counted
	// event reaches the handler.
	cancel := event.Subscribe(b.dispatcher, func(ev T) {
		h(ev)
		sub.delivered.Add(1)
	})
	b.mu.Lock()
	b.subs[typ] = append(b.subs[typ], sub)
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			b.mu.Lock()
			b.subs[typ] = slices.DeleteFunc(b.subs[typ], func(s *subscription) bool { return s == sub })
			b.mu.Unlock()
		})
	}
}

// Publisher is a reporter that publishes everything it receives on a bus.
type Publisher struct {
	bus *Bus
}

var _ reporter.Reporter = (*Publisher)(nil)

// NewPublisher creates a reporter publishing to bus.
func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) Log(line reporter.LogLine) {
	p.bus.Publish(LogEvent{line})
}

func (p *Publisher) JobStarted(info reporter.JobStartInfo) {
	p.bus.Publish(JobStartedEvent{info})
}

func (p *Publisher) JobProgress(progress reporter.ProgressSnapshot) {
	p.bus.Publish(JobProgressEvent{progress})
}

func (p *Publisher) JobComplete(outcome reporter.JobOutcome) {
	p.bus.Publish(JobCompleteEvent{outcome})
}

func (p *Publisher) Warning(message string) {
	p.bus.Publish(WarningEvent{Message: message})
}

func (p *Publisher) Error(err reporter.ReporterError) {
	p.bus.Publish(ErrorEvent{err})
}

// OperationComplete is not published.
func (p *Publisher) OperationComplete(string) {}

func (p *Publisher) BatchStarted(info reporter.BatchStartInfo) {
	p.bus.Publish(BatchStartedEvent{info})
}

// FileProgress is not published; JobStarted carries the same information.
func (p *Publisher) FileProgress(reporter.FileProgressContext) {}

func (p *Publisher) BatchProgress(progress reporter.BatchProgressSnapshot) {
	p.bus.Publish(BatchProgressEvent{progress})
}

func (p *Publisher) BatchComplete(summary reporter.BatchSummary) {
	p.bus.Publish(BatchCompleteEvent{summary})
}

// Verbose is not published.
func (p *Publisher) Verbose(string) {}
