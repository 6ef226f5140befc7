package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/planning_backend/models"
	"github.com/sirupsen/logrus"
)

// PlanningEvent is the in-process representation of a domain event. The same
// event is also written to the outbox for external subscribers; this type
// serves handlers living inside the process (notification fan-out, caches).
type PlanningEvent struct {
	Type          models.PlanningEventType
	TenantId      string
	OccurredAt    time.Time
	CorrelationId string
	Payload       any
}

type EventHandler func(event PlanningEvent)

// EventBus is constructed once per process and injected into the facade.
// There is intentionally no package-level bus: hidden global state makes the
// collect/flush contract unenforceable in tests.
type EventBus struct {
	mu            sync.RWMutex
	syncHandlers  map[models.PlanningEventType][]EventHandler
	asyncHandlers map[models.PlanningEventType][]EventHandler
	logger        *logrus.Logger
}

func NewEventBus(logger *logrus.Logger) *EventBus {
	return &EventBus{
		syncHandlers:  make(map[models.PlanningEventType][]EventHandler),
		asyncHandlers: make(map[models.PlanningEventType][]EventHandler),
		logger:        logger,
	}
}

// Subscribe registers a handler invoked inline during Flush.
func (b *EventBus) Subscribe(eventType models.PlanningEventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncHandlers[eventType] = append(b.syncHandlers[eventType], handler)
}

// SubscribeAsync registers a handler scheduled on its own goroutine after the
// triggering call has completed, so slow subscribers never add latency to
// planning calls.
func (b *EventBus) SubscribeAsync(eventType models.PlanningEventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.asyncHandlers[eventType] = append(b.asyncHandlers[eventType], handler)
}

// NewCollector opens a buffer scoped to one planning call. Events emitted into
// it are invisible to subscribers until Flush; Discard drops them entirely.
// The expected shape at call sites:
//
//	collector := bus.NewCollector()
//	defer collector.Discard() // no-op once flushed
//	... emit during the DB transaction ...
//	collector.Flush()         // only after the transaction committed
func (b *EventBus) NewCollector() *EventCollector {
	return &EventCollector{bus: b}
}

type EventCollector struct {
	bus    *EventBus
	buffer []PlanningEvent
	done   bool
}

func (c *EventCollector) Emit(eventType models.PlanningEventType, tenantId string, correlationId string, payload any) {
	if c.done {
		return
	}
	if correlationId == "" {
		correlationId = uuid.NewString()
	}
	c.buffer = append(c.buffer, PlanningEvent{
		Type:          eventType,
		TenantId:      tenantId,
		OccurredAt:    time.Now().UTC(),
		CorrelationId: correlationId,
		Payload:       payload,
	})
}

func (c *EventCollector) Pending() int {
	return len(c.buffer)
}

// Flush delivers the buffered events: sync handlers inline, async handlers on
// their own goroutines. A failing handler is logged and isolated; it never
// aborts sibling handlers or the triggering operation.
func (c *EventCollector) Flush() {
	if c.done {
		return
	}
	c.done = true
	events := c.buffer
	c.buffer = nil

	for _, event := range events {
		c.bus.mu.RLock()
		syncHs := c.bus.syncHandlers[event.Type]
		asyncHs := c.bus.asyncHandlers[event.Type]
		c.bus.mu.RUnlock()

		for _, h := range syncHs {
			c.bus.safeInvoke(h, event)
		}
		for _, h := range asyncHs {
			handler := h
			ev := event
			go c.bus.safeInvoke(handler, ev)
		}
	}
}

// Discard drops all buffered events. Safe to call unconditionally via defer;
// it is a no-op after Flush.
func (c *EventCollector) Discard() {
	if c.done {
		return
	}
	c.done = true
	c.buffer = nil
}

func (b *EventBus) safeInvoke(handler EventHandler, event PlanningEvent) {
	defer func() {
		if r := recover(); r != nil {
			if b.logger != nil {
				b.logger.WithFields(logrus.Fields{
					"module":     "workflow",
					"funcName":   "EventBus.safeInvoke",
					"event_type": string(event.Type),
					"tenant_id":  event.TenantId,
				}).Error(fmt.Sprintf("event handler panicked: %v", r))
			}
		}
	}()
	handler(event)
}
