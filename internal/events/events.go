package events

import (
	"fmt"
	"sync"

	console "actionhub/internal/utils/logger"
)

var log = console.New("EVENTS")

// ActionSucceeded carries a notification job for a completed action.
const ActionSucceeded = "action.succeeded"

type EventHandler func(interface{})

// EventBus runs every handler in its own goroutine; Emit never blocks on
// them and a panicking handler is contained.
type EventBus struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
	inflight sync.WaitGroup
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string][]EventHandler),
	}
}

// On registers a handler for an event
func (bus *EventBus) On(event string, handler EventHandler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.handlers[event] = append(bus.handlers[event], handler)
	log.Debug("Registered handler for event: %s", event)
}

// Emit triggers an event with the given data and returns immediately.
func (bus *EventBus) Emit(event string, data interface{}) {
	bus.mu.RLock()
	handlers := bus.handlers[event]
	bus.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	log.Debug("Emitting event: %s", event)

	for _, handler := range handlers {
		bus.inflight.Add(1)
		go func(h EventHandler) {
			defer bus.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					_ = log.Error("Panic in %s handler", fmt.Errorf("panic: %v", r), event)
				}
			}()
			h(data)
		}(handler)
	}
}

// Wait blocks until every handler started so far has returned. Used on
// shutdown so in-flight notifications are not cut off.
func (bus *EventBus) Wait() {
	bus.inflight.Wait()
}
