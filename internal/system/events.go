package system

import (
	"time"

	"github.com/nightwatch/server/internal/core/event"
	coresys "github.com/nightwatch/server/internal/core/system"
)

// EventSystem rotates the bus buffers and delivers last tick's events.
// Registered first in PhaseInput so every other system sees a consistent
// front buffer.
type EventSystem struct {
	bus *event.Bus
}

func NewEventSystem(bus *event.Bus) *EventSystem {
	return &EventSystem{bus: bus}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *EventSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
