// Package notify forwards engine events to caregivers beyond the
// dashboard: an MQTT publisher for facility integrations and a webhook
// poster for SMS/push bridges.
package notify

import (
	"go.uber.org/zap"

	"github.com/carebot-oss/carebot/pkg/engine"
)

// EventHandler consumes one engine event. Handlers must not block;
// anything slow buffers or drops internally.
type EventHandler func(ev engine.Event)

// Dispatcher drains an engine event feed and fans each event out to
// the configured handlers in order.
type Dispatcher struct {
	log      *zap.Logger
	handlers []EventHandler
}

// NewDispatcher builds a dispatcher over the given handlers.
func NewDispatcher(log *zap.Logger, handlers ...EventHandler) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{log: log, handlers: handlers}
}

// Run consumes events until the feed closes. Call it in a goroutine
// with the channel from an engine subscription.
func (d *Dispatcher) Run(events <-chan engine.Event) {
	for ev := range events {
		for _, h := range d.handlers {
			h(ev)
		}
	}
	d.log.Debug("event feed closed")
}
